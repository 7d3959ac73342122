// Package registrants owns the registrant records: public registration and
// the authenticated view/edit/delete operations over them. It also
// implements the credential lookup the auth orchestrator consumes.
package registrants

import (
	"time"
)

// Registrant is the domain model for a registered person. Database scanning
// and JSON marshaling use this struct directly.
type Registrant struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Age          int       `json:"age"`
	PasswordHash string    `json:"-"` // Never expose in JSON responses.
	ImagePath    *string   `json:"image_path,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterRequest holds the data submitted by the registration form.
// ImagePath is the stored path of an already-uploaded profile image;
// image processing itself happens upstream of this service.
type RegisterRequest struct {
	Name      string `json:"name" form:"name"`
	Email     string `json:"email" form:"email"`
	Phone     string `json:"phone" form:"phone"`
	Age       string `json:"age" form:"age"`
	Password  string `json:"password" form:"password"`
	ImagePath string `json:"image_path" form:"image_path"`
}

// UpdateRequest holds the editable profile fields. Credentials are not
// editable through this path.
type UpdateRequest struct {
	Name  string `json:"name" form:"name"`
	Phone string `json:"phone" form:"phone"`
	Age   string `json:"age" form:"age"`
}
