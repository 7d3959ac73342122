package registrants

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/varekai/roster/internal/apperror"
	"github.com/varekai/roster/internal/plugins/auth"
	"github.com/varekai/roster/internal/sanitize"
	"github.com/varekai/roster/internal/security"
)

// maxNameLength bounds the stored name field.
const maxNameLength = 100

// RegistrantService defines the business logic contract for registrant
// records. It also doubles as the auth orchestrator's credential lookup.
type RegistrantService interface {
	auth.UserLookup

	Register(ctx context.Context, req RegisterRequest) (*Registrant, error)
	List(ctx context.Context) ([]Registrant, error)
	Get(ctx context.Context, id string) (*Registrant, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Registrant, error)
	Delete(ctx context.Context, id string) error
}

// registrantService implements RegistrantService.
type registrantService struct {
	repo Repository
}

// NewService creates a registrant service over the given repository.
func NewService(repo Repository) RegistrantService {
	return &registrantService{repo: repo}
}

// Register validates, sanitizes, and persists a new registrant. Input is
// cleaned before the uniqueness check so "Alice@x.com " and "alice@x.com"
// collide as expected.
func (s *registrantService) Register(ctx context.Context, req RegisterRequest) (*Registrant, error) {
	name, err := sanitize.String(req.Name, maxNameLength)
	if err != nil {
		return nil, err
	}
	if len(name) < 2 {
		return nil, apperror.NewValidation("name must be at least 2 characters long")
	}

	email, err := sanitize.Email(req.Email)
	if err != nil {
		return nil, err
	}

	phone, err := sanitize.Phone(req.Phone)
	if err != nil {
		return nil, err
	}

	age, err := sanitize.Age(req.Age)
	if err != nil {
		return nil, err
	}

	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	// Check uniqueness before doing expensive hashing.
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking email: %w", err))
	}
	if exists {
		return nil, apperror.NewConflict("an account with this email already exists")
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	reg := &Registrant{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Phone:        phone,
		Age:          age,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if req.ImagePath != "" {
		reg.ImagePath = &req.ImagePath
	}

	if err := s.repo.Create(ctx, reg); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating registrant: %w", err))
	}

	slog.Info("registrant created",
		slog.String("registrant_id", reg.ID),
		slog.String("email", reg.Email),
	)

	return reg, nil
}

// List returns all active registrants.
func (s *registrantService) List(ctx context.Context) ([]Registrant, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing registrants: %w", err))
	}
	return out, nil
}

// Get returns one registrant by id.
func (s *registrantService) Get(ctx context.Context, id string) (*Registrant, error) {
	return s.repo.FindByID(ctx, id)
}

// Update sanitizes and writes the editable profile fields.
func (s *registrantService) Update(ctx context.Context, id string, req UpdateRequest) (*Registrant, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name, err := sanitize.String(req.Name, maxNameLength)
	if err != nil {
		return nil, err
	}
	if len(name) < 2 {
		return nil, apperror.NewValidation("name must be at least 2 characters long")
	}

	phone, err := sanitize.Phone(req.Phone)
	if err != nil {
		return nil, err
	}

	age, err := sanitize.Age(req.Age)
	if err != nil {
		return nil, err
	}

	reg.Name = name
	reg.Phone = phone
	reg.Age = age

	if err := s.repo.Update(ctx, reg); err != nil {
		return nil, err
	}

	slog.Info("registrant updated", slog.String("registrant_id", id))
	return reg, nil
}

// Delete removes a registrant record.
func (s *registrantService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("registrant deleted", slog.String("registrant_id", id))
	return nil
}

// LookupCredentials implements auth.UserLookup over the registrant table.
func (s *registrantService) LookupCredentials(ctx context.Context, email string) (*auth.Credentials, error) {
	reg, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	return &auth.Credentials{
		Email:        reg.Email,
		Name:         reg.Name,
		PasswordHash: reg.PasswordHash,
		Profile: map[string]any{
			"id":    reg.ID,
			"phone": reg.Phone,
			"age":   reg.Age,
		},
	}, nil
}

// validatePassword enforces the registration password policy: at least 8
// characters with an upper-case letter, a lower-case letter, and a digit.
func validatePassword(password string) error {
	if password == "" {
		return apperror.NewValidation("password is required")
	}
	if len(password) < 8 {
		return apperror.NewValidation("password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	switch {
	case !hasUpper:
		return apperror.NewValidation("password must contain at least one uppercase letter")
	case !hasLower:
		return apperror.NewValidation("password must contain at least one lowercase letter")
	case !hasDigit:
		return apperror.NewValidation("password must contain at least one number")
	}
	return nil
}
