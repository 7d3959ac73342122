package registrants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/varekai/roster/internal/apperror"
)

// Repository defines the data access contract for registrant records.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type Repository interface {
	Create(ctx context.Context, r *Registrant) error
	FindByID(ctx context.Context, id string) (*Registrant, error)
	FindByEmail(ctx context.Context, email string) (*Registrant, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]Registrant, error)
	Update(ctx context.Context, r *Registrant) error
	Delete(ctx context.Context, id string) error
}

// repository implements Repository with hand-written MariaDB queries.
type repository struct {
	db *sql.DB
}

// NewRepository creates a registrant repository backed by the given DB pool.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// Create inserts a new registrant row.
func (r *repository) Create(ctx context.Context, reg *Registrant) error {
	query := `INSERT INTO registrants (id, name, email, phone, age, password_hash, image_path, is_active, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		reg.ID,
		reg.Name,
		reg.Email,
		reg.Phone,
		reg.Age,
		reg.PasswordHash,
		reg.ImagePath,
		reg.IsActive,
		reg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting registrant: %w", err)
	}

	return nil
}

// FindByID retrieves a registrant by id.
// Returns apperror.NotFound if no active registrant exists with this id.
func (r *repository) FindByID(ctx context.Context, id string) (*Registrant, error) {
	query := `SELECT id, name, email, phone, age, password_hash, image_path, is_active, created_at
	          FROM registrants WHERE id = ? AND is_active = true`

	return r.scanOne(r.db.QueryRowContext(ctx, query, id), "id")
}

// FindByEmail retrieves a registrant by email address.
// Returns apperror.NotFound if no active registrant exists with this email.
func (r *repository) FindByEmail(ctx context.Context, email string) (*Registrant, error) {
	query := `SELECT id, name, email, phone, age, password_hash, image_path, is_active, created_at
	          FROM registrants WHERE email = ? AND is_active = true`

	return r.scanOne(r.db.QueryRowContext(ctx, query, email), "email")
}

// EmailExists returns true if a registrant with the given email already
// exists. Checked during registration before the expensive password hash.
func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM registrants WHERE email = ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking email existence: %w", err)
	}

	return exists, nil
}

// List returns all active registrants ordered by registration date.
func (r *repository) List(ctx context.Context) ([]Registrant, error) {
	query := `SELECT id, name, email, phone, age, password_hash, image_path, is_active, created_at
	          FROM registrants WHERE is_active = true ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing registrants: %w", err)
	}
	defer rows.Close()

	var out []Registrant
	for rows.Next() {
		var reg Registrant
		if err := rows.Scan(
			&reg.ID, &reg.Name, &reg.Email, &reg.Phone, &reg.Age,
			&reg.PasswordHash, &reg.ImagePath, &reg.IsActive, &reg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning registrant row: %w", err)
		}
		out = append(out, reg)
	}

	return out, rows.Err()
}

// Update writes the editable profile fields back to the row.
func (r *repository) Update(ctx context.Context, reg *Registrant) error {
	query := `UPDATE registrants SET name = ?, phone = ?, age = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, reg.Name, reg.Phone, reg.Age, reg.ID)
	if err != nil {
		return fmt.Errorf("updating registrant: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("registrant not found")
	}

	return nil
}

// Delete removes a registrant row.
func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM registrants WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting registrant: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("registrant not found")
	}

	return nil
}

// scanOne scans a single registrant row, mapping sql.ErrNoRows to NotFound.
func (r *repository) scanOne(row *sql.Row, by string) (*Registrant, error) {
	reg := &Registrant{}
	err := row.Scan(
		&reg.ID, &reg.Name, &reg.Email, &reg.Phone, &reg.Age,
		&reg.PasswordHash, &reg.ImagePath, &reg.IsActive, &reg.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("registrant not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying registrant by %s: %w", by, err)
	}

	return reg, nil
}
