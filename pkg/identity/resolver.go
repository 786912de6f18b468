package identity

import (
	"context"
	"database/sql"

	"github.com/brightclass/reportcard/pkg/errs"
)

// Resolver loads user profiles from the persistent store and enforces
// the active-session precondition that every operation shares.
type Resolver struct {
	db *sql.DB
}

// NewResolver creates a profile resolver backed by db.
func NewResolver(db *sql.DB) *Resolver {
	return &Resolver{db: db}
}

// ValidateUser resolves userID to an active profile. It fails with an
// unauthorized outcome when the id is empty, the profile does not
// exist, or the account is inactive. Read-only.
func (r *Resolver) ValidateUser(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, errs.Unauthorized("User ID is required")
	}

	query := `
		SELECT id, role, status, full_name, email, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	var p Profile
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.ID,
		&p.Role,
		&p.Status,
		&p.FullName,
		&p.Email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errs.Unauthorized("User not found")
	}
	if err != nil {
		return nil, errs.TransientStore("profile lookup failed", err)
	}

	if p.Status != StatusActive {
		return nil, errs.Unauthorized("User account is inactive")
	}

	return &p, nil
}
