// Package directory reads the platform's users table to map payers onto
// accounts. It never writes and never caches: a user created a second ago
// must be visible to the next webhook.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nyashahama/learnhub-payments/internal/db"
)

// Directory resolves payers to platform users. found is false, with a nil
// error, when no user matches.
type Directory interface {
	FindUserByEmail(ctx context.Context, email string) (id uuid.UUID, found bool, err error)
	FindUserByID(ctx context.Context, id uuid.UUID) (uuid.UUID, bool, error)
}

// Postgres is a Directory over the users table.
type Postgres struct {
	q db.Querier
}

// NewPostgres returns a Directory backed by q.
func NewPostgres(q db.Querier) *Postgres {
	return &Postgres{q: q}
}

// FindUserByEmail matches case-insensitively after trimming whitespace.
func (d *Postgres) FindUserByEmail(ctx context.Context, email string) (uuid.UUID, bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return uuid.Nil, false, nil
	}
	u, err := d.q.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("directory: find by email: %w", err)
	}
	return u.ID, true, nil
}

// FindUserByID confirms that id still names an existing user.
func (d *Postgres) FindUserByID(ctx context.Context, id uuid.UUID) (uuid.UUID, bool, error) {
	if id == uuid.Nil {
		return uuid.Nil, false, nil
	}
	u, err := d.q.GetUserByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("directory: find by id: %w", err)
	}
	return u.ID, true, nil
}
