package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/learnhub-payments/internal/db"
)

// GetEntitlement returns the user's entitlement as of now. A user with no row
// is on the free tier. A row whose period has ended reads as expired; the
// stored row is left as is and the next approval overwrites it.
func (s *Store) GetEntitlement(ctx context.Context, userID uuid.UUID, now time.Time) (db.Entitlement, error) {
	ent, err := s.q.GetEntitlementByUser(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Entitlement{
			UserID:   userID,
			PlanTier: db.PlanTierFree,
			Status:   db.EntitlementStatusActive,
		}, nil
	}
	if err != nil {
		return db.Entitlement{}, fmt.Errorf("store: get entitlement: %w", err)
	}
	if ent.PeriodEnd.Valid && !ent.PeriodEnd.Time.After(now) {
		ent.Status = db.EntitlementStatusExpired
	}
	return ent, nil
}
