package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SystemActor is recorded as created_by for transitions not made by a user.
const SystemActor = "system"

// OrganizationHistoryStore is the subset of Store needed to record transitions.
type OrganizationHistoryStore interface {
	OrganizationStore
	HistoryStore
}

// Expire downgrades a lapsed organization and records the transition.
// Concurrent callers race on the store's conditional write, so exactly one
// of them appends the EXPIRED history entry.
func Expire(ctx context.Context, store OrganizationHistoryStore, id uuid.UUID, now time.Time, actor string, note string) (*Organization, bool, error) {
	org, changed, err := store.ExpireOrganization(ctx, id, now)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return org, false, nil
	}

	entry := &HistoryEntry{
		ID:             uuid.New(),
		OrganizationID: id,
		License:        LicenseExpired,
		Action:         ActionExpired,
		PaymentStatus:  PaymentNone,
		PeriodEnd:      &now,
		CreatedBy:      actor,
		Notes:          note,
		CreatedAt:      now,
	}
	if err := store.AppendHistory(ctx, entry); err != nil {
		return org, true, fmt.Errorf("record expiry history: %w", err)
	}
	return org, true, nil
}
