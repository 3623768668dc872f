package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
)

func usageFilter(key entitlement.UsageKey) bson.M {
	return bson.M{
		"organization_id": key.OrganizationID.String(),
		"feature_code":    string(key.Feature),
		"usage_period":    string(key.Period),
		"period_start":    key.Start,
		"period_end":      key.End,
	}
}

func (s *Store) UsageCount(ctx context.Context, key entitlement.UsageKey) (int64, error) {
	var d usageDoc
	err := s.usage.FindOne(ctx, usageFilter(key)).Decode(&d)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("get usage: %w", err)
	}
	return d.Count, nil
}

// IncrementUsage upserts the counter row with $inc. Two first increments
// racing on the unique index make one upsert fail with a duplicate key; that
// call is retried once and then matches the row the other created.
func (s *Store) IncrementUsage(ctx context.Context, key entitlement.UsageKey, by int64, resetDate *time.Time, now time.Time) (*entitlement.Usage, error) {
	update := bson.M{
		"$inc": bson.M{"usage_count": by},
		"$set": bson.M{"updated_at": now},
		"$setOnInsert": bson.M{
			"reset_date": resetDate,
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var d usageDoc
	err := s.usage.FindOneAndUpdate(ctx, usageFilter(key), update, opts).Decode(&d)
	if mongo.IsDuplicateKeyError(err) {
		err = s.usage.FindOneAndUpdate(ctx, usageFilter(key), update, opts).Decode(&d)
	}
	if err != nil {
		return nil, fmt.Errorf("increment usage: %w", err)
	}
	return d.model()
}
