package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
)

// Collection names.
const (
	CollectionLicenses        = "licenses"
	CollectionFeatures        = "features"
	CollectionLicenseFeatures = "license_features"
	CollectionOrganizations   = "organizations"
	CollectionUsage           = "organization_usage"
	CollectionHistory         = "subscription_history"
)

// Store implements entitlement.Store on a MongoDB database.
type Store struct {
	licenses      *mongo.Collection
	features      *mongo.Collection
	grants        *mongo.Collection
	organizations *mongo.Collection
	usage         *mongo.Collection
	history       *mongo.Collection
}

var _ entitlement.Store = (*Store)(nil)
var _ entitlement.Seeder = (*Store)(nil)

// New returns a Store using the collections of db. Panics if db is nil.
func New(db *mongo.Database) *Store {
	if db == nil {
		panic("mongostore: database is required")
	}
	return &Store{
		licenses:      db.Collection(CollectionLicenses),
		features:      db.Collection(CollectionFeatures),
		grants:        db.Collection(CollectionLicenseFeatures),
		organizations: db.Collection(CollectionOrganizations),
		usage:         db.Collection(CollectionUsage),
		history:       db.Collection(CollectionHistory),
	}
}

// EnsureIndexes creates the unique and lookup indexes the store relies on.
// It is safe to call on every start.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.grants, []mongo.IndexModel{{
			Keys:    bson.D{{Key: "license_code", Value: 1}, {Key: "feature_code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("license_feature_unique"),
		}}},
		{s.usage, []mongo.IndexModel{{
			Keys: bson.D{
				{Key: "organization_id", Value: 1},
				{Key: "feature_code", Value: 1},
				{Key: "usage_period", Value: 1},
				{Key: "period_start", Value: 1},
				{Key: "period_end", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("usage_window_unique"),
		}}},
		{s.organizations, []mongo.IndexModel{{
			Keys:    bson.D{{Key: "subscription_status", Value: 1}, {Key: "trial_end_date", Value: 1}},
			Options: options.Index().SetName("status_trial_end"),
		}}},
		{s.history, []mongo.IndexModel{{
			Keys:    bson.D{{Key: "organization_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("organization_created"),
		}}},
	}
	for _, spec := range specs {
		if _, err := spec.coll.Indexes().CreateMany(ctx, spec.models); err != nil {
			return errors.Join(ErrIndexFailed, fmt.Errorf("%s: %w", spec.coll.Name(), err))
		}
	}
	return nil
}

// notFound converts mongo.ErrNoDocuments into target and wraps anything else.
func notFound(err, target error, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return target
	}
	return fmt.Errorf("%s: %w", op, err)
}
