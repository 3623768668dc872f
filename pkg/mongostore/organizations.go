package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
)

func (s *Store) CreateOrganization(ctx context.Context, org *entitlement.Organization) error {
	if _, err := s.organizations.InsertOne(ctx, newOrganizationDoc(org)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return entitlement.ErrOrganizationExists
		}
		return fmt.Errorf("insert organization: %w", err)
	}
	return nil
}

func (s *Store) GetOrganization(ctx context.Context, id uuid.UUID) (*entitlement.Organization, error) {
	var d organizationDoc
	if err := s.organizations.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&d); err != nil {
		return nil, notFound(err, entitlement.ErrOrganizationNotFound, "get organization")
	}
	return d.model()
}

func (s *Store) ListOrganizations(ctx context.Context, filter entitlement.OrganizationFilter) ([]entitlement.Organization, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	var docs []organizationDoc
	if err := findAll(ctx, s.organizations, organizationFilter(filter), opts, &docs); err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	out := make([]entitlement.Organization, 0, len(docs))
	for _, d := range docs {
		o, err := d.model()
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, nil
}

func organizationFilter(f entitlement.OrganizationFilter) bson.M {
	filter := bson.M{}
	if f.Status != nil {
		filter["subscription_status"] = string(*f.Status)
	}
	trialEnd := bson.M{}
	if f.TrialEndFrom != nil {
		trialEnd["$gte"] = *f.TrialEndFrom
	}
	if f.TrialEndBefore != nil {
		trialEnd["$lt"] = *f.TrialEndBefore
	}
	if f.TrialEndThrough != nil {
		trialEnd["$lte"] = *f.TrialEndThrough
	}
	if len(trialEnd) > 0 {
		filter["trial_end_date"] = trialEnd
	}
	return filter
}

func (s *Store) CountByStatus(ctx context.Context) (map[entitlement.SubscriptionStatus]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$subscription_status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := s.organizations.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("count organizations: %w", err)
	}
	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("count organizations: %w", err)
	}
	counts := make(map[entitlement.SubscriptionStatus]int64, len(rows))
	for _, r := range rows {
		counts[entitlement.SubscriptionStatus(r.Status)] = r.Count
	}
	return counts, nil
}

func (s *Store) ApplySubscription(ctx context.Context, id uuid.UUID, change entitlement.SubscriptionChange, now time.Time) (*entitlement.Organization, error) {
	update := bson.M{"$set": bson.M{
		"license_code":            string(change.License),
		"subscription_status":     string(change.Status),
		"subscription_start_date": change.Start,
		"subscription_end_date":   change.End,
		"billing_cycle":           string(change.BillingCycle),
		"auto_renew":              change.AutoRenew,
		"updated_at":              now,
	}}
	return s.updateOrganization(ctx, bson.M{"_id": id.String()}, update, "apply subscription")
}

// lapsedFilter matches the organization only while its trial or paid term
// has ended before now.
func lapsedFilter(id uuid.UUID, now time.Time) bson.M {
	return bson.M{
		"_id": id.String(),
		"$or": bson.A{
			bson.M{"subscription_status": string(entitlement.StatusTrial), "trial_end_date": bson.M{"$lt": now}},
			bson.M{"subscription_status": string(entitlement.StatusActive), "subscription_end_date": bson.M{"$lt": now}},
		},
	}
}

func (s *Store) ExpireOrganization(ctx context.Context, id uuid.UUID, now time.Time) (*entitlement.Organization, bool, error) {
	update := bson.M{"$set": bson.M{
		"license_code":          string(entitlement.LicenseExpired),
		"subscription_status":   string(entitlement.StatusExpired),
		"subscription_end_date": now,
		"updated_at":            now,
	}}
	org, err := s.updateOrganization(ctx, lapsedFilter(id, now), update, "expire organization")
	switch {
	case err == nil:
		return org, true, nil
	case !errors.Is(err, entitlement.ErrOrganizationNotFound):
		return nil, false, err
	}

	org, err = s.GetOrganization(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return org, false, nil
}

func (s *Store) ExtendTrial(ctx context.Context, id uuid.UUID, end time.Time, now time.Time) (*entitlement.Organization, error) {
	filter := bson.M{"_id": id.String(), "subscription_status": string(entitlement.StatusTrial)}
	update := bson.M{"$set": bson.M{"trial_end_date": end, "updated_at": now}}
	org, err := s.updateOrganization(ctx, filter, update, "extend trial")
	if !errors.Is(err, entitlement.ErrOrganizationNotFound) {
		return org, err
	}
	if _, err := s.GetOrganization(ctx, id); err != nil {
		return nil, err
	}
	return nil, entitlement.ErrNotOnTrial
}

func (s *Store) updateOrganization(ctx context.Context, filter, update bson.M, op string) (*entitlement.Organization, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d organizationDoc
	if err := s.organizations.FindOneAndUpdate(ctx, filter, update, opts).Decode(&d); err != nil {
		return nil, notFound(err, entitlement.ErrOrganizationNotFound, op)
	}
	return d.model()
}
