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

// SeedCatalog upserts every license, feature and grant of c. Existing rows
// are replaced; rows absent from c are left in place.
func (s *Store) SeedCatalog(ctx context.Context, c *entitlement.Catalog) error {
	if c == nil {
		return entitlement.ErrInvalidCatalog
	}
	upsert := options.Replace().SetUpsert(true)

	for _, l := range c.Licenses {
		if _, err := s.licenses.ReplaceOne(ctx, bson.M{"_id": string(l.Code)}, newLicenseDoc(l), upsert); err != nil {
			return errors.Join(ErrSeedFailed, fmt.Errorf("license %s: %w", l.Code, err))
		}
	}
	for _, f := range c.Features {
		if _, err := s.features.ReplaceOne(ctx, bson.M{"_id": string(f.Code)}, newFeatureDoc(f), upsert); err != nil {
			return errors.Join(ErrSeedFailed, fmt.Errorf("feature %s: %w", f.Code, err))
		}
	}
	for _, g := range c.Grants {
		filter := bson.M{"license_code": string(g.License), "feature_code": string(g.Feature)}
		if _, err := s.grants.ReplaceOne(ctx, filter, newGrantDoc(g), upsert); err != nil {
			return errors.Join(ErrSeedFailed, fmt.Errorf("grant %s/%s: %w", g.License, g.Feature, err))
		}
	}
	return nil
}

func (s *Store) ListLicenses(ctx context.Context) ([]entitlement.License, error) {
	opts := options.Find().SetSort(bson.D{{Key: "monthly_price", Value: 1}, {Key: "_id", Value: 1}})
	var docs []licenseDoc
	if err := findAll(ctx, s.licenses, bson.M{}, opts, &docs); err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	out := make([]entitlement.License, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (s *Store) GetLicense(ctx context.Context, code entitlement.LicenseCode) (*entitlement.License, error) {
	var d licenseDoc
	if err := s.licenses.FindOne(ctx, bson.M{"_id": string(code)}).Decode(&d); err != nil {
		return nil, notFound(err, entitlement.ErrLicenseNotFound, "get license")
	}
	l := d.model()
	return &l, nil
}

func (s *Store) ListFeatures(ctx context.Context) ([]entitlement.Feature, error) {
	opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "_id", Value: 1}})
	var docs []featureDoc
	if err := findAll(ctx, s.features, bson.M{}, opts, &docs); err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	out := make([]entitlement.Feature, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (s *Store) ListLicenseFeatures(ctx context.Context, code entitlement.LicenseCode) ([]entitlement.LicenseFeature, error) {
	opts := options.Find().SetSort(bson.D{{Key: "feature_code", Value: 1}})
	var docs []grantDoc
	if err := findAll(ctx, s.grants, bson.M{"license_code": string(code)}, opts, &docs); err != nil {
		return nil, fmt.Errorf("list license features: %w", err)
	}
	out := make([]entitlement.LicenseFeature, 0, len(docs))
	for _, d := range docs {
		lf, err := d.model()
		if err != nil {
			return nil, err
		}
		out = append(out, lf)
	}
	return out, nil
}

func (s *Store) GetLicenseFeature(ctx context.Context, code entitlement.LicenseCode, feature entitlement.FeatureCode) (*entitlement.LicenseFeature, error) {
	var d grantDoc
	filter := bson.M{"license_code": string(code), "feature_code": string(feature)}
	if err := s.grants.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, notFound(err, entitlement.ErrFeatureNotFound, "get license feature")
	}
	lf, err := d.model()
	if err != nil {
		return nil, err
	}
	return &lf, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts *options.FindOptionsBuilder, out *[]T) error {
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}
