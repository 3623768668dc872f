// Package mongostore persists the entitlement engine in MongoDB.
//
// Each entity lives in its own collection: licenses, features,
// license_features, organizations, organization_usage and
// subscription_history. Identifiers are stored as strings; license and
// feature codes are the document ids of their reference collections.
//
// Tier transitions are single conditional FindOneAndUpdate calls, so a lazy
// expiry and a scheduled sweep racing on one organization change it once.
// Usage counters are upserted with $inc and $setOnInsert under a unique
// index on the counter window.
//
//	db, err := mongo.Open(ctx, cfg)
//	store := mongostore.New(db)
//	if err := store.EnsureIndexes(ctx); err != nil {
//		return err
//	}
package mongostore
