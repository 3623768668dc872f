// Package mongo connects to MongoDB using environment driven settings.
//
//	var cfg mongo.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//	db, err := mongo.Open(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer db.Client().Disconnect(context.Background())
//
// Connect retries failed attempts with a fixed interval and gives up early when
// the context is cancelled. Healthcheck adapts a client to the probe signature
// used by pkg/httpserver.
package mongo
