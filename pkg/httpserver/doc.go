// Package httpserver runs an HTTP server with graceful shutdown and health
// probes.
//
//	srv := httpserver.NewFromConfig(cfg,
//		httpserver.WithLogger(log),
//		httpserver.WithStopHook(func(context.Context) { gate.Wait() }),
//	)
//	r.Get("/health/live", httpserver.Liveness())
//	r.Get("/health/ready", httpserver.Readiness(log, 2*time.Second,
//		httpserver.Check{Name: "mongo", Probe: mongo.Healthcheck(client)},
//	))
//	err := srv.Run(ctx, r)
//
// Run returns once ctx is cancelled and in-flight requests finished or the
// shutdown timeout passed. Stop hooks run after the listener closed.
package httpserver
