// Package config loads typed configuration from environment variables.
//
// Structs are annotated with github.com/caarlos0/env tags; an optional .env
// file in the working directory is read once through github.com/joho/godotenv.
//
//	type appConfig struct {
//		StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`
//		SweepHour   int    `env:"TRIAL_SWEEP_HOUR" envDefault:"2"`
//	}
//
//	var cfg appConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Load caches per type, so packages can load the same struct independently.
// Parse skips the cache and applies a key prefix.
package config
