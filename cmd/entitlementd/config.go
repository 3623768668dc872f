package main

import (
	"fmt"
	"time"
)

const (
	driverMemory = "memory"
	driverMongo  = "mongo"
)

type appConfig struct {
	Env              string        `env:"APP_ENV" envDefault:"development"`
	ServiceName      string        `env:"SERVICE_NAME" envDefault:"entitlementd"`
	LogLevel         string        `env:"LOG_LEVEL"`
	StoreDriver      string        `env:"STORE_DRIVER" envDefault:"memory"`
	CatalogPath      string        `env:"CATALOG_PATH"`
	PlanCacheEnabled bool          `env:"PLAN_CACHE_ENABLED" envDefault:"false"`
	APIPrefix        string        `env:"API_PREFIX" envDefault:"/api/v1"`
	ReadinessTimeout time.Duration `env:"READINESS_TIMEOUT" envDefault:"3s"`
	TrialSweepHour   int           `env:"TRIAL_SWEEP_HOUR" envDefault:"2"`
	NoticeHour       int           `env:"TRIAL_NOTICE_HOUR" envDefault:"9"`
	NoticeDays       int           `env:"TRIAL_NOTICE_DAYS" envDefault:"3"`
	JobTimeout       time.Duration `env:"JOB_TIMEOUT" envDefault:"10m"`
	TrackTimeout     time.Duration `env:"USAGE_TRACK_TIMEOUT" envDefault:"5s"`
	UpgradeURL       string        `env:"UPGRADE_URL" envDefault:"http://localhost:8080/billing/upgrade"`
}

func (c appConfig) validate() error {
	switch c.StoreDriver {
	case driverMemory, driverMongo:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q: must be %q or %q", c.StoreDriver, driverMemory, driverMongo)
	}
	if c.TrialSweepHour < 0 || c.TrialSweepHour > 23 {
		return fmt.Errorf("TRIAL_SWEEP_HOUR must be between 0 and 23, got %d", c.TrialSweepHour)
	}
	if c.NoticeHour < 0 || c.NoticeHour > 23 {
		return fmt.Errorf("TRIAL_NOTICE_HOUR must be between 0 and 23, got %d", c.NoticeHour)
	}
	return nil
}
