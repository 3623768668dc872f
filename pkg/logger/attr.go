package logger

import (
	"log/slog"
	"time"
)

// Error records err under "error". A nil err yields an empty Attr, which
// slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the emitting component under "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records a named event under "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// RequestID records the request identifier under "request_id".
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// UserID records the acting user under "user_id".
func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

// OrganizationID records an organization identifier under "organization_id".
func OrganizationID(id interface{ String() string }) slog.Attr {
	return slog.String("organization_id", id.String())
}

// FeatureCode records a feature code under "feature_code".
func FeatureCode[T ~string](code T) slog.Attr {
	return slog.String("feature_code", string(code))
}

// LicenseCode records a license code under "license_code".
func LicenseCode[T ~string](code T) slog.Attr {
	return slog.String("license_code", string(code))
}

// Duration records an elapsed time under "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
