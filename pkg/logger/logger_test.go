package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techizeBuilder/admin-task-manager/pkg/environment"
	"github.com/techizeBuilder/admin-task-manager/pkg/logger"
)

type ctxKey struct{}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json by default", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf))
		log.Info("hello")

		entry := decode(t, buf)
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "hello", entry["msg"])
	})

	t.Run("level filters records", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithLevelName("warn"))
		log.Info("dropped")
		assert.Empty(t, buf.String())
		log.Warn("kept")
		assert.Contains(t, buf.String(), "kept")
	})

	t.Run("production preset", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithEnvironment(environment.Production, "entitlementd"))
		log.Debug("dropped")
		log.Info("started")

		entry := decode(t, buf)
		assert.Equal(t, "entitlementd", entry["service"])
		assert.Equal(t, "production", entry["env"])
	})

	t.Run("development preset is text", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithEnvironment("", "entitlementd"))
		log.Debug("debugging")
		assert.Contains(t, buf.String(), "level=DEBUG")
		assert.Contains(t, buf.String(), "env=development")
	})

	t.Run("invalid format panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { logger.WithFormat("xml") })
	})
}

func TestContextExtractors(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.New(
		logger.WithOutput(buf),
		logger.WithContextExtractors(nil, func(ctx context.Context) (slog.Attr, bool) {
			v, ok := ctx.Value(ctxKey{}).(string)
			if !ok {
				return slog.Attr{}, false
			}
			return slog.String("trace", v), true
		}),
	)

	ctx := context.WithValue(context.Background(), ctxKey{}, "abc")
	log.With(slog.String("static", "yes")).InfoContext(ctx, "with context")

	entry := decode(t, buf)
	assert.Equal(t, "abc", entry["trace"])
	assert.Equal(t, "yes", entry["static"])
}

func TestAttrs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Attr{}, logger.Error(nil))
	assert.Equal(t, "boom", logger.Error(errors.New("boom")).Value.Any().(error).Error())
	assert.Equal(t, slog.Attr{}, logger.RequestID(""))

	id := uuid.New()
	assert.Equal(t, id.String(), logger.OrganizationID(id).Value.String())

	type code string
	attr := logger.FeatureCode(code("TASK_BASIC"))
	assert.Equal(t, "feature_code", attr.Key)
	assert.Equal(t, "TASK_BASIC", attr.Value.String())
}
