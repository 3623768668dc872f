package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type entry struct {
	once  sync.Once
	value any
	err   error
}

var (
	cache          sync.Map // reflect.Type -> *entry
	defaultEnvOnce sync.Once
)

// Load parses the environment into v. The first call for a type loads .env
// (when present) and parses; later calls for the same type return the
// cached value.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	defaultEnvOnce.Do(func() { _ = godotenv.Load() })

	e, _ := cache.LoadOrStore(reflect.TypeFor[T](), &entry{})
	ent := e.(*entry)
	ent.once.Do(func() {
		var parsed T
		if err := env.Parse(&parsed); err != nil {
			ent.err = errors.Join(ErrParsingConfig, err)
			return
		}
		ent.value = parsed
	})
	if ent.err != nil {
		return ent.err
	}
	*v = ent.value.(T)
	return nil
}

// MustLoad is Load that panics on failure.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

// LoadEnvFiles loads the given dotenv files into the process environment
// without overriding variables that are already set.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// Parse parses the environment into a fresh T with the given key prefix.
// The result is not cached.
func Parse[T any](prefix string) (T, error) {
	var v T
	if err := env.ParseWithOptions(&v, env.Options{Prefix: prefix}); err != nil {
		return v, errors.Join(ErrParsingConfig, err)
	}
	return v, nil
}

// Reset drops every cached configuration. Intended for tests.
func Reset() {
	cache.Clear()
}
