// Package storage keeps aerodrome reference data (PostgreSQL or SQLite) and
// archives fetched weather messages (ClickHouse).
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"preflight/internal/aero"
)

// ErrNotFound is returned when an aerodrome is not in the reference store.
var ErrNotFound = errors.New("not found")

// Config holds database connection settings for every backend.
type Config struct {
	ClickHouse ClickHouseConfig
	Postgres   PostgresConfig
	SQLitePath string
}

// DefaultConfig returns a configuration with default local development settings.
func DefaultConfig() Config {
	return Config{
		ClickHouse: ClickHouseConfig{
			Host:     "localhost",
			Port:     9000,
			Database: "preflight",
			User:     "default",
			Password: "",
		},
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "preflight",
			User:     "preflight",
			Password: "preflight",
		},
		SQLitePath: "preflight.db",
	}
}

// ReferenceStore is implemented by both the PostgreSQL and SQLite backends.
type ReferenceStore interface {
	LoadReference(ctx context.Context, icao string) (aero.Reference, error)
	SaveReference(ctx context.Context, ref aero.Reference) error
	ListReferences(ctx context.Context) ([]aero.Reference, error)
	Close() error
}

// Backend names accepted by OpenReferenceStore.
const (
	BackendNone     = "none"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// OpenReferenceStore opens the named backend and makes sure its schema
// exists. BackendNone (or "") returns a nil store and no error.
func OpenReferenceStore(ctx context.Context, backend string, cfg Config) (ReferenceStore, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendNone:
		return nil, nil
	case BackendPostgres:
		pg, err := OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := pg.CreateSchema(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		return pg, nil
	case BackendSQLite:
		db, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown reference store backend %q", backend)
}

func validReference(ref aero.Reference) error {
	if !aero.IsICAO(ref.ICAO) {
		return fmt.Errorf("invalid ICAO code %q", ref.ICAO)
	}
	if ref.Coordinate != nil && !ref.Coordinate.Valid() {
		return fmt.Errorf("%s: coordinate out of range", ref.ICAO)
	}
	return nil
}
