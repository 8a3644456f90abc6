package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"preflight/internal/aero"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// PostgresDB wraps a PostgreSQL connection pool for reference data.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() error {
	d.pool.Close()
	return nil
}

// CreateSchema creates the PostgreSQL tables.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS aerodromes (
		icao            TEXT PRIMARY KEY,
		name            TEXT NOT NULL DEFAULT '',
		latitude        DOUBLE PRECISION,
		longitude       DOUBLE PRECISION,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS runways (
		icao            TEXT NOT NULL REFERENCES aerodromes(icao) ON DELETE CASCADE,
		ident           TEXT NOT NULL,
		length_m        INTEGER NOT NULL DEFAULT 0,
		width_m         INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (icao, ident)
	);

	CREATE INDEX IF NOT EXISTS idx_aerodromes_updated ON aerodromes(updated_at);
	`

	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveReference replaces the stored record and runways for ref.ICAO.
func (d *PostgresDB) SaveReference(ctx context.Context, ref aero.Reference) error {
	if err := validReference(ref); err != nil {
		return err
	}
	updated := ref.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	var lat, lon *float64
	if ref.Coordinate != nil {
		lat, lon = &ref.Coordinate.Lat, &ref.Coordinate.Lon
	}

	err := pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO aerodromes (icao, name, latitude, longitude, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (icao) DO UPDATE SET
				name = COALESCE(NULLIF(EXCLUDED.name, ''), aerodromes.name),
				latitude = COALESCE(EXCLUDED.latitude, aerodromes.latitude),
				longitude = COALESCE(EXCLUDED.longitude, aerodromes.longitude),
				updated_at = EXCLUDED.updated_at
		`, ref.ICAO, ref.Name, lat, lon, updated)
		if err != nil {
			return fmt.Errorf("upsert aerodrome: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM runways WHERE icao = $1`, ref.ICAO); err != nil {
			return fmt.Errorf("clear runways: %w", err)
		}

		batch := &pgx.Batch{}
		for _, rw := range ref.Runways {
			batch.Queue(`
				INSERT INTO runways (icao, ident, length_m, width_m) VALUES ($1, $2, $3, $4)
				ON CONFLICT (icao, ident) DO UPDATE SET length_m = EXCLUDED.length_m, width_m = EXCLUDED.width_m
			`, ref.ICAO, rw.Ident, rw.LengthM, rw.WidthM)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert runways: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", ref.ICAO, err)
	}
	return nil
}

// LoadReference returns the stored record for icao, or ErrNotFound.
func (d *PostgresDB) LoadReference(ctx context.Context, icao string) (aero.Reference, error) {
	icao = aero.NormaliseICAO(icao)
	ref := aero.Reference{ICAO: icao}
	var lat, lon *float64
	err := d.pool.QueryRow(ctx, `
		SELECT name, latitude, longitude, updated_at FROM aerodromes WHERE icao = $1
	`, icao).Scan(&ref.Name, &lat, &lon, &ref.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return aero.Reference{}, fmt.Errorf("%s: %w", icao, ErrNotFound)
	}
	if err != nil {
		return aero.Reference{}, fmt.Errorf("load %s: %w", icao, err)
	}
	if lat != nil && lon != nil {
		ref.Coordinate = &aero.Coordinate{Lat: *lat, Lon: *lon}
	}

	ref.Runways, err = d.runways(ctx, icao)
	if err != nil {
		return aero.Reference{}, err
	}
	return ref, nil
}

func (d *PostgresDB) runways(ctx context.Context, icao string) ([]aero.RunwayRecord, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT ident, length_m, width_m FROM runways WHERE icao = $1 ORDER BY ident
	`, icao)
	if err != nil {
		return nil, fmt.Errorf("query runways: %w", err)
	}
	defer rows.Close()

	out := []aero.RunwayRecord{}
	for rows.Next() {
		var rw aero.RunwayRecord
		if err := rows.Scan(&rw.Ident, &rw.LengthM, &rw.WidthM); err != nil {
			return nil, fmt.Errorf("scan runway: %w", err)
		}
		out = append(out, rw)
	}
	return out, rows.Err()
}

// ListReferences returns every stored aerodrome, ordered by ICAO.
func (d *PostgresDB) ListReferences(ctx context.Context) ([]aero.Reference, error) {
	rows, err := d.pool.Query(ctx, `SELECT icao FROM aerodromes ORDER BY icao`)
	if err != nil {
		return nil, fmt.Errorf("list aerodromes: %w", err)
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list aerodromes: %w", err)
	}

	out := make([]aero.Reference, 0, len(codes))
	for _, icao := range codes {
		ref, err := d.LoadReference(ctx, icao)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}
