package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"preflight/internal/aero"
)

// SQLiteDB is a single-file reference store for deployments without
// PostgreSQL.
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// PRAGMAs are per connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (d *SQLiteDB) Close() error {
	return d.db.Close()
}

func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS aerodromes (
		icao TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		latitude REAL,
		longitude REAL,
		updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	);

	CREATE TABLE IF NOT EXISTS runways (
		icao TEXT NOT NULL REFERENCES aerodromes(icao) ON DELETE CASCADE,
		ident TEXT NOT NULL,
		length_m INTEGER NOT NULL DEFAULT 0,
		width_m INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (icao, ident)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveReference replaces the stored record and runways for ref.ICAO.
func (d *SQLiteDB) SaveReference(ctx context.Context, ref aero.Reference) error {
	if err := validReference(ref); err != nil {
		return err
	}
	updated := ref.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	var lat, lon sql.NullFloat64
	if ref.Coordinate != nil {
		lat = sql.NullFloat64{Float64: ref.Coordinate.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: ref.Coordinate.Lon, Valid: true}
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO aerodromes (icao, name, latitude, longitude, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (icao) DO UPDATE SET
			name = COALESCE(NULLIF(excluded.name, ''), aerodromes.name),
			latitude = COALESCE(excluded.latitude, aerodromes.latitude),
			longitude = COALESCE(excluded.longitude, aerodromes.longitude),
			updated_at = excluded.updated_at
	`, ref.ICAO, ref.Name, lat, lon, updated.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert aerodrome %s: %w", ref.ICAO, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM runways WHERE icao = ?`, ref.ICAO); err != nil {
		return fmt.Errorf("clear runways %s: %w", ref.ICAO, err)
	}
	for _, rw := range ref.Runways {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runways (icao, ident, length_m, width_m) VALUES (?, ?, ?, ?)
			ON CONFLICT (icao, ident) DO UPDATE SET length_m = excluded.length_m, width_m = excluded.width_m
		`, ref.ICAO, rw.Ident, rw.LengthM, rw.WidthM)
		if err != nil {
			return fmt.Errorf("insert runway %s %s: %w", ref.ICAO, rw.Ident, err)
		}
	}

	return tx.Commit()
}

// LoadReference returns the stored record for icao, or ErrNotFound.
func (d *SQLiteDB) LoadReference(ctx context.Context, icao string) (aero.Reference, error) {
	icao = aero.NormaliseICAO(icao)
	ref := aero.Reference{ICAO: icao}
	var (
		lat, lon sql.NullFloat64
		updated  string
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT name, latitude, longitude, updated_at FROM aerodromes WHERE icao = ?
	`, icao).Scan(&ref.Name, &lat, &lon, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return aero.Reference{}, fmt.Errorf("%s: %w", icao, ErrNotFound)
	}
	if err != nil {
		return aero.Reference{}, fmt.Errorf("load %s: %w", icao, err)
	}
	if lat.Valid && lon.Valid {
		ref.Coordinate = &aero.Coordinate{Lat: lat.Float64, Lon: lon.Float64}
	}
	if t, err := time.Parse(time.RFC3339, updated); err == nil {
		ref.UpdatedAt = t
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT ident, length_m, width_m FROM runways WHERE icao = ? ORDER BY ident
	`, icao)
	if err != nil {
		return aero.Reference{}, fmt.Errorf("query runways: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ref.Runways = []aero.RunwayRecord{}
	for rows.Next() {
		var rw aero.RunwayRecord
		if err := rows.Scan(&rw.Ident, &rw.LengthM, &rw.WidthM); err != nil {
			return aero.Reference{}, fmt.Errorf("scan runway: %w", err)
		}
		ref.Runways = append(ref.Runways, rw)
	}
	return ref, rows.Err()
}

// ListReferences returns every stored aerodrome, ordered by ICAO.
func (d *SQLiteDB) ListReferences(ctx context.Context) ([]aero.Reference, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT icao FROM aerodromes ORDER BY icao`)
	if err != nil {
		return nil, fmt.Errorf("list aerodromes: %w", err)
	}
	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan icao: %w", err)
		}
		codes = append(codes, c)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]aero.Reference, 0, len(codes))
	for _, c := range codes {
		ref, err := d.LoadReference(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}
