package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ClickHouseDB archives every weather message the service fetched along
// with its decoded summary.
type ClickHouseDB struct {
	conn driver.Conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the ClickHouse tables.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	q := `CREATE TABLE IF NOT EXISTS weather_messages (
		icao        LowCardinality(String),
		kind        LowCardinality(String),
		raw         String,
		lines       Array(String),
		has_hazard  Bool,
		fetched_at  DateTime64(3)
	)
	ENGINE = MergeTree()
	PARTITION BY toYYYYMM(fetched_at)
	ORDER BY (icao, kind, fetched_at)`

	if err := d.conn.Exec(ctx, q); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// WeatherMessage is one archived METAR or TAF.
type WeatherMessage struct {
	ICAO      string    `json:"icao"`
	Kind      string    `json:"kind"`
	Raw       string    `json:"raw"`
	Lines     []string  `json:"lines"`
	HasHazard bool      `json:"has_hazard"`
	FetchedAt time.Time `json:"fetched_at"`
}

// InsertWeather stores messages in one batch.
func (d *ClickHouseDB) InsertWeather(ctx context.Context, msgs []WeatherMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO weather_messages (icao, kind, raw, lines, has_hazard, fetched_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, m := range msgs {
		lines := m.Lines
		if lines == nil {
			lines = []string{}
		}
		if err := batch.Append(m.ICAO, m.Kind, m.Raw, lines, m.HasHazard, m.FetchedAt); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// WeatherQuery filters RecentWeather.
type WeatherQuery struct {
	ICAO       string
	Kind       string
	HazardOnly bool
	Since      time.Time
	Limit      int
}

// RecentWeather returns archived messages, newest first.
func (d *ClickHouseDB) RecentWeather(ctx context.Context, p WeatherQuery) ([]WeatherMessage, error) {
	var conditions []string
	var args []any

	if p.ICAO != "" {
		conditions = append(conditions, "icao = ?")
		args = append(args, p.ICAO)
	}
	if p.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, strings.ToUpper(p.Kind))
	}
	if p.HazardOnly {
		conditions = append(conditions, "has_hazard")
	}
	if !p.Since.IsZero() {
		conditions = append(conditions, "fetched_at >= ?")
		args = append(args, p.Since)
	}

	query := `SELECT icao, kind, raw, lines, has_hazard, fetched_at FROM weather_messages`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	limit := 50
	if p.Limit > 0 {
		limit = min(p.Limit, 1000)
	}
	query += fmt.Sprintf(" ORDER BY fetched_at DESC LIMIT %d", limit)

	rows, err := d.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query weather: %w", err)
	}
	defer rows.Close()

	var out []WeatherMessage
	for rows.Next() {
		var m WeatherMessage
		if err := rows.Scan(&m.ICAO, &m.Kind, &m.Raw, &m.Lines, &m.HasHazard, &m.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
