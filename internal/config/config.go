// Package config collects process settings from the environment and command
// line flags. Environment values become flag defaults, so an explicit flag
// always wins.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"preflight/internal/advisor"
	"preflight/internal/logging"
	"preflight/internal/notam"
	"preflight/internal/provider"
	"preflight/internal/storage"
	"preflight/internal/verdict"
	"preflight/internal/wx"
)

// Config is built once at process start.
type Config struct {
	Provider provider.Config
	Storage  storage.Config

	// StoreBackend selects the aerodrome reference store: none, postgres
	// or sqlite.
	StoreBackend string
	// ArchiveWeather writes every fetched METAR/TAF to ClickHouse.
	ArchiveWeather bool
	NATSURL        string

	ListenAddr  string
	AuthEnabled bool
	APIKeys     []string

	LogLevel  string
	LogDir    string
	LogFormat string

	Policy        string
	LexiconMETAR  string
	LexiconTAF    string
	NotamKeywords string
	DistUnit      string
}

// FromEnv returns defaults overridden by environment variables.
func FromEnv() Config {
	st := storage.DefaultConfig()
	lex := wx.DefaultLexicon()

	return Config{
		Provider: provider.Config{
			AISWEBURL:   envOrDefault("AISWEB_URL", provider.DefaultAISWEBURL),
			AISWEBKey:   os.Getenv("AISWEB_API_KEY"),
			AISWEBPass:  os.Getenv("AISWEB_API_PASS"),
			REDEMETURL:  envOrDefault("REDEMET_URL", provider.DefaultREDEMETURL),
			REDEMETKey:  os.Getenv("REDEMET_API_KEY"),
			NotamWindow: envOrDefaultInt("PREFLIGHT_NOTAM_WINDOW", provider.DefaultNotamWindow),
			Timeout:     envOrDefaultDuration("PREFLIGHT_HTTP_TIMEOUT", 10*time.Second),
			CacheSize:   envOrDefaultInt("PREFLIGHT_CACHE_SIZE", 256),
			CacheTTL:    envOrDefaultDuration("PREFLIGHT_CACHE_TTL", 6*time.Hour),
		},
		Storage: storage.Config{
			ClickHouse: storage.ClickHouseConfig{
				Host:     envOrDefault("CLICKHOUSE_HOST", st.ClickHouse.Host),
				Port:     envOrDefaultInt("CLICKHOUSE_PORT", st.ClickHouse.Port),
				Database: envOrDefault("CLICKHOUSE_DATABASE", st.ClickHouse.Database),
				User:     envOrDefault("CLICKHOUSE_USER", st.ClickHouse.User),
				Password: envOrDefault("CLICKHOUSE_PASSWORD", st.ClickHouse.Password),
			},
			Postgres: storage.PostgresConfig{
				Host:     envOrDefault("POSTGRES_HOST", st.Postgres.Host),
				Port:     envOrDefaultInt("POSTGRES_PORT", st.Postgres.Port),
				Database: envOrDefault("POSTGRES_DATABASE", st.Postgres.Database),
				User:     envOrDefault("POSTGRES_USER", st.Postgres.User),
				Password: envOrDefault("POSTGRES_PASSWORD", st.Postgres.Password),
			},
			SQLitePath: envOrDefault("SQLITE_PATH", st.SQLitePath),
		},
		StoreBackend:   envOrDefault("PREFLIGHT_STORE", storage.BackendNone),
		ArchiveWeather: envOrDefaultBool("PREFLIGHT_ARCHIVE_WEATHER", false),
		NATSURL:        os.Getenv("NATS_URL"),

		ListenAddr:  envOrDefault("PREFLIGHT_LISTEN", ":8081"),
		AuthEnabled: envOrDefaultBool("PREFLIGHT_AUTH", false),
		APIKeys:     splitList(os.Getenv("PREFLIGHT_API_KEYS")),

		LogLevel:  envOrDefault("PREFLIGHT_LOG_LEVEL", "info"),
		LogDir:    os.Getenv("PREFLIGHT_LOG_DIR"),
		LogFormat: envOrDefault("PREFLIGHT_LOG_FORMAT", "json"),

		Policy:        envOrDefault("PREFLIGHT_POLICY", "default"),
		LexiconMETAR:  envOrDefault("PREFLIGHT_LEXICON_METAR", strings.Join(lex.METAR, ",")),
		LexiconTAF:    envOrDefault("PREFLIGHT_LEXICON_TAF", strings.Join(lex.TAF, ",")),
		NotamKeywords: envOrDefault("PREFLIGHT_NOTAM_KEYWORDS", strings.Join(notam.DefaultKeywords, ",")),
		DistUnit:      envOrDefault("PREFLIGHT_DIST_UNIT", string(advisor.Meters)),
	}
}

// Bind registers flags on fs using the current values as defaults.
// Credentials are environment-only so they never show up in process lists.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.Provider.AISWEBURL, "aisweb-url", c.Provider.AISWEBURL, "AISWEB base URL")
	fs.StringVar(&c.Provider.REDEMETURL, "redemet-url", c.Provider.REDEMETURL, "REDEMET base URL")
	fs.IntVar(&c.Provider.NotamWindow, "notam-window", c.Provider.NotamWindow, "NOTAM look-back window in minutes")
	fs.DurationVar(&c.Provider.Timeout, "http-timeout", c.Provider.Timeout, "Timeout for provider requests")

	fs.StringVar(&c.StoreBackend, "store", c.StoreBackend, "Reference store: none, postgres or sqlite")
	fs.StringVar(&c.Storage.SQLitePath, "sqlite", c.Storage.SQLitePath, "SQLite reference database path")
	fs.StringVar(&c.Storage.Postgres.Host, "pg-host", c.Storage.Postgres.Host, "PostgreSQL host")
	fs.IntVar(&c.Storage.Postgres.Port, "pg-port", c.Storage.Postgres.Port, "PostgreSQL port")
	fs.StringVar(&c.Storage.Postgres.Database, "pg-database", c.Storage.Postgres.Database, "PostgreSQL database")
	fs.StringVar(&c.Storage.Postgres.User, "pg-user", c.Storage.Postgres.User, "PostgreSQL user")
	fs.BoolVar(&c.ArchiveWeather, "archive", c.ArchiveWeather, "Archive fetched weather to ClickHouse")
	fs.StringVar(&c.Storage.ClickHouse.Host, "ch-host", c.Storage.ClickHouse.Host, "ClickHouse host")
	fs.IntVar(&c.Storage.ClickHouse.Port, "ch-port", c.Storage.ClickHouse.Port, "ClickHouse native port")
	fs.StringVar(&c.Storage.ClickHouse.Database, "ch-database", c.Storage.ClickHouse.Database, "ClickHouse database")
	fs.StringVar(&c.NATSURL, "nats", c.NATSURL, "NATS server URL for advisory events (empty disables)")

	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&c.LogDir, "log-dir", c.LogDir, "Directory for rotating log files (empty logs to stderr)")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format: json or text")

	fs.StringVar(&c.Policy, "policy", c.Policy, "Verdict policy: "+strings.Join(verdict.PolicyNames(), ", "))
	fs.StringVar(&c.LexiconMETAR, "hazards-metar", c.LexiconMETAR, "Comma-separated METAR hazard tokens")
	fs.StringVar(&c.LexiconTAF, "hazards-taf", c.LexiconTAF, "Comma-separated TAF hazard tokens")
	fs.StringVar(&c.NotamKeywords, "notam-keywords", c.NotamKeywords, "Comma-separated NOTAM hazard keywords")
	fs.StringVar(&c.DistUnit, "dist-unit", c.DistUnit, "Unit of runway thresholds: m or km")
}

// BindServer registers the HTTP server flags.
func (c *Config) BindServer(fs *flag.FlagSet) {
	fs.StringVar(&c.ListenAddr, "listen", c.ListenAddr, "HTTP listen address")
	fs.BoolVar(&c.AuthEnabled, "auth", c.AuthEnabled, "Enable API key authentication")
	fs.Func("api-keys", "Comma-separated list of valid API keys (when auth enabled)", func(s string) error {
		c.APIKeys = splitList(s)
		return nil
	})
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.StoreBackend) {
	case "", storage.BackendNone, storage.BackendPostgres, storage.BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("store: unknown backend %q", c.StoreBackend))
	}
	if _, err := verdict.PolicyByName(c.Policy); err != nil {
		errs = append(errs, fmt.Errorf("policy: %w", err))
	}
	if _, err := advisor.ParseUnit(c.DistUnit); err != nil {
		errs = append(errs, fmt.Errorf("dist-unit: %w", err))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log-level: %w", err))
	}
	if c.AuthEnabled && len(c.APIKeys) == 0 {
		errs = append(errs, errors.New("auth enabled but no API keys configured"))
	}
	return errors.Join(errs...)
}

// Lexicon returns the configured hazard tokens.
func (c Config) Lexicon() wx.Lexicon {
	return wx.Lexicon{
		METAR: wx.ParseTokens(c.LexiconMETAR),
		TAF:   wx.ParseTokens(c.LexiconTAF),
	}
}

// Engine builds the evaluation engine described by the configuration.
func (c Config) Engine() (*advisor.Engine, error) {
	pol, err := verdict.PolicyByName(c.Policy)
	if err != nil {
		return nil, err
	}
	return &advisor.Engine{
		Decoder: wx.NewDecoder(c.Lexicon()),
		Notams:  notam.NewMatcher(splitList(c.NotamKeywords)),
		Policy:  pol,
	}, nil
}

// Logging returns the logger options.
func (c Config) Logging() logging.Options {
	return logging.Options{Level: c.LogLevel, Dir: c.LogDir, Format: c.LogFormat}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envOrDefaultBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
