// Package main provides the preflight-api server for pre-departure advisories.
//
// This is a standalone REST API server that fetches aerodrome data from
// AISWEB and REDEMET, evaluates a flight and returns the advisory report.
// Reports can be published to NATS and fetched weather archived in
// ClickHouse.
//
// Usage:
//
//	preflight-api [options]
//
// Options (each also settable through the environment):
//
//	-listen ADDR        HTTP listen address (default: :8081, env: PREFLIGHT_LISTEN)
//	-auth               Enable API key authentication (env: PREFLIGHT_AUTH)
//	-api-keys KEYS      Comma-separated list of valid API keys (env: PREFLIGHT_API_KEYS)
//	-store BACKEND      Reference store: none, postgres, sqlite (env: PREFLIGHT_STORE)
//	-archive            Archive weather to ClickHouse (env: PREFLIGHT_ARCHIVE_WEATHER)
//	-nats URL           Publish advisories to NATS (env: NATS_URL)
//	-policy NAME        Verdict policy: default, legacy (env: PREFLIGHT_POLICY)
//	-dist-unit UNIT     Default unit of runway thresholds: m, km (env: PREFLIGHT_DIST_UNIT)
//	-log-dir DIR        Rotating log directory (env: PREFLIGHT_LOG_DIR)
//
// API Endpoints:
//
//	GET /api/v1/health
//	    Health check endpoint.
//
//	POST /api/v1/advisory
//	    Fetch and evaluate. Body: {"origin": "SBSP", "destination": "SBRJ",
//	    "fuel_l": 200, "burn_rate_lph": 40, "cruise_speed_kt": 100,
//	    "reserve_min": 30, "min_takeoff": 1200, "min_landing": 1000}
//
//	POST /api/v1/evaluate
//	    Evaluate caller-supplied aerodrome records without fetching.
//
//	GET /api/v1/decode?kind=metar&msg=...&trace=1
//	    Decode a single METAR or TAF.
//
//	GET /api/v1/distance?from=LAT,LON&to=LAT,LON
//	    Great-circle distance in nautical miles.
//
//	GET /api/v1/weather/{icao}?kind=&hazard=&limit=&since=
//	    Archived weather messages, newest first.
//
//	GET /api/v1/policies
//	    Available verdict policies.
//
// Authentication:
//
//	When -auth is enabled, requests must include an API key via:
//	  - X-API-Key header
//	  - Authorization: Bearer <key> header
//	  - ?api_key=<key> query parameter
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"preflight/internal/api"
	"preflight/internal/config"
	"preflight/internal/logging"
	"preflight/internal/service"
)

func main() {
	cfg := config.FromEnv()
	cfg.Bind(flag.CommandLine)
	cfg.BindServer(flag.CommandLine)
	flag.Parse()

	log, err := logging.New(cfg.Logging())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	slog.SetDefault(log.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := service.FromConfig(ctx, cfg, log.Logger)
	if err != nil {
		log.Error("startup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()

	server := api.NewServer(svc, api.Config{
		Addr:        cfg.ListenAddr,
		AuthEnabled: cfg.AuthEnabled,
		APIKeys:     cfg.APIKeys,
	}, log.Logger)

	if err := server.Run(ctx); err != nil {
		log.Error("server error", slog.Any("error", err))
		cleanup()
		os.Exit(1)
	}
}
