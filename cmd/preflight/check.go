package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mitchellh/cli"

	"preflight/internal/advisor"
	"preflight/internal/config"
	"preflight/internal/fuel"
	"preflight/internal/logging"
	"preflight/internal/service"
	"preflight/internal/verdict"
)

type checkCommand struct {
	ui cli.Ui
}

func (c *checkCommand) Synopsis() string {
	return "Fetch live data for a flight and print the advisory"
}

func (c *checkCommand) Help() string {
	return strings.TrimSpace(`
Usage: preflight check -from ICAO -to ICAO [options]

  Fetches runway, NOTAM, METAR and TAF data for both aerodromes and prints
  a SAFE / CONDITIONAL / UNSAFE verdict with its reasons.

  Runway thresholds are in meters unless -dist-unit km is given.

  Exit status is 0 for SAFE, 1 on error, 2 for CONDITIONAL and 3 for UNSAFE.

Run "preflight check -h" for the full flag list.
`)
}

func (c *checkCommand) Run(args []string) int {
	cfg := config.FromEnv()
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.Usage = func() { c.ui.Output(c.Help()) }
	cfg.Bind(fs)

	var req service.Request
	fs.StringVar(&req.Origin, "from", "", "Origin ICAO code")
	fs.StringVar(&req.Destination, "to", "", "Destination ICAO code")
	fs.Float64Var(&req.FuelL, "fuel", 0, "Fuel on board (L)")
	fs.Float64Var(&req.BurnRateLPH, "burn", 0, "Burn rate (L/h)")
	fs.Float64Var(&req.CruiseSpeedKT, "speed", 0, "Cruise speed (kt)")
	fs.Float64Var(&req.ReserveMin, "reserve", fuel.DefaultReserveMin, "Reserve (min)")
	fs.Float64Var(&req.MinTakeoff, "min-takeoff", 0, "Minimum takeoff runway length")
	fs.Float64Var(&req.MinLanding, "min-landing", 0, "Minimum landing runway length")
	asJSON := fs.Bool("json", false, "Print the report as JSON")
	timeout := fs.Duration("timeout", 30*time.Second, "Overall deadline")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if req.Origin == "" || req.Destination == "" {
		c.ui.Error("-from and -to are required")
		return 1
	}

	log, err := logging.New(cfg.Logging())
	if err != nil {
		c.ui.Error(err.Error())
		return 1
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	svc, cleanup, err := service.FromConfig(ctx, cfg, log.Logger)
	if err != nil {
		c.ui.Error(err.Error())
		return 1
	}
	defer cleanup()

	report, err := svc.Advise(ctx, req)
	if err != nil {
		c.ui.Error(err.Error())
		return 1
	}

	if *asJSON {
		b, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			c.ui.Error(err.Error())
			return 1
		}
		c.ui.Output(string(b))
	} else {
		c.ui.Output(renderReport(report))
	}
	return exitStatus(report)
}

func exitStatus(r advisor.Report) int {
	switch r.Verdict.Level {
	case verdict.Safe:
		return 0
	case verdict.Conditional:
		return 2
	default:
		return 3
	}
}
