package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/cli"

	"preflight/internal/aero"
	"preflight/internal/config"
	"preflight/internal/logging"
	"preflight/internal/provider"
	"preflight/internal/runway"
	"preflight/internal/storage"
)

type seedCommand struct {
	ui cli.Ui
}

func (c *seedCommand) Synopsis() string {
	return "Load aerodrome reference data into the local store"
}

func (c *seedCommand) Help() string {
	return strings.TrimSpace(`
Usage: preflight seed -store postgres|sqlite [options] [FILE.json...]

  Saves aerodrome references (position and runways) into the reference
  store, which the advisory falls back on when AISWEB is unreachable.
  Each FILE holds one reference object or an array of them; "-" reads stdin.

  -fetch ICAO,ICAO  also pulls the listed aerodromes from AISWEB
  -list             prints the store contents afterwards
`)
}

func (c *seedCommand) Run(args []string) int {
	cfg := config.FromEnv()
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.Usage = func() { c.ui.Output(c.Help()) }
	cfg.Bind(fs)
	fetch := fs.String("fetch", "", "Comma-separated ICAO codes to fetch from AISWEB")
	list := fs.Bool("list", false, "List stored references when done")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	log, err := logging.New(cfg.Logging())
	if err != nil {
		c.ui.Error(err.Error())
		return 1
	}
	defer log.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := storage.OpenReferenceStore(ctx, cfg.StoreBackend, cfg.Storage)
	if err != nil {
		c.ui.Error(err.Error())
		return 1
	}
	if store == nil {
		c.ui.Error("seed needs a reference store: pass -store postgres or -store sqlite")
		return 1
	}
	defer store.Close()

	var refs []aero.Reference
	for _, path := range fs.Args() {
		got, err := readFile(path)
		if err != nil {
			c.ui.Error(err.Error())
			return 1
		}
		refs = append(refs, got...)
	}

	if *fetch != "" {
		aisweb := provider.NewAISWEB(cfg.Provider, nil, log.Logger)
		g := provider.NewGathererWithSources(aisweb, aisweb, nil, nil, log.Logger)
		for _, code := range strings.Split(*fetch, ",") {
			code = aero.NormaliseICAO(code)
			if !aero.IsICAO(code) {
				c.ui.Warn(fmt.Sprintf("skipping %q: not an ICAO code", code))
				continue
			}
			ad := g.Aerodrome(ctx, code)
			ref, err := ad.Reference()
			if err != nil {
				c.ui.Warn(err.Error())
				continue
			}
			if ns, ok := ad.Notams.Get(); ok {
				c.ui.Info(fmt.Sprintf("%s: %d runways, %d NOTAMs in force", code, len(ref.Runways), len(ns)))
			}
			refs = append(refs, ref)
		}
	}

	n, err := storage.Seed(ctx, store, refs, time.Now())
	c.ui.Info(fmt.Sprintf("saved %d of %d references", n, len(refs)))
	if err != nil {
		c.ui.Error(err.Error())
		return 1
	}

	if *list {
		all, err := store.ListReferences(ctx)
		if err != nil {
			c.ui.Error(err.Error())
			return 1
		}
		for _, r := range all {
			line := fmt.Sprintf("%-4s  %-30s  %d runways", r.ICAO, r.Name, len(r.Runways))
			if rw, ok := runway.Longest(r.Runways); ok {
				line += fmt.Sprintf(", longest %s %d m", rw.Ident, rw.LengthM)
			}
			c.ui.Output(line)
		}
	}
	return 0
}

func readFile(path string) ([]aero.Reference, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	refs, err := storage.ReadReferences(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return refs, nil
}
