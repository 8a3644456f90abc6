package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"os"
	"strings"

	"github.com/mitchellh/cli"

	"preflight/internal/config"
	"preflight/internal/wx"
)

type decodeCommand struct {
	ui cli.Ui
}

func (c *decodeCommand) Synopsis() string {
	return "Decode METAR or TAF messages into plain-language lines"
}

func (c *decodeCommand) Help() string {
	return strings.TrimSpace(`
Usage: preflight decode [-kind metar|taf] [-trace] [MESSAGE...]

  Decodes each MESSAGE argument, or one message per line from stdin when no
  argument is given. -trace prints which grammar rules matched as JSON.

Options:

  -kind           metar (default) or taf
  -trace          Show per-rule matching details
  -hazards-metar  Comma-separated METAR hazard tokens
  -hazards-taf    Comma-separated TAF hazard tokens
`)
}

func (c *decodeCommand) Run(args []string) int {
	cfg := config.FromEnv()
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.Usage = func() { c.ui.Output(c.Help()) }
	kindFlag := fs.String("kind", "metar", "Message kind: metar or taf")
	trace := fs.Bool("trace", false, "Show per-rule matching details")
	fs.StringVar(&cfg.LexiconMETAR, "hazards-metar", cfg.LexiconMETAR, "Comma-separated METAR hazard tokens")
	fs.StringVar(&cfg.LexiconTAF, "hazards-taf", cfg.LexiconTAF, "Comma-separated TAF hazard tokens")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	kind, err := wx.ParseKind(*kindFlag)
	if err != nil {
		c.ui.Error(err.Error())
		return 1
	}
	dec := wx.NewDecoder(cfg.Lexicon())

	msgs := fs.Args()
	if len(msgs) == 0 {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				msgs = append(msgs, line)
			}
		}
		if err := sc.Err(); err != nil {
			c.ui.Error(err.Error())
			return 1
		}
	}

	for _, m := range msgs {
		if *trace {
			b, err := json.MarshalIndent(dec.Trace(kind, m), "", "  ")
			if err != nil {
				c.ui.Error(err.Error())
				return 1
			}
			c.ui.Output(string(b))
			continue
		}
		sum := dec.Decode(kind, m)
		c.ui.Output(wx.Normalise(m))
		for _, l := range sum.Lines {
			c.ui.Output("  " + l)
		}
		if sum.HasHazard {
			c.ui.Warn("  hazard present")
		}
	}
	return 0
}
