// Command preflight evaluates a flight before departure from the command
// line.
//
// Usage:
//
//	preflight check -from SBSP -to SBRJ -fuel 200 -burn 40 -speed 100 [options]
//	preflight decode [-kind taf] [-trace] MESSAGE...
//	preflight distance -- LAT,LON LAT,LON
//	preflight seed -store sqlite FILE.json...
//
// Provider credentials come from AISWEB_API_KEY, AISWEB_API_PASS and
// REDEMET_API_KEY. Every other setting can be given as a flag or through the
// environment (see internal/config).
package main

import (
	"os"

	"github.com/mitchellh/cli"
)

const version = "1.0.0"

func main() {
	ui := &cli.BasicUi{
		Reader:      os.Stdin,
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}

	c := cli.NewCLI("preflight", version)
	c.Args = os.Args[1:]
	c.Commands = commands(ui)

	status, err := c.Run()
	if err != nil {
		ui.Error(err.Error())
	}
	os.Exit(status)
}

func commands(ui cli.Ui) map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"check": func() (cli.Command, error) {
			return &checkCommand{ui: ui}, nil
		},
		"decode": func() (cli.Command, error) {
			return &decodeCommand{ui: ui}, nil
		},
		"distance": func() (cli.Command, error) {
			return &distanceCommand{ui: ui}, nil
		},
		"seed": func() (cli.Command, error) {
			return &seedCommand{ui: ui}, nil
		},
	}
}
