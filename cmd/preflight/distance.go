package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/mitchellh/cli"

	"preflight/internal/fuel"
	"preflight/internal/geo"
)

type distanceCommand struct {
	ui cli.Ui
}

func (c *distanceCommand) Synopsis() string {
	return "Great-circle distance between two coordinates"
}

func (c *distanceCommand) Help() string {
	return strings.TrimSpace(`
Usage: preflight distance [options] [--] LAT,LON LAT,LON

  Prints the great-circle distance in nautical miles. Coordinates may be
  decimal degrees (-23.626,-46.656) or AISWEB DMS (23 37 34S,046 39 23W).
  With -speed, also prints the flight time, and with -burn the trip fuel.
  Put -- before southern or western decimal coordinates.

Options:

  -speed    Cruise speed (kt)
  -burn     Burn rate (L/h)
  -reserve  Reserve (min)
  -fuel     Fuel on board (L), prints endurance with -burn
`)
}

func (c *distanceCommand) Run(args []string) int {
	fs := flag.NewFlagSet("distance", flag.ContinueOnError)
	fs.Usage = func() { c.ui.Output(c.Help()) }
	var p fuel.Params
	fs.Float64Var(&p.CruiseSpeedKT, "speed", 0, "Cruise speed (kt)")
	fs.Float64Var(&p.BurnRateLPH, "burn", 0, "Burn rate (L/h)")
	fs.Float64Var(&p.ReserveMin, "reserve", fuel.DefaultReserveMin, "Reserve (min)")
	fs.Float64Var(&p.FuelL, "fuel", 0, "Fuel on board (L)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 2 {
		c.ui.Error("want exactly two coordinates")
		return 1
	}

	from, err := geo.ParsePair(fs.Arg(0))
	if err != nil {
		c.ui.Error(err.Error())
		return 1
	}
	to, err := geo.ParsePair(fs.Arg(1))
	if err != nil {
		c.ui.Error(err.Error())
		return 1
	}

	d := geo.DistanceNM(from, to)
	c.ui.Output(fmt.Sprintf("%.1f NM", d))
	if p.CruiseSpeedKT > 0 {
		res := fuel.ForDistance(d, p)
		c.ui.Output(fmt.Sprintf("%.2f h at %.0f kt", res.FlightTimeH, p.CruiseSpeedKT))
		if p.BurnRateLPH > 0 {
			c.ui.Output(fmt.Sprintf("%.1f L trip, %.1f L with reserve", res.FuelForFlightL, res.FuelRequiredTotalL))
		}
	}
	if p.FuelL > 0 && p.BurnRateLPH > 0 {
		c.ui.Output(fmt.Sprintf("endurance %.2f h", fuel.Endurance(p)))
	}
	return 0
}
