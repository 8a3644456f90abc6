package main

import (
	"fmt"
	"strings"

	"preflight/internal/advisor"
	"preflight/internal/notam"
	"preflight/internal/wx"
)

// renderReport lays the report out as plain text sections.
func renderReport(r advisor.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s -> %s  (%s)\n\n", r.Origin, r.Destination, r.GeneratedAt.Format("2006-01-02 15:04Z"))
	fmt.Fprintf(&b, "VERDICT: %s\n", r.Verdict.Level)
	for _, reason := range r.Verdict.Reasons {
		fmt.Fprintf(&b, "  - %s\n", reason)
	}

	section(&b, "RUNWAYS", r.RunwayLines)

	b.WriteString("\nWEATHER\n")
	for _, leg := range r.Weather {
		fmt.Fprintf(&b, "  %s\n", leg.Leg)
		summaries(&b, leg.Reports)
		summaries(&b, leg.Forecasts)
		for _, n := range leg.Notes {
			fmt.Fprintf(&b, "    %s\n", n)
		}
	}

	b.WriteString("\nAUTONOMY\n")
	if res, ok := r.Autonomy.Get(); ok {
		fmt.Fprintf(&b, "  distance        %.1f NM\n", res.DistanceNM)
		fmt.Fprintf(&b, "  flight time     %.2f h\n", res.FlightTimeH)
		fmt.Fprintf(&b, "  trip fuel       %.1f L\n", res.FuelForFlightL)
		fmt.Fprintf(&b, "  reserve         %.1f L\n", res.FuelReserveL)
		fmt.Fprintf(&b, "  required        %.1f L\n", res.FuelRequiredTotalL)
		fmt.Fprintf(&b, "  on board        %.1f L (%+.1f)\n", res.FuelOnBoardL, res.SurplusL())
	} else {
		fmt.Fprintf(&b, "  %s\n", r.Autonomy.Reason())
	}

	section(&b, "NOTAMS", r.NotamLines)
	if len(r.FlaggedNotams) > 0 {
		flagged := make([]string, 0, len(r.FlaggedNotams))
		for _, n := range r.FlaggedNotams {
			flagged = append(flagged, n.Location+" "+notam.Line(n))
		}
		section(&b, "FLAGGED NOTAMS", flagged)
	}
	return strings.TrimRight(b.String(), "\n")
}

func section(b *strings.Builder, title string, lines []string) {
	fmt.Fprintf(b, "\n%s\n", title)
	for _, l := range lines {
		fmt.Fprintf(b, "  %s\n", l)
	}
}

func summaries(b *strings.Builder, sums []wx.Summary) {
	for _, s := range sums {
		mark := ""
		if s.HasHazard {
			mark = " [HAZARD]"
		}
		fmt.Fprintf(b, "    %s%s: %s\n", s.Kind, mark, strings.TrimSpace(wx.Normalise(s.Raw)))
		for _, l := range s.Lines {
			fmt.Fprintf(b, "      %s\n", l)
		}
	}
}
