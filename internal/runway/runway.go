// Package runway checks published runway lengths against the aircraft's
// minimum takeoff and landing distances.
package runway

import (
	"fmt"

	"preflight/internal/aero"
)

// Operation is the phase a runway is checked for.
type Operation string

const (
	Takeoff Operation = "takeoff"
	Landing Operation = "landing"
)

// Check is one runway/operation comparison. Margin is length minus
// requirement; negative means short.
type Check struct {
	Leg       string    `json:"leg"`
	Ident     string    `json:"ident"`
	Op        Operation `json:"operation"`
	LengthM   int       `json:"length_m"`
	RequiredM int       `json:"required_m"`
	MarginM   int       `json:"margin_m"`
	OK        bool      `json:"ok"`
}

// Line renders the check for the runway report.
func (c Check) Line() string {
	if c.OK {
		return fmt.Sprintf("OK   runway %s (%s) %s: %dm OK", c.Ident, c.Leg, c.Op, c.LengthM)
	}
	return fmt.Sprintf("FAIL runway %s (%s) %s: %dm insufficient (need %dm)", c.Ident, c.Leg, c.Op, c.LengthM, c.RequiredM)
}

// Assessment is the outcome for one aerodrome leg, or several legs combined.
type Assessment struct {
	Checks []Check  `json:"checks"`
	Lines  []string `json:"lines"`
	AllOK  bool     `json:"all_ok"`
	NoData []string `json:"no_data,omitempty"` // Legs without any runway data.
}

// NoDataLine is the report line for a leg without runway data.
func NoDataLine(leg string) string {
	return "no runway data for " + leg
}

// Assess compares every runway against both minimums. Thresholds and lengths
// must already be in meters. An empty runway list fails the leg.
func Assess(leg string, runways []aero.RunwayRecord, minTakeoffM, minLandingM int) Assessment {
	if len(runways) == 0 {
		return Assessment{
			Lines:  []string{NoDataLine(leg)},
			AllOK:  false,
			NoData: []string{leg},
		}
	}

	a := Assessment{AllOK: true}
	for _, rw := range runways {
		for _, req := range []struct {
			op  Operation
			min int
		}{
			{Takeoff, minTakeoffM},
			{Landing, minLandingM},
		} {
			c := Check{
				Leg:       leg,
				Ident:     rw.Ident,
				Op:        req.op,
				LengthM:   rw.LengthM,
				RequiredM: req.min,
				MarginM:   rw.LengthM - req.min,
				OK:        rw.LengthM >= req.min,
			}
			a.Checks = append(a.Checks, c)
			a.Lines = append(a.Lines, c.Line())
			if !c.OK {
				a.AllOK = false
			}
		}
	}
	return a
}

// Combine merges per-leg assessments in order. The result is adequate only
// if every leg is.
func Combine(legs ...Assessment) Assessment {
	out := Assessment{AllOK: len(legs) > 0}
	for _, l := range legs {
		out.Checks = append(out.Checks, l.Checks...)
		out.Lines = append(out.Lines, l.Lines...)
		out.NoData = append(out.NoData, l.NoData...)
		if !l.AllOK {
			out.AllOK = false
		}
	}
	return out
}

// Longest returns the longest runway, or false for an empty list.
func Longest(runways []aero.RunwayRecord) (aero.RunwayRecord, bool) {
	var best aero.RunwayRecord
	for i, rw := range runways {
		if i == 0 || rw.LengthM > best.LengthM {
			best = rw
		}
	}
	return best, len(runways) > 0
}
