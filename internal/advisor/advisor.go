// Package advisor runs every engine check for an origin/destination pair
// and produces the advisory report.
//
// The advisor is synchronous and does no I/O. Aerodrome data must be fully
// resolved before Evaluate is called: each field is either a value or an
// explicit Unavailable reason, and every Unavailable input shows up in the
// report as a line of its own.
package advisor

import (
	"fmt"
	"math"
	"strings"
	"time"

	"preflight/internal/aero"
	"preflight/internal/fuel"
	"preflight/internal/notam"
	"preflight/internal/runway"
	"preflight/internal/verdict"
	"preflight/internal/wx"
)

// Unit is the unit runway thresholds are entered in.
type Unit string

const (
	Meters     Unit = "m"
	Kilometers Unit = "km"
)

// ParseUnit accepts m/km and a few spelled-out forms. Empty means meters.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "m", "meter", "meters", "metre", "metres":
		return Meters, nil
	case "km", "kilometer", "kilometers", "kilometre", "kilometres":
		return Kilometers, nil
	}
	return "", fmt.Errorf("unknown distance unit %q (want m or km)", s)
}

// ToMeters converts a threshold to whole meters. Negative values become 0.
func (u Unit) ToMeters(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if u == Kilometers {
		v *= 1000
	}
	return int(math.Round(v))
}

// Thresholds are runway minimums as the pilot typed them.
type Thresholds struct {
	MinTakeoff float64 `json:"min_takeoff"`
	MinLanding float64 `json:"min_landing"`
	Unit       string  `json:"distance_unit"`
}

// Params are the engine inputs besides the aerodromes. Runway thresholds
// are always meters here.
type Params struct {
	MinTakeoffM int         `json:"min_takeoff_m"`
	MinLandingM int         `json:"min_landing_m"`
	Fuel        fuel.Params `json:"fuel"`
}

// Normalise converts the thresholds to meters once and pairs them with the
// fuel figures.
func (t Thresholds) Normalise(f fuel.Params) (Params, error) {
	u, err := ParseUnit(t.Unit)
	if err != nil {
		return Params{}, err
	}
	return Params{
		MinTakeoffM: u.ToMeters(t.MinTakeoff),
		MinLandingM: u.ToMeters(t.MinLanding),
		Fuel:        f.Clamped(),
	}, nil
}

// LegWeather holds the decoded messages for one aerodrome. Notes carries a
// line for every message list that was empty or could not be retrieved.
type LegWeather struct {
	Leg       string       `json:"leg"`
	ICAO      string       `json:"icao"`
	Reports   []wx.Summary `json:"metar"`
	Forecasts []wx.Summary `json:"taf"`
	Notes     []string     `json:"notes,omitempty"`
}

// Hazard reports whether any decoded message on this leg has a hazard.
func (l LegWeather) Hazard() bool {
	return wx.AnyHazard(l.Reports) || wx.AnyHazard(l.Forecasts)
}

// Report is the advisory output.
type Report struct {
	Origin      string                    `json:"origin"`
	Destination string                    `json:"destination"`
	Verdict     verdict.Verdict           `json:"verdict"`
	RunwayLines []string                  `json:"runway_lines"`
	Weather     []LegWeather              `json:"weather"`
	Autonomy    aero.Outcome[fuel.Result] `json:"autonomy"`
	NotamLines  []string                  `json:"notam_lines"`
	// FlaggedNotams are the NOTAMs that matched a closure keyword.
	FlaggedNotams []aero.NotamRecord `json:"flagged_notams,omitempty"`
	GeneratedAt   time.Time          `json:"generated_at"`
}

// Engine holds the configurable parts of the evaluation. Zero fields fall
// back to the stock decoder, keywords and policy.
type Engine struct {
	Decoder *wx.Decoder
	Notams  notam.Matcher
	Policy  verdict.Policy
	Now     func() time.Time
}

// New returns an engine with the stock lexicon, keywords and policy.
func New() *Engine {
	return &Engine{
		Decoder: wx.Default(),
		Notams:  notam.NewMatcher(nil),
		Policy:  verdict.DefaultPolicy(),
		Now:     time.Now,
	}
}

func legLabel(role, icao string) string {
	if icao == "" {
		return role
	}
	return role + " " + icao
}

// Evaluate runs all checks and aggregates the verdict.
func (e *Engine) Evaluate(origin, dest aero.Aerodrome, p Params) Report {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	dec := e.Decoder
	if dec == nil {
		dec = wx.Default()
	}
	matcher := e.Notams
	if len(matcher.Keywords) == 0 {
		matcher = notam.NewMatcher(nil)
	}
	policy := e.Policy
	if len(policy.Rules) == 0 {
		policy = verdict.DefaultPolicy()
	}

	legs := []struct {
		label string
		ad    aero.Aerodrome
	}{
		{legLabel("origin", origin.ICAO), origin},
		{legLabel("destination", dest.ICAO), dest},
	}

	var (
		assessments []runway.Assessment
		gaps        []string
		notamHazard bool
	)
	r := Report{
		Origin:      origin.ICAO,
		Destination: dest.ICAO,
		GeneratedAt: now().UTC(),
	}

	for _, leg := range legs {
		assessments = append(assessments, assessRunways(leg.label, leg.ad.Runways, p))

		lw, legGaps := decodeWeather(dec, leg.label, leg.ad)
		r.Weather = append(r.Weather, lw)
		gaps = append(gaps, legGaps...)

		r.NotamLines = append(r.NotamLines, notamLines(leg.label, leg.ad.Notams)...)
		if records, ok := leg.ad.Notams.Get(); ok {
			notamHazard = notamHazard || matcher.Hazard(records)
			r.FlaggedNotams = append(r.FlaggedNotams, matcher.Flagged(records)...)
		} else {
			gaps = append(gaps, "NOTAMs for "+leg.label)
		}
	}

	rw := runway.Combine(assessments...)
	r.RunwayLines = rw.Lines
	r.Autonomy = fuel.Evaluate(origin.Coordinate, dest.Coordinate, p.Fuel)

	weatherHazard := false
	for _, lw := range r.Weather {
		weatherHazard = weatherHazard || lw.Hazard()
	}

	r.Verdict = policy.Aggregate(verdict.Input{
		RunwayOK:      rw.AllOK,
		WeatherHazard: weatherHazard,
		NotamHazard:   notamHazard,
		Autonomy:      r.Autonomy,
		DataGaps:      gaps,
	})
	return r
}

// Evaluate runs a stock engine.
func Evaluate(origin, dest aero.Aerodrome, p Params) Report {
	return New().Evaluate(origin, dest, p)
}

func assessRunways(leg string, o aero.Outcome[[]aero.RunwayRecord], p Params) runway.Assessment {
	rws, ok := o.Get()
	a := runway.Assess(leg, rws, p.MinTakeoffM, p.MinLandingM)
	if !ok {
		a.Lines = []string{runway.NoDataLine(leg) + ": " + o.Reason()}
	}
	return a
}

func decodeWeather(dec *wx.Decoder, leg string, ad aero.Aerodrome) (LegWeather, []string) {
	lw := LegWeather{Leg: leg, ICAO: ad.ICAO}
	var gaps []string

	for _, src := range []struct {
		kind wx.Kind
		o    aero.Outcome[[]string]
		dst  *[]wx.Summary
	}{
		{wx.METAR, ad.Reports, &lw.Reports},
		{wx.TAF, ad.Forecasts, &lw.Forecasts},
	} {
		msgs, ok := src.o.Get()
		switch {
		case !ok:
			lw.Notes = append(lw.Notes, fmt.Sprintf("%s unavailable for %s: %s", src.kind, leg, src.o.Reason()))
			gaps = append(gaps, fmt.Sprintf("%s for %s", src.kind, leg))
		case len(msgs) == 0:
			lw.Notes = append(lw.Notes, fmt.Sprintf("no %s published for %s", src.kind, leg))
		}
		*src.dst = dec.DecodeAll(src.kind, msgs)
	}
	return lw, gaps
}

// notamLines tags each NOTAM with its leg so both lists can share one
// section of the report.
func notamLines(leg string, o aero.Outcome[[]aero.NotamRecord]) []string {
	records, ok := o.Get()
	if !ok || len(records) == 0 {
		return notam.Lines(leg, o)
	}
	out := make([]string, 0, len(records))
	for _, n := range records {
		out = append(out, "["+leg+"] "+notam.Line(n))
	}
	return out
}
