// Package verdict folds the runway, weather, NOTAM and fuel signals into a
// single go/no-go level.
package verdict

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"preflight/internal/aero"
	"preflight/internal/fuel"
)

// Level is the tiered outcome. Higher is worse.
type Level int

const (
	Safe Level = iota
	Conditional
	Unsafe
)

func (l Level) String() string {
	switch l {
	case Safe:
		return "SAFE"
	case Conditional:
		return "CONDITIONAL"
	case Unsafe:
		return "UNSAFE"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel accepts the String form, case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SAFE":
		return Safe, nil
	case "CONDITIONAL":
		return Conditional, nil
	case "UNSAFE":
		return Unsafe, nil
	}
	return Safe, fmt.Errorf("unknown verdict level %q", s)
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Input is everything the aggregator looks at. Every field must be resolved
// before aggregation; an unknown autonomy is an Unavailable outcome, not a
// zero Result.
type Input struct {
	RunwayOK      bool
	WeatherHazard bool
	NotamHazard   bool
	Autonomy      aero.Outcome[fuel.Result]
	// DataGaps names inputs that could not be retrieved, e.g. "METAR for SBSP".
	DataGaps []string
}

// Verdict is a level plus every reason that contributed to it.
type Verdict struct {
	Level   Level    `json:"level"`
	Reasons []string `json:"reasons"`
}

func (v Verdict) String() string {
	if len(v.Reasons) == 0 {
		return v.Level.String()
	}
	return v.Level.String() + ": " + strings.Join(v.Reasons, "; ")
}

// Rule is one row of the decision table.
type Rule struct {
	Name   string
	Level  Level
	Match  func(Input) bool
	Reason func(Input) string
}

// Policy is an ordered decision table. The first matching rule sets the
// level; every matching rule contributes its reason.
type Policy struct {
	Name  string
	Rules []Rule
}

// Aggregate evaluates the policy. When nothing matches the verdict is SAFE.
func (p Policy) Aggregate(in Input) Verdict {
	v := Verdict{Level: Safe}
	matched := false
	for _, r := range p.Rules {
		if !r.Match(in) {
			continue
		}
		if !matched {
			v.Level = r.Level
			matched = true
		}
		if r.Reason != nil {
			if reason := r.Reason(in); reason != "" {
				v.Reasons = append(v.Reasons, reason)
			}
		}
	}
	if !matched {
		v.Reasons = []string{"all checks passed"}
	}
	return v
}

// Aggregate runs the default policy.
func Aggregate(in Input) Verdict {
	return DefaultPolicy().Aggregate(in)
}

func fuelInsufficient(in Input) bool {
	r, ok := in.Autonomy.Get()
	return ok && !r.Sufficient
}

func runwayInadequate(in Input) bool { return !in.RunwayOK }

func hazardPresent(in Input) bool { return in.WeatherHazard || in.NotamHazard }

func autonomyUnknown(in Input) bool { return !in.Autonomy.OK() }

func dataGaps(in Input) bool { return len(in.DataGaps) > 0 }

func fixed(s string) func(Input) string {
	return func(Input) string { return s }
}

var (
	ruleFuel = Rule{
		Name:  "fuel",
		Level: Unsafe,
		Match: fuelInsufficient,
		Reason: func(in Input) string {
			r := in.Autonomy.Value()
			return fmt.Sprintf("insufficient fuel (%.1f L on board, %.1f L required)", r.FuelOnBoardL, r.FuelRequiredTotalL)
		},
	}
	ruleRunway = Rule{
		Name:   "runway",
		Level:  Unsafe,
		Match:  runwayInadequate,
		Reason: fixed("runway length insufficient or no runway data"),
	}
	ruleHazard = Rule{
		Name:  "hazard",
		Level: Conditional,
		Match: hazardPresent,
		Reason: func(in Input) string {
			switch {
			case in.WeatherHazard && in.NotamHazard:
				return "adverse weather and NOTAM closures reported, check forecasts and NOTAMs"
			case in.WeatherHazard:
				return "adverse weather reported, check forecasts"
			}
			return "NOTAM closure or cancellation reported, check NOTAMs"
		},
	}
	ruleAutonomy = Rule{
		Name:  "autonomy",
		Level: Conditional,
		Match: autonomyUnknown,
		Reason: func(in Input) string {
			return "verify fuel manually (" + in.Autonomy.Reason() + ")"
		},
	}
	ruleGaps = Rule{
		Name:  "data-gaps",
		Level: Conditional,
		Match: dataGaps,
		Reason: func(in Input) string {
			return "verify manually, data unavailable: " + strings.Join(in.DataGaps, ", ")
		},
	}
)

// DefaultPolicy: a known fuel shortfall dominates, then runway, then hazards,
// then anything that could not be determined.
func DefaultPolicy() Policy {
	return Policy{
		Name:  "default",
		Rules: []Rule{ruleFuel, ruleRunway, ruleHazard, ruleAutonomy, ruleGaps},
	}
}

// LegacyPolicy only looks at runways and hazards. Fuel and retrieval gaps
// never change the level.
func LegacyPolicy() Policy {
	return Policy{
		Name:  "legacy",
		Rules: []Rule{ruleRunway, ruleHazard},
	}
}

var policies = map[string]func() Policy{
	"default": DefaultPolicy,
	"legacy":  LegacyPolicy,
}

// PolicyNames lists the selectable policies.
func PolicyNames() []string {
	names := make([]string, 0, len(policies))
	for n := range policies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PolicyByName returns a named policy. The empty name is the default.
func PolicyByName(name string) (Policy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultPolicy(), nil
	}
	if f, ok := policies[name]; ok {
		return f(), nil
	}
	return Policy{}, fmt.Errorf("unknown verdict policy %q (have %s)", name, strings.Join(PolicyNames(), ", "))
}
