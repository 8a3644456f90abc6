// Package notam flags NOTAMs announcing closures or cancellations.
// This is a keyword heuristic, not a NOTAM grammar.
package notam

import (
	"fmt"
	"strings"

	"preflight/internal/aero"
)

// DefaultKeywords are matched case-insensitively against NOTAM text. The
// Portuguese terms are what AISWEB publishes for Brazilian aerodromes.
var DefaultKeywords = []string{"FECHADO", "CANCELADO", "CLOSED", "CLSD", "CANCELLED"}

// Matcher holds the hazard keyword set.
type Matcher struct {
	Keywords []string
}

// NewMatcher builds a matcher; an empty keyword list uses DefaultKeywords.
func NewMatcher(keywords []string) Matcher {
	var kw []string
	for _, k := range keywords {
		if k = strings.ToUpper(strings.TrimSpace(k)); k != "" {
			kw = append(kw, k)
		}
	}
	if len(kw) == 0 {
		kw = append(kw, DefaultKeywords...)
	}
	return Matcher{Keywords: kw}
}

// Match returns the first keyword found in the record's text.
func (m Matcher) Match(n aero.NotamRecord) (string, bool) {
	info := strings.ToUpper(n.Info)
	for _, k := range m.Keywords {
		if strings.Contains(info, k) {
			return k, true
		}
	}
	return "", false
}

// Hazard reports whether any record matches.
func (m Matcher) Hazard(records []aero.NotamRecord) bool {
	for _, n := range records {
		if _, ok := m.Match(n); ok {
			return true
		}
	}
	return false
}

// Flagged returns the records that match, in order.
func (m Matcher) Flagged(records []aero.NotamRecord) []aero.NotamRecord {
	var out []aero.NotamRecord
	for _, n := range records {
		if _, ok := m.Match(n); ok {
			out = append(out, n)
		}
	}
	return out
}

// Line renders a NOTAM for the report.
func Line(n aero.NotamRecord) string {
	return fmt.Sprintf("%s (%s): %s", n.Code, n.Timestamp, n.Info)
}

// Lines renders every NOTAM of a leg. An empty list and an unavailable list
// get distinct lines.
func Lines(leg string, o aero.Outcome[[]aero.NotamRecord]) []string {
	records, ok := o.Get()
	if !ok {
		return []string{"NOTAMs unavailable for " + leg + ": " + o.Reason()}
	}
	if len(records) == 0 {
		return []string{"no NOTAMs for " + leg}
	}
	out := make([]string, 0, len(records))
	for _, n := range records {
		out = append(out, Line(n))
	}
	return out
}
