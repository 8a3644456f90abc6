package wx

import "strings"

// RuleTrace contains debug information about one grammar rule.
type RuleTrace struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
	Quick   bool   `json:"quick_check"` // Whether the quick substring check passed.
	Matched bool   `json:"matched"`
	Value   string `json:"value,omitempty"`
	Line    string `json:"line,omitempty"`
}

// Trace is the result of decoding with tracing enabled.
type Trace struct {
	Normalised string      `json:"normalised"`
	Rules      []RuleTrace `json:"rules"`
	Summary    Summary     `json:"summary"`
}

// Trace decodes msg and reports, per rule, whether it matched and what it
// extracted. Useful for working out why a message fell back.
func (d *Decoder) Trace(kind Kind, msg string) Trace {
	if kind != TAF {
		kind = METAR
	}
	text := Normalise(msg)
	tr := Trace{Normalised: text}

	for _, r := range d.Rules(kind) {
		rt := RuleTrace{
			Name:    r.Name,
			Pattern: r.Pattern,
			Quick:   r.Quick == "" || strings.Contains(text, r.Quick),
		}
		if line, value, ok := r.Apply(text); ok {
			rt.Matched = true
			rt.Value = value
			rt.Line = line
		}
		tr.Rules = append(tr.Rules, rt)
	}

	tr.Summary = d.Decode(kind, msg)
	return tr
}
