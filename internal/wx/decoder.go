// Package wx decodes raw METAR and TAF messages into short human-readable
// summaries with a hazard flag.
//
// Decoding is a fixed grammar table applied to the normalised message; each
// rule is independent, so an unmatched rule simply contributes no line.
package wx

import (
	"fmt"
	"strings"
)

// Kind identifies the message type.
type Kind string

const (
	METAR Kind = "METAR"
	TAF   Kind = "TAF"
)

// ParseKind accepts "metar"/"taf" in any case.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToUpper(strings.TrimSpace(s))) {
	case METAR:
		return METAR, nil
	case TAF:
		return TAF, nil
	}
	return "", fmt.Errorf("unknown weather message kind %q", s)
}

// Summary is the decoded form of one message.
type Summary struct {
	Kind      Kind     `json:"kind"`
	Raw       string   `json:"raw"`
	Lines     []string `json:"lines"`
	HasHazard bool     `json:"has_hazard"`
}

// Text joins the summary lines.
func (s Summary) Text() string { return strings.Join(s.Lines, "\n") }

// Lexicon is the set of hazard tokens per message kind. Observation and
// forecast sets differ; RA in particular only counts for forecasts by default.
type Lexicon struct {
	METAR []string `json:"metar"`
	TAF   []string `json:"taf"`
}

// DefaultLexicon returns the stock hazard tokens.
func DefaultLexicon() Lexicon {
	return Lexicon{
		METAR: []string{"TSRA", "FG", "SN"},
		TAF:   []string{"TSRA", "FG", "SN", "RA"},
	}
}

// ParseTokens splits a comma or space separated token list, upper-cased.
func ParseTokens(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.ToUpper(f))
	}
	return out
}

func upper(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Decoder applies a grammar per message kind.
type Decoder struct {
	rules map[Kind][]Rule
}

// NewDecoder builds a decoder for the given hazard lexicon.
func NewDecoder(lex Lexicon) *Decoder {
	lex = Lexicon{METAR: upper(lex.METAR), TAF: upper(lex.TAF)}
	return &Decoder{
		rules: map[Kind][]Rule{
			METAR: metarRules(lex),
			TAF:   tafRules(lex),
		},
	}
}

var defaultDecoder = NewDecoder(DefaultLexicon())

// Default returns the decoder using DefaultLexicon.
func Default() *Decoder { return defaultDecoder }

// DecodeMETAR decodes an observation with the default decoder.
func DecodeMETAR(msg string) Summary { return defaultDecoder.Decode(METAR, msg) }

// DecodeTAF decodes a forecast with the default decoder.
func DecodeTAF(msg string) Summary { return defaultDecoder.Decode(TAF, msg) }

// Rules returns the grammar for kind. Unknown kinds use the METAR grammar.
func (d *Decoder) Rules(kind Kind) []Rule {
	if rules, ok := d.rules[kind]; ok {
		return rules
	}
	return d.rules[METAR]
}

var normaliser = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "=", "")

// Normalise flattens line breaks and drops the message terminator. Case is
// kept: report codes are upper case and tokens match literally.
func Normalise(msg string) string {
	return strings.TrimSpace(normaliser.Replace(msg))
}

// Decode summarises one message. It never fails: a message matching no rule
// yields a single "could not decode" line.
func (d *Decoder) Decode(kind Kind, msg string) Summary {
	if kind != TAF {
		kind = METAR
	}
	text := Normalise(msg)
	sum := Summary{Kind: kind, Raw: msg}

	for _, r := range d.Rules(kind) {
		line, _, ok := r.Apply(text)
		if !ok {
			continue
		}
		sum.Lines = append(sum.Lines, line)
		if r.Hazard {
			sum.HasHazard = true
		}
	}

	if len(sum.Lines) == 0 {
		sum.Lines = []string{FallbackLine(kind)}
	}
	return sum
}

// FallbackLine is the line emitted when nothing could be decoded.
func FallbackLine(kind Kind) string {
	return "could not decode " + string(kind)
}

// DecodeAll decodes a list of messages of the same kind, preserving order.
func (d *Decoder) DecodeAll(kind Kind, msgs []string) []Summary {
	out := make([]Summary, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, d.Decode(kind, m))
	}
	return out
}

// AnyHazard reports whether any summary carries a hazard.
func AnyHazard(sums []Summary) bool {
	for _, s := range sums {
		if s.HasHazard {
			return true
		}
	}
	return false
}
