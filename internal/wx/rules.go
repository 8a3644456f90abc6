package wx

import (
	"regexp"
	"strings"
)

// Rule is one entry of the decoding grammar: an independent predicate over
// the normalised message and the summary line it produces on a match.
type Rule struct {
	Name    string // e.g. "wind", "temperature"
	Pattern string // Human-readable pattern, reported by traces.

	// Quick is a cheap substring that must be present before Match runs.
	// Empty means always run.
	Quick string

	// Hazard marks rules whose match sets Summary.HasHazard.
	Hazard bool

	// Match returns the extracted value and whether the rule applied.
	Match func(text string) (string, bool)

	// Line renders the summary line for an extracted value.
	Line func(value string) string
}

// Apply runs the rule against normalised text.
func (r Rule) Apply(text string) (line, value string, ok bool) {
	if r.Quick != "" && !strings.Contains(text, r.Quick) {
		return "", "", false
	}
	value, ok = r.Match(text)
	if !ok {
		return "", "", false
	}
	return r.Line(value), value, true
}

// Grammar tokens shared by the rule sets.
var (
	// Wind: DDDSSKT or VRBSSKT. Exactly two speed digits, so gust groups and
	// three-digit speeds do not match. Values pass through verbatim.
	WindPattern = regexp.MustCompile(`\b(\d{3}|VRB)(\d{2})KT\b`)

	// Temperature/dewpoint: TT/DD, M prefix = minus, kept verbatim. Word
	// boundaries keep runway visual range groups (R09/1200) from matching.
	TempPattern = regexp.MustCompile(`\b(M?\d{2})/(M?\d{2})\b`)
)

// LiteralRule matches when token appears anywhere in the message.
func LiteralRule(name, token, line string) Rule {
	return Rule{
		Name:    name,
		Pattern: token,
		Quick:   token,
		Match: func(text string) (string, bool) {
			return token, strings.Contains(text, token)
		},
		Line: func(string) string { return line },
	}
}

// WindRule extracts the first wind group. prefix is "wind" or
// "forecast wind".
func WindRule(prefix string) Rule {
	return Rule{
		Name:    "wind",
		Pattern: WindPattern.String(),
		Quick:   "KT",
		Match: func(text string) (string, bool) {
			m := WindPattern.FindStringSubmatch(text)
			if m == nil {
				return "", false
			}
			return m[1] + " " + m[2], true
		},
		Line: func(v string) string {
			dir, speed, _ := strings.Cut(v, " ")
			if dir == "VRB" {
				dir = "variable"
			}
			return prefix + ": " + dir + " at " + speed + " kt"
		},
	}
}

// TemperatureRule extracts the first temperature/dewpoint group.
func TemperatureRule() Rule {
	return Rule{
		Name:    "temperature",
		Pattern: TempPattern.String(),
		Quick:   "/",
		Match: func(text string) (string, bool) {
			m := TempPattern.FindStringSubmatch(text)
			if m == nil {
				return "", false
			}
			return m[1] + "/" + m[2], true
		},
		Line: func(v string) string {
			temp, dew, _ := strings.Cut(v, "/")
			return "temperature: " + temp + " °C / dewpoint: " + dew + " °C"
		},
	}
}

// HazardRule matches when any lexicon token is a substring of the message.
// The extracted value lists every token found, in lexicon order.
func HazardRule(tokens []string, line string) Rule {
	return Rule{
		Name:    "hazard",
		Pattern: strings.Join(tokens, "|"),
		Hazard:  true,
		Match: func(text string) (string, bool) {
			var found []string
			for _, tok := range tokens {
				if tok != "" && strings.Contains(text, tok) {
					found = append(found, tok)
				}
			}
			return strings.Join(found, " "), len(found) > 0
		},
		Line: func(v string) string {
			return line + " (" + v + ")"
		},
	}
}

// metarRules is the observation grammar, in output order.
func metarRules(lex Lexicon) []Rule {
	return []Rule{
		LiteralRule("cavok", "CAVOK", "clear sky (CAVOK)"),
		WindRule("wind"),
		TemperatureRule(),
		HazardRule(lex.METAR, "alert: significant weather phenomenon detected"),
	}
}

// tafRules is the forecast grammar. There is no temperature rule: the TAF
// validity period (2112/2212) has the same shape as a TT/DD group.
func tafRules(lex Lexicon) []Rule {
	return []Rule{
		LiteralRule("cavok", "CAVOK", "clear sky for the whole period"),
		WindRule("forecast wind"),
		LiteralRule("becmg", "BECMG", "gradual change in conditions expected"),
		HazardRule(lex.TAF, "alert: adverse weather phenomena forecast"),
	}
}
