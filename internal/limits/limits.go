// Package limits isolates the string protocol used to report vendor
// item/rate/value limit violations. The wire format is a single message
// whose sections are pipe-delimited, carry one of three fixed phrases and
// list "name: ratio" pairs after an arrow token. Everything that touches
// the raw format lives here so it can be replaced by a structured payload
// without touching call sites.
package limits

import "strings"

// Kind classifies which limit a section reports.
type Kind int

const (
	KindItem Kind = iota
	KindRate
	KindValue
)

// phrase returns the fixed wire phrase for the kind.
func (k Kind) phrase() string {
	switch k {
	case KindRate:
		return "rate limit exceeded"
	case KindValue:
		return "value limit exceeded"
	default:
		return "item limit exceeded"
	}
}

// Field names the order line field a violation attaches to.
func (k Kind) Field() string {
	switch k {
	case KindRate:
		return "rate"
	case KindValue:
		return "amount"
	default:
		return "qty"
	}
}

// Pair is one offending item with its ratio as reported by the server.
type Pair struct {
	Name  string
	Ratio string
}

// Violation is one parsed section of the message.
type Violation struct {
	Kind  Kind
	Pairs []Pair
}

// ParseResult splits a message into structured violations and the sections
// that could not be parsed; unmatched text is surfaced verbatim so the user
// always sees something.
type ParseResult struct {
	Violations []Violation
	Unmatched  []string
}

const arrowToken = "->"

var kinds = []Kind{KindItem, KindRate, KindValue}

// Parse scans the message best-effort. A section parses when it contains
// one of the three fixed phrases (matched case-insensitively) and an arrow
// followed by at least one "name: ratio" pair.
func Parse(msg string) ParseResult {
	var result ParseResult
	for _, section := range strings.Split(msg, "|") {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		violation, ok := parseSection(section)
		if !ok {
			result.Unmatched = append(result.Unmatched, section)
			continue
		}
		result.Violations = append(result.Violations, violation)
	}
	return result
}

func parseSection(section string) (Violation, bool) {
	lower := strings.ToLower(section)
	var kind Kind
	found := false
	for _, k := range kinds {
		if strings.Contains(lower, k.phrase()) {
			kind = k
			found = true
			break
		}
	}
	if !found {
		return Violation{}, false
	}
	idx := strings.Index(section, arrowToken)
	if idx < 0 {
		return Violation{}, false
	}
	var pairs []Pair
	for _, piece := range strings.Split(section[idx+len(arrowToken):], ";") {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		colon := strings.LastIndex(piece, ":")
		if colon <= 0 {
			continue
		}
		name := strings.TrimSpace(piece[:colon])
		ratio := strings.TrimSpace(piece[colon+1:])
		if name == "" || ratio == "" {
			continue
		}
		pairs = append(pairs, Pair{Name: name, Ratio: ratio})
	}
	if len(pairs) == 0 {
		return Violation{}, false
	}
	return Violation{Kind: kind, Pairs: pairs}, true
}

// Render produces the wire message for a set of violations. The server side
// of the protocol uses this so the format stays in one place.
func Render(violations []Violation) string {
	sections := make([]string, 0, len(violations))
	for _, v := range violations {
		if len(v.Pairs) == 0 {
			continue
		}
		pairs := make([]string, 0, len(v.Pairs))
		for _, p := range v.Pairs {
			pairs = append(pairs, p.Name+": "+p.Ratio)
		}
		sections = append(sections, v.Kind.phrase()+" "+arrowToken+" "+strings.Join(pairs, "; "))
	}
	return strings.Join(sections, " | ")
}
