package lexicon

import (
	"sort"
	"strings"
)

// Term pairs a medical term with its plain-language definition.
type Term struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// Lexicon holds the fixed medical vocabulary used by the rule-based
// analyzer: term definitions, words treated as inherently complex, and
// keywords that mark safety-critical sentences.
type Lexicon struct {
	definitions map[string]string
	terms       []string
	complex     []string
	safety      []string
}

// Default returns the built-in medical lexicon.
func Default() *Lexicon {
	defs := map[string]string{
		"nausea":             "feeling sick to your stomach",
		"dizziness":          "feeling lightheaded or like you might faint",
		"allergic reactions": "when your body reacts badly to something",
		"physician":          "doctor",
		"symptoms":           "signs that something is wrong with your body",
		"persist":            "continue or keep happening",
		"worsen":             "get worse",
		"dosage":             "how much medicine to take",
		"tablets":            "pills",
		"monitor":            "watch carefully",
		"side effects":       "unwanted things that can happen when you take medicine",
		"prescription":       "doctor's order for medicine",
	}

	terms := make([]string, 0, len(defs))
	for t := range defs {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	return &Lexicon{
		definitions: defs,
		terms:       terms,
		complex:     []string{"monitor", "physician", "allergic", "persist", "worsen"},
		safety:      []string{"contact", "emergency", "stop", "immediately", "warning", "caution"},
	}
}

// FindTerms returns the lexicon entries present in text as case-insensitive
// substrings, in sorted term order so results are deterministic.
func (l *Lexicon) FindTerms(text string) []Term {
	lower := strings.ToLower(text)

	var found []Term
	for _, t := range l.terms {
		if strings.Contains(lower, t) {
			found = append(found, Term{Term: t, Definition: l.definitions[t]})
		}
	}
	return found
}

// Definition looks up the plain-language definition for a term.
func (l *Lexicon) Definition(term string) (string, bool) {
	def, ok := l.definitions[strings.ToLower(strings.TrimSpace(term))]
	return def, ok
}

// Terms returns all known terms in sorted order.
func (l *Lexicon) Terms() []string {
	out := make([]string, len(l.terms))
	copy(out, l.terms)
	return out
}

// ComplexWords returns the words that raise the complexity score when present.
func (l *Lexicon) ComplexWords() []string {
	out := make([]string, len(l.complex))
	copy(out, l.complex)
	return out
}

// SafetyWords returns the keywords that mark a sentence as safety-critical.
func (l *Lexicon) SafetyWords() []string {
	out := make([]string, len(l.safety))
	copy(out, l.safety)
	return out
}
