package ingest

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/plainsight/internal/analysis"
	"github.com/kalambet/plainsight/internal/lexicon"
)

// sectionChars caps how much text one analysis section carries.
const sectionChars = 2000

// DocumentAnalysis aggregates per-section analysis over a whole
// document. Scores take the worst section (maximum), terms are the
// union across sections, and pattern counts are summed.
type DocumentAnalysis struct {
	Sections           int            `json:"sections"`
	ComplexityScore    float64        `json:"complexity_score"`
	MedicalTerms       []lexicon.Term `json:"medical_terms_found"`
	DyslexiaIndicators float64        `json:"dyslexia_indicators"`
	Patterns           map[string]int `json:"patterns"`
	SafetyHighlights   []string       `json:"safety_highlights"`
	Confidence         float64        `json:"confidence"`
}

type sectionResult struct {
	res      analysis.Result
	features analysis.Features
	safety   []string
}

// Analyze splits content into sections, runs the rule analysis on each
// concurrently, and aggregates the results.
func (w *Worker) Analyze(ctx context.Context, content string) (*DocumentAnalysis, error) {
	sections := splitSections(content)
	if len(sections) == 0 {
		sections = []string{content}
	}

	results := make([]sectionResult, len(sections))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4) // Bound concurrency; analysis is CPU-only.

	for i, section := range sections {
		i, section := i, section
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = sectionResult{
				res:      analysis.Analyze(w.lex, section),
				features: analysis.CountFeatures(section),
				safety:   analysis.SafetyHighlights(w.lex, section),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return aggregate(results), nil
}

func aggregate(results []sectionResult) *DocumentAnalysis {
	agg := &DocumentAnalysis{
		Sections:         len(results),
		SafetyHighlights: []string{},
	}
	var features analysis.Features
	termSet := make(map[string]lexicon.Term)

	for _, r := range results {
		if r.res.ComplexityScore > agg.ComplexityScore {
			agg.ComplexityScore = r.res.ComplexityScore
		}
		if r.res.DyslexiaIndicators > agg.DyslexiaIndicators {
			agg.DyslexiaIndicators = r.res.DyslexiaIndicators
		}
		if r.res.Confidence > agg.Confidence {
			agg.Confidence = r.res.Confidence
		}
		for _, t := range r.res.MedicalTerms {
			termSet[t.Term] = t
		}
		features.LetterReversals += r.features.LetterReversals
		features.Transpositions += r.features.Transpositions
		agg.SafetyHighlights = append(agg.SafetyHighlights, r.safety...)
	}

	terms := make([]lexicon.Term, 0, len(termSet))
	for _, t := range termSet {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].Term < terms[j].Term })
	agg.MedicalTerms = terms
	agg.Patterns = features.Map()
	return agg
}

var blankLine = regexp.MustCompile(`\n[ \t\r]*\n`)

// splitSections breaks text on blank lines and packs the paragraphs
// into sections of at most sectionChars characters. A paragraph longer
// than the cap is cut at the last space before it.
func splitSections(text string) []string {
	var sections []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sections = append(sections, s)
		}
		current.Reset()
	}

	for _, para := range blankLine.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		for len(para) > sectionChars {
			flush()
			cut := strings.LastIndex(para[:sectionChars], " ")
			if cut <= 0 {
				cut = sectionChars
			}
			sections = append(sections, strings.TrimSpace(para[:cut]))
			para = strings.TrimSpace(para[cut:])
		}

		if current.Len() > 0 && current.Len()+len(para)+2 > sectionChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()
	return sections
}
