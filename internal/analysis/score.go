package analysis

import (
	"math"
	"strings"

	"github.com/kalambet/plainsight/internal/lexicon"
)

// Analyze runs the rule-based perception pass over text: medical term
// lookup, sentence-length and vocabulary scoring, and dyslexia pattern
// detection. The additive weights and thresholds are fixed; changing them
// changes the observable contract.
func Analyze(lex *lexicon.Lexicon, text string) Result {
	terms := lex.FindTerms(text)

	score := 0.0

	if AverageSentenceLength(text) > 15 {
		score += 0.3
	}

	score += math.Min(float64(len(terms))*0.1, 0.4)

	lower := strings.ToLower(text)
	for _, w := range lex.ComplexWords() {
		if strings.Contains(lower, w) {
			score += 0.1
		}
	}

	indicators := PatternScore(text)
	score += indicators * 0.2

	score = math.Min(score, 1.0)

	return Result{
		ComplexityScore:    score,
		MedicalTerms:       terms,
		DyslexiaIndicators: indicators,
		Confidence:         math.Min(score+0.3, 1.0),
	}
}
