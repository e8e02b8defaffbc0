package analysis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kalambet/plainsight/internal/lexicon"
)

// Adapt runs the acting phase: simplification, rendering settings, and
// safety extraction, all derived from the decided interventions.
func Adapt(lex *lexicon.Lexicon, text string, iv Interventions) Adapted {
	colorScheme := "default"
	if iv.NeedsVisualSupport {
		colorScheme = "high_contrast"
	}
	readingSpeed := 1.0
	if iv.NeedsAudioSupport {
		readingSpeed = 0.8
	}

	return Adapted{
		Simplified: Simplify(lex, text, iv),
		Visual: VisualSettings{
			FontSize:    fmt.Sprintf("%dpx", int(16*iv.FontSizeMultiplier)),
			LineHeight:  iv.LineHeightMultiplier,
			ColorScheme: colorScheme,
		},
		Audio: AudioSettings{
			ShouldReadAloud: iv.NeedsAudioSupport,
			ReadingSpeed:    readingSpeed,
			EmphasizeTerms:  iv.NeedsSafetyEmphasis,
		},
		Safety: SafetyHighlights(lex, text),
	}
}

// Simplify rewrites text for easier reading: each matched medical term
// gets its definition appended in parentheses (all occurrences,
// case-insensitive, canonical lowercase form), and sentences longer than
// 15 words are split at the midpoint word. Short sentences pass through
// untouched, so the split is idempotent.
func Simplify(lex *lexicon.Lexicon, text string, iv Interventions) string {
	if !iv.NeedsSimplification {
		return text
	}

	simplified := text
	for _, m := range lex.FindTerms(text) {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(m.Term))
		simplified = re.ReplaceAllString(simplified, m.Term+" ("+m.Definition+")")
	}

	parts := splitKeepDelims(simplified)
	var out []string
	for i := 0; i < len(parts); i += 2 {
		sentence := strings.TrimSpace(parts[i])
		delim := ""
		if i+1 < len(parts) {
			delim = parts[i+1]
		}

		words := strings.Fields(sentence)
		if len(words) > 15 {
			mid := len(words) / 2
			out = append(out, strings.Join(words[:mid], " ")+".")
			out = append(out, strings.Join(words[mid:], " ")+delim)
		} else {
			out = append(out, sentence+delim)
		}
	}
	return strings.Join(out, " ")
}

// splitKeepDelims splits text into alternating segment/delimiter parts so
// sentence punctuation can be reattached after splitting long sentences.
func splitKeepDelims(text string) []string {
	locs := sentenceDelims.FindAllStringIndex(text, -1)
	parts := make([]string, 0, len(locs)*2+1)
	last := 0
	for _, loc := range locs {
		parts = append(parts, text[last:loc[0]], text[loc[0]:loc[1]])
		last = loc[1]
	}
	return append(parts, text[last:])
}

// SafetyHighlights returns the trimmed sentences that mention any safety
// keyword. These are surfaced verbatim from the original text.
func SafetyHighlights(lex *lexicon.Lexicon, text string) []string {
	var out []string
	for _, s := range SplitSentences(text) {
		lower := strings.ToLower(s)
		for _, kw := range lex.SafetyWords() {
			if strings.Contains(lower, kw) {
				out = append(out, strings.TrimSpace(s))
				break
			}
		}
	}
	return out
}
