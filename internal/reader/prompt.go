package reader

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kalambet/plainsight/internal/analysis"
	"github.com/kalambet/plainsight/internal/lexicon"
)

const analysisSystemPrompt = `You are a medical AI assistant specialized in analyzing text for dyslexia accessibility.
Analyze the given medical text and provide:
1. A complexity score (0.0-1.0) based on medical terminology, sentence structure, and reading difficulty
2. List of medical terms found with simple definitions
3. Dyslexia-specific challenges (visual processing, phonological awareness, working memory)
4. Confidence level in your analysis

Respond in JSON format with keys: complexity_score, medical_terms, dyslexia_indicators, confidence`

const adaptationSystemPrompt = `You are a medical AI assistant specialized in making medical text accessible for people with dyslexia.

Based on the analysis provided, generate:
1. A simplified version of the medical text that maintains accuracy but improves readability
2. Visual adaptation recommendations (font size, line height, color scheme)
3. Audio suggestions (reading speed, emphasis)
4. Safety highlights (critical medical information that needs emphasis)

Respond in JSON format with keys: simplified, visual, audio, safety`

func buildAdaptationPrompt(text string, result analysis.Result, iv analysis.Interventions) string {
	analysisJSON, _ := json.Marshal(result)
	ivJSON, _ := json.Marshal(iv)
	return fmt.Sprintf("Original text: %s\nAnalysis: %s\nInterventions needed: %s\n\nGenerate dyslexia-friendly adaptations.",
		text, analysisJSON, ivJSON)
}

// extractJSON strips markdown code fences and slices the response down to
// the outermost JSON object. Hosted models frequently wrap JSON in fences
// or prepend conversational filler.
func extractJSON(resp string) (string, error) {
	s := strings.TrimSpace(resp)

	if idx := strings.Index(s, "```"); idx != -1 {
		s = s[idx+3:]
		if strings.HasPrefix(s, "json") {
			s = s[4:]
		}
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return "", fmt.Errorf("no JSON object in response")
	}
	return s[start : end+1], nil
}

// parseAnalysis validates a model analysis response field by field:
// missing numeric fields take documented defaults, present fields are
// clamped to [0, 1], and a structurally broken payload is an error so
// the caller can fall back to the rule engine.
func parseAnalysis(resp string) (analysis.Result, error) {
	payload, err := extractJSON(resp)
	if err != nil {
		return analysis.Result{}, err
	}

	var obj struct {
		ComplexityScore    *float64        `json:"complexity_score"`
		MedicalTerms       json.RawMessage `json:"medical_terms"`
		DyslexiaIndicators *float64        `json:"dyslexia_indicators"`
		Confidence         *float64        `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(payload), &obj); err != nil {
		return analysis.Result{}, fmt.Errorf("unmarshal analysis: %w", err)
	}

	return analysis.Result{
		ComplexityScore:    clamp01(floatOr(obj.ComplexityScore, 0.5)),
		MedicalTerms:       parseTermList(obj.MedicalTerms),
		DyslexiaIndicators: clamp01(floatOr(obj.DyslexiaIndicators, 0.2)),
		Confidence:         clamp01(floatOr(obj.Confidence, 0.8)),
	}, nil
}

// parseTermList accepts medical terms either as a list of
// {term, definition} objects or as a term-to-definition object map.
// Map entries are sorted by term for deterministic output.
func parseTermList(raw json.RawMessage) []lexicon.Term {
	if len(raw) == 0 {
		return []lexicon.Term{}
	}

	var list []lexicon.Term
	if err := json.Unmarshal(raw, &list); err == nil {
		if list == nil {
			return []lexicon.Term{}
		}
		return list
	}

	var byTerm map[string]string
	if err := json.Unmarshal(raw, &byTerm); err == nil {
		terms := make([]lexicon.Term, 0, len(byTerm))
		for term, def := range byTerm {
			terms = append(terms, lexicon.Term{Term: term, Definition: def})
		}
		sort.Slice(terms, func(i, j int) bool { return terms[i].Term < terms[j].Term })
		return terms
	}

	return []lexicon.Term{}
}

// parseAdaptation validates a model adaptation response, defaulting any
// missing field: the simplified text falls back to the original, the
// rendering settings to the accessible baseline.
func parseAdaptation(resp, original string) (analysis.Adapted, error) {
	payload, err := extractJSON(resp)
	if err != nil {
		return analysis.Adapted{}, err
	}

	var obj struct {
		Simplified *string `json:"simplified"`
		Visual     struct {
			FontSize    *string  `json:"font_size"`
			LineHeight  *float64 `json:"line_height"`
			ColorScheme *string  `json:"color_scheme"`
		} `json:"visual"`
		Audio struct {
			ShouldReadAloud *bool    `json:"should_read_aloud"`
			ReadingSpeed    *float64 `json:"reading_speed"`
			EmphasizeTerms  *bool    `json:"emphasize_terms"`
		} `json:"audio"`
		Safety []string `json:"safety"`
	}
	if err := json.Unmarshal([]byte(payload), &obj); err != nil {
		return analysis.Adapted{}, fmt.Errorf("unmarshal adaptation: %w", err)
	}

	adapted := analysis.Adapted{
		Simplified: stringOr(obj.Simplified, original),
		Visual: analysis.VisualSettings{
			FontSize:    stringOr(obj.Visual.FontSize, "18px"),
			LineHeight:  floatOr(obj.Visual.LineHeight, 1.6),
			ColorScheme: stringOr(obj.Visual.ColorScheme, "high_contrast"),
		},
		Audio: analysis.AudioSettings{
			ShouldReadAloud: boolOr(obj.Audio.ShouldReadAloud, true),
			ReadingSpeed:    floatOr(obj.Audio.ReadingSpeed, 0.8),
			EmphasizeTerms:  boolOr(obj.Audio.EmphasizeTerms, true),
		},
		Safety: obj.Safety,
	}
	if adapted.Safety == nil {
		adapted.Safety = []string{}
	}
	return adapted, nil
}

func floatOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func stringOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
