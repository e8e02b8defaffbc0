package analysis

import "github.com/kalambet/plainsight/internal/lexicon"

// Result is the outcome of the perception phase for a single text.
type Result struct {
	ComplexityScore    float64        `json:"complexity_score"`
	MedicalTerms       []lexicon.Term `json:"medical_terms"`
	DyslexiaIndicators float64        `json:"dyslexia_indicators"`
	Confidence         float64        `json:"confidence"`
}

// Features holds raw reading-pattern counts extracted from a text.
type Features struct {
	LetterReversals int
	Transpositions  int
}

// Map renders the features as a sparse pattern map, omitting zero counts.
func (f Features) Map() map[string]int {
	m := map[string]int{}
	if f.LetterReversals > 0 {
		m["letter_reversals"] = f.LetterReversals
	}
	if f.Transpositions > 0 {
		m["transpositions"] = f.Transpositions
	}
	return m
}

// Interventions is the set of adaptations the reasoning phase selects.
type Interventions struct {
	NeedsSimplification  bool    `json:"needs_simplification"`
	NeedsVisualSupport   bool    `json:"needs_visual_support"`
	NeedsAudioSupport    bool    `json:"needs_audio_support"`
	NeedsSafetyEmphasis  bool    `json:"needs_safety_emphasis"`
	FontSizeMultiplier   float64 `json:"font_size_multiplier"`
	LineHeightMultiplier float64 `json:"line_height_multiplier"`
}

// VisualSettings describe how adapted text should be rendered.
type VisualSettings struct {
	FontSize    string  `json:"font_size"`
	LineHeight  float64 `json:"line_height"`
	ColorScheme string  `json:"color_scheme"`
}

// AudioSettings describe how adapted text should be read aloud.
type AudioSettings struct {
	ShouldReadAloud bool    `json:"should_read_aloud"`
	ReadingSpeed    float64 `json:"reading_speed"`
	EmphasizeTerms  bool    `json:"emphasize_terms"`
}

// Adapted is the output of the acting phase: simplified text plus the
// rendering and narration settings derived from the interventions.
type Adapted struct {
	Simplified string         `json:"simplified"`
	Visual     VisualSettings `json:"visual"`
	Audio      AudioSettings  `json:"audio"`
	Safety     []string       `json:"safety"`
}
