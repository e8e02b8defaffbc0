package analysis

// Decide maps an analysis result onto the fixed intervention thresholds.
// It is a pure function: identical input always produces identical output.
func Decide(r Result) Interventions {
	iv := Interventions{
		NeedsSimplification:  r.ComplexityScore > 0.4,
		NeedsVisualSupport:   r.DyslexiaIndicators > 0.2,
		NeedsAudioSupport:    r.ComplexityScore > 0.3,
		NeedsSafetyEmphasis:  len(r.MedicalTerms) > 2,
		FontSizeMultiplier:   1.0,
		LineHeightMultiplier: 1.4,
	}
	if r.DyslexiaIndicators > 0.2 {
		iv.FontSizeMultiplier = 1.2
	}
	if r.DyslexiaIndicators > 0.3 {
		iv.LineHeightMultiplier = 1.6
	}
	return iv
}
