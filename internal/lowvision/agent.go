package lowvision

import (
	"fmt"
	"math"
	"time"

	"github.com/kalambet/plainsight/internal/profile"
)

type acuitySettings struct {
	contrast   string
	fontSize   string
	voiceSpeed float64
}

// visual-acuity knowledge table
var acuityLevels = map[string]acuitySettings{
	"mild":          {contrast: "enhanced", fontSize: "large", voiceSpeed: 0.9},
	"moderate":      {contrast: "high", fontSize: "extra_large", voiceSpeed: 0.8},
	"severe":        {contrast: "maximum", fontSize: "huge", voiceSpeed: 0.7},
	"legally_blind": {contrast: "maximum", fontSize: "huge", voiceSpeed: 0.6},
}

func severeVision(acuity string) bool {
	return acuity == "severe" || acuity == "legally_blind"
}

// Agent walks patients with low vision through medical forms. The
// remote capability only raises the reported confidence; all guidance
// is generated locally.
type Agent struct {
	profiles *profile.Manager
	clock    profile.Clock
	agentic  bool
}

// NewAgent creates the healthcare agent. agentic marks the remote
// capability as available, which is reflected in response labels and
// confidence scores.
func NewAgent(profiles *profile.Manager, clock profile.Clock, agentic bool) *Agent {
	return &Agent{profiles: profiles, clock: clock, agentic: agentic}
}

// Agentic reports whether the remote capability is configured.
func (a *Agent) Agentic() bool { return a.agentic }

// Method returns the configured analysis mode label.
func (a *Agent) Method() string {
	if a.agentic {
		return "Agentic AI"
	}
	return "Rule-based"
}

// Perceive builds a patient profile from interaction data and stores
// it, replacing any previous profile for the same patient.
func (a *Agent) Perceive(data InteractionData) (profile.PatientProfile, error) {
	acuity := data.VisualAcuity
	if acuity == "" {
		acuity = "moderate"
	}

	p := profile.PatientProfile{
		PatientID:          data.PatientID,
		VisualAcuity:       acuity,
		AccessibilityNeeds: accessibilityNeeds(acuity),
		IndependenceLevel:  independenceLevel(data.CompletionTimes, data.ErrorPatterns),
		PreferredVoice:     voicePreferences(acuity, data.stressLevel()),
		FormPatterns:       formPatterns(data.FormInteractions),
	}
	if err := a.profiles.PutPatient(p); err != nil {
		return profile.PatientProfile{}, fmt.Errorf("storing patient profile: %w", err)
	}
	return p, nil
}

// accessibilityNeeds derives the accommodation list from visual acuity.
// Voice guidance and audio descriptions are always included.
func accessibilityNeeds(acuity string) []string {
	needs := []string{"voice_guidance", "audio_descriptions"}

	settings := acuityLevels[acuity]
	if settings.contrast == "high" || settings.contrast == "maximum" {
		needs = append(needs, "high_contrast")
	}
	if settings.fontSize == "extra_large" || settings.fontSize == "huge" {
		needs = append(needs, "large_font")
	}
	if severeVision(acuity) {
		needs = append(needs, "screen_reader_optimization", "keyboard_navigation")
	}
	return needs
}

func formPatterns(interactions []FormInteraction) []profile.FormPattern {
	patterns := make([]profile.FormPattern, 0, len(interactions))
	for _, in := range interactions {
		formType := in.FormType
		if formType == "" {
			formType = "unknown"
		}
		patterns = append(patterns, profile.FormPattern{
			FormType:          formType,
			CompletionTime:    in.CompletionTime,
			ErrorsCount:       len(in.Errors),
			HelpRequests:      in.HelpRequests,
			VoiceGuidanceUsed: in.VoiceGuidanceUsed,
		})
	}
	return patterns
}

// independenceLevel scores how independently the patient completes
// forms, from completion times (30 minutes as baseline) and error
// counts (5 errors as baseline). With no data it returns 0.5.
func independenceLevel(times []float64, patterns []ErrorPattern) float64 {
	if len(times) == 0 && len(patterns) == 0 {
		return 0.5
	}

	var avgTime float64
	if len(times) > 0 {
		total := 0.0
		for _, t := range times {
			total += t
		}
		avgTime = total / float64(len(times))
	}

	var avgErrors float64
	if len(patterns) > 0 {
		total := 0
		for _, p := range patterns {
			total += len(p.Errors)
		}
		avgErrors = float64(total) / float64(len(patterns))
	}

	timeScore := math.Max(0, 1-avgTime/30)
	errorScore := math.Max(0, 1-avgErrors/5)
	return (timeScore + errorScore) / 2
}

func voicePreferences(acuity string, stress float64) profile.VoiceSettings {
	speed := 0.8
	if settings, ok := acuityLevels[acuity]; ok {
		speed = settings.voiceSpeed
	}

	tone := "professional"
	if stress > 0.6 {
		tone = "calm"
	}

	pause := 1.0
	if severeVision(acuity) {
		pause = 1.5
	}

	return profile.VoiceSettings{
		VoiceSpeed:         speed,
		VoiceTone:          tone,
		PauseDuration:      pause,
		RepeatInstructions: severeVision(acuity),
		AudioDescriptions:  true,
		ProgressUpdates:    true,
	}
}

// Reason categorizes detected errors and picks the guidance strategy
// for the patient's acuity and independence.
func (a *Agent) Reason(errors []FieldError, p profile.PatientProfile) ErrorAnalysis {
	ea := ErrorAnalysis{
		CriticalErrors:              []FieldError{},
		MinorErrors:                 []FieldError{},
		GuidancePriority:            "medium",
		VoiceGuidanceStrategy:       "step_by_step",
		AccessibilityAccommodations: []string{},
		StressReductionMeasures:     []string{},
	}
	if len(errors) > 3 {
		ea.GuidancePriority = "high"
	}

	for _, e := range errors {
		if e.Severity == "critical" || e.Required {
			ea.CriticalErrors = append(ea.CriticalErrors, e)
		} else {
			ea.MinorErrors = append(ea.MinorErrors, e)
		}
	}

	if severeVision(p.VisualAcuity) {
		ea.VoiceGuidanceStrategy = "detailed_audio_description"
		ea.AccessibilityAccommodations = append(ea.AccessibilityAccommodations,
			"high_contrast", "large_font", "audio_descriptions", "voice_navigation")
	} else if p.IndependenceLevel < 0.5 {
		ea.VoiceGuidanceStrategy = "supportive_coaching"
		ea.StressReductionMeasures = append(ea.StressReductionMeasures,
			"encouraging_tone", "progress_praise", "no_pressure_timing")
	}

	contrast, font := "enhanced", "large"
	if settings, ok := acuityLevels[p.VisualAcuity]; ok {
		contrast, font = settings.contrast, settings.fontSize
	}
	ea.AccessibilityAccommodations = append(ea.AccessibilityAccommodations,
		"contrast_"+contrast, "font_"+font)

	return ea
}

// Guide runs error detection, reasoning and acting for one form and
// records the applied adaptation. Returns profile.ErrNotFound when the
// patient has not been analyzed yet.
func (a *Agent) Guide(patientID string, form FormRequest) (*GuidanceResponse, error) {
	p, err := a.profiles.Patient(patientID)
	if err != nil {
		return nil, err
	}

	detected := DetectErrors(form.Fields)
	ea := a.Reason(detected, p)
	vg := a.Act(form, ea, p)

	if err := a.profiles.RecordFormAdaptation(profile.FormAdaptation{
		PatientID:   patientID,
		FormID:      form.FormID,
		Adaptations: vg.VisualAdaptations,
		CreatedAt:   a.clock.Now().Format(time.RFC3339),
	}); err != nil {
		return nil, fmt.Errorf("recording form adaptation: %w", err)
	}

	confidence := 0.7
	if a.agentic {
		confidence = 0.9
	}

	return &GuidanceResponse{
		PatientID:             patientID,
		FormID:                form.FormID,
		AudioInstructions:     vg.AudioInstructions,
		ErrorSummaries:        vg.ErrorSummaries,
		FormDescriptions:      vg.FormDescriptions,
		SupportiveMessages:    vg.SupportiveMessages,
		VisualAdaptations:     vg.VisualAdaptations,
		NavigationGuidance:    vg.NavigationGuidance,
		AccessibilityFeatures: ea.AccessibilityAccommodations,
		ConfidenceScore:       confidence,
		AnalysisMethod:        a.Method(),
	}, nil
}

// Learn updates the patient profile from a completion result and
// records the completion and the guidance session. Returns
// profile.ErrNotFound for patients that were never analyzed.
func (a *Agent) Learn(result CompletionResult) (*LearnResult, error) {
	stress := result.stressLevel()

	insights := profile.LearningInsights{
		GuidanceEffectiveness: profile.GuidanceEffectiveness{
			VoiceGuidanceRating:   result.VoiceGuidanceRating,
			CompletionImprovement: result.IndependenceImprovement,
			StressReduction:       1 - stress,
		},
		SuccessPatterns:           []string{},
		ImprovementAreas:          []string{},
		AdaptationRecommendations: []string{},
	}
	if result.CompletedSuccessfully && result.VoiceGuidanceRating > 0.8 {
		insights.SuccessPatterns = append(insights.SuccessPatterns, "effective_voice_guidance")
	}
	if result.IndependenceImprovement > 0.1 {
		insights.SuccessPatterns = append(insights.SuccessPatterns, "independence_building")
	}
	if stress > 0.7 {
		insights.ImprovementAreas = append(insights.ImprovementAreas, "stress_reduction")
		insights.AdaptationRecommendations = append(insights.AdaptationRecommendations, "calmer_voice_tone")
	}
	if !result.CompletedSuccessfully {
		insights.ImprovementAreas = append(insights.ImprovementAreas, "guidance_clarity")
		insights.AdaptationRecommendations = append(insights.AdaptationRecommendations, "simpler_instructions")
	}

	now := a.clock.Now().Format(time.RFC3339)
	updated, err := a.profiles.UpdatePatient(result.PatientID, func(p *profile.PatientProfile) {
		p.IndependenceLevel = math.Min(1, p.IndependenceLevel+result.IndependenceImprovement*0.1)
		p.LastUpdated = now
	})
	if err != nil {
		return nil, err
	}

	if err := a.profiles.AddCompletion(result.PatientID, profile.CompletionRecord{
		Timestamp:                  now,
		CompletionSuccess:          result.CompletedSuccessfully,
		CompletionTime:             result.CompletionTime,
		StressLevel:                stress,
		VoiceGuidanceEffectiveness: result.VoiceGuidanceRating,
	}); err != nil {
		return nil, fmt.Errorf("recording completion: %w", err)
	}

	if err := a.profiles.AddGuidance(profile.GuidanceRecord{
		PatientID:           result.PatientID,
		LastUpdated:         now,
		LearningInsights:    insights,
		TotalCompletions:    len(updated.FormPatterns) + len(a.profiles.Completions(result.PatientID)),
		AverageIndependence: updated.IndependenceLevel,
	}); err != nil {
		return nil, fmt.Errorf("recording guidance session: %w", err)
	}

	return &LearnResult{
		PatientID:             result.PatientID,
		LearningInsights:      insights,
		UpdatedIndependence:   updated.IndependenceLevel,
		GuidanceEffectiveness: insights.GuidanceEffectiveness,
		Recommendations:       insights.AdaptationRecommendations,
	}, nil
}
