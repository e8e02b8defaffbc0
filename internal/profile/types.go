// Package profile holds the mutable accessibility state of the service:
// the singleton reader profile and the per-patient healthcare profiles,
// together with their guidance and completion histories. State lives in
// memory for the process lifetime and is written through to storage so
// it survives restarts.
package profile

import (
	"sort"
	"time"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return realClock{} }

// ReadingProgress tracks how much the reader has processed.
type ReadingProgress struct {
	TextsRead         int     `json:"texts_read"`
	ComprehensionRate float64 `json:"comprehension_rate"`
}

// ReaderProfile is the singleton profile of the reading user. Severity
// starts at "moderate" and escalates as analyses accumulate evidence.
// ConfidenceLevel is an exponential moving average of observed
// indicator scores and starts at zero.
type ReaderProfile struct {
	DyslexiaSeverity     string          `json:"dyslexia_severity"`
	PreferredAdaptations []string        `json:"preferred_adaptations"`
	ReadingProgress      ReadingProgress `json:"reading_progress"`
	LearnedTerms         []string        `json:"medical_terms_learned"`
	ConfidenceLevel      float64         `json:"confidence_level"`
	AssistiveMode        bool            `json:"assistive_mode"`
}

// DefaultReaderProfile returns the profile used before any analysis.
func DefaultReaderProfile() ReaderProfile {
	return ReaderProfile{
		DyslexiaSeverity:     "moderate",
		PreferredAdaptations: []string{},
		LearnedTerms:         []string{},
	}
}

// AddLearnedTerms inserts terms into the learned set, keeping the slice
// sorted and free of duplicates.
func (p *ReaderProfile) AddLearnedTerms(terms ...string) {
	if len(terms) == 0 {
		return
	}
	seen := make(map[string]bool, len(p.LearnedTerms)+len(terms))
	for _, t := range p.LearnedTerms {
		seen[t] = true
	}
	for _, t := range terms {
		seen[t] = true
	}
	p.LearnedTerms = make([]string, 0, len(seen))
	for t := range seen {
		p.LearnedTerms = append(p.LearnedTerms, t)
	}
	sort.Strings(p.LearnedTerms)
}

// VoiceSettings are the per-patient speech preferences used when
// rendering voice guidance.
type VoiceSettings struct {
	VoiceSpeed         float64 `json:"voice_speed"`
	VoiceTone          string  `json:"voice_tone"`
	PauseDuration      float64 `json:"pause_duration"`
	RepeatInstructions bool    `json:"repeat_instructions"`
	AudioDescriptions  bool    `json:"audio_descriptions"`
	ProgressUpdates    bool    `json:"progress_updates"`
}

// FormPattern is one observed form interaction.
type FormPattern struct {
	FormType          string  `json:"form_type"`
	CompletionTime    float64 `json:"completion_time"`
	ErrorsCount       int     `json:"errors_count"`
	HelpRequests      int     `json:"help_requests"`
	VoiceGuidanceUsed bool    `json:"voice_guidance_used"`
}

// PatientProfile is the perceived accessibility profile of one patient.
// LastUpdated is an RFC 3339 timestamp; empty means never updated.
type PatientProfile struct {
	PatientID          string        `json:"patient_id"`
	VisualAcuity       string        `json:"visual_acuity"`
	AccessibilityNeeds []string      `json:"accessibility_needs"`
	IndependenceLevel  float64       `json:"independence_level"`
	PreferredVoice     VoiceSettings `json:"preferred_voice_settings"`
	FormPatterns       []FormPattern `json:"form_completion_patterns"`
	LastUpdated        string        `json:"last_updated,omitempty"`
}

// CompletionRecord is one timestamped form-completion observation.
type CompletionRecord struct {
	Timestamp                  string  `json:"timestamp"`
	CompletionSuccess          bool    `json:"completion_success"`
	CompletionTime             float64 `json:"completion_time"`
	StressLevel                float64 `json:"stress_level"`
	VoiceGuidanceEffectiveness float64 `json:"voice_guidance_effectiveness"`
}

// GuidanceEffectiveness summarizes how well voice guidance worked for
// one completion.
type GuidanceEffectiveness struct {
	VoiceGuidanceRating   float64 `json:"voice_guidance_rating"`
	CompletionImprovement float64 `json:"completion_improvement"`
	StressReduction       float64 `json:"stress_reduction"`
}

// LearningInsights is what one completion taught the service about a
// patient.
type LearningInsights struct {
	GuidanceEffectiveness     GuidanceEffectiveness `json:"guidance_effectiveness"`
	SuccessPatterns           []string              `json:"success_patterns"`
	ImprovementAreas          []string              `json:"improvement_areas"`
	AdaptationRecommendations []string              `json:"adaptation_recommendations"`
}

// GuidanceRecord is one entry in a patient's guidance history.
type GuidanceRecord struct {
	PatientID           string           `json:"patient_id"`
	LastUpdated         string           `json:"last_updated"`
	LearningInsights    LearningInsights `json:"learning_insights"`
	TotalCompletions    int              `json:"total_completions"`
	AverageIndependence float64          `json:"average_independence"`
}

// VisualAdaptations is the display configuration applied to a form.
type VisualAdaptations struct {
	FontSize    string `json:"font_size"`
	Contrast    string `json:"contrast"`
	ColorScheme string `json:"color_scheme"`
	Spacing     string `json:"spacing"`
}

// FormAdaptation records the visual adaptations applied to one form for
// one patient.
type FormAdaptation struct {
	PatientID   string            `json:"patient_id"`
	FormID      string            `json:"form_id"`
	Adaptations VisualAdaptations `json:"adaptations"`
	CreatedAt   string            `json:"created_at"`
}
