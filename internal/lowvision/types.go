// Package lowvision implements the healthcare accessibility agent for
// patients with low vision: it perceives a patient's needs from
// interaction data, reasons about medical-form errors, acts with voice
// guidance and visual adaptations, and learns from completed forms.
package lowvision

import "github.com/kalambet/plainsight/internal/profile"

// InteractionData is the perception input for one patient.
type InteractionData struct {
	PatientID        string            `json:"patient_id"`
	VisualAcuity     string            `json:"visual_acuity"`
	FormInteractions []FormInteraction `json:"form_interactions"`
	StressIndicators []StressIndicator `json:"stress_indicators"`
	CompletionTimes  []float64         `json:"completion_times"`
	ErrorPatterns    []ErrorPattern    `json:"error_patterns"`
	StressLevel      *float64          `json:"stress_level"`
}

func (d InteractionData) stressLevel() float64 {
	if d.StressLevel == nil {
		return 0.5
	}
	return *d.StressLevel
}

// FormInteraction is one historical form-filling episode.
type FormInteraction struct {
	FormType          string             `json:"form_type"`
	CompletionTime    float64            `json:"completion_time"`
	Errors            []InteractionError `json:"errors"`
	HelpRequests      int                `json:"help_requests"`
	VoiceGuidanceUsed bool               `json:"voice_guidance_used"`
}

// InteractionError identifies one past mistake on a form field.
type InteractionError struct {
	Field string `json:"field"`
	Type  string `json:"type"`
}

// ErrorPattern groups the errors observed in one past episode.
type ErrorPattern struct {
	Errors []InteractionError `json:"errors"`
}

// StressIndicator is a timestamped stress observation.
type StressIndicator struct {
	Timestamp string  `json:"timestamp"`
	Level     float64 `json:"level"`
}

// FormField is one field of a medical form submitted for analysis.
type FormField struct {
	FieldID         string   `json:"field_id"`
	FieldType       string   `json:"field_type"`
	Label           string   `json:"label"`
	Value           string   `json:"value"`
	Required        bool     `json:"required"`
	ValidationRules []string `json:"validation_rules"`
}

// FormRequest describes a form whose errors should be analyzed.
type FormRequest struct {
	FormID           string      `json:"form_id"`
	FormType         string      `json:"form_type"`
	Fields           []FormField `json:"fields"`
	CompletionStatus float64     `json:"completion_status"`
}

// FieldError is one detected problem on a form field.
type FieldError struct {
	FieldName    string `json:"field_name"`
	FieldID      string `json:"field_id"`
	FieldType    string `json:"field_type"`
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
	Severity     string `json:"severity"`
	Required     bool   `json:"required"`
}

// ErrorAnalysis is the reasoning outcome over a form's errors.
type ErrorAnalysis struct {
	CriticalErrors              []FieldError `json:"critical_errors"`
	MinorErrors                 []FieldError `json:"minor_errors"`
	GuidancePriority            string       `json:"guidance_priority"`
	VoiceGuidanceStrategy       string       `json:"voice_guidance_strategy"`
	AccessibilityAccommodations []string     `json:"accessibility_accommodations"`
	StressReductionMeasures     []string     `json:"stress_reduction_measures"`
}

// VoiceGuidance is the acting outcome: everything the client needs to
// walk the patient through fixing the form.
type VoiceGuidance struct {
	AudioInstructions  []string                  `json:"audio_instructions"`
	ErrorSummaries     []string                  `json:"error_summaries"`
	FormDescriptions   []string                  `json:"form_descriptions"`
	SupportiveMessages []string                  `json:"supportive_messages"`
	VisualAdaptations  profile.VisualAdaptations `json:"visual_adaptations"`
	NavigationGuidance []string                  `json:"navigation_guidance"`
}

// GuidanceResponse is the full reason-and-act product for one form.
type GuidanceResponse struct {
	PatientID             string                    `json:"patient_id"`
	FormID                string                    `json:"form_id"`
	AudioInstructions     []string                  `json:"audio_instructions"`
	ErrorSummaries        []string                  `json:"error_summaries"`
	FormDescriptions      []string                  `json:"form_descriptions"`
	SupportiveMessages    []string                  `json:"supportive_messages"`
	VisualAdaptations     profile.VisualAdaptations `json:"visual_adaptations"`
	NavigationGuidance    []string                  `json:"navigation_guidance"`
	AccessibilityFeatures []string                  `json:"accessibility_features"`
	ConfidenceScore       float64                   `json:"confidence_score"`
	AnalysisMethod        string                    `json:"analysis_method"`
}

// CompletionResult is the learning input after a patient finishes a form.
// A nil StressLevel means unreported and defaults to 0.5.
type CompletionResult struct {
	PatientID               string         `json:"patient_id"`
	CompletedSuccessfully   bool           `json:"completed_successfully"`
	CompletionTime          float64        `json:"completion_time"`
	StressLevel             *float64       `json:"stress_level"`
	VoiceGuidanceRating     float64        `json:"voice_guidance_rating"`
	IndependenceImprovement float64        `json:"independence_improvement"`
	AppliedAdaptations      []string       `json:"applied_adaptations"`
	Feedback                map[string]any `json:"feedback"`
}

func (r CompletionResult) stressLevel() float64 {
	if r.StressLevel == nil {
		return 0.5
	}
	return *r.StressLevel
}

// LearnResult is what one completion taught the agent.
type LearnResult struct {
	PatientID             string                        `json:"patient_id"`
	LearningInsights      profile.LearningInsights      `json:"learning_insights"`
	UpdatedIndependence   float64                       `json:"updated_independence"`
	GuidanceEffectiveness profile.GuidanceEffectiveness `json:"voice_guidance_effectiveness"`
	Recommendations       []string                      `json:"recommendations"`
}
