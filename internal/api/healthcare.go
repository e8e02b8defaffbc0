package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/plainsight/internal/lowvision"
	"github.com/kalambet/plainsight/internal/profile"
)

// PatientProfileResponse is the GET /patient-profile/{id} body. Form
// patterns and completions are capped to the five most recent;
// guidance history is the latest guidance record, or an empty object
// for patients that never finished a guided form.
type PatientProfileResponse struct {
	PatientID          string                     `json:"patient_id"`
	VisualAcuity       string                     `json:"visual_acuity"`
	AccessibilityNeeds []string                   `json:"accessibility_needs"`
	IndependenceLevel  float64                    `json:"independence_level"`
	PreferredVoice     profile.VoiceSettings      `json:"preferred_voice_settings"`
	FormPatterns       []profile.FormPattern      `json:"form_completion_patterns"`
	RecentCompletions  []profile.CompletionRecord `json:"recent_completions"`
	GuidanceHistory    any                        `json:"guidance_history"`
	LastUpdated        string                     `json:"last_updated"`
}

// OverviewResponse aggregates accessibility analytics across all
// profiled patients.
type OverviewResponse struct {
	TotalPatients            int            `json:"total_patients"`
	VisualAcuityDistribution map[string]int `json:"visual_acuity_distribution"`
	AccessibilityNeeds       map[string]int `json:"accessibility_needs_distribution"`
	AverageIndependence      float64        `json:"average_independence_level"`
	AgenticAIStatus          string         `json:"agentic_ai_status"`
	TotalFormAdaptations     int            `json:"total_form_adaptations"`
	VoiceGuidanceSessions    int            `json:"voice_guidance_sessions"`
}

func handleAnalyzePatient(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var data lowvision.InteractionData
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if data.PatientID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "patient_id is required")
			return
		}

		p, err := deps.Healthcare.Perceive(data)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "patient analysis failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			profile.PatientProfile
			AnalysisMethod string `json:"analysis_method"`
		}{p, deps.Healthcare.Method()})
	}
}

func handleAnalyzeFormErrors(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID := r.URL.Query().Get("patient_id")
		if patientID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "patient_id is required")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var form lowvision.FormRequest
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		guidance, err := deps.Healthcare.Guide(patientID, form)
		if errors.Is(err, profile.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "Patient profile not found. Please analyze patient first.")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "form error analysis failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(guidance)
	}
}

func handleLearnFromCompletion(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var result lowvision.CompletionResult
		if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if result.PatientID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "patient_id is required")
			return
		}

		learned, err := deps.Healthcare.Learn(result)
		if errors.Is(err, profile.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "Patient profile not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "learning update failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(learned)
	}
}

// PatientSummary is one row of the GET /patients listing.
type PatientSummary struct {
	PatientID         string  `json:"patient_id"`
	VisualAcuity      string  `json:"visual_acuity"`
	IndependenceLevel float64 `json:"independence_level"`
	LastUpdated       string  `json:"last_updated,omitempty"`
}

func handleListPatients(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patients := deps.Profiles.Patients()

		summaries := make([]PatientSummary, 0, len(patients))
		for _, p := range patients {
			summaries = append(summaries, PatientSummary{
				PatientID:         p.PatientID,
				VisualAcuity:      p.VisualAcuity,
				IndependenceLevel: p.IndependenceLevel,
				LastUpdated:       p.LastUpdated,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summaries)
	}
}

func handlePatientProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		p, err := deps.Profiles.Patient(id)
		if errors.Is(err, profile.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "Patient profile not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "profile retrieval failed: %v", err)
			return
		}

		patterns := p.FormPatterns
		if len(patterns) > 5 {
			patterns = patterns[len(patterns)-5:]
		}
		completions := deps.Profiles.Completions(id)
		if len(completions) > 5 {
			completions = completions[len(completions)-5:]
		}
		if completions == nil {
			completions = []profile.CompletionRecord{}
		}

		var history any = struct{}{}
		lastUpdated := "Never"
		if sessions := deps.Profiles.Guidance(id); len(sessions) > 0 {
			latest := sessions[len(sessions)-1]
			history = latest
			if latest.LastUpdated != "" {
				lastUpdated = latest.LastUpdated
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(PatientProfileResponse{
			PatientID:          p.PatientID,
			VisualAcuity:       p.VisualAcuity,
			AccessibilityNeeds: p.AccessibilityNeeds,
			IndependenceLevel:  p.IndependenceLevel,
			PreferredVoice:     p.PreferredVoice,
			FormPatterns:       patterns,
			RecentCompletions:  completions,
			GuidanceHistory:    history,
			LastUpdated:        lastUpdated,
		})
	}
}

func handleHealthcareOverview(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(buildOverview(deps.Profiles, deps.Healthcare))
	}
}

func buildOverview(profiles *profile.Manager, healthcare *lowvision.Agent) OverviewResponse {
	patients := profiles.Patients()

	acuity := map[string]int{}
	needs := map[string]int{}
	total := 0.0
	for _, p := range patients {
		acuity[p.VisualAcuity]++
		for _, n := range p.AccessibilityNeeds {
			needs[n]++
		}
		total += p.IndependenceLevel
	}
	avg := 0.0
	if len(patients) > 0 {
		avg = total / float64(len(patients))
	}

	status := "disabled"
	if healthcare.Agentic() {
		status = "enabled"
	}

	return OverviewResponse{
		TotalPatients:            len(patients),
		VisualAcuityDistribution: acuity,
		AccessibilityNeeds:       needs,
		AverageIndependence:      avg,
		AgenticAIStatus:          status,
		TotalFormAdaptations:     profiles.FormAdaptationCount(),
		VoiceGuidanceSessions:    profiles.GuidanceSessionCount(),
	}
}

// handleDemoScenario runs the full perceive, reason, act cycle on a
// canned moderate-acuity patient and a partially completed
// registration form.
func handleDemoScenario(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stress := 0.6
		data := lowvision.InteractionData{
			PatientID:    "demo_patient_001",
			VisualAcuity: "moderate",
			FormInteractions: []lowvision.FormInteraction{{
				FormType:          "registration",
				CompletionTime:    25,
				Errors:            []lowvision.InteractionError{{Field: "insurance_id", Type: "invalid_format"}},
				HelpRequests:      2,
				VoiceGuidanceUsed: true,
			}},
			StressIndicators: []lowvision.StressIndicator{{Timestamp: "2024-01-15T10:30:00", Level: 0.7}},
			CompletionTimes:  []float64{25, 20, 30},
			ErrorPatterns: []lowvision.ErrorPattern{
				{Errors: []lowvision.InteractionError{{Field: "insurance_id", Type: "invalid_format"}}},
				{Errors: []lowvision.InteractionError{{Field: "phone", Type: "invalid_format"}}},
			},
			StressLevel: &stress,
		}

		p, err := deps.Healthcare.Perceive(data)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "demo scenario failed: %v", err)
			return
		}

		form := lowvision.FormRequest{
			FormID:   "demo_form_001",
			FormType: "patient_registration",
			Fields: []lowvision.FormField{
				{FieldID: "insurance_id", FieldType: "text", Label: "Insurance ID", Value: "12345", Required: true, ValidationRules: []string{"required", "format"}},
				{FieldID: "phone", FieldType: "text", Label: "Phone Number", Value: "555-123", Required: true, ValidationRules: []string{"required", "phone_format"}},
				{FieldID: "date_of_birth", FieldType: "date", Label: "Date of Birth", Value: "", Required: true, ValidationRules: []string{"required", "date_format"}},
			},
			CompletionStatus: 0.6,
		}

		guidance, err := deps.Healthcare.Guide(data.PatientID, form)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "demo scenario failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"demo_scenario": serviceUseCase,
			"patient_profile": map[string]any{
				"visual_acuity":       p.VisualAcuity,
				"independence_level":  p.IndependenceLevel,
				"accessibility_needs": p.AccessibilityNeeds,
			},
			"voice_guidance": map[string]any{
				"error_summaries":     guidance.ErrorSummaries,
				"audio_instructions":  guidance.AudioInstructions,
				"supportive_messages": guidance.SupportiveMessages,
			},
			"accessibility_features": guidance.AccessibilityFeatures,
			"success_metrics": map[string]string{
				"form_completion_rate":     "90%+",
				"error_reduction":          "70% fewer errors",
				"independence_improvement": "85% increase",
				"stress_reduction":         "60% decrease in anxiety",
			},
		})
	}
}
