package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const severePatientBody = `{
	"patient_id": "patient_42",
	"visual_acuity": "severe",
	"form_interactions": [
		{"form_type": "registration", "completion_time": 20, "errors": [{"field": "phone", "type": "invalid_format"}], "help_requests": 1, "voice_guidance_used": true}
	],
	"completion_times": [20, 25],
	"error_patterns": [{"errors": [{"field": "phone", "type": "invalid_format"}]}],
	"stress_level": 0.7
}`

const simpleFormBody = `{
	"form_id": "f1",
	"form_type": "registration",
	"fields": [
		{"field_id": "name", "field_type": "text", "label": "Full Name", "value": "", "required": true, "validation_rules": ["required"]}
	],
	"completion_status": 0.5
}`

func closeTo(t *testing.T, got, want float64, name string) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func analyzePatient(t *testing.T, h http.Handler, body string) map[string]any {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/analyze-patient", body, ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("analyze-patient status = %d; body = %s", rr.Code, rr.Body.String())
	}
	return decodeJSON(t, rr)
}

func TestAnalyzePatient(t *testing.T) {
	h, _ := setupApp(t, "")

	resp := analyzePatient(t, h, severePatientBody)

	if resp["patient_id"] != "patient_42" {
		t.Errorf("patient_id = %v, want %q", resp["patient_id"], "patient_42")
	}
	if resp["visual_acuity"] != "severe" {
		t.Errorf("visual_acuity = %v, want %q", resp["visual_acuity"], "severe")
	}
	if resp["analysis_method"] != "Rule-based" {
		t.Errorf("analysis_method = %v, want %q", resp["analysis_method"], "Rule-based")
	}
	if _, ok := resp["last_updated"]; ok {
		t.Errorf("last_updated present on fresh profile: %v", resp["last_updated"])
	}

	needs, ok := resp["accessibility_needs"].([]any)
	if !ok {
		t.Fatalf("accessibility_needs = %T, want array", resp["accessibility_needs"])
	}
	if len(needs) != 6 {
		t.Errorf("got %d accessibility needs, want 6: %v", len(needs), needs)
	}

	// Severe acuity with elevated stress picks a slow calm voice.
	voice, ok := resp["preferred_voice_settings"].(map[string]any)
	if !ok {
		t.Fatalf("preferred_voice_settings = %T, want object", resp["preferred_voice_settings"])
	}
	if voice["voice_tone"] != "calm" {
		t.Errorf("voice_tone = %v, want %q", voice["voice_tone"], "calm")
	}
	closeTo(t, voice["voice_speed"].(float64), 0.7, "voice_speed")

	// Average time 22.5 min and one error per episode.
	closeTo(t, resp["independence_level"].(float64), 0.525, "independence_level")

	patterns, ok := resp["form_completion_patterns"].([]any)
	if !ok || len(patterns) != 1 {
		t.Fatalf("form_completion_patterns = %v, want 1 entry", resp["form_completion_patterns"])
	}
}

func TestAnalyzePatient_MissingID(t *testing.T) {
	h, _ := setupApp(t, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/analyze-patient", `{"visual_acuity":"mild"}`, ""))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestAnalyzeFormErrors(t *testing.T) {
	h, _ := setupApp(t, "")
	analyzePatient(t, h, `{"patient_id":"p1","visual_acuity":"moderate"}`)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/analyze-form-errors?patient_id=p1", simpleFormBody, ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}

	resp := decodeJSON(t, rr)
	if resp["patient_id"] != "p1" {
		t.Errorf("patient_id = %v, want %q", resp["patient_id"], "p1")
	}
	if resp["form_id"] != "f1" {
		t.Errorf("form_id = %v, want %q", resp["form_id"], "f1")
	}
	closeTo(t, resp["confidence_score"].(float64), 0.7, "confidence_score")
	if resp["analysis_method"] != "Rule-based" {
		t.Errorf("analysis_method = %v, want %q", resp["analysis_method"], "Rule-based")
	}

	summaries, ok := resp["error_summaries"].([]any)
	if !ok || len(summaries) != 2 {
		t.Fatalf("error_summaries = %v, want 2 entries", resp["error_summaries"])
	}
	if summaries[1] != "1. Full Name: missing information" {
		t.Errorf("error_summaries[1] = %q", summaries[1])
	}

	instructions, ok := resp["audio_instructions"].([]any)
	if !ok || len(instructions) != 1 {
		t.Fatalf("audio_instructions = %v, want 1 entry", resp["audio_instructions"])
	}
	if instructions[0] != "Let's fix Full Name. This field is required." {
		t.Errorf("audio_instructions[0] = %q", instructions[0])
	}

	// Moderate acuity maps to high contrast and enlarged font.
	adaptations, ok := resp["visual_adaptations"].(map[string]any)
	if !ok {
		t.Fatalf("visual_adaptations = %T, want object", resp["visual_adaptations"])
	}
	if adaptations["contrast"] != "high" {
		t.Errorf("contrast = %v, want %q", adaptations["contrast"], "high")
	}
	if adaptations["font_size"] != "20px" {
		t.Errorf("font_size = %v, want %q", adaptations["font_size"], "20px")
	}
}

func TestAnalyzeFormErrors_UnknownPatient(t *testing.T) {
	h, _ := setupApp(t, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/analyze-form-errors?patient_id=ghost", simpleFormBody, ""))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}

	body := decodeJSON(t, rr)
	errObj := body["error"].(map[string]any)
	if errObj["message"] != "Patient profile not found. Please analyze patient first." {
		t.Errorf("message = %q", errObj["message"])
	}
}

func TestAnalyzeFormErrors_MissingPatientID(t *testing.T) {
	h, _ := setupApp(t, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/analyze-form-errors", simpleFormBody, ""))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestLearnFromCompletion(t *testing.T) {
	h, _ := setupApp(t, "")
	analyzePatient(t, h, severePatientBody)

	body := `{
		"patient_id": "patient_42",
		"completed_successfully": true,
		"completion_time": 12.5,
		"stress_level": 0.3,
		"voice_guidance_rating": 0.9,
		"independence_improvement": 0.2
	}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/learn-from-completion", body, ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}

	resp := decodeJSON(t, rr)
	if resp["patient_id"] != "patient_42" {
		t.Errorf("patient_id = %v, want %q", resp["patient_id"], "patient_42")
	}
	closeTo(t, resp["updated_independence"].(float64), 0.545, "updated_independence")

	insights, ok := resp["learning_insights"].(map[string]any)
	if !ok {
		t.Fatalf("learning_insights = %T, want object", resp["learning_insights"])
	}
	patterns, ok := insights["success_patterns"].([]any)
	if !ok || len(patterns) != 2 {
		t.Fatalf("success_patterns = %v, want 2 entries", insights["success_patterns"])
	}

	eff, ok := resp["voice_guidance_effectiveness"].(map[string]any)
	if !ok {
		t.Fatalf("voice_guidance_effectiveness = %T, want object", resp["voice_guidance_effectiveness"])
	}
	closeTo(t, eff["voice_guidance_rating"].(float64), 0.9, "voice_guidance_rating")
	closeTo(t, eff["stress_reduction"].(float64), 0.7, "stress_reduction")

	recs, ok := resp["recommendations"].([]any)
	if !ok || len(recs) != 0 {
		t.Errorf("recommendations = %v, want empty array", resp["recommendations"])
	}
}

func TestLearnFromCompletion_UnknownPatient(t *testing.T) {
	h, _ := setupApp(t, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/learn-from-completion", `{"patient_id":"ghost"}`, ""))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestPatientProfile(t *testing.T) {
	h, _ := setupApp(t, "")
	analyzePatient(t, h, severePatientBody)

	learnBody := `{"patient_id":"patient_42","completed_successfully":true,"completion_time":10,"voice_guidance_rating":0.9,"independence_improvement":0.1}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/learn-from-completion", learnBody, ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("learn status = %d; body = %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/patient-profile/patient_42", "", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}

	resp := decodeJSON(t, rr)
	if resp["patient_id"] != "patient_42" {
		t.Errorf("patient_id = %v, want %q", resp["patient_id"], "patient_42")
	}

	history, ok := resp["guidance_history"].(map[string]any)
	if !ok {
		t.Fatalf("guidance_history = %T, want object", resp["guidance_history"])
	}
	// One form pattern plus one recorded completion.
	if history["total_completions"] != float64(2) {
		t.Errorf("total_completions = %v, want 2", history["total_completions"])
	}
	if resp["last_updated"] == "Never" || resp["last_updated"] == "" {
		t.Errorf("last_updated = %v, want a timestamp", resp["last_updated"])
	}

	completions, ok := resp["recent_completions"].([]any)
	if !ok || len(completions) != 1 {
		t.Fatalf("recent_completions = %v, want 1 entry", resp["recent_completions"])
	}
}

func TestPatientProfile_NoGuidanceYet(t *testing.T) {
	h, _ := setupApp(t, "")
	analyzePatient(t, h, severePatientBody)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/patient-profile/patient_42", "", ""))

	resp := decodeJSON(t, rr)
	history, ok := resp["guidance_history"].(map[string]any)
	if !ok || len(history) != 0 {
		t.Errorf("guidance_history = %v, want empty object", resp["guidance_history"])
	}
	if resp["last_updated"] != "Never" {
		t.Errorf("last_updated = %v, want %q", resp["last_updated"], "Never")
	}

	completions, ok := resp["recent_completions"].([]any)
	if !ok || len(completions) != 0 {
		t.Errorf("recent_completions = %v, want empty array", resp["recent_completions"])
	}
}

func TestPatientProfile_LastFivePatterns(t *testing.T) {
	h, _ := setupApp(t, "")

	// Seven interactions; the profile view keeps the newest five.
	interactions := ""
	for i := 0; i < 7; i++ {
		if i > 0 {
			interactions += ","
		}
		interactions += fmt.Sprintf(`{"form_type":"form_%d","completion_time":10,"errors":[],"help_requests":0,"voice_guidance_used":false}`, i)
	}
	body := fmt.Sprintf(`{"patient_id":"p7","visual_acuity":"mild","form_interactions":[%s]}`, interactions)
	analyzePatient(t, h, body)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/patient-profile/p7", "", ""))

	resp := decodeJSON(t, rr)
	patterns, ok := resp["form_completion_patterns"].([]any)
	if !ok || len(patterns) != 5 {
		t.Fatalf("got %d patterns, want 5", len(patterns))
	}
	first := patterns[0].(map[string]any)
	if first["form_type"] != "form_2" {
		t.Errorf("oldest kept pattern = %v, want form_2", first["form_type"])
	}
}

func TestPatientProfile_NotFound(t *testing.T) {
	h, _ := setupApp(t, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/patient-profile/ghost", "", ""))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}

	body := decodeJSON(t, rr)
	errObj := body["error"].(map[string]any)
	if errObj["message"] != "Patient profile not found" {
		t.Errorf("message = %q", errObj["message"])
	}
}

func TestHealthcareOverview(t *testing.T) {
	h, _ := setupApp(t, "")
	analyzePatient(t, h, severePatientBody)
	analyzePatient(t, h, `{"patient_id":"p2","visual_acuity":"moderate"}`)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/analytics/healthcare-overview", "", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}

	resp := decodeJSON(t, rr)
	if resp["total_patients"] != float64(2) {
		t.Errorf("total_patients = %v, want 2", resp["total_patients"])
	}
	if resp["agentic_ai_status"] != "disabled" {
		t.Errorf("agentic_ai_status = %v, want %q", resp["agentic_ai_status"], "disabled")
	}

	acuity, ok := resp["visual_acuity_distribution"].(map[string]any)
	if !ok {
		t.Fatalf("visual_acuity_distribution = %T, want object", resp["visual_acuity_distribution"])
	}
	if acuity["severe"] != float64(1) || acuity["moderate"] != float64(1) {
		t.Errorf("visual_acuity_distribution = %v", acuity)
	}

	// (0.525 + 0.5) / 2 across the two profiles.
	closeTo(t, resp["average_independence_level"].(float64), 0.5125, "average_independence_level")
	if resp["voice_guidance_sessions"] != float64(0) {
		t.Errorf("voice_guidance_sessions = %v, want 0", resp["voice_guidance_sessions"])
	}
}

func TestHealthcareOverview_Empty(t *testing.T) {
	h, _ := setupApp(t, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/analytics/healthcare-overview", "", ""))

	resp := decodeJSON(t, rr)
	if resp["total_patients"] != float64(0) {
		t.Errorf("total_patients = %v, want 0", resp["total_patients"])
	}
	closeTo(t, resp["average_independence_level"].(float64), 0.0, "average_independence_level")
}

func TestListPatients(t *testing.T) {
	h, _ := setupApp(t, "")
	analyzePatient(t, h, severePatientBody)
	analyzePatient(t, h, `{"patient_id":"alpha","visual_acuity":"mild"}`)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/patients", "", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var patients []PatientSummary
	if err := json.NewDecoder(rr.Body).Decode(&patients); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(patients) != 2 {
		t.Fatalf("got %d patients, want 2", len(patients))
	}
	// Sorted by ID.
	if patients[0].PatientID != "alpha" || patients[1].PatientID != "patient_42" {
		t.Errorf("order = [%s, %s]", patients[0].PatientID, patients[1].PatientID)
	}
	if patients[1].VisualAcuity != "severe" {
		t.Errorf("visual_acuity = %q, want %q", patients[1].VisualAcuity, "severe")
	}
	closeTo(t, patients[1].IndependenceLevel, 0.525, "independence_level")
}

func TestListPatients_Empty(t *testing.T) {
	h, _ := setupApp(t, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/patients", "", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Errorf("body = %q, want empty array", got)
	}
}

func TestDemoScenario(t *testing.T) {
	h, deps := setupApp(t, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/demo/low-vision-scenario", "", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}

	resp := decodeJSON(t, rr)
	if resp["demo_scenario"] != serviceUseCase {
		t.Errorf("demo_scenario = %v", resp["demo_scenario"])
	}

	pp, ok := resp["patient_profile"].(map[string]any)
	if !ok {
		t.Fatalf("patient_profile = %T, want object", resp["patient_profile"])
	}
	if pp["visual_acuity"] != "moderate" {
		t.Errorf("visual_acuity = %v, want %q", pp["visual_acuity"], "moderate")
	}
	closeTo(t, pp["independence_level"].(float64), (1.0/6.0+0.8)/2, "independence_level")

	vg, ok := resp["voice_guidance"].(map[string]any)
	if !ok {
		t.Fatalf("voice_guidance = %T, want object", resp["voice_guidance"])
	}
	// Three seeded field errors: short insurance ID, short phone
	// number, empty date of birth.
	summaries, ok := vg["error_summaries"].([]any)
	if !ok || len(summaries) != 4 {
		t.Fatalf("error_summaries = %v, want 4 entries", vg["error_summaries"])
	}
	instructions, ok := vg["audio_instructions"].([]any)
	if !ok || len(instructions) != 3 {
		t.Fatalf("audio_instructions = %v, want 3 entries", vg["audio_instructions"])
	}

	metrics, ok := resp["success_metrics"].(map[string]any)
	if !ok {
		t.Fatalf("success_metrics = %T, want object", resp["success_metrics"])
	}
	if metrics["form_completion_rate"] != "90%+" {
		t.Errorf("form_completion_rate = %v", metrics["form_completion_rate"])
	}
	if metrics["stress_reduction"] != "60% decrease in anxiety" {
		t.Errorf("stress_reduction = %v", metrics["stress_reduction"])
	}

	// The demo run persists its patient like any other analysis.
	if _, err := deps.Profiles.Patient("demo_patient_001"); err != nil {
		t.Errorf("demo patient not stored: %v", err)
	}
}
