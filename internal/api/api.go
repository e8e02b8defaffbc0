// Package api is the HTTP and MCP surface of the service: reader
// analysis, the healthcare voice-guidance endpoints, the document
// pipeline, and an MCP server exposing the same capabilities as tools
// and resources.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/kalambet/plainsight/internal/lowvision"
	"github.com/kalambet/plainsight/internal/profile"
	"github.com/kalambet/plainsight/internal/reader"
	"github.com/kalambet/plainsight/internal/storage"
)

const apiVersion = "1.0.0"

const (
	serviceUseCase = "Patient with Low Vision - Form Error Detection & Voice Guidance"
	healthUseCase  = "Low Vision Healthcare Accessibility"
)

const maxRequestBodySize = 1 << 20 // 1MB

// defaultOrigins is the CORS allowlist used when none is configured.
var defaultOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}

type AppDeps struct {
	Store      *storage.Store
	Profiles   *profile.Manager
	Reader     *reader.Agent
	Healthcare *lowvision.Agent
	// GroqConnected reports whether the startup credential probe
	// succeeded. Health reporting only; the agents carry their own
	// capability flags.
	GroqConnected bool
	Token         string
	HTTPClient    *http.Client
	CORSOrigins   []string
}

// NewAppHandler builds the full HTTP router. The root and health
// endpoints are always open; everything else requires the bearer token
// when one is configured.
func NewAppHandler(deps AppDeps) http.Handler {
	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = defaultOrigins
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", handleRoot(deps))
	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/analyze", handleAnalyze(deps))
		r.Get("/profile", handleGetProfile(deps))
		r.Patch("/profile", handlePatchProfile(deps))

		r.Post("/analyze-patient", handleAnalyzePatient(deps))
		r.Post("/analyze-form-errors", handleAnalyzeFormErrors(deps))
		r.Post("/learn-from-completion", handleLearnFromCompletion(deps))
		r.Get("/patients", handleListPatients(deps))
		r.Get("/patient-profile/{id}", handlePatientProfile(deps))
		r.Get("/analytics/healthcare-overview", handleHealthcareOverview(deps))
		r.Get("/demo/low-vision-scenario", handleDemoScenario(deps))

		r.Post("/documents", handleAddDocument(deps))
		r.Get("/documents", handleListDocuments(deps))
		r.Get("/documents/{id}", handleGetDocument(deps))
		r.Delete("/documents/{id}", handleDeleteDocument(deps))
	})

	return r
}

func handleRoot(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"message":            "Plainsight Healthcare API - Low Vision Accessibility",
			"status":             "active",
			"version":            apiVersion,
			"use_case":           serviceUseCase,
			"agentic_ai_enabled": deps.Healthcare.Agentic(),
		})
	}
}

func handleHealth(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status": "healthy",
			"agentic_ai": map[string]any{
				"enabled":                 deps.Healthcare.Agentic(),
				"groq_connected":          deps.GroqConnected,
				"patients_profiled":       deps.Profiles.PatientCount(),
				"form_adaptations":        deps.Profiles.FormAdaptationCount(),
				"voice_guidance_sessions": deps.Profiles.GuidanceSessionCount(),
				"texts_analyzed":          deps.Profiles.Reader().ReadingProgress.TextsRead,
			},
			"use_case":    healthUseCase,
			"api_version": apiVersion,
		})
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
