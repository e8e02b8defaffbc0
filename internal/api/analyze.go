package api

import (
	"encoding/json"
	"net/http"

	"github.com/kalambet/plainsight/internal/profile"
)

// AnalyzeRequest is the POST /analyze body. UserSpeed is the observed
// reading speed in words per minute; zero means unknown. UserContext
// is free-form situational context supplied by the client.
type AnalyzeRequest struct {
	Text        string  `json:"text"`
	UserSpeed   float64 `json:"user_speed"`
	UserContext string  `json:"user_context"`
}

// ProfilePatch is the PATCH /profile body. Nil fields are left
// untouched; a non-nil adaptations slice replaces the stored one.
type ProfilePatch struct {
	DyslexiaSeverity     *string  `json:"dyslexia_severity"`
	PreferredAdaptations []string `json:"preferred_adaptations"`
	AssistiveMode        *bool    `json:"assistive_mode"`
}

func handleAnalyze(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Text == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "text is required")
			return
		}

		result, err := deps.Reader.Analyze(r.Context(), req.Text, req.UserSpeed)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "text analysis failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

func handleGetProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(deps.Profiles.Reader())
	}
}

func handlePatchProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var patch ProfilePatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if patch.DyslexiaSeverity != nil {
			switch *patch.DyslexiaSeverity {
			case "mild", "moderate", "severe":
			default:
				httpError(w, http.StatusBadRequest, "invalid_request_error",
					"dyslexia_severity must be one of mild, moderate, severe")
				return
			}
		}

		updated, err := deps.Profiles.UpdateReader(func(p *profile.ReaderProfile) {
			if patch.DyslexiaSeverity != nil {
				p.DyslexiaSeverity = *patch.DyslexiaSeverity
			}
			if patch.PreferredAdaptations != nil {
				p.PreferredAdaptations = patch.PreferredAdaptations
			}
			if patch.AssistiveMode != nil {
				p.AssistiveMode = *patch.AssistiveMode
			}
		})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to update profile: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated)
	}
}
