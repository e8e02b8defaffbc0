package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kalambet/plainsight/internal/lexicon"
	"github.com/kalambet/plainsight/internal/lowvision"
	"github.com/kalambet/plainsight/internal/profile"
	"github.com/kalambet/plainsight/internal/reader"
	"github.com/kalambet/plainsight/internal/storage"
)

const testToken = "test-token-12345"

func setupApp(t *testing.T, token string) (http.Handler, AppDeps) {
	t.Helper()
	return setupAppWithHTTPClient(t, token, http.DefaultClient)
}

func setupAppWithHTTPClient(t *testing.T, token string, httpClient *http.Client) (http.Handler, AppDeps) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	profiles := profile.NewManager(store)
	if err := profiles.Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	deps := AppDeps{
		Store:      store,
		Profiles:   profiles,
		Reader:     reader.NewAgent(lexicon.Default(), profiles),
		Healthcare: lowvision.NewAgent(profiles, profile.SystemClock(), false),
		Token:      token,
		HTTPClient: httpClient,
	}
	return NewAppHandler(deps), deps
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestRoot(t *testing.T) {
	h, _ := setupApp(t, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	body := decodeJSON(t, rr)
	if body["status"] != "active" {
		t.Errorf("status = %v, want %q", body["status"], "active")
	}
	if body["version"] != "1.0.0" {
		t.Errorf("version = %v, want %q", body["version"], "1.0.0")
	}
	if body["agentic_ai_enabled"] != false {
		t.Errorf("agentic_ai_enabled = %v, want false", body["agentic_ai_enabled"])
	}
	if body["use_case"] != serviceUseCase {
		t.Errorf("use_case = %v, want %q", body["use_case"], serviceUseCase)
	}
}

func TestHealth(t *testing.T) {
	h, _ := setupApp(t, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	body := decodeJSON(t, rr)
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want %q", body["status"], "healthy")
	}

	ai, ok := body["agentic_ai"].(map[string]any)
	if !ok {
		t.Fatalf("agentic_ai = %T, want object", body["agentic_ai"])
	}
	if ai["enabled"] != false {
		t.Errorf("agentic_ai.enabled = %v, want false", ai["enabled"])
	}
	if ai["patients_profiled"] != float64(0) {
		t.Errorf("patients_profiled = %v, want 0", ai["patients_profiled"])
	}
	if ai["texts_analyzed"] != float64(0) {
		t.Errorf("texts_analyzed = %v, want 0", ai["texts_analyzed"])
	}
}

func TestHealth_OpenWithoutToken(t *testing.T) {
	h, _ := setupApp(t, testToken)

	for _, path := range []string{"/", "/health"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("GET %s without token: status = %d, want %d", path, rr.Code, http.StatusOK)
		}
	}
}

func TestAuth_MissingToken(t *testing.T) {
	h, _ := setupApp(t, testToken)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodGet, "/profile", "", "")
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuth_WrongToken(t *testing.T) {
	h, _ := setupApp(t, testToken)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodGet, "/profile", "", "wrong-token")
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuth_ValidToken(t *testing.T) {
	h, _ := setupApp(t, testToken)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodGet, "/profile", "", testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestAuth_DisabledWhenNoTokenConfigured(t *testing.T) {
	h, _ := setupApp(t, "")

	rr := httptest.NewRecorder()
	req := authReq(http.MethodGet, "/profile", "", "")
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestCORS_Preflight(t *testing.T) {
	h, _ := setupApp(t, "")

	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:3000")
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	h, _ := setupApp(t, "")

	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
	}
}

func TestCORS_ConfiguredOrigins(t *testing.T) {
	_, deps := setupApp(t, "")
	deps.CORSOrigins = []string{"https://app.example.com"}
	h := NewAppHandler(deps)

	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "https://app.example.com")
	}

	// A configured allowlist replaces the localhost defaults.
	req = httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want empty for replaced default", got)
	}
}

func TestHTTPErrorShape(t *testing.T) {
	h, _ := setupApp(t, testToken)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodGet, "/profile", "", "bad")
	h.ServeHTTP(rr, req)

	body := decodeJSON(t, rr)
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("error = %T, want object", body["error"])
	}
	if errObj["type"] != "authentication_error" {
		t.Errorf("error.type = %v, want %q", errObj["type"], "authentication_error")
	}
	if errObj["message"] != "invalid or missing bearer token" {
		t.Errorf("error.message = %v, want %q", errObj["message"], "invalid or missing bearer token")
	}
}
