package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalambet/plainsight/internal/ingest"
	"github.com/kalambet/plainsight/internal/storage"
)

const maxDocumentBodySize = 10 << 20 // 10MB

// DocumentRequest is the POST /documents body. Content carries the
// text directly, or base64-encoded file bytes when type is "file".
type DocumentRequest struct {
	Source  string   `json:"source"`
	Type    string   `json:"type"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	URL     string   `json:"url"`
	Tags    []string `json:"tags"`
}

// DocumentSummary is the list-view rendition of a stored document.
type DocumentSummary struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Source     string          `json:"source"`
	Type       string          `json:"type"`
	Status     string          `json:"status"`
	Tags       json.RawMessage `json:"tags"`
	CreatedAt  string          `json:"created_at"`
	AnalyzedAt string          `json:"analyzed_at,omitempty"`
}

// DocumentDetail adds the extracted content and, once the worker has
// run, the stored analysis.
type DocumentDetail struct {
	DocumentSummary
	Content   string          `json:"content"`
	Analysis  json.RawMessage `json:"analysis,omitempty"`
	LastError string          `json:"last_error,omitempty"`
}

func documentSummary(d storage.Document) DocumentSummary {
	tags := d.Tags
	if tags == "" {
		tags = "[]"
	}
	s := DocumentSummary{
		ID:        d.ID,
		Title:     d.Title,
		Source:    d.Source,
		Type:      d.ContentType,
		Status:    d.Status,
		Tags:      json.RawMessage(tags),
		CreatedAt: d.CreatedAt.Format(time.RFC3339),
	}
	if !d.AnalyzedAt.IsZero() {
		s.AnalyzedAt = d.AnalyzedAt.Format(time.RFC3339)
	}
	return s
}

func handleAddDocument(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBodySize)
		defer r.Body.Close()

		var req DocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if req.Source == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "source is required")
			return
		}
		if req.Content == "" && req.URL == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "at least one of content or url is required")
			return
		}
		if req.Type == "" {
			req.Type = "text"
		}

		var content string
		switch {
		case req.Type == "url" && req.URL != "":
			if _, err := url.ParseRequestURI(req.URL); err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid url: %v", err)
				return
			}
			fetched, err := ingest.FetchURL(r.Context(), deps.HTTPClient, req.URL)
			if err != nil {
				httpError(w, http.StatusBadGateway, "api_error", "failed to fetch url: %v", err)
				return
			}
			content = fetched
			if req.Title == "" {
				req.Title = req.URL
			}

		case req.Type == "file" && req.Content != "":
			decoded, err := base64.StdEncoding.DecodeString(req.Content)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid base64 content")
				return
			}
			extracted, err := ingest.ExtractText(req.Title, decoded)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "could not extract text: %v", err)
				return
			}
			content = extracted

		default:
			content = req.Content
		}

		docID := uuid.New().String()

		tagsJSON := "[]"
		if req.Tags != nil {
			b, err := json.Marshal(req.Tags)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to marshal tags: %v", err)
				return
			}
			tagsJSON = string(b)
		}

		doc := storage.Document{
			ID:          docID,
			Title:       req.Title,
			Source:      req.Source,
			ContentType: req.Type,
			Content:     content,
			Tags:        tagsJSON,
			CreatedAt:   time.Now().UTC(),
		}
		if err := deps.Store.SaveDocument(doc); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save document: %v", err)
			return
		}

		payload, err := json.Marshal(map[string]string{"document_id": docID})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to create job payload: %v", err)
			return
		}
		job := storage.Job{
			ID:          uuid.New().String(),
			Type:        ingest.JobType,
			PayloadJSON: string(payload),
		}
		if err := deps.Store.EnqueueJob(job); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to enqueue analysis: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"id":     docID,
			"status": "queued",
		})
	}
}

func handleListDocuments(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		docs, err := deps.Store.ListDocuments(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list documents: %v", err)
			return
		}

		summaries := make([]DocumentSummary, len(docs))
		for i, d := range docs {
			summaries[i] = documentSummary(d)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summaries)
	}
}

func handleGetDocument(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		doc, err := deps.Store.GetDocument(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get document: %v", err)
			return
		}

		detail := DocumentDetail{
			DocumentSummary: documentSummary(doc),
			Content:         doc.Content,
			LastError:       doc.LastError,
		}
		if doc.Analysis != "" {
			detail.Analysis = json.RawMessage(doc.Analysis)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(detail)
	}
}

func handleDeleteDocument(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := deps.Store.DeleteDocument(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete document: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
}
