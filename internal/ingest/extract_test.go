package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMLText(t *testing.T) {
	input := `<html><head><title>Medication Guide</title><style>body{margin:0}</style></head>` +
		`<body><h1>Heart Health</h1><p>Check your blood pressure daily.</p>` +
		`<nav><a href="/">Home</a></nav><script>track();</script>` +
		`<p>Call your doctor if dizziness persists.</p></body></html>`

	got, err := HTMLText(input)
	if err != nil {
		t.Fatalf("HTMLText error: %v", err)
	}
	want := "Medication Guide\n\nHeart Health\n\nCheck your blood pressure daily.\n\nCall your doctor if dizziness persists."
	if got != want {
		t.Errorf("HTMLText = %q, want %q", got, want)
	}
}

func TestHTMLTextInlineMarkup(t *testing.T) {
	got, err := HTMLText(`<p>Take <strong>two</strong> tablets with water.</p>`)
	if err != nil {
		t.Fatalf("HTMLText error: %v", err)
	}
	if want := "Take two tablets with water."; got != want {
		t.Errorf("HTMLText = %q, want %q", got, want)
	}
}

func TestHTMLTextLineBreaks(t *testing.T) {
	got, err := HTMLText(`<p>first line<br>second line</p>`)
	if err != nil {
		t.Fatalf("HTMLText error: %v", err)
	}
	if want := "first line\nsecond line"; got != want {
		t.Errorf("HTMLText = %q, want %q", got, want)
	}
}

func TestHTMLTextListItems(t *testing.T) {
	got, err := HTMLText(`<ul><li>one tablet</li><li>two tablets</li></ul>`)
	if err != nil {
		t.Fatalf("HTMLText error: %v", err)
	}
	if want := "one tablet\n\ntwo tablets"; got != want {
		t.Errorf("HTMLText = %q, want %q", got, want)
	}
}

func TestIsPDF(t *testing.T) {
	tests := []struct {
		name string
		data string
		want bool
	}{
		{"doc.pdf", "random bytes", true},
		{"doc.txt", "%PDF-1.4 stream", true},
		{"doc.txt", "plain text", false},
		{"REPORT.PDF", "anything", true},
	}
	for _, tt := range tests {
		if got := isPDF(tt.name, []byte(tt.data)); got != tt.want {
			t.Errorf("isPDF(%q, %q) = %v, want %v", tt.name, tt.data, got, tt.want)
		}
	}
}

func TestLooksLikeHTML(t *testing.T) {
	tests := []struct {
		data string
		want bool
	}{
		{"<!DOCTYPE html><html></html>", true},
		{"  <html lang=\"en\">", true},
		{"<HTML>", true},
		{"Take two tablets.", false},
		{"{\"key\": 1}", false},
	}
	for _, tt := range tests {
		if got := looksLikeHTML([]byte(tt.data)); got != tt.want {
			t.Errorf("looksLikeHTML(%q) = %v, want %v", tt.data, got, tt.want)
		}
	}
}

func TestExtractTextPlain(t *testing.T) {
	got, err := ExtractText("notes.txt", []byte("plain medical text"))
	if err != nil {
		t.Fatalf("ExtractText error: %v", err)
	}
	if got != "plain medical text" {
		t.Errorf("ExtractText = %q", got)
	}
}

func TestExtractTextHTML(t *testing.T) {
	got, err := ExtractText("page.html", []byte("<!DOCTYPE html><html><body><p>Hello there.</p></body></html>"))
	if err != nil {
		t.Fatalf("ExtractText error: %v", err)
	}
	if got != "Hello there." {
		t.Errorf("ExtractText = %q, want %q", got, "Hello there.")
	}
}

func TestExtractTextBadPDF(t *testing.T) {
	if _, err := ExtractText("doc.txt", []byte("%PDF-1.4 not a real pdf")); err == nil {
		t.Error("expected error for malformed pdf data")
	}
	if _, err := ExtractText("scan.pdf", []byte("not pdf at all")); err == nil {
		t.Error("expected error for .pdf name with bad data")
	}
}

func TestFetchURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body><p>Take your tablets.</p></body></html>`))
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("just text"))
	})
	mux.HandleFunc("/sniff", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte(`<html><body><p>Sniffed markup.</p></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()

	got, err := FetchURL(ctx, srv.Client(), srv.URL+"/page")
	if err != nil {
		t.Fatalf("FetchURL(/page) error: %v", err)
	}
	if got != "Take your tablets." {
		t.Errorf("FetchURL(/page) = %q", got)
	}

	got, err = FetchURL(ctx, srv.Client(), srv.URL+"/plain")
	if err != nil {
		t.Fatalf("FetchURL(/plain) error: %v", err)
	}
	if got != "just text" {
		t.Errorf("FetchURL(/plain) = %q", got)
	}

	got, err = FetchURL(ctx, srv.Client(), srv.URL+"/sniff")
	if err != nil {
		t.Fatalf("FetchURL(/sniff) error: %v", err)
	}
	if got != "Sniffed markup." {
		t.Errorf("FetchURL(/sniff) = %q", got)
	}

	if _, err := FetchURL(ctx, srv.Client(), srv.URL+"/missing"); err == nil {
		t.Error("expected error for 404 response")
	} else if !strings.Contains(err.Error(), "status 404") {
		t.Errorf("error = %v, want status 404 mention", err)
	}
}
