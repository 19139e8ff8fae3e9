package asr_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dechogo/hearing-gateway/internal/asr"
)

func TestClient_Transcribe_DecodesTokensAndTimestamps(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" {
			t.Errorf("request path = %q, want %q", r.URL.Path, "/inference")
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("request missing multipart file field: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text":"hello world","tokens":["hello","world"],"timestamps":[0.5,1.0]}`)
	}))
	defer srv.Close()

	client := asr.NewClient(srv.URL, 2)
	res, err := client.Transcribe(t.Context(), []float32{0, 0.1, -0.1, 0.2}, 16000)
	if err != nil {
		t.Fatalf("Transcribe: unexpected error: %v", err)
	}
	if res.Text != "hello world" {
		t.Errorf("Text = %q, want %q", res.Text, "hello world")
	}
	if len(res.Tokens) != 2 || res.Tokens[0].EndTime != 0.5 || res.Tokens[1].EndTime != 1.0 {
		t.Errorf("Tokens = %#v, want end times [0.5 1.0]", res.Tokens)
	}
}

func TestClient_Transcribe_MismatchedTokensAndTimestampsIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text":"x","tokens":["a","b"],"timestamps":[0.5]}`)
	}))
	defer srv.Close()

	client := asr.NewClient(srv.URL, 2)
	_, err := client.Transcribe(t.Context(), []float32{0, 0.1}, 16000)
	if err == nil {
		t.Fatalf("Transcribe: got nil error for mismatched tokens/timestamps, want error")
	}
}

func TestClient_Transcribe_NonOKStatusIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "recognizer overloaded")
	}))
	defer srv.Close()

	client := asr.NewClient(srv.URL, 2)
	_, err := client.Transcribe(t.Context(), []float32{0, 0.1}, 16000)
	if err == nil {
		t.Fatalf("Transcribe: got nil error for a 503 response, want error")
	}
}
