package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientEnhanceSuccess(t *testing.T) {
	var gotAuth string
	var gotPayload enhanceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/enhance" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		_ = json.NewEncoder(w).Encode(enhanceResponse{
			Transcript: "remote transcript",
			AIScript:   "remote script",
			Captions:   json.RawMessage(`[]`),
		})
	}))
	defer srv.Close()

	client, err := NewClient(Options{Endpoint: srv.URL, APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	result, err := client.Enhance(context.Background(), Request{VideoID: "vid-1", Source: "uploads/a.mp4", Duration: 30})
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if result.Transcript != "remote transcript" {
		t.Fatalf("transcript = %q", result.Transcript)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotPayload.VideoID != "vid-1" || gotPayload.Source != "uploads/a.mp4" {
		t.Fatalf("payload = %+v", gotPayload)
	}
}

func TestClientEnhanceServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(enhanceResponse{Error: "unsupported codec"})
	}))
	defer srv.Close()

	client, err := NewClient(Options{Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.Enhance(context.Background(), Request{VideoID: "vid-1", Source: "uploads/a.mp4"})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "ai: unsupported codec" {
		t.Fatalf("err = %q", got)
	}
}

func TestClientEnhanceRejectsEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(enhanceResponse{})
	}))
	defer srv.Close()

	client, err := NewClient(Options{Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Enhance(context.Background(), Request{VideoID: "vid-1"}); err == nil {
		t.Fatal("expected error for empty transcript")
	}
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}
