package ragserve

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["prompt"] != "What does Aakash do?" {
			t.Errorf("prompt = %q", req["prompt"])
		}
		if req["session_id"] != "s1" {
			t.Errorf("session_id = %q", req["session_id"])
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ChatResult{
			Answer:    "He builds RAG systems.",
			SessionID: "s1",
			Sources:   []string{"resume.pdf"},
		})
	}))
	defer srv.Close()

	client := New(srv.URL)
	res, err := client.Chat(context.Background(), "What does Aakash do?", "s1")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if res.Answer != "He builds RAG systems." {
		t.Errorf("answer = %q", res.Answer)
	}
	if len(res.Sources) != 1 || res.Sources[0] != "resume.pdf" {
		t.Errorf("sources = %v", res.Sources)
	}
}

func TestChat_OmitsEmptySessionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if _, ok := req["session_id"]; ok {
			t.Error("session_id should be absent when empty")
		}
		_ = json.NewEncoder(w).Encode(ChatResult{Answer: "ok", SessionID: "default_session"})
	}))
	defer srv.Close()

	res, err := New(srv.URL).Chat(context.Background(), "hi", "")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if res.SessionID != "default_session" {
		t.Errorf("session_id = %q", res.SessionID)
	}
}

func TestChat_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "RAG system not initialized. Please check your configuration.",
		})
	}))
	defer srv.Close()

	_, err := New(srv.URL).Chat(context.Background(), "hi", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Chat() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", apiErr.StatusCode)
	}
	if apiErr.Message == "unknown error" {
		t.Errorf("message not parsed from body")
	}
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(Status{
			APIStatus:         "running",
			RAGInitialized:    true,
			ModelLoaded:       true,
			VectorStoreLoaded: true,
		})
	}))
	defer srv.Close()

	status, err := New(srv.URL).Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !status.RAGInitialized {
		t.Error("rag_initialized = false, want true")
	}
}

func TestHealthy(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		want       bool
	}{
		{"operational", http.StatusOK, true},
		{"not ready", http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.statusCode)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "x", "error": "x"})
			}))
			defer srv.Close()

			got, err := New(srv.URL).Healthy(context.Background())
			if err != nil {
				t.Fatalf("Healthy() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Healthy() = %v, want %v", got, tt.want)
			}
		})
	}
}
