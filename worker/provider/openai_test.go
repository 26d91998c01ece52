package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newOpenAIServer(t *testing.T, chatReply string, seen *[]chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/audio/transcriptions":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			if r.FormValue("model") != "whisper-1" || r.FormValue("language") != "ro" {
				t.Errorf("form = model %q language %q", r.FormValue("model"), r.FormValue("language"))
			}
			json.NewEncoder(w).Encode(map[string]string{"text": "salut lume"})
		case "/v1/chat/completions":
			var req chatRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode chat request: %v", err)
			}
			*seen = append(*seen, req)
			json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{"index": 0, "message": map[string]string{"role": "assistant", "content": chatReply}},
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAI_TranscribeSegment(t *testing.T) {
	srv := newOpenAIServer(t, "", nil)
	path := filepath.Join(t.TempDir(), "segment-000.wav")
	if err := os.WriteFile(path, []byte("RIFF....WAVE"), 0o600); err != nil {
		t.Fatal(err)
	}

	o := NewOpenAI("sk-test", srv.URL+"/v1", "", "gpt-4.1-nano")
	got, err := o.TranscribeSegment(context.Background(), path, "ro")
	if err != nil {
		t.Fatalf("TranscribeSegment failed: %v", err)
	}
	if got != "salut lume" {
		t.Errorf("text = %q", got)
	}
}

func TestOpenAI_DetectAndTranslatePrompts(t *testing.T) {
	var seen []chatRequest
	srv := newOpenAIServer(t, " fr \n", &seen)

	o := NewOpenAI("sk-test", srv.URL+"/v1", "whisper-1", "gpt-4.1-nano")
	detected, err := o.DetectLanguage(context.Background(), "bonjour")
	if err != nil {
		t.Fatalf("DetectLanguage failed: %v", err)
	}
	if detected != "fr" {
		t.Errorf("detected = %q, want fr", detected)
	}
	if _, err := o.Translate(context.Background(), "bonjour", "fr", "en"); err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if len(seen) != 2 {
		t.Fatalf("chat requests = %d, want 2", len(seen))
	}
	detect, translate := seen[0], seen[1]
	if detect.Model != "gpt-4.1-nano" || detect.Temperature > 0.001 {
		t.Errorf("detect request = %+v", detect)
	}
	if len(detect.Messages) != 1 || !strings.Contains(detect.Messages[0].Content, "ISO 639-1") {
		t.Errorf("detect messages = %+v", detect.Messages)
	}
	if len(translate.Messages) != 2 || translate.Messages[0].Content != translationSystemPrompt {
		t.Fatalf("translate messages = %+v", translate.Messages)
	}
	if want := "Translate this from fr to en:\n\n\"bonjour\""; translate.Messages[1].Content != want {
		t.Errorf("translate prompt = %q, want %q", translate.Messages[1].Content, want)
	}
	if translate.Temperature < 0.29 || translate.Temperature > 0.31 {
		t.Errorf("translate temperature = %v", translate.Temperature)
	}
}

func TestOpenAI_ServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	}))
	defer srv.Close()

	o := NewOpenAI("sk-test", srv.URL+"/v1", "whisper-1", "gpt-4.1-nano")
	if _, err := o.DetectLanguage(context.Background(), "hello"); err == nil {
		t.Fatal("expected error from 429 response")
	}
}
