package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"chatWorker/worker/apperrors"
	"chatWorker/worker/models"
)

func TestFetcher_DownloadsRemoteAttachment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OggS voice"))
	}))
	defer srv.Close()

	root := t.TempDir()
	f := NewFetcher(root, "", 5*time.Second, zaptest.NewLogger(t))

	path, err := f.Fetch(context.Background(), models.Attachment{Ref: srv.URL + "/media/abc", MimeType: "audio/ogg"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if filepath.Dir(path) != root {
		t.Errorf("path %q not inside scratch root", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "OggS voice" {
		t.Errorf("content = %q, %v", data, err)
	}
}

func TestFetcher_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("OggS"))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), "", 5*time.Second, zaptest.NewLogger(t))
	f.retry.BaseDelay = time.Millisecond

	if _, err := f.Fetch(context.Background(), models.Attachment{Ref: srv.URL + "/v.ogg"}); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestFetcher_NotFoundRemovesPartialFile(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	root := t.TempDir()
	f := NewFetcher(root, "", 5*time.Second, zaptest.NewLogger(t))

	_, err := f.Fetch(context.Background(), models.Attachment{Ref: srv.URL + "/gone.ogg"})
	if !apperrors.Is(err, apperrors.KindMedia) {
		t.Fatalf("err = %v, want media error", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (404 is not retried)", calls.Load())
	}
	assertEmptyDir(t, root)
}

func TestFetcher_EnforcesSizeLimit(t *testing.T) {
	mediaRoot := t.TempDir()
	src := filepath.Join(mediaRoot, "big.ogg")
	if err := os.WriteFile(src, []byte(strings.Repeat("x", 64)), 0o600); err != nil {
		t.Fatal(err)
	}

	root := t.TempDir()
	f := NewFetcher(root, mediaRoot, time.Second, zaptest.NewLogger(t))
	f.maxBytes = 16

	if _, err := f.Fetch(context.Background(), models.Attachment{Ref: src}); !apperrors.Is(err, apperrors.KindMedia) {
		t.Fatalf("err = %v, want media error", err)
	}
	assertEmptyDir(t, root)
}

func TestFetcher_CopiesLocalPath(t *testing.T) {
	mediaRoot := t.TempDir()
	src := filepath.Join(mediaRoot, "note.ogg")
	if err := os.WriteFile(src, []byte("OggS"), 0o600); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(t.TempDir(), mediaRoot, time.Second, zaptest.NewLogger(t))
	path, err := f.Fetch(context.Background(), models.Attachment{Ref: src})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if path == src {
		t.Fatal("local attachment must be copied, not used in place")
	}
	if filepath.Ext(path) != ".ogg" {
		t.Errorf("ext = %q, want .ogg", filepath.Ext(path))
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source should survive: %v", err)
	}
}

func TestFetcher_TransferFailuresAreProviderErrors(t *testing.T) {
	var calls atomic.Int32
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	refused := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	refusedURL := refused.URL
	refused.Close()

	tests := []struct {
		name string
		ref  string
	}{
		{"server errors exhaust retries", failing.URL + "/v.ogg"},
		{"connection refused", refusedURL + "/v.ogg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			f := NewFetcher(root, "", 5*time.Second, zaptest.NewLogger(t))
			f.retry.BaseDelay = time.Millisecond

			_, err := f.Fetch(context.Background(), models.Attachment{Ref: tt.ref})
			if !apperrors.Is(err, apperrors.KindProvider) {
				t.Fatalf("err = %v, want provider error", err)
			}
			assertEmptyDir(t, root)
		})
	}

	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3 (one try plus two retries)", calls.Load())
	}
}

func TestFetcher_CancelledDownloadIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OggS"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcher(t.TempDir(), "", 5*time.Second, zaptest.NewLogger(t))
	_, err := f.Fetch(ctx, models.Attachment{Ref: srv.URL + "/v.ogg"})
	if !apperrors.Is(err, apperrors.KindProvider) {
		t.Fatalf("err = %v, want provider error", err)
	}
}

func TestFetcher_LocalRefsStayInsideMediaRoot(t *testing.T) {
	mediaRoot := t.TempDir()
	outside := filepath.Join(t.TempDir(), "secret.ogg")
	if err := os.WriteFile(outside, []byte("OggS"), 0o600); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(mediaRoot, "link.ogg")
	if err := os.Symlink(outside, link); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		localRoot string
		ref       string
	}{
		{"local refs disabled", "", outside},
		{"absolute path outside root", mediaRoot, outside},
		{"relative traversal", mediaRoot, "../" + filepath.Base(filepath.Dir(outside)) + "/secret.ogg"},
		{"symlink escaping root", mediaRoot, link},
		{"missing file", mediaRoot, filepath.Join(mediaRoot, "absent.ogg")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			f := NewFetcher(root, tt.localRoot, time.Second, zaptest.NewLogger(t))

			_, err := f.Fetch(context.Background(), models.Attachment{Ref: tt.ref})
			if !apperrors.Is(err, apperrors.KindMedia) {
				t.Fatalf("err = %v, want media error", err)
			}
			assertEmptyDir(t, root)
		})
	}
}

func TestFetcher_RelativeLocalRef(t *testing.T) {
	mediaRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(mediaRoot, "chat-1"), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(mediaRoot, "chat-1", "v.ogg"), []byte("OggS"), 0o600); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(t.TempDir(), mediaRoot, time.Second, zaptest.NewLogger(t))
	path, err := f.Fetch(context.Background(), models.Attachment{Ref: "chat-1/v.ogg"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if data, err := os.ReadFile(path); err != nil || string(data) != "OggS" {
		t.Errorf("content = %q, %v", data, err)
	}
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch root not empty: %d entries", len(entries))
	}
}
