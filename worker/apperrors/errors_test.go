package apperrors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_WrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Storage("ledger.lookup", "query task", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find cause")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Error() = %q, want cause text", err.Error())
	}
}

func TestIs_FindsKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("run stt: %w", Provider("stt.segment", "call failed", nil))

	if !Is(err, KindProvider) {
		t.Error("expected provider kind")
	}
	if Is(err, KindMedia) {
		t.Error("did not expect media kind")
	}
	if Is(errors.New("plain"), KindProvider) {
		t.Error("plain error has no kind")
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{Media("op", "corrupt", nil), false},
		{KeyDerivation("op", "no id"), false},
		{Segmentation("op", "ffmpeg", nil), true},
		{Provider("op", "timeout", nil), true},
		{Storage("op", "down", nil), true},
		{errors.New("plain"), false},
	}

	for _, tt := range tests {
		if got := Retryable(tt.err); got != tt.want {
			t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestWithMetadata(t *testing.T) {
	err := Segmentation("media.extract", "ffmpeg failed", nil).
		WithMetadata("command", "ffmpeg").
		WithMetadata("exit_code", "1")

	if err.Metadata["command"] != "ffmpeg" || err.Metadata["exit_code"] != "1" {
		t.Errorf("metadata = %v", err.Metadata)
	}
	if !strings.Contains(err.Error(), "exit_code") {
		t.Errorf("Error() = %q, want metadata", err.Error())
	}
}
