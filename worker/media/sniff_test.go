package media

import (
	"os"
	"path/filepath"
	"testing"

	"chatWorker/worker/apperrors"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   Format
		ok     bool
	}{
		{"ogg voice note", []byte("OggS\x00\x02"), FormatOgg, true},
		{"wav", []byte("RIFF\x24\x00\x00\x00WAVEfmt "), FormatWAV, true},
		{"mp4", []byte("\x00\x00\x00\x18ftypmp42"), FormatMP4, true},
		{"mp3 with tag", []byte("ID3\x04\x00"), FormatMP3, true},
		{"mp3 frame", []byte{0xFF, 0xFB, 0x90, 0x44}, FormatMP3, true},
		{"adts aac", []byte{0xFF, 0xF1, 0x50, 0x80}, FormatAAC, true},
		{"webm", []byte{0x1A, 0x45, 0xDF, 0xA3, 0x9F}, FormatMKV, true},
		{"amr", []byte("#!AMR\n"), FormatAMR, true},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "", false},
		{"text", []byte("hello world"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectFormat(tt.header)
			if ok != tt.ok || got != tt.want {
				t.Errorf("DetectFormat() = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestSniff_RejectsNonMedia(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.ogg")
	text := filepath.Join(dir, "note.ogg")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(text, []byte("not audio at all"), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{empty, text, filepath.Join(dir, "missing.ogg")} {
		if _, err := Sniff(path); !apperrors.Is(err, apperrors.KindMedia) {
			t.Errorf("Sniff(%s) = %v, want media error", filepath.Base(path), err)
		}
	}
}

func TestSniff_AcceptsVoiceNote(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voice.ogg")
	if err := os.WriteFile(path, []byte("OggS\x00\x02\x00\x00"), 0o600); err != nil {
		t.Fatal(err)
	}

	format, err := Sniff(path)
	if err != nil {
		t.Fatalf("Sniff failed: %v", err)
	}
	if format != FormatOgg {
		t.Errorf("format = %q, want ogg", format)
	}
}
