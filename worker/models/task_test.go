package models

import "testing"

func TestNewTaskKey_NormalizesLanguage(t *testing.T) {
	tests := []struct {
		name     string
		language string
		want     string
	}{
		{name: "empty becomes auto", language: "", want: "auto"},
		{name: "uppercase lowered", language: "DE", want: "de"},
		{name: "whitespace trimmed", language: "  Ro ", want: "ro"},
		{name: "auto kept", language: "auto", want: "auto"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewTaskKey(" msg-1 ", KindSTT, tt.language)
			if key.Language != tt.want {
				t.Errorf("Language = %q, want %q", key.Language, tt.want)
			}
			if key.MessageID != "msg-1" {
				t.Errorf("MessageID = %q, want msg-1", key.MessageID)
			}
		})
	}
}

func TestTaskKey_SameContentCollides(t *testing.T) {
	a := NewTaskKey("m1", KindTranslate, "EN")
	b := NewTaskKey("m1", KindTranslate, "en")
	if a != b {
		t.Errorf("keys differ: %v vs %v", a, b)
	}
	if a.String() != "translate:en:m1" {
		t.Errorf("String() = %q", a.String())
	}
}

func TestTaskRecord_ResultText(t *testing.T) {
	var nilRecord *TaskRecord
	if nilRecord.ResultText() != "" {
		t.Error("nil record should yield empty text")
	}

	result := "hello"
	rec := &TaskRecord{Status: StatusDone, Result: &result}
	if rec.ResultText() != "hello" {
		t.Errorf("ResultText() = %q", rec.ResultText())
	}
}

func TestTaskKind_Valid(t *testing.T) {
	if !KindSTT.Valid() || !KindTranslate.Valid() {
		t.Error("known kinds should be valid")
	}
	if TaskKind("ocr").Valid() {
		t.Error("unknown kind should be invalid")
	}
}
