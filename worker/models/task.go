package models

import (
	"fmt"
	"strings"
	"time"
)

type TaskStatus string

const (
	StatusProcessing TaskStatus = "processing"
	StatusDone       TaskStatus = "done"
	StatusFailed     TaskStatus = "failed"
)

type TaskKind string

const (
	KindSTT       TaskKind = "stt"
	KindTranslate TaskKind = "translate"
)

// LanguageAuto is the language tag used when no target language was requested.
const LanguageAuto = "auto"

func (k TaskKind) Valid() bool {
	return k == KindSTT || k == KindTranslate
}

// TaskKey identifies one unit of expensive work. Replies and direct commands
// on the same content share a MessageID and therefore a key.
type TaskKey struct {
	MessageID string
	Kind      TaskKind
	Language  string
}

// NewTaskKey builds a key with a normalized language tag.
func NewTaskKey(messageID string, kind TaskKind, language string) TaskKey {
	return TaskKey{
		MessageID: strings.TrimSpace(messageID),
		Kind:      kind,
		Language:  NormalizeLanguage(language),
	}
}

// NormalizeLanguage lowercases a language code; empty input becomes "auto".
func NormalizeLanguage(language string) string {
	lang := strings.ToLower(strings.TrimSpace(language))
	if lang == "" {
		return LanguageAuto
	}
	return lang
}

func (k TaskKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Kind, k.Language, k.MessageID)
}

type TaskRecord struct {
	Key       TaskKey
	Status    TaskStatus
	Result    *string
	UpdatedAt time.Time
}

// ResultText returns the stored result or an empty string.
func (r *TaskRecord) ResultText() string {
	if r == nil || r.Result == nil {
		return ""
	}
	return *r.Result
}

// Attempt is one claimed run of a task. Token ties later transitions to the
// claim that produced it, so a superseded run cannot finish or fail the row.
type Attempt struct {
	Key   TaskKey
	Token string
}
