package provider

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"chatWorker/worker/resilience"
)

const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
	BackendArk    = "ark"
)

type Settings struct {
	STTBackend       string
	TranslateBackend string

	OpenAISTTKey     string
	OpenAIKey        string
	OpenAIBaseURL    string
	OpenAIAudioModel string
	OpenAIChatModel  string

	GeminiKey   string
	GeminiModel string

	ArkKey   string
	ArkModel string

	Timeout time.Duration
	Breaker resilience.Config
}

// NewSpeechToText builds the guarded speech-to-text backend named by s.STTBackend.
func NewSpeechToText(ctx context.Context, s Settings, logger *zap.Logger) (SpeechToText, error) {
	var stt SpeechToText
	switch s.STTBackend {
	case BackendOpenAI:
		stt = NewOpenAI(s.OpenAISTTKey, s.OpenAIBaseURL, s.OpenAIAudioModel, s.OpenAIChatModel)
	case BackendGemini:
		g, err := NewGemini(ctx, s.GeminiKey, s.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		stt = g
	default:
		return nil, fmt.Errorf("unsupported speech-to-text backend %q", s.STTBackend)
	}

	logger.Info("Speech-to-text backend ready", zap.String("backend", s.STTBackend))
	return GuardSpeechToText(s.STTBackend, stt, s.Timeout, s.Breaker, logger), nil
}

// NewLanguageProvider builds the guarded detection/translation backend named
// by s.TranslateBackend.
func NewLanguageProvider(ctx context.Context, s Settings, logger *zap.Logger) (LanguageProvider, error) {
	var lp LanguageProvider
	switch s.TranslateBackend {
	case BackendOpenAI:
		lp = NewOpenAI(s.OpenAIKey, s.OpenAIBaseURL, s.OpenAIAudioModel, s.OpenAIChatModel)
	case BackendGemini:
		g, err := NewGemini(ctx, s.GeminiKey, s.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		lp = g
	case BackendArk:
		lp = NewArk(s.ArkKey, s.ArkModel)
	default:
		return nil, fmt.Errorf("unsupported translation backend %q", s.TranslateBackend)
	}

	logger.Info("Translation backend ready", zap.String("backend", s.TranslateBackend))
	return GuardLanguageProvider(s.TranslateBackend, lp, s.Timeout, s.Breaker, logger), nil
}
