package provider

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"chatWorker/worker/apperrors"
	"chatWorker/worker/resilience"
)

// SpeechToText transcribes one bounded audio file.
type SpeechToText interface {
	TranscribeSegment(ctx context.Context, filePath, language string) (string, error)
}

// LanguageProvider detects and translates text.
type LanguageProvider interface {
	DetectLanguage(ctx context.Context, text string) (string, error)
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// guard bounds every call with a timeout and a circuit breaker and reports
// failures as provider errors.
type guard struct {
	name    string
	timeout time.Duration
	breaker *resilience.Breaker
	logger  *zap.Logger
}

func newGuard(name string, timeout time.Duration, cfg resilience.Config, logger *zap.Logger) guard {
	return guard{
		name:    name,
		timeout: timeout,
		breaker: resilience.NewBreaker(name, cfg, logger),
		logger:  logger,
	}
}

func (g guard) call(ctx context.Context, op string, fn func(ctx context.Context) (string, error)) (string, error) {
	// Cancellation by the caller says nothing about the provider's health.
	callerGaveUp := func(error) bool { return ctx.Err() != nil }

	result, err := resilience.ExecuteWithResult(g.breaker, callerGaveUp, func() (string, error) {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		return fn(callCtx)
	})
	if err == nil {
		return result, nil
	}

	msg := "provider call failed"
	switch {
	case errors.Is(err, resilience.ErrOpen):
		msg = "provider unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		msg = "provider call timed out"
	}
	g.logger.Warn("Provider call failed",
		zap.String("provider", g.name),
		zap.String("op", op),
		zap.Error(err),
	)
	return "", apperrors.Provider(op, msg, err).WithMetadata("provider", g.name)
}

type guardedSTT struct {
	inner SpeechToText
	guard guard
}

// GuardSpeechToText wraps stt with a per-call timeout and a breaker.
func GuardSpeechToText(name string, stt SpeechToText, timeout time.Duration, cfg resilience.Config, logger *zap.Logger) SpeechToText {
	return &guardedSTT{inner: stt, guard: newGuard(name+"-stt", timeout, cfg, logger)}
}

func (g *guardedSTT) TranscribeSegment(ctx context.Context, filePath, language string) (string, error) {
	return g.guard.call(ctx, "provider.transcribe", func(ctx context.Context) (string, error) {
		return g.inner.TranscribeSegment(ctx, filePath, language)
	})
}

type guardedLanguage struct {
	inner LanguageProvider
	guard guard
}

// GuardLanguageProvider wraps lp with a per-call timeout and a breaker.
func GuardLanguageProvider(name string, lp LanguageProvider, timeout time.Duration, cfg resilience.Config, logger *zap.Logger) LanguageProvider {
	return &guardedLanguage{inner: lp, guard: newGuard(name+"-language", timeout, cfg, logger)}
}

func (g *guardedLanguage) DetectLanguage(ctx context.Context, text string) (string, error) {
	return g.guard.call(ctx, "provider.detect", func(ctx context.Context) (string, error) {
		return g.inner.DetectLanguage(ctx, text)
	})
}

func (g *guardedLanguage) Translate(ctx context.Context, text, from, to string) (string, error) {
	return g.guard.call(ctx, "provider.translate", func(ctx context.Context) (string, error) {
		return g.inner.Translate(ctx, text, from, to)
	})
}
