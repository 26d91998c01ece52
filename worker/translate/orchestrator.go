// Package translate picks a translation direction and drives the language
// provider through detect then translate.
package translate

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"chatWorker/worker/apperrors"
	"chatWorker/worker/models"
)

// LanguageProvider detects and translates text.
type LanguageProvider interface {
	DetectLanguage(ctx context.Context, text string) (string, error)
	Translate(ctx context.Context, text, from, to string) (string, error)
}

var languageCode = regexp.MustCompile(`[a-z]{2,3}`)

type Orchestrator struct {
	provider LanguageProvider
	home     string
	target   string
	logger   *zap.Logger
}

// NewOrchestrator builds an orchestrator whose auto mode translates home
// language text to target and everything else back to home.
func NewOrchestrator(provider LanguageProvider, home, target string, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		home:     models.NormalizeLanguage(home),
		target:   models.NormalizeLanguage(target),
		logger:   logger,
	}
}

// Translate translates text to language, or picks the direction itself when
// language is "auto".
func (o *Orchestrator) Translate(ctx context.Context, text, language string) (string, error) {
	detected, err := o.detect(ctx, text)
	if err != nil {
		return "", err
	}

	from, to := detected, models.NormalizeLanguage(language)
	if to == models.LanguageAuto {
		from, to = o.autoDirection(detected)
	}

	o.logger.Debug("Translating",
		zap.String("detected", detected),
		zap.String("from", from),
		zap.String("to", to),
	)

	translated, err := o.provider.Translate(ctx, text, from, to)
	if err != nil {
		return "", classify("translate.translate", "translation call failed", err)
	}
	translated = strings.TrimSpace(translated)
	if translated == "" {
		return "", apperrors.Provider("translate.translate", "provider returned no text", nil)
	}
	return translated, nil
}

func (o *Orchestrator) autoDirection(detected string) (string, string) {
	if detected == o.home {
		return o.home, o.target
	}
	return detected, o.home
}

func (o *Orchestrator) detect(ctx context.Context, text string) (string, error) {
	raw, err := o.provider.DetectLanguage(ctx, text)
	if err != nil {
		return "", classify("translate.detect", "detection call failed", err)
	}

	code := languageCode.FindString(strings.ToLower(raw))
	if code == "" {
		return "", apperrors.Provider("translate.detect", "unrecognised language code", nil).
			WithMetadata("raw", raw)
	}
	return code, nil
}

func classify(op, msg string, err error) error {
	if _, ok := apperrors.KindOf(err); ok {
		return err
	}
	return apperrors.Provider(op, msg, err)
}
