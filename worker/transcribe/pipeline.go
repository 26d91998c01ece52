// Package transcribe turns an arbitrarily long audio or video clip into one
// transcript by slicing it into provider-sized segments.
package transcribe

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chatWorker/worker/apperrors"
	"chatWorker/worker/media"
	"chatWorker/worker/models"
)

const (
	DefaultChunkSeconds = 240
	segmentSeparator    = "\n\n"
)

// MediaTools is the audio extraction facility the pipeline drives.
type MediaTools interface {
	ExtractAudioTrack(ctx context.Context, inputPath, outDir string) (string, error)
	ProbeDuration(ctx context.Context, path string) (float64, error)
	ClipSegment(ctx context.Context, audioPath, outPath string, start, duration float64) error
}

// SpeechToText transcribes one bounded audio file.
type SpeechToText interface {
	TranscribeSegment(ctx context.Context, filePath, language string) (string, error)
}

type Options struct {
	ChunkSeconds float64
	// Concurrency bounds parallel provider calls; results are still joined
	// by segment index.
	Concurrency int
	ScratchRoot string
}

type Pipeline struct {
	tools       MediaTools
	stt         SpeechToText
	chunk       float64
	concurrency int
	scratchRoot string
	sniff       func(path string) (media.Format, error)
	logger      *zap.Logger
}

func NewPipeline(tools MediaTools, stt SpeechToText, opts Options, logger *zap.Logger) *Pipeline {
	if opts.ChunkSeconds <= 0 {
		opts.ChunkSeconds = DefaultChunkSeconds
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.ScratchRoot == "" {
		opts.ScratchRoot = os.TempDir()
	}
	return &Pipeline{
		tools:       tools,
		stt:         stt,
		chunk:       opts.ChunkSeconds,
		concurrency: opts.Concurrency,
		scratchRoot: opts.ScratchRoot,
		sniff:       media.Sniff,
		logger:      logger,
	}
}

// Transcribe consumes mediaPath: the input file and every scratch file are
// removed before it returns, whatever the outcome.
func (p *Pipeline) Transcribe(ctx context.Context, mediaPath, language string) (string, error) {
	defer p.remove(mediaPath)

	if _, err := p.sniff(mediaPath); err != nil {
		return "", err
	}

	scratch, err := os.MkdirTemp(p.scratchRoot, "stt-*")
	if err != nil {
		return "", apperrors.Segmentation("transcribe.scratch", "create scratch dir", err)
	}
	defer p.removeAll(scratch)

	audioPath, err := p.tools.ExtractAudioTrack(ctx, mediaPath, scratch)
	if err != nil {
		return "", err
	}

	duration, err := p.tools.ProbeDuration(ctx, audioPath)
	if err != nil {
		return "", err
	}

	segments := PlanSegments(duration, p.chunk)
	if len(segments) == 0 {
		return "", apperrors.Media("transcribe.plan", "zero-length media", nil)
	}
	for i := range segments {
		segments[i].Path = segmentPath(scratch, segments[i].Index)
	}

	p.logger.Info("Transcription started",
		zap.Float64("duration_seconds", duration),
		zap.Int("segments", len(segments)),
		zap.Int("concurrency", p.concurrency),
	)
	started := time.Now()

	texts, err := p.transcribeSegments(ctx, audioPath, segments, providerLanguage(language))
	if err != nil {
		return "", err
	}

	transcript := joinTranscripts(texts)
	if transcript == "" {
		return "", apperrors.Provider("transcribe.join", "provider returned no text", nil)
	}

	p.logger.Info("Transcription finished",
		zap.Int("segments", len(segments)),
		zap.Int("chars", len(transcript)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return transcript, nil
}

// transcribeSegments returns one text per segment, indexed like segments.
// The first failure cancels the rest.
func (p *Pipeline) transcribeSegments(ctx context.Context, audioPath string, segments []Segment, language string) ([]string, error) {
	texts := make([]string, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, seg := range segments {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := p.tools.ClipSegment(gctx, audioPath, seg.Path, seg.Start, seg.Duration); err != nil {
				return err
			}
			defer p.remove(seg.Path)

			text, err := p.stt.TranscribeSegment(gctx, seg.Path, language)
			if err != nil {
				p.logger.Warn("Segment transcription failed",
					zap.Int("segment", seg.Index),
					zap.Error(err),
				)
				return providerError(err)
			}
			texts[seg.Index] = text
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if _, ok := apperrors.KindOf(err); !ok {
			return nil, apperrors.Provider("transcribe.segments", "transcription interrupted", err)
		}
		return nil, err
	}
	return texts, nil
}

func (p *Pipeline) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Warn("Failed to remove file", zap.String("path", path), zap.Error(err))
	}
}

func (p *Pipeline) removeAll(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		p.logger.Warn("Failed to remove scratch dir", zap.String("path", dir), zap.Error(err))
	}
}

func providerError(err error) error {
	if _, ok := apperrors.KindOf(err); ok {
		return err
	}
	return apperrors.Provider("transcribe.segment", "speech-to-text call failed", err)
}

// joinTranscripts joins non-empty texts in index order.
func joinTranscripts(texts []string) string {
	parts := make([]string, 0, len(texts))
	for _, text := range texts {
		if t := strings.TrimSpace(text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, segmentSeparator)
}

func providerLanguage(language string) string {
	lang := models.NormalizeLanguage(language)
	if lang == models.LanguageAuto {
		return ""
	}
	return lang
}
