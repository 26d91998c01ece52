// Package media wraps the ffmpeg toolchain and the attachment plumbing the
// transcription pipeline needs.
package media

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"chatWorker/worker/apperrors"
)

const (
	extractedAudioName = "audio.wav"
	stderrTailBytes    = 512
)

// decodeFailures are ffmpeg/ffprobe diagnostics meaning the input itself is
// unreadable, as opposed to the tool or the host failing.
var decodeFailures = []string{
	"invalid data found when processing input",
	"could not find codec parameters",
	"moov atom not found",
	"does not contain any stream",
	"error while decoding",
	"header missing",
}

// FFmpeg extracts, measures and clips audio with the ffmpeg/ffprobe binaries.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	runner      commandRunner
	logger      *zap.Logger
}

func NewFFmpeg(ffmpegPath, ffprobePath string, logger *zap.Logger) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		runner:      execRunner{},
		logger:      logger,
	}
}

// ExtractAudioTrack decodes the whole clip once into mono 16 kHz PCM inside outDir.
func (f *FFmpeg) ExtractAudioTrack(ctx context.Context, inputPath, outDir string) (string, error) {
	outPath := filepath.Join(outDir, extractedAudioName)
	if err := f.run(ctx, "media.extract", f.ffmpegPath, buildExtractArgs(inputPath, outPath)); err != nil {
		return "", err
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", apperrors.Segmentation("media.extract", "extracted audio missing", err)
	}
	return outPath, nil
}

// ProbeDuration returns the duration of path in seconds. Zero or unreadable
// durations are media errors.
func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	log, err := f.runner.Run(ctx, f.ffprobePath, buildProbeArgs(path)...)
	if err != nil {
		return 0, commandError("media.probe", "ffprobe failed", log, err)
	}

	raw := strings.TrimSpace(log.Stdout)
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperrors.Media("media.probe", "unreadable duration", err).
			WithMetadata("output", raw)
	}
	if seconds <= 0 {
		return 0, apperrors.Media("media.probe", "zero-length media", nil)
	}
	return seconds, nil
}

// ClipSegment copies [start, start+duration) of audioPath into outPath
// without re-encoding.
func (f *FFmpeg) ClipSegment(ctx context.Context, audioPath, outPath string, start, duration float64) error {
	return f.run(ctx, "media.clip", f.ffmpegPath, buildClipArgs(audioPath, outPath, start, duration))
}

func (f *FFmpeg) run(ctx context.Context, op, name string, args []string) error {
	log, err := f.runner.Run(ctx, name, args...)
	if err != nil {
		return commandError(op, "ffmpeg failed", log, err)
	}
	f.logger.Debug("Media command finished",
		zap.String("op", op),
		zap.String("command", name),
	)
	return nil
}

// commandError classifies a failed command: corrupt input is a media error,
// anything else a segmentation error.
func commandError(op, msg string, log CommandLog, cause error) *apperrors.Error {
	stderr := log.Stderr
	if len(stderr) > stderrTailBytes {
		stderr = stderr[len(stderr)-stderrTailBytes:]
	}

	build := apperrors.Segmentation
	if isDecodeFailure(log.Stderr) {
		build = apperrors.Media
	}
	return build(op, msg, cause).
		WithMetadata("command", log.Command).
		WithMetadata("exit_code", strconv.Itoa(log.ExitCode)).
		WithMetadata("stderr", strings.TrimSpace(stderr))
}

func isDecodeFailure(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, marker := range decodeFailures {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func buildExtractArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outPath,
	}
}

func buildProbeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}

func buildClipArgs(audioPath, outPath string, start, duration float64) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-i", audioPath,
		"-c", "copy",
		outPath,
	}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
