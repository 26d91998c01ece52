package media

import (
	"bytes"
	"errors"
	"io"
	"os"

	"chatWorker/worker/apperrors"
)

type Format string

const (
	FormatOgg  Format = "ogg"
	FormatWAV  Format = "wav"
	FormatAVI  Format = "avi"
	FormatMP3  Format = "mp3"
	FormatAAC  Format = "aac"
	FormatMP4  Format = "mp4"
	FormatMKV  Format = "matroska"
	FormatFLAC Format = "flac"
	FormatAMR  Format = "amr"
	FormatAIFF Format = "aiff"
	FormatASF  Format = "asf"
)

const sniffLen = 512

var prefixSignatures = []struct {
	format Format
	magic  []byte
}{
	{FormatOgg, []byte("OggS")},
	{FormatMP3, []byte("ID3")},
	{FormatMKV, []byte{0x1A, 0x45, 0xDF, 0xA3}},
	{FormatFLAC, []byte("fLaC")},
	{FormatAMR, []byte("#!AMR")},
	{FormatASF, []byte{0x30, 0x26, 0xB2, 0x75, 0x8E, 0x66, 0xCF, 0x11}},
}

// Sniff identifies the container of path from its leading bytes. Anything
// that is not recognisable audio or video is a media error.
func Sniff(path string) (Format, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", apperrors.Media("media.sniff", "open input", err)
	}
	defer file.Close()

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(file, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", apperrors.Media("media.sniff", "read input", err)
	}
	if n == 0 {
		return "", apperrors.Media("media.sniff", "empty input", nil)
	}

	if format, ok := DetectFormat(header[:n]); ok {
		return format, nil
	}
	return "", apperrors.Media("media.sniff", "unsupported format", nil)
}

// DetectFormat matches header against known audio and video signatures.
func DetectFormat(header []byte) (Format, bool) {
	for _, sig := range prefixSignatures {
		if bytes.HasPrefix(header, sig.magic) {
			return sig.format, true
		}
	}

	if len(header) >= 12 {
		switch {
		case bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE")):
			return FormatWAV, true
		case bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("AVI ")):
			return FormatAVI, true
		case bytes.Equal(header[0:4], []byte("FORM")) &&
			(bytes.Equal(header[8:12], []byte("AIFF")) || bytes.Equal(header[8:12], []byte("AIFC"))):
			return FormatAIFF, true
		}
	}
	if len(header) >= 8 && bytes.Equal(header[4:8], []byte("ftyp")) {
		return FormatMP4, true
	}

	// Bare MPEG audio frames and ADTS share the 11-bit frame sync.
	if len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0 {
		if header[1]&0x06 == 0 {
			return FormatAAC, true
		}
		return FormatMP3, true
	}
	return "", false
}
