package audioproc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/dechogo/hearing-gateway/internal/apperrors"
	"github.com/dechogo/hearing-gateway/internal/wavio"
)

// encodeStereoFile writes a genuinely 2-channel 16kHz PCM16 WAV, since
// wavio.EncodeFile only ever produces mono output.
func encodeStereoFile(t *testing.T, path string, frames int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create stereo fixture: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, 16000, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 16000},
		Data:           make([]int, frames*2),
		SourceBitDepth: 16,
	}
	if err = enc.Write(buf); err != nil {
		t.Fatalf("write stereo fixture: %v", err)
	}
	if err = enc.Close(); err != nil {
		t.Fatalf("close stereo fixture: %v", err)
	}
}

func TestOutputPathFor_ReplacesExtension(t *testing.T) {
	t.Parallel()

	if got := outputPathFor("clip.mp3"); got != "clip.wav" {
		t.Errorf("outputPathFor(%q) = %q, want %q", "clip.mp3", got, "clip.wav")
	}
}

func TestOutputPathFor_AvoidsCollidingWithInput(t *testing.T) {
	t.Parallel()

	if got := outputPathFor("clip.wav"); got != "clip_converted.wav" {
		t.Errorf("outputPathFor(%q) = %q, want %q", "clip.wav", got, "clip_converted.wav")
	}
}

func TestNormalize_AlreadyNormalizedSkipsFfmpeg(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "input.wav")
	if err := wavio.EncodeFile(path, make([]float32, 1600), 16000); err != nil {
		t.Fatalf("EncodeFile: %v", err)
	}

	// A binary that does not exist: if Normalize tried to invoke ffmpeg here,
	// the test would fail with a command-not-found error instead of the
	// unchanged input path.
	n := &Normalizer{FFmpegBinary: filepath.Join(dir, "does-not-exist")}

	out, err := n.Normalize(context.Background(), path)
	if err != nil {
		t.Fatalf("Normalize: unexpected error: %v", err)
	}
	if out != path {
		t.Errorf("Normalize returned %q, want unchanged input path %q", out, path)
	}
}

func TestNormalize_StereoAt16kHzIsNotSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "input.wav")
	encodeStereoFile(t, path, 800)

	// A nonexistent ffmpeg binary: a stereo 16kHz source must not be
	// classified as already-normalized, so Normalize has to actually try to
	// invoke ffmpeg here and surface the resulting AudioConversionError,
	// rather than silently returning the stereo file unchanged.
	n := &Normalizer{FFmpegBinary: filepath.Join(dir, "does-not-exist")}

	out, err := n.Normalize(context.Background(), path)
	if err == nil {
		t.Fatalf("Normalize: got nil error and output %q for a stereo source with no ffmpeg, want an error", out)
	}
	var convErr *apperrors.AudioConversionError
	if !errors.As(err, &convErr) {
		t.Errorf("Normalize error = %v (%T), want *apperrors.AudioConversionError", err, err)
	}
}

func TestNormalize_DenoiseFailureFallsBackToOriginalInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "input.wav")
	if err := wavio.EncodeFile(path, make([]float32, 1600), 16000); err != nil {
		t.Fatalf("EncodeFile: %v", err)
	}

	n := &Normalizer{
		FFmpegBinary:  filepath.Join(dir, "does-not-exist"),
		DenoiseBinary: "/bin/false", // always exits non-zero
	}

	out, err := n.Normalize(context.Background(), path)
	if err != nil {
		t.Fatalf("Normalize: unexpected error: %v", err)
	}
	if out != path {
		t.Errorf("Normalize returned %q after denoise failure, want fallback to original %q", out, path)
	}
}
