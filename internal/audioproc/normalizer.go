// Package audioproc normalizes arbitrary input audio to mono 16kHz PCM WAV by
// shelling out to ffmpeg, the same external-decoder idiom the source pipeline
// used (component A). Grounded in the teacher gateway's os/exec-free audio
// path — the teacher never shells out for audio — so this is adapted from
// original_source/backend/audio_processing.py's convert_to_wav rather than
// any Go file in the pack: the pack's only "external subprocess" idiom is the
// orchestrator's docker-compose shell-out (internal/orchestrator/compose.go),
// whose exec.CommandContext + CombinedOutput error-reporting shape is reused
// here.
package audioproc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dechogo/hearing-gateway/internal/apperrors"
	"github.com/dechogo/hearing-gateway/internal/wavio"
)

const targetSampleRate = 16000

// Normalizer converts arbitrary audio input to mono 16kHz PCM WAV.
type Normalizer struct {
	// FFmpegBinary overrides the ffmpeg executable path; empty resolves via
	// $FFMPEG_BINARY then PATH lookup, matching _ffmpeg_binary().
	FFmpegBinary string
	// DenoiseBinary, if set, is run on the input before ffmpeg conversion as
	// an optional source-separation preprocessor (spec §4.1). Any failure is
	// ignored without logging and the original input is used, best-effort.
	DenoiseBinary string
}

// New returns a Normalizer configured from FFMPEG_BINARY / AUDIO_DENOISE_BINARY.
func New() *Normalizer {
	return &Normalizer{
		FFmpegBinary:  resolveFFmpeg(os.Getenv("FFMPEG_BINARY")),
		DenoiseBinary: os.Getenv("AUDIO_DENOISE_BINARY"),
	}
}

func resolveFFmpeg(override string) string {
	if override != "" {
		return override
	}
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		return path
	}
	return "ffmpeg"
}

// Normalize converts inputPath to mono 16kHz PCM WAV, returning the path to
// use downstream. The source is inputPath, or the denoiser's output when
// DenoiseBinary is set and succeeds. If the source is already WAV/16kHz/mono,
// its path is returned unchanged and ffmpeg is not run.
func (n *Normalizer) Normalize(ctx context.Context, inputPath string) (string, error) {
	source := inputPath
	if n.DenoiseBinary != "" {
		if denoised, err := n.runDenoise(ctx, inputPath); err == nil {
			source = denoised
		}
	}

	if wf, err := wavio.DecodeFile(source); err == nil && wf.IsNormalized() {
		return source, nil
	}

	outPath := outputPathFor(source)

	cmd := exec.CommandContext(ctx, n.FFmpegBinary,
		"-y", "-i", source,
		"-ar", fmt.Sprintf("%d", targetSampleRate),
		"-ac", "1",
		outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &apperrors.AudioConversionError{Stderr: stderr.String()}
	}

	return outPath, nil
}

// outputPathFor returns inputPath with its extension replaced by .wav,
// suffixing "_converted" when that would collide with the input itself —
// matching convert_to_wav's collision-avoidance rename.
func outputPathFor(inputPath string) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(inputPath, ext)
	out := base + ".wav"
	if out == inputPath {
		out = base + "_converted.wav"
	}
	return out
}

func (n *Normalizer) runDenoise(ctx context.Context, inputPath string) (string, error) {
	outPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "_denoised.wav"
	cmd := exec.CommandContext(ctx, n.DenoiseBinary, inputPath, outPath)
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return outPath, nil
}
