// Package wavio decodes and encodes the WAV containers the pipeline reads
// from disk and writes to disk, and resamples between sample rates. Decoding
// is adapted from the teacher gateway's internal/audio package, generalized
// from a fixed PCM16 mono assumption to arbitrary WAV containers via
// go-audio/wav, since this pipeline reads whatever container ffmpeg or a
// TTS backend happens to emit rather than a single negotiated call codec.
package wavio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Waveform is a mono, float32 PCM buffer at the decoded file's own sample
// rate — the in-memory representation consumed by the ASR driver
// (component B), which resamples it to 16kHz when needed. SourceChannels
// records the channel count of the file Decode read, before it was downmixed
// to mono, so callers can tell a genuinely mono source from a downmixed one.
type Waveform struct {
	Samples        []float32
	SampleRate     int
	SourceChannels int
}

// IsNormalized reports whether the waveform was already WAV/16kHz/mono, i.e.
// the normalizer (component A) can return the source path unchanged without
// running it through ffmpeg's resample/downmix.
func (w Waveform) IsNormalized() bool {
	return w.SampleRate == 16000 && w.SourceChannels == 1
}

// DecodeFile reads a WAV file from disk, downmixes any additional channels
// by averaging, and replaces non-finite samples with 0 — matching
// _resample_audio / transcribe's stereo-to-mono and nan_to_num handling.
func DecodeFile(path string) (Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return Waveform{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a WAV stream and returns a sanitized mono waveform.
func Decode(r interface {
	Read([]byte) (int, error)
	Seek(int64, int) (int64, error)
}) (Waveform, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Waveform{}, fmt.Errorf("not a valid wav file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Waveform{}, fmt.Errorf("read pcm buffer: %w", err)
	}

	sourceChannels := buf.Format.NumChannels
	samples := downmixAndNormalize(buf)
	sanitize(samples)

	return Waveform{Samples: samples, SampleRate: int(dec.SampleRate), SourceChannels: sourceChannels}, nil
}

// DecodeBytes decodes an in-memory WAV byte slice.
func DecodeBytes(data []byte) (Waveform, error) {
	return Decode(bytes.NewReader(data))
}

func downmixAndNormalize(buf *audio.IntBuffer) []float32 {
	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	maxVal := float32(int(1) << (bitDepth - 1))

	frames := len(buf.Data) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(buf.Data[i*channels+c]) / maxVal
		}
		out[i] = sum / float32(channels)
	}
	return out
}

func sanitize(samples []float32) {
	for i, s := range samples {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			samples[i] = 0
		}
	}
}

// EncodeFile writes a mono 16-bit PCM WAV file at sampleRate.
func EncodeFile(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		buf.Data[i] = int(clamp(s) * math.MaxInt16)
	}
	if err = enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return enc.Close()
}

// EncodeBytes encodes mono 16-bit PCM samples as an in-memory WAV, used for
// the recognizer's multipart chunk upload and to wrap the TTS backend's raw
// PCM in a WAV container.
func EncodeBytes(samples []float32, sampleRate int) []byte {
	var buf bytes.Buffer
	enc := wav.NewEncoder(&buf, sampleRate, 16, 1, 1)
	ib := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		ib.Data[i] = int(clamp(s) * math.MaxInt16)
	}
	_ = enc.Write(ib)
	_ = enc.Close()
	return buf.Bytes()
}

// PCM16ToFloat32 converts little-endian 16-bit PCM samples — the inline
// format a TTS backend returns before EncodeBytes wraps it in a RIFF/WAV
// container — to the normalized float32 range EncodeFile/EncodeBytes expect.
func PCM16ToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		out[i] = float32(v) / float32(math.MaxInt16+1)
	}
	return out
}

func clamp(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
