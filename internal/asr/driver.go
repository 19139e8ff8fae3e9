package asr

import (
	"context"
	"fmt"
	"strings"

	"github.com/dechogo/hearing-gateway/internal/apperrors"
	"github.com/dechogo/hearing-gateway/internal/wavio"
)

const (
	chunkDurationSec  = 60
	minChunkSamples   = 1600 // 0.1s at 16kHz, matches "skip chunks < 0.1s"
	sampleRate16k     = 16000
	splitSubWindowSec = 0.1
)

// RawTranscript is the stitched output of the chunked driver: text,
// append-only tokens, and their end-times, all relative to the full input.
type RawTranscript struct {
	Text       string
	Tokens     []Token
	SampleRate int
}

// Transcribe runs the full chunked-ASR driver (component B) over a
// normalized waveform: resample if needed, split at silence for long audio,
// transcribe each chunk, and stitch the results with offset-adjusted
// timestamps. Fails the whole driver if the recognizer errors on any chunk —
// no partial RawTranscript is ever returned.
func Transcribe(ctx context.Context, r Recognizer, wf wavio.Waveform) (*RawTranscript, error) {
	samples := wf.Samples
	rate := wf.SampleRate

	if rate != sampleRate16k {
		samples = wavio.Resample(samples, rate, sampleRate16k)
		rate = sampleRate16k
	}

	if len(samples) == 0 {
		return nil, &apperrors.ASRError{Msg: "no samples"}
	}

	if len(samples) <= chunkDurationSec*rate {
		res, err := r.Transcribe(ctx, samples, rate)
		if err != nil {
			return nil, err
		}
		return &RawTranscript{Text: res.Text, Tokens: res.Tokens, SampleRate: rate}, nil
	}

	splitPoints := findSplitPoints(samples, rate, chunkDurationSec)

	var textParts []string
	var allTokens []Token

	for i := 0; i < len(splitPoints)-1; i++ {
		startIdx, endIdx := splitPoints[i], splitPoints[i+1]
		chunk := samples[startIdx:endIdx]
		if len(chunk) < minChunkSamples {
			continue
		}

		res, err := r.Transcribe(ctx, chunk, rate)
		if err != nil {
			return nil, fmt.Errorf("transcribe chunk %d: %w", i, err)
		}

		if res.Text != "" {
			textParts = append(textParts, res.Text)
		}

		offset := float64(startIdx) / float64(rate)
		for _, t := range res.Tokens {
			allTokens = append(allTokens, Token{Text: t.Text, EndTime: t.EndTime + offset})
		}
	}

	return &RawTranscript{
		Text:       strings.Join(textParts, " "),
		Tokens:     allTokens,
		SampleRate: rate,
	}, nil
}

// findSplitPoints locates silence-aware chunk boundaries, ported from
// original_source/backend/asr.py's _find_split_points: search the window
// [0.75*chunk, 1.25*chunk] past the previous cut for the quietest 0.1s
// sub-window, and cut at its midpoint. Returns a strictly increasing
// sequence starting at 0 and ending at len(samples).
func findSplitPoints(samples []float32, sampleRate, chunkSec int) []int {
	total := len(samples)
	chunkSamples := chunkSec * sampleRate

	points := []int{0}
	currentStart := 0

	for currentStart+chunkSamples < total {
		searchStart := currentStart + int(float64(chunkSamples)*0.75)
		searchEnd := min(currentStart+int(float64(chunkSamples)*1.25), total)

		if searchStart >= total {
			break
		}

		segment := samples[searchStart:searchEnd]
		if len(segment) == 0 {
			break
		}

		windowSize := int(splitSubWindowSec * float64(sampleRate))
		numWindows := len(segment) / windowSize

		var splitIdx int
		if numWindows == 0 {
			splitIdx = searchEnd
		} else {
			minEnergyIdx := 0
			minEnergy := peakAbs(segment[0:windowSize])
			for w := 1; w < numWindows; w++ {
				e := peakAbs(segment[w*windowSize : (w+1)*windowSize])
				if e < minEnergy {
					minEnergy = e
					minEnergyIdx = w
				}
			}
			splitOffset := minEnergyIdx*windowSize + windowSize/2
			splitIdx = searchStart + splitOffset
		}

		points = append(points, splitIdx)
		currentStart = splitIdx
	}

	points = append(points, total)
	return dedupSorted(points)
}

func peakAbs(window []float32) float32 {
	var peak float32
	for _, s := range window {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

func dedupSorted(points []int) []int {
	seen := make(map[int]bool, len(points))
	out := make([]int, 0, len(points))
	for _, p := range points {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	// points is already non-decreasing by construction; a plain stable
	// de-dup is sufficient (mirrors sorted(set(split_points))).
	for i := 1; i < len(out); i++ {
		if out[i] < out[i-1] {
			return sortInts(out)
		}
	}
	return out
}

func sortInts(xs []int) []int {
	out := append([]int(nil), xs...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
