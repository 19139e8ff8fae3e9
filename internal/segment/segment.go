// Package segment defines the subtitle Segment type and implements the
// silence pre-split (spec §4.3), the validator/merger (component F), and the
// subtitle emitter (component G). Ported from
// original_source/backend/subtitle.py (validate_and_merge_segments,
// format_timestamp, generate_srt, generate_json) and the silence-gap
// pre-split inlined in original_source/server/routers/audio.py's
// process_audio_task.
package segment

import (
	"fmt"
	"math"
	"strings"

	"github.com/dechogo/hearing-gateway/internal/asr"
)

// Segment is a subtitle unit. Tokens (each carrying its end-time) are present only while the
// segment still carries its original recognizer alignment (before or during
// the linguistic splitter); once pieces are aligned to arbitrary re-split
// text they are cleared, mirroring the source's dict-shaped optional fields
// as an explicit tagged structure instead of a presence check on a dict key.
type Segment struct {
	Text     string
	Start    float64
	End      float64
	Tokens   []asr.Token
	HasTokens bool
}

func (s Segment) Duration() float64 { return s.End - s.Start }

// SilencePreSplit groups a RawTranscript's tokens into segments wherever the
// gap between consecutive token end-times exceeds 2.0s (spec §4.3). An empty
// token list synthesizes one full-duration segment.
func SilencePreSplit(transcript *asr.RawTranscript, duration float64) []Segment {
	if len(transcript.Tokens) == 0 {
		return []Segment{{Text: transcript.Text, Start: 0, End: duration}}
	}

	const gapThreshold = 2.0

	var segments []Segment
	var current []asr.Token

	flush := func() {
		if len(current) == 0 {
			return
		}
		start := math.Max(0, current[0].EndTime-0.5)
		end := current[len(current)-1].EndTime
		segments = append(segments, Segment{
			Text:      joinTokenText(current),
			Start:     start,
			End:       end,
			Tokens:    current,
			HasTokens: true,
		})
	}

	for i, tok := range transcript.Tokens {
		if i > 0 && tok.EndTime-transcript.Tokens[i-1].EndTime > gapThreshold {
			flush()
			current = nil
		}
		current = append(current, tok)
	}
	flush()

	if len(segments) == 0 {
		return []Segment{{Text: transcript.Text, Start: 0, End: duration}}
	}
	return segments
}

func joinTokenText(tokens []asr.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Text)
	}
	return strings.TrimSpace(b.String())
}

// MergeConfig holds the validator/merger thresholds; all configurable per
// spec §4.7, defaulting to the source's constants.
type MergeConfig struct {
	MaxLength   int
	MinLength   int
	MaxDuration float64
	MinDuration float64
}

// DefaultMergeConfig matches validate_and_merge_segments' defaults.
func DefaultMergeConfig() MergeConfig {
	return MergeConfig{MaxLength: 80, MinLength: 10, MaxDuration: 10.0, MinDuration: 1.0}
}

// ValidateAndMerge performs the single left-to-right fold described in
// spec §4.7: a "short" segment (too few characters or too brief) is merged
// into its successor when the combined text and duration stay within
// bounds; otherwise it is flushed as-is. The algorithm is stable and
// idempotent — running it twice is equal to running it once, since a
// segment that was too long to merge on the first pass is still too long on
// the second.
func ValidateAndMerge(segments []Segment, cfg MergeConfig) []Segment {
	if len(segments) == 0 {
		return nil
	}

	var merged []Segment
	current := segments[0]

	for i := 1; i < len(segments); i++ {
		next := segments[i]

		isShort := len(current.Text) < cfg.MinLength || current.Duration() < cfg.MinDuration
		combinedText := current.Text + " " + next.Text
		combinedDuration := next.End - current.Start
		canMerge := len(combinedText) <= cfg.MaxLength && combinedDuration <= cfg.MaxDuration

		if isShort && canMerge {
			current.Text = combinedText
			current.End = next.End
			current.HasTokens = false
			current.Tokens = nil
			continue
		}

		merged = append(merged, current)
		current = next
	}

	merged = append(merged, current)
	return merged
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMs := int64(seconds * 1000)
	ms := totalMs % 1000
	totalSec := totalMs / 1000
	s := totalSec % 60
	m := (totalSec / 60) % 60
	h := totalSec / 3600
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// GenerateSRT renders 1-indexed, blank-line-separated subtitle entries.
func GenerateSRT(segments []Segment) string {
	var b strings.Builder
	for i, s := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n", i+1, FormatTimestamp(s.Start), FormatTimestamp(s.End), s.Text)
		if i != len(segments)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// JSONSegment is the wire shape for GET /api/audio/result and the JSON
// form stored alongside the SRT text.
type JSONSegment struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Text        string  `json:"text"`
	Translation *string `json:"translation,omitempty"`
}

// ToJSON converts segments to the wire shape. translation is included as an
// empty string (never omitted) only when targetLanguage is non-empty,
// matching generate_json's conditional "translation" key.
func ToJSON(segments []Segment, targetLanguage string) []JSONSegment {
	out := make([]JSONSegment, len(segments))
	for i, s := range segments {
		out[i] = JSONSegment{Start: s.Start, End: s.End, Text: s.Text}
		if targetLanguage != "" {
			empty := ""
			out[i].Translation = &empty
		}
	}
	return out
}
