// Package asr drives the chunked offline transcription (component B): it
// loads a normalized waveform, splits long audio at silence-aware boundaries,
// calls the recognizer once per chunk, and stitches the per-chunk text,
// tokens, and timestamps back into one RawTranscript. The recognizer itself
// is an external transducer model (spec.md §6.3), reached over HTTP — the
// multipart client shape is adapted from the teacher gateway's
// internal/pipeline/asr.go ASRClient.Transcribe, generalized from a
// streaming per-utterance call to an offline whole-chunk call that also
// returns per-token timestamps, which the live-call ASRClient never needed.
package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/dechogo/hearing-gateway/internal/apperrors"
	"github.com/dechogo/hearing-gateway/internal/metrics"
	"github.com/dechogo/hearing-gateway/internal/wavio"
)

// Token is an opaque unit emitted by the recognizer with its end-time.
type Token struct {
	Text    string
	EndTime float64
}

// Result is the recognizer's output for a single chunk.
type Result struct {
	Text   string
	Tokens []Token
}

// Recognizer is implemented by the HTTP client below; tests substitute a
// fake to avoid a live recognizer dependency.
type Recognizer interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (*Result, error)
}

// Client calls an external recognizer HTTP endpoint.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a recognizer client pointed at baseURL.
func NewClient(baseURL string, poolSize int) *Client {
	return &Client{
		url: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        poolSize,
				MaxIdleConnsPerHost: poolSize,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type recognizerResponse struct {
	Text       string    `json:"text"`
	Tokens     []string  `json:"tokens"`
	Timestamps []float64 `json:"timestamps"`
}

// Transcribe posts one chunk's waveform as a multipart WAV upload and
// decodes the recognizer's {text, tokens, timestamps} response.
func (c *Client) Transcribe(ctx context.Context, samples []float32, sampleRate int) (*Result, error) {
	start := time.Now()

	body, contentType, err := buildMultipartWAV(samples, sampleRate)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/inference", body)
	if err != nil {
		return nil, fmt.Errorf("create asr request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("asr", "http").Inc()
		return nil, &apperrors.ASRError{Msg: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		metrics.Errors.WithLabelValues("asr", "status").Inc()
		return nil, &apperrors.ASRError{Msg: fmt.Sprintf("status %d: %s", resp.StatusCode, respBody)}
	}

	var parsed recognizerResponse
	if err = json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &apperrors.ASRError{Msg: "decode response: " + err.Error()}
	}
	if len(parsed.Tokens) != len(parsed.Timestamps) {
		return nil, &apperrors.ASRError{Msg: "tokens/timestamps length mismatch"}
	}

	metrics.StageDuration.WithLabelValues("asr").Observe(time.Since(start).Seconds())

	tokens := make([]Token, len(parsed.Tokens))
	for i, t := range parsed.Tokens {
		tokens[i] = Token{Text: t, EndTime: parsed.Timestamps[i]}
	}

	return &Result{Text: parsed.Text, Tokens: tokens}, nil
}

func buildMultipartWAV(samples []float32, sampleRate int) (*bytes.Buffer, string, error) {
	wavData := wavio.EncodeBytes(samples, sampleRate)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "chunk.wav")
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err = part.Write(wavData); err != nil {
		return nil, "", fmt.Errorf("write wav data: %w", err)
	}
	if err = writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close writer: %w", err)
	}

	return &body, writer.FormDataContentType(), nil
}
