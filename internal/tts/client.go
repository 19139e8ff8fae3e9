// Package tts implements the text-to-speech bridge (component I): it turns
// cleaned uploaded text into narrated audio via an external
// synthesis HTTP API. Adapted from the teacher gateway's
// internal/pipeline/tts.go TTSClient, generalized from a fixed "fast"/
// "quality" engine-mode voice table to the resolved TTSConfig voice/speed/
// tone/language settings this pipeline's config exposes, since callers here
// pick voices by gender and language rather than by a live-call latency
// tier.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dechogo/hearing-gateway/internal/config"
	"github.com/dechogo/hearing-gateway/internal/metrics"
	"github.com/dechogo/hearing-gateway/internal/wavio"
)

// pcmSampleRate is the sample rate of the inline PCM16 mono audio the
// synthesis backend returns, before EncodeBytes wraps it in a WAV container.
const pcmSampleRate = 24000

// Result holds synthesized audio and its content type.
type Result struct {
	Audio       []byte
	ContentType string
	LatencyMs   float64
}

// Synthesizer is implemented by Client; tests substitute a fake.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, male bool) (*Result, error)
	Test(ctx context.Context) error
}

// Client calls an external TTS HTTP endpoint.
type Client struct {
	cfg    config.TTSConfig
	client *http.Client
}

// NewClient builds a TTS client from the resolved configuration.
func NewClient(cfg config.TTSConfig) *Client {
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:          8,
				MaxIdleConnsPerHost:   8,
				IdleConnTimeout:       90 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				ForceAttemptHTTP2:     true,
			},
		},
	}
}

type synthesizeRequest struct {
	Text     string `json:"text"`
	Voice    string `json:"voice"`
	Speed    string `json:"speed"`
	Tone     string `json:"tone"`
	Language string `json:"language"`
}

// Synthesize converts text to narrated audio, selecting the male or female
// voice from configuration.
func (c *Client) Synthesize(ctx context.Context, text string, male bool) (*Result, error) {
	start := time.Now()

	voice := c.cfg.VoiceFemale
	if male {
		voice = c.cfg.VoiceMale
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:     text,
		Voice:    voice,
		Speed:    c.cfg.Speed,
		Tone:     c.cfg.Tone,
		Language: c.cfg.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("tts", "http").Inc()
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.Errors.WithLabelValues("tts", "status").Inc()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tts status %d: %s", resp.StatusCode, respBody)
	}

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tts response: %w", err)
	}

	// The backend returns bare inline PCM16 mono samples, not a WAV file;
	// wrap them in a RIFF/WAV container here so downstream wavio.DecodeFile
	// can read the result like any other normalized audio file.
	wavAudio := wavio.EncodeBytes(wavio.PCM16ToFloat32(pcm), pcmSampleRate)

	latency := time.Since(start)
	metrics.StageDuration.WithLabelValues("tts").Observe(latency.Seconds())

	return &Result{Audio: wavAudio, ContentType: "audio/wav", LatencyMs: float64(latency.Milliseconds())}, nil
}

// Test performs a minimal synthesis round trip, backing
// POST /api/config/test-tts.
func (c *Client) Test(ctx context.Context) error {
	_, err := c.Synthesize(ctx, "connectivity check", false)
	return err
}
