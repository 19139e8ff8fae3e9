package tts_test

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dechogo/hearing-gateway/internal/config"
	"github.com/dechogo/hearing-gateway/internal/tts"
	"github.com/dechogo/hearing-gateway/internal/wavio"
)

// pcm16 encodes values as little-endian int16 bytes, mimicking the raw
// inline PCM16 mono audio a synthesis backend returns.
func pcm16(values ...int16) []byte {
	out := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func TestSynthesize_WrapsInlinePCM16InWAVContainer(t *testing.T) {
	t.Parallel()

	raw := pcm16(0, 16384, -16384, 32767, -32768)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(raw)
	}))
	defer srv.Close()

	client := tts.NewClient(config.TTSConfig{URL: srv.URL})
	res, err := client.Synthesize(t.Context(), "hello", false)
	if err != nil {
		t.Fatalf("Synthesize: unexpected error: %v", err)
	}
	if res.ContentType != "audio/wav" {
		t.Errorf("ContentType = %q, want %q", res.ContentType, "audio/wav")
	}

	wf, err := wavio.DecodeBytes(res.Audio)
	if err != nil {
		t.Fatalf("Audio is not a valid WAV container: %v", err)
	}
	if wf.SampleRate != 24000 {
		t.Errorf("SampleRate = %d, want 24000", wf.SampleRate)
	}
	if len(wf.Samples) != 5 {
		t.Fatalf("got %d samples, want 5", len(wf.Samples))
	}
}

func TestSynthesize_SelectsVoiceByGenderAndReturnsAudio(t *testing.T) {
	t.Parallel()

	var gotVoice string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Voice string `json:"voice"`
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		gotVoice = req.Voice
		w.WriteHeader(http.StatusOK)
		w.Write(pcm16(0, 1, 2))
	}))
	defer srv.Close()

	client := tts.NewClient(config.TTSConfig{
		URL:         srv.URL,
		VoiceMale:   "male-voice",
		VoiceFemale: "female-voice",
	})

	res, err := client.Synthesize(t.Context(), "hello", true)
	if err != nil {
		t.Fatalf("Synthesize: unexpected error: %v", err)
	}
	if len(res.Audio) == 0 {
		t.Errorf("Synthesize returned no audio")
	}
	if gotVoice != "male-voice" {
		t.Errorf("server saw voice = %q, want %q", gotVoice, "male-voice")
	}
}

func TestSynthesize_FemaleVoiceSelectedByDefault(t *testing.T) {
	t.Parallel()

	var gotVoice string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Voice string `json:"voice"`
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &req)
		gotVoice = req.Voice
		w.WriteHeader(http.StatusOK)
		w.Write(pcm16(0, 1, 2))
	}))
	defer srv.Close()

	client := tts.NewClient(config.TTSConfig{URL: srv.URL, VoiceMale: "male-voice", VoiceFemale: "female-voice"})
	if _, err := client.Synthesize(t.Context(), "hello", false); err != nil {
		t.Fatalf("Synthesize: unexpected error: %v", err)
	}
	if gotVoice != "female-voice" {
		t.Errorf("server saw voice = %q, want %q", gotVoice, "female-voice")
	}
}

func TestSynthesize_NonOKStatusIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("synth backend down"))
	}))
	defer srv.Close()

	client := tts.NewClient(config.TTSConfig{URL: srv.URL})
	_, err := client.Synthesize(t.Context(), "hello", false)
	if err == nil {
		t.Fatalf("Synthesize: got nil error for a 500 response, want error")
	}
}

func TestTest_UsesConnectivityCheckText(t *testing.T) {
	t.Parallel()

	var calledPath, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calledPath = r.URL.Path
		var req struct {
			Text string `json:"text"`
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &req)
		gotText = req.Text
		w.WriteHeader(http.StatusOK)
		w.Write(pcm16(0))
	}))
	defer srv.Close()

	client := tts.NewClient(config.TTSConfig{URL: srv.URL})
	if err := client.Test(t.Context()); err != nil {
		t.Fatalf("Test: unexpected error: %v", err)
	}
	if calledPath != "/synthesize" {
		t.Errorf("called path = %q, want %q", calledPath, "/synthesize")
	}
	if gotText != "connectivity check" {
		t.Errorf("request text = %q, want %q", gotText, "connectivity check")
	}
}
