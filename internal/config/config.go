// Package config resolves process configuration from the environment once
// and caches it for the lifetime of the process, matching the
// load_config(reload=False) double-checked-locking pattern the pipeline this
// service descends from used for its own config singleton.
package config

import (
	"sync"

	"github.com/dechogo/hearing-gateway/internal/apperrors"
	"github.com/dechogo/hearing-gateway/internal/env"
)

// ASRConfig holds recognizer deployment settings.
type ASRConfig struct {
	Method          string
	URL             string
	ParakeetModelDir string
	EnableDemucs    bool
	EnableVAD       bool
}

// LLMConfig holds chat-completion client settings. APIKey is masked to
// "********" whenever the config is serialized for an external caller.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// TTSConfig holds speech-synthesis client settings.
type TTSConfig struct {
	APIKey      string
	URL         string
	Model       string
	VoiceMale   string
	VoiceFemale string
	Speed       string
	Tone        string
	Language    string
}

// AppConfig holds segmentation and pipeline-wide tunables.
type AppConfig struct {
	MaxSplitLength   int
	UseLLM           bool
	SourceLanguage   string
	TargetLanguage   string
	LanguageModelMap map[string]string
}

// Config is the full resolved configuration, mirroring the four top-level
// sections (asr/llm/tts/app) the original config file exposed.
type Config struct {
	ASR ASRConfig
	LLM LLMConfig
	TTS TTSConfig
	App AppConfig

	NLPURL             string
	DatabaseURL        string
	UploadsDir         string
	RecordingsDir      string
	TaskWorkerPoolSize int
	Port               string
}

var (
	mu     sync.Mutex
	cached *Config
)

// Load returns the cached configuration, building it from the environment on
// first call. Pass reload=true to force a rebuild from the environment; all
// other callers should pass false. Persisted overrides are not part of the
// cached value: the config handler applies them with ApplyOverrides to a copy
// on each of its requests.
func Load(reload bool) *Config {
	mu.Lock()
	defer mu.Unlock()

	if cached != nil && !reload {
		return cached
	}

	cached = buildFromEnv()
	return cached
}

// Masked returns a copy of cfg with LLM.APIKey and TTS.APIKey replaced by a
// placeholder, suitable for returning from GET /api/config.
func Masked(cfg *Config) Config {
	clone := *cfg
	if clone.LLM.APIKey != "" {
		clone.LLM.APIKey = "********"
	}
	if clone.TTS.APIKey != "" {
		clone.TTS.APIKey = "********"
	}
	return clone
}

func buildFromEnv() *Config {
	return &Config{
		ASR: ASRConfig{
			Method:           env.Str("ASR_METHOD", "parakeet"),
			URL:              env.Str("ASR_URL", "http://localhost:8090"),
			ParakeetModelDir: env.Str("ASR_PARAKEET_MODEL_DIR", "models/sherpa-onnx-nemo-parakeet-tdt-0.6b-v3-int8"),
			EnableDemucs:     env.Bool("ASR_ENABLE_DEMUCS", false),
			EnableVAD:        env.Bool("ASR_ENABLE_VAD", false),
		},
		LLM: LLMConfig{
			APIKey:  env.Str("LLM_API_KEY", ""),
			BaseURL: env.Str("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
			Model:   env.Str("LLM_MODEL", "openai/gpt-4o"),
		},
		TTS: TTSConfig{
			APIKey:      env.Str("TTS_API_KEY", ""),
			URL:         env.Str("TTS_URL", "http://localhost:8092"),
			Model:       env.Str("TTS_MODEL", ""),
			VoiceMale:   env.Str("TTS_VOICE_MALE", ""),
			VoiceFemale: env.Str("TTS_VOICE_FEMALE", ""),
			Speed:       env.Str("TTS_SPEED", "1.0"),
			Tone:        env.Str("TTS_TONE", "neutral"),
			Language:    env.Str("TTS_LANGUAGE", "en"),
		},
		App: AppConfig{
			MaxSplitLength:   env.Int("APP_MAX_SPLIT_LENGTH", 80),
			UseLLM:           env.Bool("APP_USE_LLM", false),
			SourceLanguage:   env.Str("APP_SOURCE_LANGUAGE", "en"),
			TargetLanguage:   env.Str("APP_TARGET_LANGUAGE", "de"),
			LanguageModelMap: defaultLanguageModelMap(),
		},
		NLPURL:             env.Str("NLP_URL", "http://localhost:8091"),
		DatabaseURL:        env.Str("DATABASE_URL", ""),
		UploadsDir:         env.Str("UPLOADS_DIR", "uploads"),
		RecordingsDir:      env.Str("RECORDINGS_DIR", "user_recordings"),
		TaskWorkerPoolSize: env.Int("TASK_WORKER_POOL_SIZE", 4),
		Port:               env.Str("GATEWAY_PORT", "8000"),
	}
}

func defaultLanguageModelMap() map[string]string {
	return map[string]string{
		"en": "en_core_web_md",
		"zh": "zh_core_web_sm",
		"de": "de_core_news_md",
	}
}

// Validate returns a ConfigError if configuration required for the pipeline
// to run is missing. Mirrors the source's check that the "asr" and "app"
// sections are present before serving any audio request.
func Validate(cfg *Config) error {
	if cfg.ASR.URL == "" {
		return &apperrors.ConfigError{Msg: "ASR_URL must be set"}
	}
	if cfg.App.MaxSplitLength <= 0 {
		return &apperrors.ConfigError{Msg: "APP_MAX_SPLIT_LENGTH must be positive"}
	}
	return nil
}
