package config_test

import (
	"testing"

	"github.com/dechogo/hearing-gateway/internal/config"
)

func TestApplyOverrides_SetsKnownKeys(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	config.ApplyOverrides(cfg, map[string]string{
		"llm.model":            "openai/gpt-4o-mini",
		"tts.voice_male":       "en-us-male-1",
		"app.max_split_length": "120",
		"app.use_llm":          "true",
	})

	if cfg.LLM.Model != "openai/gpt-4o-mini" {
		t.Errorf("LLM.Model = %q, want %q", cfg.LLM.Model, "openai/gpt-4o-mini")
	}
	if cfg.TTS.VoiceMale != "en-us-male-1" {
		t.Errorf("TTS.VoiceMale = %q, want %q", cfg.TTS.VoiceMale, "en-us-male-1")
	}
	if cfg.App.MaxSplitLength != 120 {
		t.Errorf("App.MaxSplitLength = %d, want 120", cfg.App.MaxSplitLength)
	}
	if !cfg.App.UseLLM {
		t.Errorf("App.UseLLM = false, want true")
	}
}

func TestApplyOverrides_IgnoresUnknownKey(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.App.SourceLanguage = "en"
	config.ApplyOverrides(cfg, map[string]string{"not.a.real.key": "whatever"})

	if cfg.App.SourceLanguage != "en" {
		t.Errorf("App.SourceLanguage = %q, want unchanged %q", cfg.App.SourceLanguage, "en")
	}
}

func TestApplyOverrides_SkipsMalformedNumericAndBool(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.App.MaxSplitLength = 80
	cfg.App.UseLLM = false

	config.ApplyOverrides(cfg, map[string]string{
		"app.max_split_length": "not-a-number",
		"app.use_llm":          "not-a-bool",
	})

	if cfg.App.MaxSplitLength != 80 {
		t.Errorf("App.MaxSplitLength = %d, want unchanged 80 after malformed override", cfg.App.MaxSplitLength)
	}
	if cfg.App.UseLLM {
		t.Errorf("App.UseLLM = true, want unchanged false after malformed override")
	}
}

func TestMasked_RedactsAPIKeys(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.LLM.APIKey = "sk-secret"
	cfg.TTS.APIKey = "tts-secret"

	masked := config.Masked(cfg)
	if masked.LLM.APIKey != "********" {
		t.Errorf("Masked LLM.APIKey = %q, want masked", masked.LLM.APIKey)
	}
	if masked.TTS.APIKey != "********" {
		t.Errorf("Masked TTS.APIKey = %q, want masked", masked.TTS.APIKey)
	}
	if cfg.LLM.APIKey != "sk-secret" {
		t.Errorf("Masked mutated original config's LLM.APIKey")
	}
}
