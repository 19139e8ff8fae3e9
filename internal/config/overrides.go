package config

import "strconv"

// ApplyOverrides layers persisted dotted-key overrides on top of an
// env-resolved Config, the Go equivalent of the source rewriting
// config.yaml: unknown keys are ignored, malformed numeric/bool values are
// skipped rather than failing the whole load.
func ApplyOverrides(cfg *Config, overrides map[string]string) {
	for key, value := range overrides {
		applyOverride(cfg, key, value)
	}
}

func applyOverride(cfg *Config, key, value string) {
	switch key {
	case "asr.url":
		cfg.ASR.URL = value
	case "asr.method":
		cfg.ASR.Method = value
	case "llm.api_key":
		cfg.LLM.APIKey = value
	case "llm.base_url":
		cfg.LLM.BaseURL = value
	case "llm.model":
		cfg.LLM.Model = value
	case "tts.api_key":
		cfg.TTS.APIKey = value
	case "tts.url":
		cfg.TTS.URL = value
	case "tts.model":
		cfg.TTS.Model = value
	case "tts.voice_male":
		cfg.TTS.VoiceMale = value
	case "tts.voice_female":
		cfg.TTS.VoiceFemale = value
	case "tts.speed":
		cfg.TTS.Speed = value
	case "tts.tone":
		cfg.TTS.Tone = value
	case "tts.language":
		cfg.TTS.Language = value
	case "app.max_split_length":
		if n, err := strconv.Atoi(value); err == nil {
			cfg.App.MaxSplitLength = n
		}
	case "app.use_llm":
		if b, err := strconv.ParseBool(value); err == nil {
			cfg.App.UseLLM = b
		}
	case "app.source_language":
		cfg.App.SourceLanguage = value
	case "app.target_language":
		cfg.App.TargetLanguage = value
	}
}
