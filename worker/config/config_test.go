package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-main")

	cfg := Load()

	if cfg.Transport != TransportKafka || cfg.StoreDriver != "sqlite" {
		t.Errorf("transport/store = %s/%s", cfg.Transport, cfg.StoreDriver)
	}
	if cfg.ChunkSeconds != 240 || cfg.STTConcurrency != 1 || cfg.WorkerCount != 5 {
		t.Errorf("chunk/concurrency/workers = %d/%d/%d", cfg.ChunkSeconds, cfg.STTConcurrency, cfg.WorkerCount)
	}
	if cfg.SourceLang != "ro" || cfg.TargetLang != "en" {
		t.Errorf("languages = %s/%s", cfg.SourceLang, cfg.TargetLang)
	}
	if cfg.OpenAISTTKey != "sk-main" {
		t.Errorf("STT key should fall back to OPENAI_API_KEY, got %q", cfg.OpenAISTTKey)
	}
	if cfg.StaleAfter != 0 || cfg.TaskTimeout != 30*time.Minute {
		t.Errorf("stale/task timeout = %v/%v", cfg.StaleAfter, cfg.TaskTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CHUNK_SECONDS", "120")
	t.Setenv("STALE_AFTER", "45m")
	t.Setenv("SOURCE_LANG", "EN")
	t.Setenv("OPENAI_API_KEY_FOR_STT", "sk-stt")
	t.Setenv("WORKER_COUNT", "not-a-number")

	cfg := Load()

	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("brokers = %v", cfg.KafkaBrokers)
	}
	if cfg.ChunkSeconds != 120 || cfg.StaleAfter != 45*time.Minute {
		t.Errorf("chunk/stale = %d/%v", cfg.ChunkSeconds, cfg.StaleAfter)
	}
	if cfg.SourceLang != "en" || cfg.OpenAISTTKey != "sk-stt" {
		t.Errorf("source/stt key = %s/%s", cfg.SourceLang, cfg.OpenAISTTKey)
	}
	if cfg.WorkerCount != 5 {
		t.Errorf("invalid WORKER_COUNT should keep default, got %d", cfg.WorkerCount)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown transport", func(c *Config) { c.Transport = "mqtt" }, "TRANSPORT"},
		{"unknown store", func(c *Config) { c.StoreDriver = "mysql" }, "STORE_DRIVER"},
		{"zero chunk", func(c *Config) { c.ChunkSeconds = 0 }, "CHUNK_SECONDS"},
		{"ark for stt", func(c *Config) { c.STTBackend = "ark" }, "STT_BACKEND"},
		{"gemini without key", func(c *Config) { c.TranslateBackend = "gemini" }, "GEMINI_API_KEY"},
		{"ark without model", func(c *Config) { c.TranslateBackend = "ark"; c.ArkKey = "k" }, "ARK_MODEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", "sk-main")
			cfg := Load()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestConfig_Providers(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-main")
	t.Setenv("TRANSLATE_BACKEND", "ark")
	t.Setenv("ARK_API_KEY", "ak")
	t.Setenv("ARK_MODEL", "ep-1")
	t.Setenv("PROVIDER_TIMEOUT", "15s")

	s := Load().Providers()

	if s.TranslateBackend != "ark" || s.ArkKey != "ak" || s.ArkModel != "ep-1" {
		t.Errorf("ark settings = %+v", s)
	}
	if s.Timeout != 15*time.Second {
		t.Errorf("timeout = %v, want 15s", s.Timeout)
	}
	if s.Breaker.Threshold <= 0 {
		t.Errorf("breaker threshold = %d, want default", s.Breaker.Threshold)
	}
}
