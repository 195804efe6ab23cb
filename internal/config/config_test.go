package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("GEMINI_API_KEY", "test-key")
}

func TestNewFromEnvDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv failed: %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("Expected default HTTP addr :8080, got %s", cfg.HTTPAddr)
	}
	if cfg.TextProvider != "gemini" {
		t.Errorf("Expected default provider gemini, got %s", cfg.TextProvider)
	}
	if cfg.GenerationTimeout != 2*time.Minute {
		t.Errorf("Expected default generation timeout 2m, got %s", cfg.GenerationTimeout)
	}
	if cfg.SuggestionBacklog != 4 {
		t.Errorf("Expected default backlog 4, got %d", cfg.SuggestionBacklog)
	}
}

func TestNewFromEnvMissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("GEMINI_API_KEY", "test-key")

	if _, err := NewFromEnv(); err == nil {
		t.Fatal("Expected error when JWT_SECRET is not set")
	}
}

func TestNewFromEnvMissingProviders(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")

	if _, err := NewFromEnv(); err == nil {
		t.Fatal("Expected error when no LLM provider key is set")
	}
}

func TestNewFromEnvGroqFallback(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "groq-key")

	cfg, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv failed: %v", err)
	}
	if cfg.TextProvider != "groq" {
		t.Errorf("Expected provider groq, got %s", cfg.TextProvider)
	}
}

func TestNewFromEnvInvalidTimeout(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GENERATION_TIMEOUT_SECONDS", "nope")

	if _, err := NewFromEnv(); err == nil {
		t.Fatal("Expected error for invalid GENERATION_TIMEOUT_SECONDS")
	}
}
