package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the configuration for the application.
type Config struct {
	HTTPAddr     string
	DatabasePath string

	// Identity
	JWTSecret string

	// LLM providers
	GeminiAPIKey string
	GroqAPIKey   string // optional, alternative text generator
	TextProvider string // "gemini" (default) or "groq"

	// Suggestion generation
	GenerationTimeout time.Duration
	SuggestionBacklog int // extra candidates requested beyond the target count

	// Telegram notifier (optional)
	TelegramBotToken string
	TelegramChatID   int64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "data/planner.db"
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}

	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	groqAPIKey := os.Getenv("GROQ_API_KEY")
	if geminiAPIKey == "" && groqAPIKey == "" {
		return nil, fmt.Errorf("neither GEMINI_API_KEY nor GROQ_API_KEY environment variable is set")
	}

	provider := os.Getenv("TEXT_PROVIDER")
	if provider == "" {
		if geminiAPIKey != "" {
			provider = "gemini"
		} else {
			provider = "groq"
		}
	}
	if provider != "gemini" && provider != "groq" {
		return nil, fmt.Errorf("invalid TEXT_PROVIDER value %q", provider)
	}

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	genTimeout := 2 * time.Minute
	if v := os.Getenv("GENERATION_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid GENERATION_TIMEOUT_SECONDS value %q", v)
		}
		genTimeout = time.Duration(secs) * time.Second
	}

	backlog := 4
	if v := os.Getenv("SUGGESTION_BACKLOG"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid SUGGESTION_BACKLOG value %q", v)
		}
		backlog = n
	}

	var telegramChatID int64
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		fmt.Sscanf(v, "%d", &telegramChatID)
	}

	return &Config{
		HTTPAddr:          httpAddr,
		DatabasePath:      dbPath,
		JWTSecret:         jwtSecret,
		GeminiAPIKey:      geminiAPIKey,
		GroqAPIKey:        groqAPIKey,
		TextProvider:      provider,
		GenerationTimeout: genTimeout,
		SuggestionBacklog: backlog,
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:    telegramChatID,
	}, nil
}
