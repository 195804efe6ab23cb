package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"household-planner/internal/batch"
	"household-planner/internal/config"
	"household-planner/internal/database"
	"household-planner/internal/llm"
	"household-planner/internal/meal"
	"household-planner/internal/metrics"
	"household-planner/internal/notify"
	"household-planner/internal/recipe"
	"household-planner/internal/server"
	"household-planner/internal/shopping"
	"household-planner/internal/suggestion"
	"household-planner/internal/wizard"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// LLM clients. Gemini always provides embeddings; text generation can be
	// routed to Groq instead.
	var textGen llm.TextGenerator
	var embedGen llm.EmbeddingGenerator
	var closer llm.Closer

	if cfg.GeminiAPIKey != "" {
		geminiClient, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to create Gemini client: %v", err)
		}
		closer = geminiClient
		textGen = geminiClient

		cacheFile := filepath.Join(filepath.Dir(cfg.DatabasePath), "embeddings_cache.json")
		cached, err := llm.NewCachedEmbeddingGenerator(geminiClient, cacheFile)
		if err != nil {
			log.Fatalf("Failed to create embedding cache: %v", err)
		}
		embedGen = cached
	}
	if cfg.TextProvider == "groq" {
		textGen = llm.NewGroqClient(cfg)
	}
	if closer != nil {
		defer closer.Close()
	}

	// Repositories.
	recipeRepo := recipe.NewRepository(db.SQL)
	vectorRepo := llm.NewVectorRepository(db.SQL)
	batchRepo := batch.NewRepository(db.SQL)
	mealRepo := meal.NewRepository(db.SQL)
	poolRepo := suggestion.NewRepository(db.SQL)
	sessionRepo := wizard.NewRepository(db.SQL)
	listRepo := shopping.NewRepository(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)

	// Notifications: always the WebSocket hub, plus Telegram when configured.
	hub := notify.NewHub()
	var telegramNotifier notify.Notifier
	if cfg.TelegramBotToken != "" {
		tn, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatalf("Failed to initialize Telegram notifier: %v", err)
		}
		telegramNotifier = tn
	}
	notifier := notify.NewFanout(hub, telegramNotifier)

	// Services.
	generator := suggestion.NewLLMGenerator(textGen, embedGen, vectorRepo, recipeRepo)
	suggestions := suggestion.NewService(poolRepo, generator, notifier, metricsStore,
		cfg.GenerationTimeout, cfg.SuggestionBacklog)
	controller := wizard.NewController(db.SQL, sessionRepo, batchRepo, mealRepo,
		poolRepo, suggestions, recipeRepo, listRepo, notifier)

	var importer *recipe.Importer
	if embedGen != nil {
		importer = recipe.NewImporter(textGen, embedGen, recipeRepo, vectorRepo)
	}

	srv := server.New(cfg.JWTSecret, controller, recipeRepo, importer, listRepo,
		batchRepo, mealRepo, metricsStore, hub, filepath.Dir(cfg.DatabasePath))

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Handler(),
	}

	go func() {
		log.Printf("Planner server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
