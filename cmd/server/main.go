package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"carebook-chatbot/internal/core"
	"carebook-chatbot/internal/db"
	httpserver "carebook-chatbot/internal/http"
	"carebook-chatbot/internal/llm"
	"carebook-chatbot/internal/suggest"
	"carebook-chatbot/pkg/logging"
)

func main() {
	// A .env file is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := logging.New(os.Getenv("LOG_LEVEL"))

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL must be set")
	}
	cacheSize := suggest.DefaultCacheSize
	if v := os.Getenv("SUGGEST_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cacheSize = n
		}
	}

	// Open database connection
	dbConn, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	// Verify connection
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(pingCtx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}
	if err := db.Migrate(context.Background(), dbConn); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	repo := db.NewRepository(dbConn)

	// LLM client (uses env: OPENAI_API_KEY, OPENAI_MODEL_CHAT)
	llmClient := llm.NewOpenAIClient()

	engine := core.NewEngine(core.Dependencies{
		Store:         repo,
		Directory:     repo,
		Availability:  repo,
		Prescriptions: repo,
		Bookings:      repo,
		Risk:          repo,
		Suggester:     suggest.NewSuggester(llmClient, cacheSize, logger),
		Chips:         suggest.NewChipGenerator(llmClient, logger),
		Digester:      core.NewPrescriptionDigester(llmClient),
		Logger:        logger,
	}, core.WithDefaultLanguage(os.Getenv("UI_LANGUAGE")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Booking notifications invalidate memoized upcoming-booking flags.
	notifier, err := db.NewNotifier(dbURL, logger)
	if err != nil {
		logger.Warn("booking listener unavailable", "error", err)
	} else {
		defer notifier.Close()
		go func() {
			for patientID := range notifier.Run(ctx) {
				engine.InvalidateBookingFlag(patientID)
			}
		}()
	}

	srv := httpserver.NewServer(engine, logger)
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	httpSrv := &http.Server{
		Addr:    ":" + port,
		Handler: srv.Router(),
	}

	go func() {
		logger.Info("listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
