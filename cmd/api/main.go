package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tecmax-dev/sisvida-sub005/internal/api/router"
	"github.com/tecmax-dev/sisvida-sub005/internal/appointments"
	appconfig "github.com/tecmax-dev/sisvida-sub005/internal/config"
	"github.com/tecmax-dev/sisvida-sub005/internal/conversation"
	"github.com/tecmax-dev/sisvida-sub005/internal/patients"
	"github.com/tecmax-dev/sisvida-sub005/internal/professionals"
	"github.com/tecmax-dev/sisvida-sub005/internal/schedule"
	"github.com/tecmax-dev/sisvida-sub005/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting sisvida API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to reach database", "error", err)
		os.Exit(1)
	}

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to reach redis", "error", err)
		os.Exit(1)
	}

	// Domain wiring.
	professionalsRepo := professionals.NewRepository(pool)
	patientsRepo := patients.NewRepository(pool)
	appointmentsRepo := appointments.NewRepository(pool)
	calc := schedule.NewCalculator(cfg.AvailabilityHorizonDays, cfg.MaxOpenDates, cfg.MaxTimesPerDay)
	bookingService := appointments.NewService(appointmentsRepo, professionalsRepo, calc, logger)

	// Assistant wiring: primary provider plus optional fallback on quota
	// exhaustion, both speaking the OpenAI chat-completion protocol.
	metrics := conversation.NewMetrics(prometheus.DefaultRegisterer)
	providers := []conversation.Provider{{
		Name:        "primary",
		Client:      conversation.NewOpenAIClient(cfg.LLMAPIKey, cfg.LLMBaseURL),
		FallThrough: conversation.QuotaExhausted,
	}}
	models := []string{cfg.LLMModel}
	if cfg.FallbackLLMAPIKey != "" {
		providers = append(providers, conversation.Provider{
			Name:   "fallback",
			Client: conversation.NewOpenAIClient(cfg.FallbackLLMAPIKey, cfg.FallbackLLMBaseURL),
		})
		models = append(models, cfg.FallbackLLMModel)
	}
	chatClient := conversation.NewFailoverClient(providers, models, logger, metrics)

	historyStore := conversation.NewHistoryStore(redisClient, cfg.TranscriptTTL)
	agent := conversation.NewAgent(chatClient, bookingService, patientsRepo, historyStore, conversation.AgentOptions{
		Model:         cfg.LLMModel,
		MaxToolRounds: cfg.MaxToolRounds,
		LLMTimeout:    cfg.LLMTimeout,
	}, logger, metrics)

	r := router.New(&router.Config{
		Logger:              logger,
		AssistantHandler:    conversation.NewHandler(agent, logger),
		AvailabilityHandler: appointments.NewHandler(bookingService, logger),
		MetricsHandler:      promhttp.Handler(),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		AssistantRateLimit:  float64(cfg.AssistantRateLimit),
		AssistantBurst:      cfg.AssistantBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
