package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/C4rlos-asx/IA-con-recuerdos/internal/app"
	"github.com/C4rlos-asx/IA-con-recuerdos/internal/config"
	"github.com/C4rlos-asx/IA-con-recuerdos/internal/effects"
	"github.com/C4rlos-asx/IA-con-recuerdos/internal/ratelimit"
	"github.com/C4rlos-asx/IA-con-recuerdos/internal/server"
	"github.com/C4rlos-asx/IA-con-recuerdos/internal/store"
	"github.com/C4rlos-asx/IA-con-recuerdos/internal/util"
	"github.com/C4rlos-asx/IA-con-recuerdos/pkg/ai"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := util.InitLogger(cfg.LogLevel)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	st, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}

	limiter, err := ratelimit.NewFixedWindowLimiter(redisClient, cfg.RateLimitPerWindow,
		time.Duration(cfg.RateLimitWindowSecs)*time.Second)
	if err != nil {
		logger.Error("failed to init rate limiter", "err", err)
		os.Exit(1)
	}
	contexts := store.NewRedisContextStore(redisClient, cfg.ContextWindowSize,
		time.Duration(cfg.ContextTTLHours)*time.Hour)

	// A provider with no credential stays nil; dispatching to it fails the
	// request, not the boot.
	var openaiClient, geminiClient ai.Generator
	if cfg.OpenAIAPIKey != "" {
		c, err := ai.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		if err != nil {
			logger.Error("failed to init openai client", "err", err)
			os.Exit(1)
		}
		openaiClient = c
	}
	if cfg.GeminiAPIKey != "" {
		c, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiBaseURL)
		if err != nil {
			logger.Error("failed to init gemini client", "err", err)
			os.Exit(1)
		}
		geminiClient = c
	}

	runner := effects.NewRunner(cfg.EffectWorkers, logger)

	appCore := app.New(app.Config{
		Store:       st,
		Contexts:    contexts,
		Limiter:     limiter,
		OpenAI:      openaiClient,
		Gemini:      geminiClient,
		Runner:      runner,
		Logger:      logger,
		MemoryLimit: cfg.MemoryRetrievalLimit,
	})

	httpServer := server.New(appCore, logger, cfg.AllowedOrigin)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("recuerdos server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}
