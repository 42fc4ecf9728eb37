package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"sitegen/internal/api"
	"sitegen/internal/auth"
	"sitegen/internal/config"
	"sitegen/internal/database"
	"sitegen/internal/generation"
	"sitegen/internal/llm"
	"sitegen/internal/storage"
	"sitegen/internal/tasks"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	logger.Info("api bootstrapping",
		slog.String("db_host", cfg.Database.Host),
		slog.Int("db_port", cfg.Database.Port),
		slog.String("db_name", cfg.Database.Name),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("enhance_provider", cfg.AI.EnhanceProvider),
	)

	ctx := context.Background()

	db, err := database.Shared(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.RunMigrations(ctx, db); err != nil {
		log.Fatalf("run migrations: %v", err)
	}
	logger.Info("database ready")
	store := database.NewStore(db)

	redisAddr := cfg.Redis.Addr()
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	verifier, userDeleter, err := buildAuth(cfg.Auth)
	if err != nil {
		log.Fatalf("init auth: %v", err)
	}

	enhancer, err := buildEnhancer(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("init enhancer: %v", err)
	}
	generator := llm.NewClient(llm.Config{
		APIKey:    cfg.AI.DeepSeekAPIKey,
		BaseURL:   cfg.AI.DeepSeekBaseURL,
		Model:     cfg.AI.DeepSeekModel,
		MaxTokens: cfg.AI.GenerateMaxTokens,
		Timeout:   cfg.AI.RequestTimeout,
	})

	pipeline := generation.NewPipeline(store, enhancer, generator,
		generation.WithThumbnailQueue(tasks.NewEnqueuer(asynqClient)),
		generation.WithLogger(logger),
	)

	deps := api.Deps{
		Store:          store,
		Pipeline:       pipeline,
		Verifier:       verifier,
		Redis:          redisClient,
		Objects:        storageClient,
		Logger:         logger,
		AllowedOrigins: cfg.API.Origins(),
		DefaultCredits: cfg.API.DefaultCredits,
		RateLimit:      cfg.API.GenerateRateLimitPerHour,
	}
	if userDeleter != nil {
		deps.UserDeleter = userDeleter
	}
	if cfg.Clamd.Address != "" {
		deps.Scanner = api.NewClamdScanner(cfg.Clamd.Address)
		logger.Info("publish scanning enabled", slog.String("clamd", cfg.Clamd.Address))
	}

	router := api.NewRouter(cfg, logger)
	api.RegisterRoutes(router, deps)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("addr", address))
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}

// buildAuth 按模式选择令牌校验方式；配置了 service key 时同时提供后台删号能力。
func buildAuth(cfg config.AuthConfig) (auth.Verifier, *auth.GoTrueVerifier, error) {
	var admin *auth.GoTrueVerifier
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceKey != "" {
		admin = auth.NewGoTrueVerifier(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	}

	switch cfg.Mode {
	case "gotrue":
		return admin, admin, nil
	default:
		verifier, err := auth.NewJWTVerifier(cfg.JWTSecret)
		if err != nil {
			return nil, nil, err
		}
		return verifier, admin, nil
	}
}

func buildEnhancer(ctx context.Context, cfg config.AIConfig) (generation.Completer, error) {
	if cfg.EnhanceProvider == "gemini" {
		return llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.EnhanceMaxTokens)
	}
	return llm.NewClient(llm.Config{
		APIKey:    cfg.GroqAPIKey,
		BaseURL:   cfg.GroqBaseURL,
		Model:     cfg.GroqModel,
		MaxTokens: cfg.EnhanceMaxTokens,
		Timeout:   cfg.RequestTimeout,
	}), nil
}
