package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"logi-match/internal/broadcast"
	"logi-match/internal/config"
	"logi-match/internal/db"
	"logi-match/internal/domain"
	apihttp "logi-match/internal/http"
	"logi-match/internal/llm"
	"logi-match/internal/repository"
	"logi-match/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	var (
		store    *service.MessageStore
		profiles repository.ProfileRepository
	)
	if cfg.UsesPostgres() {
		pool, err := db.NewPool(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		store = service.NewPgMessageStore(logger, pool)
		profiles = repository.NewPgProfileRepository(pool)
	} else {
		logger.Warn("using in-memory storage; messages are lost on restart")
		messages := repository.NewMemoryMessageRepository()
		chain := []repository.MessageStrategy{messages}
		store = service.NewMessageStore(logger, chain, chain)
		profiles = repository.NewMemoryProfileRepository(parseProfileSeeds(cfg.MemoryProfiles)...)
	}

	var (
		redisClient *redis.Client
		limiter     service.SendRateLimiter
		subscriber  apihttp.EventSubscriber
	)
	window := time.Duration(cfg.SendRateWindowSecs) * time.Second
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
			redisClient = nil
		} else {
			limiter = service.NewRedisSendRateLimiter(redisClient, window, cfg.SendRateMax)
		}
		cancel()
	}
	if limiter == nil {
		limiter = service.NewSendRateLimiter(window, cfg.SendRateMax)
	}

	broadcaster := broadcast.NewNoop()
	switch strings.ToLower(strings.TrimSpace(cfg.BroadcastProvider)) {
	case "pusher":
		pb, err := broadcast.NewPusherBroadcaster(cfg.PusherAppID, cfg.PusherKey, cfg.PusherSecret, cfg.PusherCluster)
		if err != nil {
			logger.Warn("pusher not configured, broadcasts disabled", zap.Error(err))
		} else {
			broadcaster = pb
		}
	case "redis":
		if redisClient == nil {
			logger.Warn("redis unavailable, broadcasts disabled")
		} else {
			rb := broadcast.NewRedisBroadcaster(redisClient, logger)
			broadcaster = rb
			subscriber = rb
		}
	default:
		logger.Info("broadcasts disabled", zap.String("provider", cfg.BroadcastProvider))
	}

	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}
	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, time.Hour)

	chatSvc := service.NewChatService(logger, store, profiles, broadcaster, limiter, cfg.BroadcastEvent)
	if redisClient != nil {
		chatSvc.WithGreetingGuard(service.NewRedisGreetingGuard(redisClient))
	}

	var askSvc *service.AskService
	llmClient, err := llm.NewClient(ctx, llm.ProviderConfig{
		Provider:    cfg.LLMProvider,
		APIKey:      cfg.LLMAPIKey,
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.LLMModel,
		GeminiKey:   cfg.GeminiAPIKey,
		GeminiModel: cfg.GeminiModel,
	}, logger)
	if err != nil {
		logger.Warn("llm not configured, ai answers disabled", zap.Error(err))
		askSvc = service.NewAskService(logger, nil)
	} else {
		askSvc = service.NewAskService(logger, llmClient)
	}

	router := apihttp.NewRouter(logger, apihttp.RouterDeps{
		JWT:            jwtSvc,
		Chat:           apihttp.NewChatHandler(logger, chatSvc, subscriber, cfg.HistoryDefaultLimit),
		Profiles:       apihttp.NewProfileHandler(logger, chatSvc),
		AI:             apihttp.NewAIHandler(logger, askSvc),
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("storage", cfg.StorageDriver),
		zap.String("broadcast", broadcaster.Provider()),
	)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}

// parseProfileSeeds lee entradas "userID:nombre:rol" para el driver en memoria.
func parseProfileSeeds(entries []string) []domain.Profile {
	out := make([]domain.Profile, 0, len(entries))
	for _, entry := range entries {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 3)
		if parts[0] == "" {
			continue
		}
		p := domain.Profile{ID: parts[0], UserID: parts[0], Name: parts[0], CreatedAt: time.Now().UTC()}
		if len(parts) > 1 && parts[1] != "" {
			p.Name = parts[1]
		}
		if len(parts) > 2 {
			p.Role = parts[2]
		}
		out = append(out, p)
	}
	return out
}
