package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/jong-choi/langflow/core/chatflow"
	"github.com/jong-choi/langflow/core/handlers"
	"github.com/jong-choi/langflow/core/session"
	"github.com/jong-choi/langflow/internal/config"
	"github.com/jong-choi/langflow/internal/logging"
	"github.com/jong-choi/langflow/internal/server"
	"github.com/jong-choi/langflow/providers/ai/openai"
	"github.com/jong-choi/langflow/providers/observability/slogobs"
	"github.com/jong-choi/langflow/providers/search/duckduckgo"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	// Local overrides live in .env during development; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		os.Stderr.WriteString("logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	observer := slogobs.New(nil)

	chatProvider := openai.New(cfg.Provider.APIKey, cfg.Provider.BaseURL, cfg.Provider.Model)
	searchProvider := duckduckgo.New()

	checkpoints := session.CheckpointStore(session.NewMemoryStore())
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		checkpoints = session.NewRedisStore(client)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("using redis checkpoint store")
	}

	sessions := session.NewRegistry(cfg.Session.IdleTTL, checkpoints, session.WithObservability(observer))

	flow := chatflow.New(chatProvider, searchProvider, chatflow.Options{
		Model:         cfg.Provider.Model,
		MaxSteps:      cfg.Session.MaxSteps,
		Observability: observer,
	})

	registry := handlers.NewRegistry(chatProvider, searchProvider, cfg.Provider.Model)

	api := server.New(sessions, flow, registry,
		server.WithObservability(observer),
		server.WithLogger(logger))

	logger.Info().Str("addr", cfg.Server.Addr).Msg("listening")
	if err := http.ListenAndServe(cfg.Server.Addr, api.Handler()); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
