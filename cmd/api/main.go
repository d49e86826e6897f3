package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/dealer-chat/backend/internal/config"
	"github.com/zhouzirui/dealer-chat/backend/internal/handler"
	"github.com/zhouzirui/dealer-chat/backend/internal/handler/assets"
	"github.com/zhouzirui/dealer-chat/backend/internal/loader"
	"github.com/zhouzirui/dealer-chat/backend/internal/logging"
	"github.com/zhouzirui/dealer-chat/backend/internal/model/persona"
	"github.com/zhouzirui/dealer-chat/backend/internal/service/ai"
	"github.com/zhouzirui/dealer-chat/backend/internal/service/relay"
	"github.com/zhouzirui/dealer-chat/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	if envErr != nil {
		log.Debug().Err(envErr).Msg("no .env file, using process environment only")
	}

	if err := validateStartup(cfg); err != nil {
		log.Fatal().Err(err).Str("provider", cfg.AI.Provider).Msg("refusing to start")
	}

	catalogue, err := persona.LoadFile(cfg.PersonaFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load personas")
	}
	personaStore := persona.NewMemoryStore(catalogue)

	chatStore, err := store.Open(cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open conversation store")
	}
	defer func() {
		if err := chatStore.Close(); err != nil {
			log.Warn().Err(err).Msg("close conversation store")
		}
	}()

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create chat model")
	}
	aiService, err := ai.NewService(ctx, chatModel, ai.Options{
		Temperature: float32(cfg.AI.Temperature),
		MaxTokens:   cfg.AI.MaxTokens,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize AI service")
	}
	log.Info().
		Str("provider", cfg.AI.Provider).
		Str("model", cfg.AI.Model).
		Str("store", cfg.Store.Driver).
		Strs("allowed_domains", cfg.Server.AllowedDomains).
		Msg("services initialized")

	relayService := relay.NewService(chatStore, personaStore, aiService, relay.NewAllowList(cfg.Server.AllowedDomains))

	assetHandler, err := assets.New(loader.ScriptOptions{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to render loader script")
	}

	router := handler.NewRouter(personaStore, relayService, assetHandler, cfg.Server.CORSOrigins)

	startServer(ctx, cfg.Server, router)
}

// validateStartup rejects configurations the relay cannot serve with.
func validateStartup(cfg *config.Config) error {
	if cfg.AI.Enabled() {
		return nil
	}
	switch cfg.AI.Provider {
	case config.ProviderArk:
		return errors.New("ark credentials are not configured, set ARK_API_KEY or ARK_ACCESS_KEY and ARK_SECRET_KEY")
	default:
		return errors.New("completion provider credentials are not configured, set TOGETHER_API_KEY")
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("dealer chat backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Error().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "listen")
	}
}
