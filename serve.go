package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/educloud/notes/api"
	"github.com/educloud/notes/cache/redis"
	"github.com/educloud/notes/config"
	"github.com/educloud/notes/logger"
	"github.com/educloud/notes/mq/sqsmq"
	"github.com/educloud/notes/store/dynamo"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the notes API server",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configPath)
		if err != nil {
			fatal("Failed to load config", err)
		}
		level := cfg.LogLevel
		if logLevel != "" {
			level = logLevel
		}
		if _, err := logger.Setup(level, cfg.DevMode, nil); err != nil {
			log.Warn().Str("level", level).Msg("unknown log level, using info")
		}

		serve(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cfg config.Config) {
	ctx := context.Background()

	noteStore, err := dynamo.NewDynamoNoteStore(ctx, cfg.DevMode, cfg.DynamoDBEndpoint, cfg.DynamoDBTable)
	if err != nil {
		fatal("Failed to create dynamodb store", err)
	}

	jobQueue, err := sqsmq.NewSQSJobQueue(ctx, cfg.DevMode, cfg.SQSEndpoint, cfg.JobQueue)
	if err != nil {
		fatal("Failed to create SQS job queue", err)
	}

	notesCache, err := redis.NewRedisNotesCache(ctx, cfg.DevMode, cfg.RedisEndpoint)
	if err != nil {
		fatal("Failed to create redis cache", err)
	}

	oauthConfigs := make(map[string]*oauth2.Config)
	for provider, client := range cfg.OAuthProviders() {
		oauthConfigs[provider] = &oauth2.Config{
			ClientID:     client.ClientID,
			ClientSecret: client.ClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
		}
	}

	jwtSecret, err := cfg.Secret()
	if err != nil {
		fatal("Failed to read jwt secret", err)
	}

	shutdownCtx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	notesAPI, err := api.NewNotesAPI(noteStore, jobQueue, notesCache, oauthConfigs, jwtSecret, cfg.PublicURL, shutdownCtx)
	if err != nil {
		fatal("Failed to create notes api", err)
	}

	mux := http.NewServeMux()
	notesAPI.RegisterRoutes(mux, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.WithCORS(mux, cfg.AllowedOrigin),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("Server failed", err)
		}
	}()

	<-shutdownCtx.Done()
	log.Info().Msg("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
