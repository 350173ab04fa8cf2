package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/educloud/notes/api/rest"
	"github.com/educloud/notes/api/ws"
	"github.com/educloud/notes/cache"
	"github.com/educloud/notes/mq"
	"github.com/educloud/notes/service"
	"github.com/educloud/notes/store"
	"github.com/educloud/notes/worker"
)

const noteCountFlushInterval = time.Minute

type NotesAPI struct {
	restHandler *rest.Handler
	wsHandler   *ws.Handler
	shutdownCtx context.Context
}

// NewNotesAPI starts the background workers and the websocket hub. They
// stop when shutdownCtx is done.
func NewNotesAPI(
	noteStore store.NoteStore,
	jobQueue mq.MessageQueue,
	notesCache cache.NotesCache,
	oauthConfigs map[string]*oauth2.Config,
	jwtSecret []byte,
	publicURL string,
	shutdownCtx context.Context,
) (*NotesAPI, error) {
	wsHub := ws.NewHub(notesCache)
	err := wsHub.InitSubscriptions(shutdownCtx)
	if err != nil {
		log.Error().Err(err).Msg("failed to start ws hub subscriptions")
		return &NotesAPI{}, err
	}
	go wsHub.Run(shutdownCtx)

	noteCountBatcher := worker.NewNoteCountBatcher(noteStore, noteCountFlushInterval)
	go noteCountBatcher.Run(shutdownCtx)

	mqConsumer := worker.NewMQConsumer(jobQueue, noteStore, notesCache, worker.TextRenderer{})
	go mqConsumer.Run(shutdownCtx)

	svc, err := service.NewService(
		noteStore,
		notesCache,
		jobQueue,
		noteCountBatcher,
		oauthConfigs,
		jwtSecret,
		publicURL,
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create service")
		return &NotesAPI{}, err
	}

	return &NotesAPI{
		restHandler: rest.NewHandler(svc),
		wsHandler:   ws.NewHandler(svc, wsHub),
		shutdownCtx: shutdownCtx,
	}, nil
}

func (notesAPI *NotesAPI) RegisterRoutes(mux *http.ServeMux, requiredOrigin string) {
	// Health check endpoint (no auth required)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	notesAPI.restHandler.RegisterRoutes(mux)

	wsUpgrader := notesAPI.wsHandler.NewWsUpgrader(requiredOrigin)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		notesAPI.wsHandler.ServeWS(wsUpgrader, w, r, notesAPI.shutdownCtx)
	})
}

// WithCORS lets the browser app on allowedOrigin call the API.
func WithCORS(next http.Handler, allowedOrigin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && origin == allowedOrigin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
