package service

import (
	"strings"

	"golang.org/x/oauth2"

	"github.com/educloud/notes/cache"
	"github.com/educloud/notes/mq"
	"github.com/educloud/notes/store"
	"github.com/educloud/notes/worker"
)

type Service struct {
	Store            store.NoteStore
	Cache            cache.NotesCache
	MQ               mq.MessageQueue
	NoteCountBatcher *worker.NoteCountBatcher
	OAuthConfigs     map[string]*oauth2.Config
	OAuthAPIs        map[string]OAuthAPI
	JWTSecret        []byte
	PublicURL        string
}

func NewService(
	store store.NoteStore,
	cache cache.NotesCache,
	mq mq.MessageQueue,
	noteCountBatcher *worker.NoteCountBatcher,
	oauthConfigs map[string]*oauth2.Config,
	jwtSecret []byte,
	publicURL string,
) (*Service, error) {
	oauthConfigs, err := addOauthEndpointsAndScopes(oauthConfigs)
	if err != nil {
		return nil, err
	}

	apis := make(map[string]OAuthAPI, len(defaultOAuthAPIs))
	for provider, api := range defaultOAuthAPIs {
		apis[provider] = api
	}

	return &Service{
		Store:            store,
		Cache:            cache,
		MQ:               mq,
		NoteCountBatcher: noteCountBatcher,
		OAuthConfigs:     oauthConfigs,
		OAuthAPIs:        apis,
		JWTSecret:        jwtSecret,
		PublicURL:        strings.TrimRight(publicURL, "/"),
	}, nil
}
