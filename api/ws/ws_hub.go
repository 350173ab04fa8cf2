package ws

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/educloud/notes/cache"
	"github.com/educloud/notes/models"
)

type userMessage struct {
	userId  string
	payload []byte
}

// Hub maintains the set of active clients and forwards each user's note
// events to every connection that user has open.
type Hub struct {
	notesCache    cache.NotesCache
	OpenCh        chan *Client
	CloseCh       chan *Client
	EventCh       chan userMessage
	UserDeletedCh chan string
	userToClients map[string]map[*Client]struct{}
}

func NewHub(notesCache cache.NotesCache) *Hub {
	return &Hub{
		notesCache:    notesCache,
		OpenCh:        make(chan *Client, 256),
		CloseCh:       make(chan *Client, 256),
		EventCh:       make(chan userMessage, 1024),
		UserDeletedCh: make(chan string, 64),
		userToClients: make(map[string]map[*Client]struct{}),
	}
}

const maxConnectionsPerUser = 5

func (h *Hub) Run(shutdownCtx context.Context) {
	for {
		select {
		case client := <-h.OpenCh:
			if _, ok := h.userToClients[client.user.Id]; !ok {
				h.userToClients[client.user.Id] = make(map[*Client]struct{})
			}

			if len(h.userToClients[client.user.Id]) >= maxConnectionsPerUser {
				log.Warn().Str("userId", client.user.Id).Int("max", maxConnectionsPerUser).Msg("user reached max connections")
				client.close()
				continue
			}

			h.userToClients[client.user.Id][client] = struct{}{}

		case client := <-h.CloseCh:
			h.remove(client, false)

		case msg := <-h.EventCh:
			for client := range h.userToClients[msg.userId] {
				if !client.send(msg.payload) {
					log.Warn().Str("userId", msg.userId).Msg("dropping slow ws client")
					h.remove(client, true)
				}
			}

		case userId := <-h.UserDeletedCh:
			for client := range h.userToClients[userId] {
				h.remove(client, true)
			}

		case <-shutdownCtx.Done():
			return
		}
	}
}

// remove forgets client, closing it when asked to.
func (h *Hub) remove(client *Client, closeSend bool) {
	clients, ok := h.userToClients[client.user.Id]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	if closeSend {
		client.close()
	}
	if len(clients) == 0 {
		delete(h.userToClients, client.user.Id)
	}
}

// InitSubscriptions starts the pub/sub listeners that feed the hub.
func (h *Hub) InitSubscriptions(shutdownCtx context.Context) error {
	err := h.notesCache.Subscribe(shutdownCtx, cache.NotesChannel("*"), func(message []byte) {
		var event models.NoteEvent
		if err := json.Unmarshal(message, &event); err != nil || event.UserId == "" {
			log.Warn().Err(err).Msg("ignoring malformed note event")
			return
		}
		h.EventCh <- userMessage{userId: event.UserId, payload: message}
	})
	if err != nil {
		log.Error().Err(err).Msg("ws hub failed to subscribe to note events")
		return err
	}

	err = h.notesCache.Subscribe(shutdownCtx, cache.UserDeletedChannel, func(message []byte) {
		var event models.UserDeletedEvent
		if err := json.Unmarshal(message, &event); err == nil {
			h.UserDeletedCh <- event.UserId
		}
	})
	if err != nil {
		log.Error().Err(err).Msg("ws hub failed to subscribe to user-deleted")
		return err
	}

	return nil
}
