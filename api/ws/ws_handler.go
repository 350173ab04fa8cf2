package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/educloud/notes/models"
	"github.com/educloud/notes/service"
)

const subprotocol = "notes-v1"

type Handler struct {
	Service *service.Service
	Hub     *Hub
}

func NewHandler(svc *service.Service, hub *Hub) *Handler {
	return &Handler{
		Service: svc,
		Hub:     hub,
	}
}

func (h *Handler) NewWsUpgrader(requiredOrigin string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == requiredOrigin
		},
		Subprotocols: []string{subprotocol},
	}
}

// ServeWS handles websocket requests from the peer. Browsers cannot set
// headers on a websocket handshake, so the token travels as the second
// entry of Sec-WebSocket-Protocol.
func (h *Handler) ServeWS(wsUpgrader websocket.Upgrader, w http.ResponseWriter, r *http.Request, shutdownCtx context.Context) {
	protocols := r.Header.Get("Sec-WebSocket-Protocol")
	protocolsSplit := strings.Split(protocols, ",")

	if len(protocolsSplit) != 2 || strings.TrimSpace(protocolsSplit[0]) != subprotocol {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	token := strings.TrimSpace(protocolsSplit[1])

	user, authErr := h.Service.AuthenticateToken(r.Context(), token)

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("failed to upgrade ws connection")
		return
	}

	// Must upgrade the connection in order to be able to send custom close message
	if authErr != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Unauthenticated"),
		)
		conn.Close()
		return
	}

	client := NewClient(h.Hub, conn, user, h.HandleWsMessage)

	// Warm the quota counter while the user is active
	if err := h.Service.Cache.SeedUserNoteCount(context.Background(), user.Id, user.NoteCount); err != nil {
		log.Warn().Err(err).Str("userId", user.Id).Msg("failed to seed note count")
	}

	h.Hub.OpenCh <- client

	go client.ReadPump()
	go client.WritePump(shutdownCtx)
}

// Websocket message structs
type message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type exportMessage struct {
	ExportId string `json:"exportId"`
}

type responseMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (h *Handler) HandleWsMessage(client *Client, messageType int, messageBytes []byte) {
	var msg message
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		log.Debug().Err(err).Str("userId", client.user.Id).Msg("invalid ws JSON")
		return
	}

	var resp responseMessage

	switch msg.Type {
	case "list":
		resp = h.handleList(client)

	case "export_status":
		var exportMsg exportMessage
		if err := json.Unmarshal(msg.Data, &exportMsg); err != nil {
			log.Debug().Err(err).Msg("invalid export_status data")
			return
		}
		resp = h.handleExportStatus(client, exportMsg)

	default:
		log.Debug().Str("type", msg.Type).Msg("unknown ws message type")
	}

	if resp.Type != "" {
		respBytes, err := json.Marshal(resp)
		if err != nil {
			log.Error().Err(err).Msg("error marshaling ws response")
			return
		}
		client.send(respBytes)
	}
}

func (h *Handler) handleList(client *Client) responseMessage {
	resp := responseMessage{
		Type: "list_response",
	}

	list, err := h.Service.ListNotes(context.Background(), client.user)
	if err != nil {
		log.Error().Err(err).Str("userId", client.user.Id).Msg("ListNotes failed")
		resp.Data = map[string]any{"success": false, "notes": []models.Note{}}
		return resp
	}
	if list == nil {
		list = []models.Note{}
	}

	resp.Data = map[string]any{"success": true, "notes": list}
	return resp
}

func (h *Handler) handleExportStatus(client *Client, exportMsg exportMessage) responseMessage {
	resp := responseMessage{
		Type: "export_status_response",
	}

	job, err := h.Service.GetExport(context.Background(), client.user, exportMsg.ExportId)
	if err != nil {
		resp.Data = map[string]any{"success": false, "exportId": exportMsg.ExportId}
		return resp
	}

	resp.Data = map[string]any{"success": true, "exportId": job.Id, "status": job.Status}
	return resp
}
