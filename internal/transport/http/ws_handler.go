package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"trivia-live-service/internal/app"
	"trivia-live-service/internal/domain"
)

type WSHandler struct {
	service  *app.MatchService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.MatchService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QIndex int   `json:"qIndex"`
	Idx    int   `json:"idx"`
	Ms     int64 `json:"ms"`
}

type hostPayload struct {
	Pin    string                `json:"pin"`
	Action domain.HostActionType `json:"action"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the match
// use cases. A connection with a playerId joins as a participant; without
// one it is a spectator/host console that only watches and, with the pin,
// drives host actions.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	matchID := r.URL.Query().Get("matchId")
	playerID := r.URL.Query().Get("playerId")
	displayName := r.URL.Query().Get("name")
	if matchID == "" {
		http.Error(w, "missing matchId", http.StatusBadRequest)
		return
	}
	if playerID != "" && displayName == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	if playerID != "" {
		if err := h.service.JoinMatch(r.Context(), matchID, playerID, displayName); err != nil {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			return
		}
	}

	updates, cancel, err := h.service.Subscribe(r.Context(), matchID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "match", Payload: newSnapshotView(update)}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			if playerID == "" {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "spectators cannot answer"}}
				continue
			}
			result, err := h.service.SubmitAnswer(r.Context(), app.SubmitAnswerInput{
				MatchID:     matchID,
				PlayerID:    playerID,
				QIndex:      payload.QIndex,
				AnswerIndex: payload.Idx,
				ElapsedMs:   payload.Ms,
			})
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: result}
		case "host":
			var payload hostPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid host payload"}}
				continue
			}
			m, err := h.service.HostAction(r.Context(), matchID, payload.Pin, payload.Action)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "hostResult", Payload: newMatchView(m)}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
