package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"quizgen/internal/app"
	"quizgen/internal/domain"
)

const resultsTimeout = 5 * time.Second

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
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
	Text string `json:"text"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type completedPayload struct {
	Result     domain.SessionResult `json:"result"`
	Results    *domain.Results      `json:"results,omitempty"`
	SaveFailed bool                 `json:"saveFailed,omitempty"`
}

// ServeWS upgrades HTTP requests to websockets and drives one quiz session per connection.
// A fresh session needs gameId and userId; sessionId resumes a checkpointed one.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := q.Get("sessionId")
	gameID := q.Get("gameId")
	userID := q.Get("userId")
	if sessionID == "" && (gameID == "" || userID == "") {
		http.Error(w, "missing sessionId, or gameId and userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WARN] ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var session *app.Session
	if sessionID != "" {
		session, err = h.service.ResumeSession(r.Context(), sessionID)
	} else {
		session, err = h.service.StartSession(r.Context(), gameID, userID)
	}
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.ReleaseSession(context.Background(), session)

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("[WARN] ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		completed := false
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					// closed elsewhere, e.g. resumed on another connection
					select {
					case send <- *errorMessage("session closed"):
					case <-closeSignals:
					}
					_ = conn.SetReadDeadline(time.Now())
					return
				}
				msgs := []outboundMessage[any]{{Type: "state", Payload: snap}}
				if snap.Phase == domain.PhaseCompleted && !completed {
					completed = true
					msgs = append(msgs, outboundMessage[any]{Type: "completed", Payload: h.completed(snap)})
				}
				for _, msg := range msgs {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
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
		var reply *outboundMessage[any]
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				reply = errorMessage("invalid answer payload")
				break
			}
			if snap, accepted := session.SubmitAnswer(payload.Text); !accepted {
				reply = errorMessage(fmt.Sprintf("answer not accepted while %s", snap.Phase))
			}
		default:
			reply = errorMessage("unsupported message type")
		}
		if reply != nil {
			select {
			case send <- *reply:
			case <-updatesDone:
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) completed(snap app.Snapshot) completedPayload {
	payload := completedPayload{SaveFailed: snap.SaveFailed}
	if snap.Result != nil {
		payload.Result = *snap.Result
	}
	ctx, cancel := context.WithTimeout(context.Background(), resultsTimeout)
	defer cancel()
	results, err := h.service.Results(ctx, snap.GameID, snap.UserID)
	if err != nil {
		log.Printf("[WARN] load results for session %s: %v", snap.ID, err)
		return payload
	}
	payload.Results = &results
	return payload
}

func errorMessage(msg string) *outboundMessage[any] {
	return &outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}
