package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/repoflow-ai/repoflow/internal/rag"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type    string `json:"type"` // "ask"
	Content string `json:"content"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type    string `json:"type"` // "answer" or "error"
	Content string `json:"content"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendChatError(conn, "invalid message format")
			continue
		}

		if req.Type != "" && req.Type != "ask" {
			s.sendChatError(conn, "unknown message type: "+req.Type)
			continue
		}

		answer, err := s.engine.Answer(r.Context(), req.Content)
		if err != nil {
			switch {
			case errors.Is(err, rag.ErrEmptyQuestion):
				s.sendChatError(conn, "content is required")
			case errors.Is(err, rag.ErrNotReady):
				s.sendChatError(conn, "no index is ready, select a workspace first")
			default:
				s.sendChatError(conn, "question failed: "+err.Error())
			}
			continue
		}

		s.sendChat(conn, chatResponse{Type: "answer", Content: answer})
	}
}

func (s *Server) sendChat(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("server: websocket write: %v", err)
	}
}

func (s *Server) sendChatError(conn *websocket.Conn, message string) {
	s.sendChat(conn, chatResponse{Type: "error", Content: message})
}
