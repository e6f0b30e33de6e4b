package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pakkapols/techfinder/internal/application/services"
)

const maxMessageLength = 2000

// ChatHandler handles conversational search requests.
type ChatHandler struct {
	pipeline *services.ChatPipeline
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(pipeline *services.ChatPipeline) *ChatHandler {
	return &ChatHandler{pipeline: pipeline}
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// HandleChat handles POST /api/chat. A missing session id starts a new
// session; the generated id comes back in the diagnostics.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		respondWithError(w, http.StatusBadRequest, "message is required")
		return
	}
	if len(message) > maxMessageLength {
		respondWithError(w, http.StatusBadRequest, "message too long")
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	result := h.pipeline.Submit(r.Context(), message, sessionID)
	respondWithJSON(w, http.StatusOK, result)
}
