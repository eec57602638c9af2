package conversation

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tecmax-dev/sisvida-sub005/pkg/logging"
)

// Handler wires HTTP requests to the assistant agent.
type Handler struct {
	agent  *Agent
	logger *logging.Logger
}

// NewHandler creates an assistant handler.
func NewHandler(agent *Agent, logger *logging.Logger) *Handler {
	if agent == nil {
		panic("conversation: agent cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		agent:  agent,
		logger: logger,
	}
}

// Message handles POST /assistant/message.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode assistant request", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		h.writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.ClinicID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "clinic_id is required")
		return
	}

	resp, err := h.agent.Process(r.Context(), req)
	if err != nil {
		h.logger.Error("failed to process assistant message", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// writeError keeps failures in the same JSON shape callers parse for
// successful turns, with the error field set.
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
