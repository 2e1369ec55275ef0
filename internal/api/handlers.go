package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/peeragogy/handbook-ai/internal/orchestrator"
	"github.com/peeragogy/handbook-ai/internal/provider"
	"github.com/peeragogy/handbook-ai/internal/session"
	"github.com/peeragogy/handbook-ai/internal/vector"
)

// maxBodyBytes bounds request bodies; oversized input is a client error.
const maxBodyBytes = 1 << 20

// decodeJSON decodes a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New("request body too large")
		}
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

// aiHandler proxies chat-style payloads straight to one provider.
type aiHandler struct {
	gateway *provider.Gateway
	logger  *slog.Logger
}

type aiRequest struct {
	Messages    []provider.Message `json:"messages"`
	Model       string             `json:"model"`
	Temperature float64            `json:"temperature"`
	MaxTokens   int                `json:"maxTokens"`

	// Flowise-style single-field payloads.
	Question string `json:"question"`
	Query    string `json:"query"`
}

// send handles POST /api/ai/{provider}. The body is the normalized
// chat shape; for Flowise a bare {question} is also accepted. The
// response is the gateway's normalized reply, or {error, details} with
// the upstream status mirrored.
func (h *aiHandler) send(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("provider")

	var req aiRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "", h.logger)
		return
	}

	messages := req.Messages
	if len(messages) == 0 {
		question := req.Question
		if question == "" {
			question = req.Query
		}
		if strings.TrimSpace(question) != "" {
			messages = []provider.Message{{Role: "user", Content: question}}
		}
	}
	if len(messages) == 0 {
		writeError(w, http.StatusBadRequest, "missing messages", "", h.logger)
		return
	}

	modelID := req.Model
	if modelID == "" && providerID == provider.Flowise {
		modelID = "default"
	}

	reply, err := h.gateway.Send(r.Context(), providerID, modelID, provider.Request{
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		if status, message, details, ok := errorStatus(err); ok {
			writeError(w, status, message, details, h.logger)
			return
		}
		h.logger.Error("ai proxy failed", "provider", providerID, "error", err)
		writeInternalError(w, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, reply, h.logger)
}

// vectorHandler serves POST /api/vector/query. Upstream failures are
// absorbed by the client's fallback policy, so a degraded 200 is the
// expected outage behavior.
type vectorHandler struct {
	client *vector.Client
	logger *slog.Logger
}

func (h *vectorHandler) query(w http.ResponseWriter, r *http.Request) {
	var req vector.QueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "", h.logger)
		return
	}
	if len(req.Vector) == 0 {
		writeError(w, http.StatusBadRequest, "missing vector", "", h.logger)
		return
	}

	res, err := h.client.Query(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadGateway, "vector upstream failed", err.Error(), h.logger)
		return
	}
	writeJSON(w, http.StatusOK, res, h.logger)
}

// chatHandler serves the conversational endpoints.
type chatHandler struct {
	orch     *orchestrator.Orchestrator
	sessions *session.Store
	logger   *slog.Logger
}

type chatRequest struct {
	Message   string `json:"message"`
	Query     string `json:"query"`
	SessionID string `json:"sessionId"`
	PersonaID string `json:"personaId"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
}

// send handles POST /api/chat: one question through the full pipeline.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "", h.logger)
		return
	}

	message := req.Message
	if message == "" {
		message = req.Query
	}

	tier := ""
	if p, ok := principalFromContext(r.Context()); ok {
		tier = p.Tier
	}
	remaining := 0
	if d, ok := quotaFromContext(r.Context()); ok {
		remaining = d.Remaining
	}

	res, err := h.orch.Answer(r.Context(), orchestrator.Request{
		SessionID:      req.SessionID,
		Query:          message,
		PersonaID:      req.PersonaID,
		ProviderID:     req.Provider,
		ModelID:        req.Model,
		Tier:           tier,
		QuotaRemaining: remaining,
	})
	if err != nil {
		if status, message, details, ok := errorStatus(err); ok {
			writeError(w, status, message, details, h.logger)
			return
		}
		h.logger.Error("answering failed", "error", err)
		writeInternalError(w, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, res, h.logger)
}

type resetRequest struct {
	SessionID string `json:"sessionId"`
}

// reset handles POST /api/chat/reset. Resetting twice yields the same
// empty state, so replays are harmless.
func (h *chatHandler) reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "", h.logger)
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "missing sessionId", "", h.logger)
		return
	}

	h.orch.Reset(req.SessionID)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "reset",
		"sessionId": req.SessionID,
	}, h.logger)
}

// list handles GET /api/sessions.
func (h *chatHandler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": h.sessions.List(),
	}, h.logger)
}

// loginHandler serves POST /api/auth/login for the demo credential pair.
type loginHandler struct {
	gate   *authGate
	logger *slog.Logger
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *loginHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "", h.logger)
		return
	}

	token, principal, ok := h.gate.Login(req.Username, req.Password)
	if !ok {
		// The attempted username is not logged; it may be a mistyped password.
		h.logger.Warn("demo login rejected", "ip", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "invalid credentials", "", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user": map[string]string{
			"id":   principal.ID,
			"tier": principal.Tier,
		},
	}, h.logger)
}
