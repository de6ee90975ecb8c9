package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/pubsub/core/broker"
	"github.com/dmitrymomot/pubsub/core/logger"
)

// maxTopicNameLength bounds accepted topic names.
const maxTopicNameLength = 256

// Handler serves the management API.
type Handler struct {
	broker *broker.Broker
	logger *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger configures structured logging for the management API.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.logger = log
		}
	}
}

// New creates a management API handler for the given broker.
func New(b *broker.Broker, opts ...Option) *Handler {
	h := &Handler{
		broker: b,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Register mounts every management route on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /topics", h.createTopic)
	mux.HandleFunc("DELETE /topics/{name}", h.deleteTopic)
	mux.HandleFunc("GET /topics", h.listTopics)
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /stats", h.stats)
}

func (h *Handler) createTopic(w http.ResponseWriter, r *http.Request) {
	var req CreateTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "topic name is required")
		return
	}
	if len(req.Name) > maxTopicNameLength {
		writeError(w, http.StatusBadRequest, "bad_request",
			fmt.Sprintf("topic name exceeds %d characters", maxTopicNameLength))
		return
	}

	err := h.broker.CreateTopic(req.Name)
	switch {
	case errors.Is(err, broker.ErrShuttingDown):
		writeError(w, http.StatusServiceUnavailable, "shutting_down",
			"server is shutting down, not accepting new operations")
		return
	case errors.Is(err, broker.ErrTopicAlreadyExists):
		writeError(w, http.StatusConflict, "topic_already_exists",
			fmt.Sprintf("topic %q already exists", req.Name))
		return
	case err != nil:
		h.logger.Error("create topic failed", logger.Topic(req.Name), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, CreateTopicResponse{Status: "created", Topic: req.Name})
}

func (h *Handler) deleteTopic(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if err := h.broker.DeleteTopic(r.Context(), name); err != nil {
		writeError(w, http.StatusNotFound, "topic_not_found",
			fmt.Sprintf("topic %q not found", name))
		return
	}

	writeJSON(w, http.StatusOK, DeleteTopicResponse{Status: "deleted", Topic: name})
}

func (h *Handler) listTopics(w http.ResponseWriter, r *http.Request) {
	topics := h.broker.ListTopics()
	if topics == nil {
		topics = []broker.TopicInfo{}
	}
	writeJSON(w, http.StatusOK, ListTopicsResponse{Topics: topics})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		UptimeSec:   int64(h.broker.Uptime().Seconds()),
		Topics:      h.broker.TopicCount(),
		Subscribers: h.broker.TotalSubscribers(),
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatsResponse{Topics: h.broker.Stats()})
}
