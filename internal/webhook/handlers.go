package webhook

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jobpilot/outreach/internal/config"
	"github.com/jobpilot/outreach/internal/pkg/httputil"
	"github.com/jobpilot/outreach/internal/pkg/logger"
)

const maxPayloadBytes = 5 * 1024 * 1024

// Handler serves the inbound webhook endpoints.
type Handler struct {
	dispatcher *Dispatcher
	cfg        config.WebhookConfig
}

// NewHandler creates the webhook HTTP handler.
func NewHandler(dispatcher *Dispatcher, cfg config.WebhookConfig) *Handler {
	return &Handler{dispatcher: dispatcher, cfg: cfg}
}

// Routes mounts the provider endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/webhooks/sparkpost", h.handleSparkPost)
	r.Post("/webhooks/mailgun", h.handleMailgun)
}

type batchResponse struct {
	Received  int      `json:"received"`
	Processed int      `json:"processed"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Results   []Result `json:"results"`
}

func summarize(results []Result) batchResponse {
	resp := batchResponse{Received: len(results), Results: results}
	for _, r := range results {
		switch r.Outcome {
		case OutcomeProcessed:
			resp.Processed++
		case OutcomeSkipped:
			resp.Skipped++
		case OutcomeFailed:
			resp.Failed++
		}
	}
	return resp
}

// handleSparkPost ingests the batch-array payload. Authentication is a
// shared secret header configured on the provider's webhook settings.
func (h *Handler) handleSparkPost(w http.ResponseWriter, r *http.Request) {
	if h.cfg.BatchSharedSecret != "" {
		got := r.Header.Get("X-MessageSystems-Webhook-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.cfg.BatchSharedSecret)) != 1 {
			httputil.Unauthorized(w, "invalid webhook token")
			return
		}
	}

	body, err := readBody(w, r)
	if err != nil {
		httputil.BadRequest(w, "reading payload: "+err.Error())
		return
	}

	events, err := ParseSparkPostBatch(body)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	results := h.dispatcher.Dispatch(r.Context(), "sparkpost", events)
	resp := summarize(results)
	logger.Info("sparkpost webhook batch",
		"received", resp.Received, "processed", resp.Processed,
		"skipped", resp.Skipped, "failed", resp.Failed)
	httputil.OK(w, resp)
}

// handleMailgun ingests one signed event per request.
func (h *Handler) handleMailgun(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		httputil.BadRequest(w, "reading payload: "+err.Error())
		return
	}

	event, err := ParseMailgunEvent(body, h.cfg.EventSigningKey)
	if errors.Is(err, ErrUnsupportedEvent) {
		// Acknowledge so the provider stops retrying.
		httputil.OK(w, batchResponse{Received: 1, Skipped: 1})
		return
	}
	if errors.Is(err, ErrBadSignature) {
		httputil.Unauthorized(w, err.Error())
		return
	}
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	results := h.dispatcher.Dispatch(r.Context(), "mailgun", []Event{*event})
	res := results[0]
	switch {
	case res.Outcome == OutcomeSkipped && res.Detail == detailUnknownMessage:
		// Single-event mode surfaces an unknown message id as the call's
		// own failure instead of a skip.
		httputil.NotFound(w, detailUnknownMessage)
	case res.Outcome == OutcomeFailed:
		httputil.Error(w, http.StatusInternalServerError, res.Detail)
	default:
		httputil.OK(w, summarize(results))
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPayloadBytes)
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}
