package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

const maxRequestBytes = 64 << 20

type Handler struct {
	engine      ingestion.Ingester
	publisher   *publisher.Publisher
	defaultLang string
	logger      *slog.Logger
}

// New builds the ingestion handler. pub may be nil, in which case async
// requests are refused.
func New(engine ingestion.Ingester, pub *publisher.Publisher, defaultLang string) *Handler {
	return &Handler{
		engine:      engine,
		publisher:   pub,
		defaultLang: defaultLang,
		logger:      slog.Default().With("component", "ingestion-handler"),
	}
}

// Ingest handles POST /api/v1/documents.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req ingestion.IngestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateIngestRequest(&req); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lang := req.Language
	if lang == "" {
		lang = h.defaultLang
	}

	if req.Async {
		if h.publisher == nil {
			h.writeError(w, http.StatusServiceUnavailable, "asynchronous ingestion is disabled")
			return
		}
		resp, err := h.publisher.Enqueue(ctx, &req, lang)
		if err != nil {
			log.Error("enqueue failed", "error", err)
			h.writeError(w, http.StatusServiceUnavailable, "could not queue batch")
			return
		}
		h.writeJSON(w, http.StatusAccepted, resp)
		return
	}

	resp, err := ingestion.Run(ctx, h.engine, uuid.NewString(), req.Documents, req.URLs, lang, req.Parallel)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Warn("ingestion rejected", "error", err, "status_code", status)
		h.writeError(w, status, err.Error())
		return
	}
	log.Info("batch ingested",
		"batch_id", resp.BatchID,
		"indexed", resp.Indexed,
		"failed", resp.Failed,
		"language", lang,
	)
	h.writeJSON(w, http.StatusOK, resp)
}

// ComputeStatistics handles POST /api/v1/statistics?lang=.
func (h *Handler) ComputeStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = h.defaultLang
	}

	scores, err := h.engine.ComputeStatistics(ctx, lang)
	if err != nil && scores == nil {
		status := apperrors.HTTPStatusCode(err)
		log.Warn("statistics computation failed", "error", err, "status_code", status)
		h.writeError(w, status, err.Error())
		return
	}

	body := map[string]any{
		"language": lang,
		"scores":   len(scores),
	}
	if err != nil {
		log.Error("statistics computed but not persisted", "error", err)
		body["persist_error"] = err.Error()
	}
	if r.URL.Query().Get("verbose") == "true" {
		body["entries"] = scores
	}
	h.writeJSON(w, http.StatusOK, body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
