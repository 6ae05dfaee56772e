// Package handler exposes the verification service over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"idproxy/internal/evidence/vc/presentation"
	"idproxy/internal/evidence/verification/models"
	dErrors "idproxy/pkg/domain-errors"
	"idproxy/pkg/platform/httputil"
	"idproxy/pkg/requestcontext"
)

// Service defines the verification operations the handler needs.
type Service interface {
	Verify(ctx context.Context, subject models.Subject) (*presentation.Response, error)
	SubmitDocument(ctx context.Context, verificationID string, req models.DocumentRequest) (*models.DocumentResult, error)
	Sources(ctx context.Context, verificationID string) ([]models.SourceView, error)
	FindRecord(ctx context.Context, id uuid.UUID) (*models.Record, error)
	ResetCache(ctx context.Context) bool
}

// Handler handles verification endpoints.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

// New creates a new verification Handler.
func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register registers the verification routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/verify", h.HandleVerify)
	r.Get("/v1/verify/{id}", h.HandleGetRecord)
	r.Post("/v1/verifications/{verificationID}/documents", h.HandleSubmitDocument)
	r.Get("/v1/verifications/{verificationID}/sources", h.HandleSources)
	r.Post("/v1/admin/cache/reset", h.HandleCacheReset)
}

// HandleVerify runs a full verification and returns the signed payload.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	resp, err := h.svc.Verify(ctx, req.ToSubject())
	if err != nil {
		h.logFailure(ctx, "verification failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleGetRecord returns a stored request log row.
func (h *Handler) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid verification record id"))
		return
	}

	record, err := h.svc.FindRecord(ctx, id)
	if err != nil {
		h.logFailure(ctx, "failed to load verification record", requestcontext.RequestID(ctx), err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

// HandleSubmitDocument submits one licence, Medicare card, passport or birth
// certificate to an existing verification.
func (h *Handler) HandleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	verificationID := chi.URLParam(r, "verificationID")

	req, ok := httputil.DecodeAndPrepare[models.DocumentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.svc.SubmitDocument(ctx, verificationID, *req)
	if err != nil {
		h.logFailure(ctx, "document submission failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

type sourcesResponse struct {
	VerificationID string              `json:"verification_id"`
	Sources        []models.SourceView `json:"sources"`
}

func (h *Handler) HandleSources(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	verificationID := chi.URLParam(r, "verificationID")

	sources, err := h.svc.Sources(ctx, verificationID)
	if err != nil {
		h.logFailure(ctx, "failed to list sources", requestcontext.RequestID(ctx), err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sourcesResponse{VerificationID: verificationID, Sources: sources})
}

type cacheResetResponse struct {
	Available bool `json:"available"`
}

// HandleCacheReset re-probes the cache backend.
func (h *Handler) HandleCacheReset(w http.ResponseWriter, r *http.Request) {
	available := h.svc.ResetCache(r.Context())
	httputil.WriteJSON(w, http.StatusOK, cacheResetResponse{Available: available})
}

func (h *Handler) logFailure(ctx context.Context, msg, requestID string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
		return
	}
	h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
}
