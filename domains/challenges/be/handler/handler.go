package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loyaltycore/campaigns-api/domains/challenges/be/service"
	"github.com/loyaltycore/campaigns-api/platform/go/httpapi"
	"github.com/loyaltycore/campaigns-api/platform/go/logging"
)

// Handler wires the challenges service to the HTTP surface. The catalog is
// global, but the routes still sit behind the access gate: only an active
// tenant may browse or edit it.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("challenges service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the challenge catalog routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/challenges", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Route("/{challengeID}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Patch("/", h.update)
			r.Delete("/", h.delete)
		})
	})
}

type challengeResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type createRequest struct {
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Metadata    json.RawMessage `json:"metadata"`
}

type updateRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Metadata    json.RawMessage `json:"metadata"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteValidationError(w, map[string][]string{"body": {"invalid JSON body"}})
		return
	}

	challenge, err := h.svc.Create(r.Context(), service.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusCreated, toResponse(challenge))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.List(r.Context(), httpapi.ParsePageOptions(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]challengeResponse, 0, len(page.Items))
	for _, challenge := range page.Items {
		items = append(items, toResponse(challenge))
	}
	httpapi.WritePageJSON(w, items, page.NextCursor, page.HasMore)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	challenge, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toResponse(challenge))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteValidationError(w, map[string][]string{"body": {"invalid JSON body"}})
		return
	}

	challenge, err := h.svc.Update(r.Context(), id, service.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toResponse(challenge))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toResponse(c service.Challenge) challengeResponse {
	return challengeResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Metadata:    c.Metadata,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "challengeID"))
	if err != nil {
		httpapi.WriteError(w, httpapi.KindNotFound, "resource not found")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.FromRequest(r, h.logger)

	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		logger.Warn("challenge request rejected", zap.Error(err))
		httpapi.WriteValidationError(w, validationErr.Fields)
	case errors.Is(err, service.ErrNotFound):
		logger.Info("challenge not found", zap.Error(err))
		httpapi.WriteError(w, httpapi.KindNotFound, "resource not found")
	case errors.Is(err, service.ErrHasAssociations):
		logger.Warn("challenge deletion blocked", zap.Error(err))
		httpapi.WriteError(w, httpapi.KindHasAssociations, "challenge is attached to one or more campaigns")
	default:
		logger.Error("challenge operation failed", zap.Error(err))
		httpapi.WriteError(w, httpapi.KindInternal, "an unexpected error occurred")
	}
}
