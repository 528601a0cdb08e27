package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/loyaltycore/campaigns-api/domains/tenants/be/service"
	"github.com/loyaltycore/campaigns-api/platform/go/httpapi"
	"github.com/loyaltycore/campaigns-api/platform/go/logging"
	"github.com/loyaltycore/campaigns-api/platform/go/tenant"
)

// Handler exposes the calling tenant's own record.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("tenants service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the tenant routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/tenants", h.list)
	r.Get("/tenants/me", h.getMe)
	r.Patch("/tenants/me", h.updateMe)
}

type tenantResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type updateRequest struct {
	Name *string `json:"name"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.List(r.Context(), httpapi.ParsePageOptions(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]tenantResponse, 0, len(page.Items))
	for _, record := range page.Items {
		items = append(items, toResponse(record))
	}
	httpapi.WritePageJSON(w, items, page.NextCursor, page.HasMore)
}

func (h *Handler) getMe(w http.ResponseWriter, r *http.Request) {
	current, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, httpapi.KindUnauthenticated, "tenant context missing")
		return
	}

	record, err := h.svc.Get(r.Context(), current.ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toResponse(record))
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	current, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, httpapi.KindUnauthenticated, "tenant context missing")
		return
	}

	var req updateRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteValidationError(w, map[string][]string{"body": {"invalid JSON body"}})
		return
	}

	record, err := h.svc.Update(r.Context(), current.ID, service.UpdateInput{Name: req.Name})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toResponse(record))
}

func toResponse(t tenant.Tenant) tenantResponse {
	return tenantResponse{
		ID:        t.ID,
		Name:      t.Name,
		Status:    string(t.Status),
		DeletedAt: t.DeletedAt,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.FromRequest(r, h.logger)

	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		logger.Warn("tenant request rejected", zap.Error(err))
		httpapi.WriteValidationError(w, validationErr.Fields)
	case errors.Is(err, service.ErrNotFound):
		logger.Info("tenant not found", zap.Error(err))
		httpapi.WriteError(w, httpapi.KindNotFound, "tenant not found")
	default:
		logger.Error("tenant operation failed", zap.Error(err))
		httpapi.WriteError(w, httpapi.KindInternal, "an unexpected error occurred")
	}
}
