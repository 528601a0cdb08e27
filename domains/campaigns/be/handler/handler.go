package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loyaltycore/campaigns-api/domains/campaigns/be/service"
	"github.com/loyaltycore/campaigns-api/platform/go/httpapi"
	"github.com/loyaltycore/campaigns-api/platform/go/logging"
	"github.com/loyaltycore/campaigns-api/platform/go/tenant"
)

// Handler wires the campaigns service to the HTTP surface.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("campaigns service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the campaign routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/campaigns", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Route("/{campaignID}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Patch("/", h.update)
			r.Delete("/", h.delete)
			r.Post("/challenges", h.attachChallenge)
			r.Get("/challenges", h.listChallenges)
			r.Delete("/challenges/{associationID}", h.detachChallenge)
		})
	})
}

type campaignResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type associationResponse struct {
	ID          uuid.UUID       `json:"id"`
	CampaignID  uuid.UUID       `json:"campaign_id"`
	ChallengeID uuid.UUID       `json:"challenge_id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Frequency   string          `json:"frequency"`
	Points      int             `json:"points"`
	Config      json.RawMessage `json:"config,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type createRequest struct {
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	Status      *string    `json:"status"`
}

type updateRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	Status      *string    `json:"status"`
}

type attachRequest struct {
	ChallengeID uuid.UUID       `json:"challenge_id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Frequency   string          `json:"frequency"`
	Points      int             `json:"points"`
	Config      json.RawMessage `json:"config"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	current, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, httpapi.KindUnauthenticated, "tenant context missing")
		return
	}

	var req createRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteValidationError(w, map[string][]string{"body": {"invalid JSON body"}})
		return
	}

	input := service.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	}
	if req.Status != nil {
		status := service.Status(*req.Status)
		input.Status = &status
	}

	campaign, err := h.svc.Create(r.Context(), current.ID, input)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusCreated, toResponse(campaign))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	current, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, httpapi.KindUnauthenticated, "tenant context missing")
		return
	}

	filter := service.ListOptions{}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := service.Status(raw)
		filter.Status = &status
	}

	page, err := h.svc.List(r.Context(), current.ID, filter, httpapi.ParsePageOptions(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]campaignResponse, 0, len(page.Items))
	for _, campaign := range page.Items {
		items = append(items, toResponse(campaign))
	}
	httpapi.WritePageJSON(w, items, page.NextCursor, page.HasMore)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	current, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, httpapi.KindUnauthenticated, "tenant context missing")
		return
	}

	id, ok := parseID(w, r, "campaignID")
	if !ok {
		return
	}

	campaign, err := h.svc.Get(r.Context(), current.ID, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toResponse(campaign))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	current, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, httpapi.KindUnauthenticated, "tenant context missing")
		return
	}

	id, ok := parseID(w, r, "campaignID")
	if !ok {
		return
	}

	var req updateRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteValidationError(w, map[string][]string{"body": {"invalid JSON body"}})
		return
	}

	input := service.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	}
	if req.Status != nil {
		status := service.Status(*req.Status)
		input.Status = &status
	}

	campaign, err := h.svc.Update(r.Context(), current.ID, id, input)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toResponse(campaign))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	current, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, httpapi.KindUnauthenticated, "tenant context missing")
		return
	}

	id, ok := parseID(w, r, "campaignID")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), current.ID, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) attachChallenge(w http.ResponseWriter, r *http.Request) {
	current, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, httpapi.KindUnauthenticated, "tenant context missing")
		return
	}

	campaignID, ok := parseID(w, r, "campaignID")
	if !ok {
		return
	}

	var req attachRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteValidationError(w, map[string][]string{"body": {"invalid JSON body"}})
		return
	}

	assoc, err := h.svc.AttachChallenge(r.Context(), current.ID, campaignID, service.AttachChallengeInput{
		ChallengeID: req.ChallengeID,
		Name:        req.Name,
		Description: req.Description,
		Frequency:   req.Frequency,
		Points:      req.Points,
		Config:      req.Config,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusCreated, toAssociationResponse(assoc))
}

func (h *Handler) listChallenges(w http.ResponseWriter, r *http.Request) {
	current, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, httpapi.KindUnauthenticated, "tenant context missing")
		return
	}

	campaignID, ok := parseID(w, r, "campaignID")
	if !ok {
		return
	}

	page, err := h.svc.ListChallenges(r.Context(), current.ID, campaignID, httpapi.ParsePageOptions(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]associationResponse, 0, len(page.Items))
	for _, assoc := range page.Items {
		items = append(items, toAssociationResponse(assoc))
	}
	httpapi.WritePageJSON(w, items, page.NextCursor, page.HasMore)
}

func (h *Handler) detachChallenge(w http.ResponseWriter, r *http.Request) {
	current, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, httpapi.KindUnauthenticated, "tenant context missing")
		return
	}

	campaignID, ok := parseID(w, r, "campaignID")
	if !ok {
		return
	}
	associationID, ok := parseID(w, r, "associationID")
	if !ok {
		return
	}

	if err := h.svc.DetachChallenge(r.Context(), current.ID, campaignID, associationID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toResponse(c service.Campaign) campaignResponse {
	return campaignResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		StartsAt:    c.StartsAt,
		EndsAt:      c.EndsAt,
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toAssociationResponse(a service.CampaignChallenge) associationResponse {
	return associationResponse{
		ID:          a.ID,
		CampaignID:  a.CampaignID,
		ChallengeID: a.ChallengeID,
		Name:        a.Name,
		Description: a.Description,
		Frequency:   a.Frequency,
		Points:      a.Points,
		Config:      a.Config,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// parseID reads a UUID path parameter. An unparseable id cannot address any
// resource, so it reports not found rather than a validation failure.
func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
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
		logger.Warn("campaign request rejected", zap.Error(err))
		httpapi.WriteValidationError(w, validationErr.Fields)
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrChallengeNotFound),
		errors.Is(err, service.ErrAssociationNotFound):
		logger.Info("campaign resource not found", zap.Error(err))
		httpapi.WriteError(w, httpapi.KindNotFound, "resource not found")
	default:
		logger.Error("campaign operation failed", zap.Error(err))
		httpapi.WriteError(w, httpapi.KindInternal, "an unexpected error occurred")
	}
}
