package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loyaltycore/campaigns-api/domains/participants/be/service"
	"github.com/loyaltycore/campaigns-api/platform/go/httpapi"
	"github.com/loyaltycore/campaigns-api/platform/go/logging"
	"github.com/loyaltycore/campaigns-api/platform/go/tenant"
)

// Handler wires the participants service to the HTTP surface.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("participants service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the participant routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/participants", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Route("/{participantID}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Patch("/", h.update)
			r.Delete("/", h.delete)
			r.Get("/campaigns", h.listMemberships)
			r.Post("/campaigns/{campaignID}", h.joinCampaign)
			r.Delete("/campaigns/{campaignID}", h.leaveCampaign)
			r.Get("/challenges", h.listEnrollments)
			r.Post("/challenges/{challengeID}", h.joinChallenge)
			r.Delete("/challenges/{challengeID}", h.leaveChallenge)
		})
	})
}

type participantResponse struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Nickname  string    `json:"nickname"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type membershipResponse struct {
	ID            uuid.UUID `json:"id"`
	CampaignID    uuid.UUID `json:"campaign_id"`
	ParticipantID uuid.UUID `json:"participant_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type enrollmentResponse struct {
	ID            uuid.UUID `json:"id"`
	ParticipantID uuid.UUID `json:"participant_id"`
	ChallengeID   uuid.UUID `json:"challenge_id"`
	CampaignID    uuid.UUID `json:"campaign_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type createRequest struct {
	FullName string  `json:"full_name"`
	Nickname string  `json:"nickname"`
	Status   *string `json:"status"`
}

type updateRequest struct {
	FullName *string `json:"full_name"`
	Nickname *string `json:"nickname"`
	Status   *string `json:"status"`
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

	input := service.CreateInput{FullName: req.FullName, Nickname: req.Nickname}
	if req.Status != nil {
		status := service.Status(*req.Status)
		input.Status = &status
	}

	participant, err := h.svc.Create(r.Context(), current.ID, input)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusCreated, toResponse(participant))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	current, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, httpapi.KindUnauthenticated, "tenant context missing")
		return
	}

	filter := service.ListOptions{}
	q := r.URL.Query()
	if raw := q.Get("status"); raw != "" {
		status := service.Status(raw)
		filter.Status = &status
	}
	if raw := q.Get("search"); raw != "" {
		filter.Search = &raw
	}

	page, err := h.svc.List(r.Context(), current.ID, filter, httpapi.ParsePageOptions(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]participantResponse, 0, len(page.Items))
	for _, participant := range page.Items {
		items = append(items, toResponse(participant))
	}
	httpapi.WritePageJSON(w, items, page.NextCursor, page.HasMore)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	current, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, httpapi.KindUnauthenticated, "tenant context missing")
		return
	}

	id, ok := parseID(w, r, "participantID")
	if !ok {
		return
	}

	participant, err := h.svc.Get(r.Context(), current.ID, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toResponse(participant))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	current, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, httpapi.KindUnauthenticated, "tenant context missing")
		return
	}

	id, ok := parseID(w, r, "participantID")
	if !ok {
		return
	}

	var req updateRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteValidationError(w, map[string][]string{"body": {"invalid JSON body"}})
		return
	}

	input := service.UpdateInput{FullName: req.FullName, Nickname: req.Nickname}
	if req.Status != nil {
		status := service.Status(*req.Status)
		input.Status = &status
	}

	participant, err := h.svc.Update(r.Context(), current.ID, id, input)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toResponse(participant))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	current, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, httpapi.KindUnauthenticated, "tenant context missing")
		return
	}

	id, ok := parseID(w, r, "participantID")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), current.ID, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) joinCampaign(w http.ResponseWriter, r *http.Request) {
	current, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, httpapi.KindUnauthenticated, "tenant context missing")
		return
	}

	participantID, ok := parseID(w, r, "participantID")
	if !ok {
		return
	}
	campaignID, ok := parseID(w, r, "campaignID")
	if !ok {
		return
	}

	membership, err := h.svc.JoinCampaign(r.Context(), current.ID, participantID, campaignID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusCreated, toMembershipResponse(membership))
}

func (h *Handler) leaveCampaign(w http.ResponseWriter, r *http.Request) {
	current, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, httpapi.KindUnauthenticated, "tenant context missing")
		return
	}

	participantID, ok := parseID(w, r, "participantID")
	if !ok {
		return
	}
	campaignID, ok := parseID(w, r, "campaignID")
	if !ok {
		return
	}

	if err := h.svc.LeaveCampaign(r.Context(), current.ID, participantID, campaignID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listMemberships(w http.ResponseWriter, r *http.Request) {
	current, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, httpapi.KindUnauthenticated, "tenant context missing")
		return
	}

	participantID, ok := parseID(w, r, "participantID")
	if !ok {
		return
	}

	page, err := h.svc.ListMemberships(r.Context(), current.ID, participantID, httpapi.ParsePageOptions(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]membershipResponse, 0, len(page.Items))
	for _, membership := range page.Items {
		items = append(items, toMembershipResponse(membership))
	}
	httpapi.WritePageJSON(w, items, page.NextCursor, page.HasMore)
}

func (h *Handler) joinChallenge(w http.ResponseWriter, r *http.Request) {
	current, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, httpapi.KindUnauthenticated, "tenant context missing")
		return
	}

	participantID, ok := parseID(w, r, "participantID")
	if !ok {
		return
	}
	challengeID, ok := parseID(w, r, "challengeID")
	if !ok {
		return
	}

	enrollment, err := h.svc.JoinChallenge(r.Context(), current.ID, participantID, challengeID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusCreated, toEnrollmentResponse(enrollment))
}

func (h *Handler) leaveChallenge(w http.ResponseWriter, r *http.Request) {
	current, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, httpapi.KindUnauthenticated, "tenant context missing")
		return
	}

	participantID, ok := parseID(w, r, "participantID")
	if !ok {
		return
	}
	challengeID, ok := parseID(w, r, "challengeID")
	if !ok {
		return
	}

	if err := h.svc.LeaveChallenge(r.Context(), current.ID, participantID, challengeID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listEnrollments(w http.ResponseWriter, r *http.Request) {
	current, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, httpapi.KindUnauthenticated, "tenant context missing")
		return
	}

	participantID, ok := parseID(w, r, "participantID")
	if !ok {
		return
	}

	page, err := h.svc.ListEnrollments(r.Context(), current.ID, participantID, httpapi.ParsePageOptions(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]enrollmentResponse, 0, len(page.Items))
	for _, enrollment := range page.Items {
		items = append(items, toEnrollmentResponse(enrollment))
	}
	httpapi.WritePageJSON(w, items, page.NextCursor, page.HasMore)
}

func toResponse(p service.Participant) participantResponse {
	return participantResponse{
		ID:        p.ID,
		FullName:  p.FullName,
		Nickname:  p.Nickname,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toMembershipResponse(m service.Membership) membershipResponse {
	return membershipResponse{
		ID:            m.ID,
		CampaignID:    m.CampaignID,
		ParticipantID: m.ParticipantID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toEnrollmentResponse(e service.Enrollment) enrollmentResponse {
	return enrollmentResponse{
		ID:            e.ID,
		ParticipantID: e.ParticipantID,
		ChallengeID:   e.ChallengeID,
		CampaignID:    e.CampaignID,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

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
		logger.Warn("participant request rejected", zap.Error(err))
		httpapi.WriteValidationError(w, validationErr.Fields)
	case errors.Is(err, service.ErrTenantMismatch):
		logger.Warn("cross-tenant association rejected", zap.Error(err))
		httpapi.WriteError(w, httpapi.KindTenantMismatch, "resources do not resolve under the same tenant")
	case errors.Is(err, service.ErrNotInCampaign):
		logger.Warn("enrollment precondition failed", zap.Error(err))
		httpapi.WriteError(w, httpapi.KindParticipantNotInCampaign, "participant is not a member of the challenge's campaign")
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrAssociationNotFound):
		logger.Info("participant resource not found", zap.Error(err))
		httpapi.WriteError(w, httpapi.KindNotFound, "resource not found")
	default:
		logger.Error("participant operation failed", zap.Error(err))
		httpapi.WriteError(w, httpapi.KindInternal, "an unexpected error occurred")
	}
}
