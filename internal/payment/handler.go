package payment

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/venue-management/internal"
	"github.com/frahmantamala/venue-management/internal/transport"
	"github.com/frahmantamala/venue-management/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// ConnectAccount handles POST /api/v1/venues/{venueId}/payments/account
func (h *Handler) ConnectAccount(w http.ResponseWriter, r *http.Request) {
	venueID, ok := h.venueID(w, r)
	if !ok {
		return
	}

	resp, err := h.Service.ConnectAccount(r.Context(), venueID)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

// OnboardingLink handles POST /api/v1/venues/{venueId}/payments/onboarding-link
func (h *Handler) OnboardingLink(w http.ResponseWriter, r *http.Request) {
	venueID, ok := h.venueID(w, r)
	if !ok {
		return
	}

	var dto OnboardingLinkDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleError(w, r, err)
		return
	}

	resp, err := h.Service.OnboardingLink(r.Context(), venueID, dto)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

// AccountStatus handles GET /api/v1/venues/{venueId}/payments/account
func (h *Handler) AccountStatus(w http.ResponseWriter, r *http.Request) {
	venueID, ok := h.venueID(w, r)
	if !ok {
		return
	}

	resp, err := h.Service.AccountStatus(r.Context(), venueID)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

// UpdatePreauthAmount handles PUT /api/v1/venues/{venueId}/payments/preauth
func (h *Handler) UpdatePreauthAmount(w http.ResponseWriter, r *http.Request) {
	venueID, ok := h.venueID(w, r)
	if !ok {
		return
	}

	var dto UpdatePreauthDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleError(w, r, err)
		return
	}

	resp, err := h.Service.UpdatePreauthAmount(r.Context(), venueID, dto)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) venueID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "venueId")
	if _, err := uuid.Parse(id); err != nil {
		h.HandleError(w, r, internal.ErrNoVenueAccess)
		return "", false
	}
	return id, true
}
