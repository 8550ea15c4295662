package staff

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

func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	venueID, ok := h.venueID(w, r)
	if !ok {
		return
	}

	list, err := h.Service.ListStaff(r.Context(), venueID)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) InviteStaff(w http.ResponseWriter, r *http.Request) {
	venueID, ok := h.venueID(w, r)
	if !ok {
		return
	}

	var dto InviteStaffDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleError(w, r, err)
		return
	}

	resp, err := h.Service.InviteStaff(r.Context(), venueID, dto)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) UpdateStaffRole(w http.ResponseWriter, r *http.Request) {
	staffID, ok := h.staffID(w, r)
	if !ok {
		return
	}

	var dto UpdateStaffRoleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleError(w, r, err)
		return
	}

	if err := h.Service.UpdateStaffRole(r.Context(), staffID, dto); err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (h *Handler) DeactivateStaff(w http.ResponseWriter, r *http.Request) {
	staffID, ok := h.staffID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeactivateStaff(r.Context(), staffID); err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// venueID rejects malformed ids as access denied so venue existence is not revealed.
func (h *Handler) venueID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "venueId")
	if _, err := uuid.Parse(id); err != nil {
		h.HandleError(w, r, internal.ErrNoVenueAccess)
		return "", false
	}
	return id, true
}

func (h *Handler) staffID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "staffId")
	if _, err := uuid.Parse(id); err != nil {
		h.HandleError(w, r, internal.ErrStaffNotFound)
		return "", false
	}
	return id, true
}
