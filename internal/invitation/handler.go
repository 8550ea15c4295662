package invitation

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/venue-management/internal/transport"
	"github.com/frahmantamala/venue-management/pkg/logger"
	"github.com/go-chi/chi"
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

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	var dto AcceptInvitationDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleError(w, r, err)
		return
	}

	resp, err := h.Service.Accept(r.Context(), dto)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	preview, err := h.Service.Preview(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, preview)
}
