package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/venue-management/internal"
	"github.com/frahmantamala/venue-management/internal/transport"
	"github.com/frahmantamala/venue-management/pkg/logger"
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

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleError(w, r, err)
		return
	}

	resp, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleError(w, r, err)
		return
	}

	tokens, err := h.Service.Authenticate(r.Context(), dto)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleError(w, r, err)
		return
	}

	if err := dto.Validate(); err != nil {
		h.HandleError(w, r, err)
		return
	}

	tokens, err := h.Service.RefreshTokens(r.Context(), dto.RefreshToken)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var dto PasswordResetRequestDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleError(w, r, err)
		return
	}

	if err := h.Service.RequestPasswordReset(r.Context(), dto); err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusAccepted, SuccessResponse{Success: true})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var dto PasswordResetDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleError(w, r, err)
		return
	}

	if err := h.Service.ResetPassword(r.Context(), dto); err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// AuthMiddleware resolves the bearer token into an Identity on the request
// context. Requests without a valid token are rejected with 401.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := h.Service.ResolveIdentity(r.Context(), h.ExtractTokenFromHeader(r))
		if err != nil {
			h.HandleError(w, r, err)
			return
		}

		ctx := internal.ContextWithIdentity(r.Context(), identity)
		ctx = logger.With(ctx, "user_id", identity.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
