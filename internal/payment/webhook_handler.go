package payment

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/venue-management/internal"
	"github.com/frahmantamala/venue-management/internal/paymentgateway"
	"github.com/frahmantamala/venue-management/internal/transport"
)

// maxWebhookBytes bounds processor callback bodies.
const maxWebhookBytes = 256 << 10

type WebhookHandler struct {
	*transport.BaseHandler
	paymentService ServiceAPI
	logger         *slog.Logger
}

func NewWebhookHandler(paymentService ServiceAPI, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:    transport.NewBaseHandler(logger),
		paymentService: paymentService,
		logger:         logger,
	}
}

// HandleWebhook handles POST /api/v1/payments/webhook. The raw body is needed
// for signature verification, so it is read before any decoding.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes+1))
	if err != nil {
		h.HandleError(w, r, internal.NewValidationError("failed to read request body", internal.ErrCodeValidationFailed).WithCause(err))
		return
	}
	if len(body) > maxWebhookBytes {
		h.HandleError(w, r, internal.NewValidationError("request body too large", internal.ErrCodeValidationFailed))
		return
	}

	if err := h.paymentService.ProcessWebhook(r.Context(), body, r.Header.Get(paymentgateway.SignatureHeader)); err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, WebhookResponse{Received: true})
}
