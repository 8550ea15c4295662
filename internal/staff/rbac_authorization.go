package staff

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/venue-management/internal"
	"github.com/frahmantamala/venue-management/internal/transport"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
)

type RoleLookup interface {
	CallerRole(ctx context.Context, venueID, userID string) (Role, error)
}

type ctxKey string

const venueRoleKey ctxKey = "venue_role"

// RoleFromContext returns the caller's venue role stored by RequireVenueOperation.
func RoleFromContext(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(venueRoleKey).(Role)
	return role, ok && role != ""
}

type RBACAuthorization struct {
	*transport.BaseHandler
	roles  RoleLookup
	logger *slog.Logger
}

func NewRBACAuthorization(roles RoleLookup, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		roles:       roles,
		logger:      logger,
	}
}

// RequireVenueOperation guards routes carrying a {venueId} URL parameter.
func (ra *RBACAuthorization) RequireVenueOperation(op Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := internal.IdentityFromContext(r.Context())
			if !ok {
				ra.logger.Warn("authorization check failed: identity not found in context")
				ra.HandleError(w, r, internal.ErrUnauthenticated)
				return
			}

			venueID := chi.URLParam(r, "venueId")
			var role Role
			if _, err := uuid.Parse(venueID); err == nil {
				role, err = ra.roles.CallerRole(r.Context(), venueID, identity.UserID)
				if err != nil {
					ra.logger.ErrorContext(r.Context(), "authorization check failed", "error", err, "user_id", identity.UserID, "venue_id", venueID)
					ra.HandleError(w, r, err)
					return
				}
			}

			if appErr := Authorize(role, op, "", ""); appErr != nil {
				ra.logger.WarnContext(r.Context(), "access denied",
					"user_id", identity.UserID,
					"venue_id", venueID,
					"operation", op,
					"role", role)
				ra.HandleError(w, r, appErr)
				return
			}

			ctx := context.WithValue(r.Context(), venueRoleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
