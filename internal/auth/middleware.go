package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JustinTDCT/Videotheque/internal/apperr"
	"github.com/JustinTDCT/Videotheque/internal/httputil"
	"github.com/JustinTDCT/Videotheque/internal/logging"
	"github.com/JustinTDCT/Videotheque/internal/models"
)

type contextKey string

const ContextUser contextKey = "user"

type ContextUserData struct {
	UserID string
}

// Accounts resolves a token subject to a live account.
type Accounts interface {
	Get(userID string) (*models.UserRecord, error)
}

type Middleware struct {
	issuer   *Issuer
	accounts Accounts
}

func NewMiddleware(issuer *Issuer, accounts Accounts) *Middleware {
	return &Middleware{issuer: issuer, accounts: accounts}
}

func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			httputil.WriteError(w, http.StatusUnauthorized, string(apperr.Unauthorized), "authentication required")
			return
		}

		userID, err := m.issuer.Verify(token)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, string(apperr.Unauthorized), apperr.Message(err))
			return
		}

		// Tokens outlive account deletion.
		if _, err := m.accounts.Get(userID); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				httputil.WriteError(w, http.StatusUnauthorized, string(apperr.Unauthorized), "account no longer exists")
				return
			}
			logging.Error().Err(err).Str("user_id", userID).Msg("account lookup failed")
			httputil.WriteError(w, http.StatusInternalServerError, string(apperr.StorageFailure), "internal storage error")
			return
		}

		ctx := context.WithValue(r.Context(), ContextUser, ContextUserData{UserID: userID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserFromContext(ctx context.Context) *ContextUserData {
	if v, ok := ctx.Value(ContextUser).(ContextUserData); ok {
		return &v
	}
	return nil
}

func extractToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}
