package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/JustinTDCT/Videotheque/internal/apperr"
	"github.com/JustinTDCT/Videotheque/internal/auth"
	"github.com/JustinTDCT/Videotheque/internal/httputil"
	"github.com/JustinTDCT/Videotheque/internal/models"
)

type registerRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"omitempty,eqfield=Password"`
	FirstName       string `json:"firstName" validate:"required,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type deleteAccountRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type sessionResponse struct {
	User      *models.UserRecord `json:"user"`
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version.Version,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}

	user, err := s.users.Register(req.Email, req.Password, req.FirstName)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	s.respondSession(w, r, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}

	user, err := s.users.Authenticate(req.Email, req.Password)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	s.respondSession(w, r, http.StatusOK, user)
}

func (s *Server) respondSession(w http.ResponseWriter, r *http.Request, status int, user *models.UserRecord) {
	token, exp, err := s.issuer.Issue(user.ID)
	if err != nil {
		writeErr(w, r, apperr.Wrap(apperr.StorageFailure, "issue token", err))
		return
	}
	httputil.WriteJSON(w, status, sessionResponse{User: user, Token: token, ExpiresAt: exp})
}

// handleDeleteAccount lets a user remove their own account.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())

	var req deleteAccountRequest
	if err := decode(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if caller == nil || req.UserID != caller.UserID {
		writeErr(w, r, apperr.New(apperr.Unauthorized, "", "cannot delete another account"))
		return
	}

	deleted, err := s.users.DeleteUser(req.UserID)
	if !deleted {
		if err == nil {
			err = apperr.New(apperr.NotFound, "", "user not found")
		}
		writeErr(w, r, err)
		return
	}

	resp := map[string]any{"user_id": req.UserID, "deleted": true}
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("user_id", req.UserID).Msg("account removed with leftovers")
		resp["cleanup_error"] = apperr.Message(err)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
