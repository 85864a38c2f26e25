package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/orbit/internal/common"
	"github.com/dmitrijs2005/orbit/internal/server/oauth"
	"github.com/dmitrijs2005/orbit/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const maxBodySize = 1 << 20

type sessionJSON struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	// ExpiresAt is the access token expiry in Unix milliseconds.
	ExpiresAt int64 `json:"expires_at"`
}

type userJSON struct {
	ID      string  `json:"id"`
	Email   *string `json:"email"`
	Name    *string `json:"name"`
	Picture *string `json:"picture"`
}

type authResponse struct {
	Session       sessionJSON `json:"session"`
	User          userJSON    `json:"user"`
	ProfileExists bool        `json:"profileExists"`
	IsNewUser     *bool       `json:"isNewUser,omitempty"`
}

type meResponse struct {
	userJSON
	ProfileExists bool `json:"profileExists"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func toAuthResponse(r *services.AuthResult) authResponse {
	return authResponse{
		Session: sessionJSON{
			AccessToken:  r.Session.AccessToken,
			RefreshToken: r.Session.RefreshToken,
			ExpiresAt:    r.Session.ExpiresAt.UnixMilli(),
		},
		User: userJSON{
			ID:      r.User.ID,
			Email:   r.User.Email,
			Name:    r.User.Name,
			Picture: r.User.Picture,
		},
		ProfileExists: r.ProfileExists,
		IsNewUser:     r.IsNewUser,
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v)
}

type callbackRequest struct {
	Code        string `json:"code"`
	Provider    string `json:"provider"`
	RedirectURI string `json:"redirect_uri"`
	State       string `json:"state,omitempty"`
}

func (c callbackRequest) validate() error {
	if strings.TrimSpace(c.Code) == "" {
		return errors.New("code is required")
	}
	if c.Provider != oauth.ProviderGoogle && c.Provider != oauth.ProviderApple {
		return fmt.Errorf("provider must be %q or %q", oauth.ProviderGoogle, oauth.ProviderApple)
	}
	if c.RedirectURI == "" {
		return errors.New("redirect_uri is required")
	}
	return nil
}

func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input", codeInvalidInput)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input: "+err.Error(), codeInvalidInput)
		return
	}

	res, err := s.auth.OAuthCallback(r.Context(), req.Provider, req.Code, req.RedirectURI)
	s.metrics.authEvent("callback", err)
	if err != nil {
		s.logger.Error(r.Context(), "oauth callback failed", "provider", req.Provider, "error", err)
		writeServiceError(w, err, false)
		return
	}

	writeJSON(w, http.StatusOK, toAuthResponse(res))
}

func (s *Server) handleAuthorizeURL(w http.ResponseWriter, r *http.Request) {
	redirectURI := r.URL.Query().Get("redirect_uri")
	if redirectURI == "" {
		writeError(w, http.StatusBadRequest, "redirect_uri is required", codeMissingRedirectURI)
		return
	}

	u, err := s.auth.AuthorizeURL(chi.URLParam(r, "provider"), redirectURI, r.URL.Query().Get("state"))
	if err != nil {
		writeServiceError(w, err, false)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": u})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(w, r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Invalid input", codeInvalidInput)
		return
	}

	res, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	s.metrics.authEvent("refresh", err)
	if err != nil {
		if !errors.Is(err, common.ErrRefreshTokenInvalid) && !errors.Is(err, common.ErrRefreshTokenExpired) {
			s.logger.Error(r.Context(), "refresh failed", "error", err)
		}
		writeServiceError(w, err, true)
		return
	}

	// refresh never reports isNewUser
	res.IsNewUser = nil
	writeJSON(w, http.StatusOK, toAuthResponse(res))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	// the body is optional
	_ = decodeBody(w, r, &req)

	err := s.auth.Logout(r.Context(), req.RefreshToken)
	s.metrics.authEvent("logout", err)
	if err != nil {
		s.logger.Warn(r.Context(), "refresh token revocation failed", "error", err)
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Logged out successfully."})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	me, err := s.auth.Me(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(r.Context(), "me failed", "error", err)
		}
		writeServiceError(w, err, false)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		userJSON: userJSON{
			ID:      me.User.ID,
			Email:   me.User.Email,
			Name:    me.User.Name,
			Picture: me.User.Picture,
		},
		ProfileExists: me.ProfileExists,
	})
}

func (s *Server) handleUnlink(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	err := s.auth.Unlink(r.Context(), userIDFrom(r.Context()), provider)
	s.metrics.authEvent("unlink", err)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeError(w, http.StatusNotFound, provider+" account is not linked", codeNotLinked)
			return
		}
		writeServiceError(w, err, false)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: provider + " account unlinked successfully."})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.Warn(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
