package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/orbit/internal/common"
	"github.com/dmitrijs2005/orbit/internal/server/services"
)

const (
	codeInvalidInput        = "auth/invalid-input"
	codeUnsupportedProvider = "auth/unsupported-provider"
	codeOAuthError          = "auth/oauth-error"
	codeInvalidRefreshToken = "auth/invalid-refresh-token"
	codeUserNotFound        = "auth/user-not-found"
	codeServerError         = "auth/server-error"
	codeLastAuthMethod      = "auth/last-auth-method"
	codeMissingRedirectURI  = "auth/missing-redirect-uri"
	codeUnauthorized        = "auth/unauthorized"
	codeNotLinked           = "auth/not-linked"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeServiceError maps service errors onto status codes. Refresh failures
// are all 401 so clients treat them as a hard logout.
func writeServiceError(w http.ResponseWriter, err error, refresh bool) {
	switch {
	case errors.Is(err, services.ErrUnsupportedProvider):
		writeError(w, http.StatusBadRequest, "Unsupported provider", codeUnsupportedProvider)
	case errors.Is(err, services.ErrOAuth):
		writeError(w, http.StatusInternalServerError, "Authentication failed", codeOAuthError)
	case errors.Is(err, services.ErrLastAuthMethod):
		writeError(w, http.StatusBadRequest, "Cannot unlink the last authentication method", codeLastAuthMethod)
	case errors.Is(err, common.ErrRefreshTokenInvalid), errors.Is(err, common.ErrRefreshTokenExpired):
		writeError(w, http.StatusUnauthorized, "Invalid or expired refresh token", codeInvalidRefreshToken)
	case errors.Is(err, common.ErrorNotFound) && refresh:
		writeError(w, http.StatusUnauthorized, "User not found for refresh token", codeUserNotFound)
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "User not found", codeUserNotFound)
	case refresh:
		writeError(w, http.StatusInternalServerError, "Failed to refresh token", codeServerError)
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error", codeServerError)
	}
}
