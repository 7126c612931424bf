package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lexsuite/praksa-auth/internal/auth/domain"
	"github.com/lexsuite/praksa-auth/internal/auth/service"
	"github.com/lexsuite/praksa-auth/pkg/httpx"
	"github.com/lexsuite/praksa-auth/pkg/slogx"
)

// User-visible error strings, kept in Croatian to match the product UI.
const (
	msgInvalidLogin       = "neispravni podaci za prijavu"
	msgAccountDeactivated = "korisnički račun je deaktiviran"
	msgServerError        = "greška na poslužitelju"
)

// LoginHandler handles POST /v1/auth/login.
type LoginHandler struct {
	CredentialService *service.CredentialService
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin authenticates an email/password pair. Responses:
//
//	200 with a session token and identity,
//	200 with a two-factor challenge when a second factor is required,
//	400/401/403 on bad input, bad credentials, or a deactivated account.
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidLogin)
		return
	}

	result, err := h.CredentialService.Authorize(ctx, req.Email, req.Password)
	if err != nil {
		var challenge *service.TwoFactorRequiredError
		switch {
		case errors.As(err, &challenge):
			httpx.NoCache(w)
			httpx.WriteJSON(w, http.StatusOK, domain.TwoFactorChallenge{
				TwoFactorRequired: true,
				SessionID:         challenge.SessionID,
				Methods:           challenge.Methods,
			})
		case errors.Is(err, service.ErrMissingCredentials):
			httpx.WriteError(w, http.StatusBadRequest, msgInvalidLogin)
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusUnauthorized, msgInvalidLogin)
		case errors.Is(err, service.ErrAccountDeactivated):
			httpx.WriteError(w, http.StatusForbidden, msgAccountDeactivated)
		default:
			log.Error("login failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, msgServerError)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, result)
}
