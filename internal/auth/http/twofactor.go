package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lexsuite/praksa-auth/internal/auth/service"
	"github.com/lexsuite/praksa-auth/pkg/httpx"
	"github.com/lexsuite/praksa-auth/pkg/jwtx"
	"github.com/lexsuite/praksa-auth/pkg/slogx"
)

const (
	msgInvalidCode     = "Neispravan kod"
	msgSessionExpired  = "sesija za prijavu je istekla, prijavite se ponovno"
	msgTooManyAttempts = "previše neuspjelih pokušaja, prijavite se ponovno"
	msgNotConfigured   = "dvofaktorska autentifikacija nije postavljena"
	msgUnauthorized    = "niste prijavljeni"
)

// TwoFactorHandler handles enrollment, verification, backup codes, and
// disabling of the second factor.
type TwoFactorHandler struct {
	TwoFactorService  *service.TwoFactorService
	CredentialService *service.CredentialService
	Verifier          jwtx.Verifier
}

type verifyRequest struct {
	Code string `json:"code"`
	// SessionID selects the login flow: the caller holds no session yet,
	// only the transient ID returned by the login challenge.
	SessionID string `json:"sessionId,omitempty"`
	Email     string `json:"email,omitempty"`
}

// HandleVerify handles POST /v1/auth/2fa/verify in two modes.
//
// Login flow (sessionId present): the code is checked against the pending
// login session; success completes the login and returns a full session
// token.
//
// Session flow (no sessionId, bearer token present): the code is checked
// for the authenticated user. The first success after setup enables
// two-factor and returns backup codes.
func (h *TwoFactorHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidCode)
		return
	}

	if req.SessionID != "" {
		h.verifyLoginFlow(w, r, req)
		return
	}

	userID, ok := h.bearerUserID(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	backupCodes, err := h.TwoFactorService.VerifySession(ctx, userID, req.Code)
	if err != nil {
		h.writeVerifyError(w, log, err)
		return
	}

	resp := map[string]any{"verified": true, "twoFactorEnabled": true}
	if backupCodes != nil {
		resp["backupCodes"] = backupCodes
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *TwoFactorHandler) verifyLoginFlow(w http.ResponseWriter, r *http.Request, req verifyRequest) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	proof, user, err := h.TwoFactorService.VerifyLogin(ctx, req.SessionID, req.Code)
	if err != nil {
		h.writeVerifyError(w, log, err)
		return
	}

	email := req.Email
	if email == "" {
		email = user.Email
	}

	result, err := h.CredentialService.AuthorizeVerified(ctx, email, proof)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrMissingCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, msgInvalidLogin)
			return
		}
		if errors.Is(err, service.ErrAccountDeactivated) {
			httpx.WriteError(w, http.StatusForbidden, msgAccountDeactivated)
			return
		}
		log.Error("failed to issue session after verification", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, result)
}

// HandleSetup handles POST /v1/auth/2fa/setup. Requires authentication.
func (h *TwoFactorHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	enrollment, err := h.TwoFactorService.Enroll(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrTwoFactorEnabled) {
			httpx.WriteError(w, http.StatusConflict, "dvofaktorska autentifikacija je već uključena")
			return
		}
		log.Error("failed to enroll two-factor", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"secret":  enrollment.Secret,
		"url":     enrollment.URL,
		"qrCode":  enrollment.QRCode, // base64 encoded by encoding/json
		"issuer":  enrollment.Issuer,
		"account": enrollment.Account,
	})
}

type regenerateRequest struct {
	Code string `json:"code"`
}

// HandleRegenerateBackupCodes handles POST /v1/auth/2fa/backup-codes. A
// currently-valid code is required, same as disabling.
func (h *TwoFactorHandler) HandleRegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	var req regenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidCode)
		return
	}

	codes, err := h.TwoFactorService.RegenerateBackupCodes(ctx, userID, req.Code)
	if err != nil {
		h.writeVerifyError(w, log, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"backupCodes": codes})
}

type disableRequest struct {
	Code string `json:"code"`
}

// HandleDisable handles DELETE /v1/auth/2fa. A currently-valid code is
// required to prove possession before turning the second factor off.
func (h *TwoFactorHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	var req disableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidCode)
		return
	}

	if err := h.TwoFactorService.Disable(ctx, userID, req.Code); err != nil {
		h.writeVerifyError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"disabled": true})
}

// writeVerifyError maps verification failures to responses. Wrong,
// malformed, and missing codes all read "Neispravan kod"; the distinction
// stays in status codes and the audit log.
func (h *TwoFactorHandler) writeVerifyError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrMissingCode), errors.Is(err, service.ErrInvalidCodeFormat):
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidCode)
	case errors.Is(err, service.ErrInvalidCode):
		httpx.WriteError(w, http.StatusUnauthorized, msgInvalidCode)
	case errors.Is(err, service.ErrTwoFactorNotConfigured):
		httpx.WriteError(w, http.StatusBadRequest, msgNotConfigured)
	case errors.Is(err, service.ErrSessionExpired):
		httpx.WriteError(w, http.StatusUnauthorized, msgSessionExpired)
	case errors.Is(err, service.ErrTooManyAttempts):
		httpx.WriteError(w, http.StatusTooManyRequests, msgTooManyAttempts)
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusUnauthorized, msgInvalidLogin)
	default:
		log.Error("two-factor verification failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, msgServerError)
	}
}

// bearerUserID resolves the caller from an Authorization header. The verify
// endpoint serves the login flow without a token, so it cannot sit behind
// AuthnMiddleware; session-flow callers still have to present one.
func (h *TwoFactorHandler) bearerUserID(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	claims, err := h.Verifier.Verify(strings.TrimSpace(strings.TrimPrefix(authz, "Bearer")))
	if err != nil {
		return "", false
	}
	if err := claims.ValidateExpiry(); err != nil {
		return "", false
	}
	return claims.Subject, true
}
