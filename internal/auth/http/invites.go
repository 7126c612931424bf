package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lexsuite/praksa-auth/internal/auth/service"
	"github.com/lexsuite/praksa-auth/pkg/httpx"
	"github.com/lexsuite/praksa-auth/pkg/slogx"
)

// InviteHandler handles organization membership invitations.
type InviteHandler struct {
	InviteService *service.InviteService
}

type mintInviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// HandleMint handles POST /v1/invites. Admin only; the org is taken from
// the caller's session, never from the request body.
func (h *InviteHandler) HandleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req mintInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "neispravan zahtjev")
		return
	}

	token, err := h.InviteService.MintInvite(ctx, httpx.OrgIDFromCtx(ctx), req.Email, req.Role, httpx.UserIDFromCtx(ctx))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInviteRequest), errors.Is(err, service.ErrInvalidRole):
			httpx.WriteError(w, http.StatusBadRequest, "neispravan zahtjev")
		case errors.Is(err, service.ErrEmailAlreadyTaken):
			httpx.WriteError(w, http.StatusConflict, "email adresa je već registrirana")
		default:
			log.Error("failed to mint invite", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, msgServerError)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, map[string]string{"token": token})
}

type acceptInviteRequest struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// HandleAccept handles POST /v1/invites/accept.
func (h *InviteHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req acceptInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "neispravan zahtjev")
		return
	}

	identity, err := h.InviteService.AcceptInvite(ctx, req.Token, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInviteNotFound):
			httpx.WriteError(w, http.StatusNotFound, "pozivnica ne postoji ili je istekla")
		case errors.Is(err, service.ErrWeakPassword):
			httpx.WriteError(w, http.StatusBadRequest, "lozinka je prekratka")
		case errors.Is(err, service.ErrInvalidInviteRequest):
			httpx.WriteError(w, http.StatusBadRequest, "neispravan zahtjev")
		default:
			log.Error("failed to accept invite", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, msgServerError)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, identity)
}
