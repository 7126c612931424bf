package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/lexsuite/praksa-auth/internal/auth/service"
	"github.com/lexsuite/praksa-auth/internal/auth/store"
	"github.com/lexsuite/praksa-auth/pkg/httpx"
	"github.com/lexsuite/praksa-auth/pkg/jwtx"
	"github.com/lexsuite/praksa-auth/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store             store.Store
	CredentialService *service.CredentialService
	TwoFactorService  *service.TwoFactorService
	InviteService     *service.InviteService
	ActivityService   *service.ActivityService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerTwoFactor()
	r.registerInvites()
	r.registerActivity()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &LoginHandler{
		CredentialService: r.CredentialService,
	}

	// POST /auth/login - strict rate limit (authentication attempts)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerTwoFactor() {
	h := &TwoFactorHandler{
		TwoFactorService:  r.TwoFactorService,
		CredentialService: r.CredentialService,
		Verifier:          r.verifier,
	}

	// POST /auth/2fa/verify - strict rate limit (code guessing). The login
	// flow carries no bearer token yet, so the handler does its own
	// context resolution instead of AuthnMiddleware.
	r.Mux.Handle("POST /v1/auth/2fa/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/2fa/setup - moderate rate limit by user
	r.Mux.Handle("POST /v1/auth/2fa/setup",
		httpx.Chain(http.HandlerFunc(h.HandleSetup),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// POST /auth/2fa/backup-codes - moderate rate limit by user
	r.Mux.Handle("POST /v1/auth/2fa/backup-codes",
		httpx.Chain(http.HandlerFunc(h.HandleRegenerateBackupCodes),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// DELETE /auth/2fa - moderate rate limit by user
	r.Mux.Handle("DELETE /v1/auth/2fa",
		httpx.Chain(http.HandlerFunc(h.HandleDisable),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerInvites() {
	h := &InviteHandler{InviteService: r.InviteService}

	// POST /invites - admins only
	r.Mux.Handle("POST /v1/invites",
		httpx.Chain(http.HandlerFunc(h.HandleMint),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireRole("admin"),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// POST /invites/accept - unauthenticated, the token is the credential
	r.Mux.Handle("POST /v1/invites/accept",
		httpx.Chain(http.HandlerFunc(h.HandleAccept),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerActivity() {
	h := &ActivityHandler{ActivityService: r.ActivityService}

	r.Mux.Handle("GET /v1/auth/activity",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	h := &SystemHandler{
		Store:        r.store,
		BuildVersion: r.buildVersion,
		StartTime:    r.startTime,
	}

	r.Mux.Handle("GET /livez", http.HandlerFunc(h.HandleLivez))
	r.Mux.Handle("GET /readyz", http.HandlerFunc(h.HandleReadyz))
}
