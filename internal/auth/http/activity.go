package http

import (
	"net/http"
	"strconv"

	"github.com/lexsuite/praksa-auth/internal/auth/service"
	"github.com/lexsuite/praksa-auth/pkg/httpx"
	"github.com/lexsuite/praksa-auth/pkg/slogx"
)

// ActivityHandler serves the audit-log read endpoint.
type ActivityHandler struct {
	ActivityService *service.ActivityService
}

// HandleList handles GET /v1/auth/activity?limit=N. Entries are scoped to
// the caller's organization.
func (h *ActivityHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.ActivityService.ListRecent(ctx, httpx.OrgIDFromCtx(ctx), limit)
	if err != nil {
		log.Error("failed to list activity", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
