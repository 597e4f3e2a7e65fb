package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/superplace/rosterd/internal/domain"
	"github.com/superplace/rosterd/internal/security/audit"
	"github.com/superplace/rosterd/internal/security/middleware"
	"github.com/superplace/rosterd/internal/service"
)

// CreateAcademyRequest creates a new academy unconditionally; unlike a
// name-based signup it never joins an existing one.
type CreateAcademyRequest struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Email   string `json:"email,omitempty"`
}

// AcademiesHandler serves the administrative academy endpoints
type AcademiesHandler struct {
	registry *service.RegistryService
	audit    *audit.Logger
	logger   *slog.Logger
}

// NewAcademiesHandler creates a new academies handler
func NewAcademiesHandler(registry *service.RegistryService, auditLogger *audit.Logger, logger *slog.Logger) *AcademiesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AcademiesHandler{
		registry: registry,
		audit:    auditLogger,
		logger:   logger,
	}
}

// List handles GET /api/academies
func (h *AcademiesHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	tenants, err := h.registry.List()
	if err != nil {
		h.logger.Error("failed to list academies",
			slog.String("caller_id", caller.AccountID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	views := make([]academyView, 0, len(tenants))
	for _, t := range tenants {
		views = append(views, viewAcademy(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    views,
		"count":   len(views),
	})
}

// Create handles POST /api/academies
func (h *AcademiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	var req CreateAcademyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tenant, err := h.registry.Create(req.Name, req.Address, req.Email)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.audit.LogAction(r.Context(), tenant.ID, caller.AccountID, "academy_create", "academy", tenant.ID, "success", "")

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"data":    viewAcademy(tenant),
	})
}

func (h *AcademiesHandler) requireAdmin(w http.ResponseWriter, r *http.Request) (domain.Caller, bool) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Authentication required")
		return domain.Caller{}, false
	}
	if caller.Role != domain.RoleAdmin {
		h.audit.LogDenied(r.Context(), caller.TenantID, caller.AccountID, "academy endpoint requires administrator")
		writeMessage(w, http.StatusForbidden, "Administrator access required")
		return domain.Caller{}, false
	}
	return caller, true
}
