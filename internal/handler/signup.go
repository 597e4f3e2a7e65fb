package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/superplace/rosterd/internal/domain"
	"github.com/superplace/rosterd/internal/security/audit"
	"github.com/superplace/rosterd/internal/service"
)

// SignupRequest carries a registration. The academy may be referenced by
// explicit id, by join code, or by display name; id wins over code, code
// over name.
type SignupRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	AcademyID   string `json:"academyId,omitempty"`
	AcademyCode string `json:"academyCode,omitempty"`
	AcademyName string `json:"academyName,omitempty"`
	// AcademyAddress is stored when name resolution creates the academy
	AcademyAddress string `json:"academyAddress,omitempty"`
}

// SignupHandler handles account registration
type SignupHandler struct {
	registry  *service.RegistryService
	directory *service.DirectoryService
	audit     *audit.Logger
	logger    *slog.Logger
}

// NewSignupHandler creates a new signup handler
func NewSignupHandler(registry *service.RegistryService, directory *service.DirectoryService, auditLogger *audit.Logger, logger *slog.Logger) *SignupHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignupHandler{
		registry:  registry,
		directory: directory,
		audit:     auditLogger,
		logger:    logger,
	}
}

// ServeHTTP handles POST /api/auth/signup
func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode signup request", slog.String("error", err.Error()))
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var tenant *domain.Tenant
	ref := service.TenantRef{ID: req.AcademyID, Code: req.AcademyCode, Name: req.AcademyName, Address: req.AcademyAddress}
	if role != domain.RoleAdmin || !ref.Empty() {
		tenant, err = h.registry.Resolve(ref)
		if err != nil {
			h.audit.LogSignup(r.Context(), "", "", "failure", "academy resolution failed")
			writeDomainError(w, err)
			return
		}
	}

	var tenantID string
	if tenant != nil {
		tenantID = tenant.ID
	}

	account, err := h.directory.CreateAccount(service.SignupParams{
		Name:     req.Name,
		Role:     role,
		Password: req.Password,
		Email:    req.Email,
		Phone:    req.Phone,
		TenantID: tenantID,
	})
	if err != nil {
		h.audit.LogSignup(r.Context(), tenantID, "", "failure", err.Error())
		writeDomainError(w, err)
		return
	}

	h.audit.LogSignup(r.Context(), account.TenantID, account.ID, "success", "")

	resp := map[string]any{
		"success": true,
		"message": "Account created",
		"user":    viewAccount(account),
	}
	// directors get the join code to hand out to teachers and students
	if role == domain.RoleDirector && tenant != nil {
		resp["academyCode"] = tenant.Code
	}
	writeJSON(w, http.StatusCreated, resp)
}
