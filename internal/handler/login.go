package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/superplace/rosterd/internal/domain"
	"github.com/superplace/rosterd/internal/identity"
	"github.com/superplace/rosterd/internal/security/audit"
	"github.com/superplace/rosterd/internal/security/auth"
	"github.com/superplace/rosterd/internal/security/ratelimit"
	"github.com/superplace/rosterd/internal/service"
)

const loginTokenTTL = 24 * time.Hour

// LoginRequest carries login credentials. Students typically log in with a
// phone number; isStudentLogin selects the phone identifier when both are
// present.
type LoginRequest struct {
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Password       string `json:"password"`
	IsStudentLogin bool   `json:"isStudentLogin,omitempty"`
}

// LoginHandler handles credential authentication and token issuance
type LoginHandler struct {
	directory    *service.DirectoryService
	registry     *service.RegistryService
	tokenManager *auth.TokenManager
	limiter      *ratelimit.Limiter
	audit        *audit.Logger
	logger       *slog.Logger
}

// NewLoginHandler creates a new login handler
func NewLoginHandler(directory *service.DirectoryService, registry *service.RegistryService, tm *auth.TokenManager, limiter *ratelimit.Limiter, auditLogger *audit.Logger, logger *slog.Logger) *LoginHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginHandler{
		directory:    directory,
		registry:     registry,
		tokenManager: tm,
		limiter:      limiter,
		audit:        auditLogger,
		logger:       logger,
	}
}

// ServeHTTP handles POST /api/auth/login
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode login request", slog.String("error", err.Error()))
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cred, err := h.credential(req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "password is required")
		return
	}

	// brute-force guard keyed on the normalized identifier
	if h.limiter != nil && !h.limiter.AllowStrict("login:"+cred.Value, 10, time.Minute) {
		h.audit.LogDenied(r.Context(), "", "", "login rate limit")
		writeMessage(w, http.StatusTooManyRequests, "Too many login attempts")
		return
	}

	account, err := h.directory.Authenticate(cred, req.Password)
	if err != nil {
		h.audit.LogLogin(r.Context(), "", "", "failure", string(domain.KindOf(err)))
		writeDomainError(w, err)
		return
	}

	token, err := h.tokenManager.GenerateToken(account.TenantID, account.ID, account.Email, string(account.Role), loginTokenTTL)
	if err != nil {
		h.logger.Error("failed to generate token",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
		writeMessage(w, http.StatusInternalServerError, "Token generation failed")
		return
	}

	h.audit.LogLogin(r.Context(), account.TenantID, account.ID, "success", "")
	h.logger.Info("account logged in",
		slog.String("account_id", account.ID),
		slog.String("tenant_id", account.TenantID),
		slog.String("role", string(account.Role)),
	)

	user := viewAccount(account)
	if account.TenantID != "" && h.registry != nil {
		// academy name is display-only; a lookup failure never blocks login
		if tenant, err := h.registry.Get(account.TenantID); err == nil {
			user.AcademyName = tenant.Name
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"token":     token,
			"expiresAt": time.Now().Add(loginTokenTTL),
			"user":      user,
		},
	})
}

// credential selects which identifier the request authenticates with
func (h *LoginHandler) credential(req LoginRequest) (identity.Credential, error) {
	switch {
	case req.IsStudentLogin && req.Phone != "":
		return identity.PhoneCredential(req.Phone)
	case req.Email != "":
		return identity.EmailCredential(req.Email)
	case req.Phone != "":
		return identity.PhoneCredential(req.Phone)
	default:
		return identity.Credential{}, domain.NewError(domain.KindValidation, "email or phone is required")
	}
}
