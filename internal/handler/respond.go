package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/superplace/rosterd/internal/domain"
)

// accountView is the wire shape of an account. The password hash never
// crosses this boundary.
type accountView struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	AcademyID   string     `json:"academyId,omitempty"`
	AcademyName string     `json:"academyName,omitempty"`
	Approved    bool       `json:"approved"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

func viewAccount(a *domain.Account) accountView {
	return accountView{
		ID:          a.ID,
		Name:        a.Name,
		Role:        string(a.Role),
		Email:       a.Email,
		Phone:       a.Phone,
		AcademyID:   a.TenantID,
		Approved:    a.Approved,
		CreatedAt:   a.CreatedAt,
		LastLoginAt: a.LastLoginAt,
	}
}

// academyView is the wire shape of an academy
type academyView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Address   string    `json:"address,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func viewAcademy(t *domain.Tenant) academyView {
	return academyView{
		ID:        t.ID,
		Name:      t.Name,
		Code:      t.Code,
		Address:   t.Address,
		Email:     t.Email,
		CreatedAt: t.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": status < 400,
		"message": message,
	})
}

// writeDomainError maps a classified failure to a status code. Credential
// failures collapse to one generic message so responses never reveal whether
// an identifier exists.
func writeDomainError(w http.ResponseWriter, err error) {
	switch domain.KindOf(err) {
	case domain.KindAccountNotFound, domain.KindInvalidCredential:
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
	case domain.KindApprovalPending:
		writeMessage(w, http.StatusForbidden, "Account pending approval")
	case domain.KindDuplicateIdentifier:
		writeMessage(w, http.StatusConflict, clientMessage(err, "Identifier already registered"))
	case domain.KindValidation, domain.KindInvalidTenantReference, domain.KindMissingTenantBinding:
		writeMessage(w, http.StatusBadRequest, clientMessage(err, "Invalid request"))
	case domain.KindStorageUnavailable:
		writeMessage(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

// clientMessage returns the domain error message when the kind is safe to
// show, falling back otherwise.
func clientMessage(err error, fallback string) string {
	var de *domain.Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return fallback
}
