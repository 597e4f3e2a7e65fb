// Package identity canonicalizes login identifiers. Accounts can log in with
// an email or a phone number; both are stored and looked up in normalized
// form so that formatting differences never split one identity in two.
package identity

import (
	"strings"

	"github.com/superplace/rosterd/internal/domain"
)

// Kind selects which alternate identifier a credential carries
type Kind string

const (
	KindEmail Kind = "email"
	KindPhone Kind = "phone"
)

// Credential is a tagged login identifier. Value is always normalized.
type Credential struct {
	Kind  Kind
	Value string
}

// EmailCredential normalizes a raw email into a credential
func EmailCredential(raw string) (Credential, error) {
	v, err := NormalizeEmail(raw)
	if err != nil {
		return Credential{}, err
	}
	return Credential{Kind: KindEmail, Value: v}, nil
}

// PhoneCredential normalizes a raw phone number into a credential
func PhoneCredential(raw string) (Credential, error) {
	v, err := NormalizePhone(raw)
	if err != nil {
		return Credential{}, err
	}
	return Credential{Kind: KindPhone, Value: v}, nil
}

// NormalizeEmail lowercases and trims an email address. The shape check is
// deliberately loose: one @, non-empty local part, dotted domain.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domain.NewError(domain.KindValidation, "email is required")
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at != strings.LastIndexByte(email, '@') {
		return "", domain.NewError(domain.KindValidation, "invalid email format")
	}
	dom := email[at+1:]
	if dom == "" || !strings.Contains(dom, ".") ||
		strings.HasPrefix(dom, ".") || strings.HasSuffix(dom, ".") {
		return "", domain.NewError(domain.KindValidation, "invalid email format")
	}
	if strings.ContainsAny(email, " \t") {
		return "", domain.NewError(domain.KindValidation, "invalid email format")
	}
	return email, nil
}

// NormalizePhone strips separators from a phone number, keeping digits and an
// optional leading +. "010-1234-5678" and "01012345678" are the same number.
func NormalizePhone(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", domain.NewError(domain.KindValidation, "phone is required")
	}

	var b strings.Builder
	for i, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == '-' || r == ' ' || r == '(' || r == ')' || r == '.':
			// separator, dropped
		default:
			return "", domain.NewError(domain.KindValidation, "invalid phone number")
		}
	}

	phone := b.String()
	digits := strings.TrimPrefix(phone, "+")
	if len(digits) < 5 {
		return "", domain.NewError(domain.KindValidation, "phone number too short")
	}
	return phone, nil
}
