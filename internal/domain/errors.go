package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure. Every kind except KindStorageUnavailable
// is a client fault scoped to the request that triggered it.
type Kind string

const (
	KindInvalidTenantReference Kind = "invalid_tenant_reference"
	KindMissingTenantBinding   Kind = "missing_tenant_binding"
	KindAccountNotFound        Kind = "account_not_found"
	KindInvalidCredential      Kind = "invalid_credential"
	KindDuplicateIdentifier    Kind = "duplicate_identifier"
	KindValidation             Kind = "validation"
	KindApprovalPending        Kind = "approval_pending"
	KindStorageUnavailable     Kind = "storage_unavailable"
)

// Error is a domain error with a kind the transport layer can map to a status
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError creates a domain error of the given kind
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError attaches a kind to an underlying error
func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// StorageError wraps an opaque storage failure. Callers may retry.
func StorageError(err error) *Error {
	return &Error{Kind: KindStorageUnavailable, Message: "storage unavailable", Err: err}
}

// KindOf extracts the kind from an error chain, or "" for unclassified errors
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether an error chain carries the given kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the failure is worth retrying
func Retryable(err error) bool {
	return IsKind(err, KindStorageUnavailable)
}
