package services

import (
	"errors"
	"fmt"
)

// ErrorType is the category a handler maps to an HTTP status
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeExternal     ErrorType = "external" // a provider, processor or publisher failed
)

// DomainError is the error every service returns to handlers. Message is
// safe to show to callers; Err is kept for the logs.
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches a sentinel, or a copy of it carrying a cause or details
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e == t || (e.Type == t.Type && e.Message == t.Message)
}

// WithDetail attaches a field for the error response. Call it on errors
// built with NewDomainError, never on the shared sentinels below.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Tenancy and auth
var (
	ErrOrganizationNotFound = NewDomainError(ErrorTypeNotFound, "organization not found", nil)
	ErrEmployeeNotFound     = NewDomainError(ErrorTypeNotFound, "employee not found", nil)
	ErrDuplicateSlug        = NewDomainError(ErrorTypeConflict, "slug already exists", nil)
	ErrDuplicateEmail       = NewDomainError(ErrorTypeConflict, "email already exists", nil)
	ErrDuplicateHandle      = NewDomainError(ErrorTypeConflict, "handle already taken", nil)
	ErrInvalidToken         = NewDomainError(ErrorTypeUnauthorized, "invalid authentication token", nil)
	ErrTokenExpired         = NewDomainError(ErrorTypeUnauthorized, "authentication token expired", nil)
	ErrForbidden            = NewDomainError(ErrorTypeForbidden, "access forbidden", nil)
	ErrOrgMismatch          = NewDomainError(ErrorTypeForbidden, "organization mismatch", nil)
	ErrAuthProvider         = NewDomainError(ErrorTypeExternal, "auth provider error", nil)
)

// Clients and churn
var (
	ErrClientNotFound = NewDomainError(ErrorTypeNotFound, "client not found", nil)
	ErrNoPortalEmail  = NewDomainError(ErrorTypeValidation, "client has no email address", nil)
)

// Kanban
var (
	ErrBoardNotFound    = NewDomainError(ErrorTypeNotFound, "board not found", nil)
	ErrColumnNotFound   = NewDomainError(ErrorTypeNotFound, "column not found", nil)
	ErrTaskNotFound     = NewDomainError(ErrorTypeNotFound, "task not found", nil)
	ErrSameColumn       = NewDomainError(ErrorTypeValidation, "handoff target must differ from the source column", nil)
	ErrColumnNotOnBoard = NewDomainError(ErrorTypeValidation, "column does not belong to board", nil)
	ErrAlreadyHandedOff = NewDomainError(ErrorTypeConflict, "task has already been handed off", nil)
)

// Notifications
var ErrNotificationNotFound = NewDomainError(ErrorTypeNotFound, "notification not found", nil)

// Proposals and billing
var (
	ErrProposalNotFound  = NewDomainError(ErrorTypeNotFound, "proposal not found", nil)
	ErrInvoiceNotFound   = NewDomainError(ErrorTypeNotFound, "invoice not found", nil)
	ErrInvalidTransition = NewDomainError(ErrorTypeValidation, "invalid status transition", nil)
	ErrInvalidSignature  = NewDomainError(ErrorTypeValidation, "invalid webhook signature", nil)
	ErrProposalLocked    = NewDomainError(ErrorTypeConflict, "only draft proposals can be changed", nil)
	ErrProposalNotSent   = NewDomainError(ErrorTypeConflict, "proposal is not awaiting a decision", nil)
	ErrProposalExpired   = NewDomainError(ErrorTypeConflict, "proposal has expired", nil)
	ErrNotAccepted       = NewDomainError(ErrorTypeConflict, "contracts can only be generated for accepted proposals", nil)
	ErrAlreadyPaid       = NewDomainError(ErrorTypeConflict, "invoice is already paid", nil)
	ErrNotPayable        = NewDomainError(ErrorTypeConflict, "invoice cannot be paid in its current status", nil)
	ErrPaymentProvider   = NewDomainError(ErrorTypeExternal, "payment provider error", nil)
)

// Social and chat
var (
	ErrPostNotFound         = NewDomainError(ErrorTypeNotFound, "social post not found", nil)
	ErrConversationNotFound = NewDomainError(ErrorTypeNotFound, "conversation not found", nil)
	ErrContentTooLong       = NewDomainError(ErrorTypeValidation, "content exceeds platform limit", nil)
	ErrScheduleInPast       = NewDomainError(ErrorTypeValidation, "scheduled time must be in the future", nil)
	ErrPostLocked           = NewDomainError(ErrorTypeConflict, "post can no longer be changed", nil)
)

// AI routing
var (
	ErrEmptyPrompt          = NewDomainError(ErrorTypeValidation, "prompt cannot be empty", nil)
	ErrProviderRejected     = NewDomainError(ErrorTypeValidation, "AI provider rejected the request", nil)
	ErrNoProviderConfigured = NewDomainError(ErrorTypeExternal, "no AI provider configured", nil)
	ErrAllProvidersFailed   = NewDomainError(ErrorTypeExternal, "all AI providers failed", nil)
)

// GetErrorType returns the type of a domain error anywhere in err's chain,
// or "" for plain errors
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details of a domain error, or nil
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

func IsNotFoundError(err error) bool { return GetErrorType(err) == ErrorTypeNotFound }
func IsValidationError(err error) bool { return GetErrorType(err) == ErrorTypeValidation }
func IsForbiddenError(err error) bool { return GetErrorType(err) == ErrorTypeForbidden }
func IsConflictError(err error) bool { return GetErrorType(err) == ErrorTypeConflict }
func IsInternalError(err error) bool { return GetErrorType(err) == ErrorTypeInternal }
func IsExternalError(err error) bool { return GetErrorType(err) == ErrorTypeExternal }

// WrapInternal hides err behind message in responses
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
