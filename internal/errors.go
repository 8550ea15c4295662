package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound         ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized     ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden        ErrorType = "FORBIDDEN"
	ErrorTypeConflict         ErrorType = "CONFLICT"
	ErrorTypeInvalidOperation ErrorType = "INVALID_OPERATION"
	ErrorTypeInternal         ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal         ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidEmail     ErrorCode = "INVALID_EMAIL"
	ErrCodeInvalidRole      ErrorCode = "INVALID_ROLE"
	ErrCodeInvalidTimezone  ErrorCode = "INVALID_TIMEZONE"
	ErrCodeInvalidCurrency  ErrorCode = "INVALID_CURRENCY"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"

	ErrCodeUnauthenticated  ErrorCode = "UNAUTHENTICATED"
	ErrCodeAccessDenied     ErrorCode = "ACCESS_DENIED"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	ErrCodeAlreadyStaff        ErrorCode = "ALREADY_STAFF"
	ErrCodeDuplicateInvitation ErrorCode = "DUPLICATE_INVITATION"
	ErrCodeSlugExhausted       ErrorCode = "SLUG_EXHAUSTED"
	ErrCodeSlugConflict        ErrorCode = "SLUG_CONFLICT"
	ErrCodeConflict            ErrorCode = "CONFLICT"
	ErrCodeEmailTaken          ErrorCode = "EMAIL_TAKEN"

	ErrCodeInvalidToken          ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired          ErrorCode = "TOKEN_EXPIRED"
	ErrCodeAlreadyUsed           ErrorCode = "ALREADY_USED"
	ErrCodeInvalidOrExpiredToken ErrorCode = "INVALID_OR_EXPIRED_TOKEN"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"

	ErrCodeNotificationFailed ErrorCode = "NOTIFICATION_FAILED"
	ErrCodePaymentGateway     ErrorCode = "PAYMENT_GATEWAY_ERROR"
	ErrCodeInvalidSignature   ErrorCode = "INVALID_SIGNATURE"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on Code so wrapped copies of a sentinel still satisfy errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Type == t.Type
}

// WithCause returns a copy of e carrying cause. Sentinels are never mutated.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInvalidOperationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidOperation,
		Code:       ErrCodeInvalidOperation,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewExternalError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadGateway,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

var (
	ErrUnauthenticated = NewUnauthorizedError("authentication required", ErrCodeUnauthenticated)
	ErrNoVenueAccess   = NewForbiddenError("you do not have access to this venue", ErrCodeAccessDenied)

	ErrVenueNotFound   = NewNotFoundError("venue not found", ErrCodeNotFound)
	ErrStaffNotFound   = NewNotFoundError("staff member not found", ErrCodeNotFound)
	ErrSlugExhausted   = NewConflictError("could not generate a unique slug for this venue name", ErrCodeSlugExhausted)
	ErrSlugConflict    = NewConflictError("venue slug was taken concurrently, please retry", ErrCodeSlugConflict)
	ErrAlreadyStaff    = NewConflictError("user is already a staff member at this venue", ErrCodeAlreadyStaff)
	ErrDuplicateInvite = NewConflictError("an invitation is already pending for this email", ErrCodeDuplicateInvitation)
	ErrNotification    = NewExternalError("failed to send notification", ErrCodeNotificationFailed)

	ErrInvalidToken = NewNotFoundError("invitation not found", ErrCodeInvalidToken)
	ErrTokenExpired = &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeTokenExpired,
		Message:    "invitation has expired",
		StatusCode: http.StatusGone,
	}
	ErrAlreadyUsed           = NewConflictError("invitation has already been used", ErrCodeAlreadyUsed)
	ErrInvalidOrExpiredToken = NewValidationError("invalid or expired reset token", ErrCodeInvalidOrExpiredToken)

	ErrEmailTaken         = NewConflictError("an account with this email already exists", ErrCodeEmailTaken)
	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrUserInactive       = NewForbiddenError("User account is inactive", ErrCodeUserInactive)
	ErrInvalidAuthToken   = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrAuthTokenExpired   = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// ErrorCodeOf returns the code of the first AppError in err's chain, or "".
func ErrorCodeOf(err error) ErrorCode {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
