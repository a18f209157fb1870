package errors

import "fmt"

// AppError represents a custom application error
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error types
var (
	ErrOffline            = &AppError{Code: "CONNECTIVITY", Message: "Network connectivity unavailable"}
	ErrCredentialMissing  = &AppError{Code: "CREDENTIAL_MISSING", Message: "No valid ads platform credential"}
	ErrCredentialInvalid  = &AppError{Code: "CREDENTIAL_INVALID", Message: "Ads platform credential rejected"}
	ErrSecretDecode       = &AppError{Code: "SECRET_DECODE_FAILED", Message: "Stored secret is not in the expected encoding"}
	ErrSyncInFlight       = &AppError{Code: "SYNC_IN_FLIGHT", Message: "A sync is already running"}
	ErrSyncRateLimited    = &AppError{Code: "SYNC_RATE_LIMITED", Message: "Minimum sync interval has not elapsed"}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid credentials"}
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Unauthorized access"}
	ErrValidationFailed   = &AppError{Code: "VALIDATION_FAILED", Message: "Validation failed"}
)

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an error with additional context
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
