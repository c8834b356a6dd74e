package commons

import "errors"

var ErrRecordNotFound = errors.New("Record not found")

// Error codes used by the backend's error body.
const (
	CodeAccountNotFound     = "ACCOUNT_NOT_FOUND"
	CodeAccountNotActive    = "ACCOUNT_NOT_ACTIVE"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeDuplicateTransfer   = "DUPLICATE_TRANSFER"
	CodeValidationError     = "VALIDATION_ERROR"
	CodeAccessDenied        = "ACCESS_DENIED"
	CodeAuthFailed          = "AUTHENTICATION_FAILED"
	CodeInternalError       = "INTERNAL_ERROR"
)

// Client-side codes for failures the backend never answered.
const (
	CodeNotAuthenticated = "NOT_AUTHENTICATED"
	CodeTransportError   = "TRANSPORT_ERROR"
	CodeCancelled        = "CANCELLED"
	CodeUnknown          = "UNKNOWN"
)

// ErrorBody is the JSON error document returned by the backend on non-2xx.
type ErrorBody struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

func NewErrorBody(code, message string) ErrorBody {
	return ErrorBody{ErrorCode: code, Message: message}
}
