package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type ErrorCode string

const (
	// Sweep level
	ErrCodeDocumentsLoadFailed     ErrorCode = "DOCUMENTS_LOAD_FAILED"
	ErrCodeCompanyLookupFailed     ErrorCode = "COMPANY_LOOKUP_FAILED"
	ErrCodeRecipientsResolveFailed ErrorCode = "RECIPIENTS_RESOLVE_FAILED"
	ErrCodeTemplateLookupFailed    ErrorCode = "TEMPLATE_LOOKUP_FAILED"
	ErrCodeSweepInProgress         ErrorCode = "SWEEP_IN_PROGRESS"

	// Delivery
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeMailConfigMissing      ErrorCode = "MAIL_CONFIG_MISSING"

	// Trigger input
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	// Storage
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	// Workflow engine
	ErrCodeWorkflowUnavailable ErrorCode = "WORKFLOW_UNAVAILABLE"
	ErrCodeWorkflowRejected    ErrorCode = "WORKFLOW_REJECTED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata sets one metadata entry and returns the error for chaining.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message string, err error, retryable bool) *StandardError {
	se := &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
	if err != nil {
		se.Details = err.Error()
	}
	return se
}

func NewDocumentsLoadFailedError(err error) *StandardError {
	return newError(ErrCodeDocumentsLoadFailed, "Failed to load documents", err, true)
}

func NewCompanyLookupFailedError(companyID string, err error) *StandardError {
	return newError(ErrCodeCompanyLookupFailed, "Failed to load company", err, true).
		WithMetadata("companyId", companyID)
}

func NewRecipientsResolveFailedError(companyID string, err error) *StandardError {
	return newError(ErrCodeRecipientsResolveFailed, "Failed to resolve recipients", err, true).
		WithMetadata("companyId", companyID)
}

func NewTemplateLookupFailedError(companyID, templateType string, err error) *StandardError {
	return newError(ErrCodeTemplateLookupFailed, "Failed to load email template", err, true).
		WithMetadata("companyId", companyID).
		WithMetadata("templateType", templateType)
}

func NewSweepInProgressError() *StandardError {
	return &StandardError{
		Code:      ErrCodeSweepInProgress,
		Message:   "A document expiry sweep is already running",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewNotificationSendFailedError(provider string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed", err, true).
		WithMetadata("provider", provider)
}

func NewMailConfigMissingError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMailConfigMissing,
		Message:   "Mail transport is not configured",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err, true)
}

func NewQueryExecutionFailedError(queryName string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error", err, true).
		WithMetadata("query", queryName)
}

func NewQueryTimeoutError(queryName string, err error) *StandardError {
	return newError(ErrCodeQueryTimeout, "Database query timeout", err, true).
		WithMetadata("query", queryName)
}

func NewWorkflowUnavailableError(operation string, err error) *StandardError {
	return newError(ErrCodeWorkflowUnavailable, "Workflow engine unavailable", err, true).
		WithMetadata("operation", operation)
}

func NewWorkflowRejectedError(operation string, err error) *StandardError {
	return newError(ErrCodeWorkflowRejected, "Workflow engine rejected the command", err, false).
		WithMetadata("operation", operation)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err, false)
}

// AsStandardError finds the first StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// HasCode reports whether err carries a StandardError with the given code.
func HasCode(err error, code ErrorCode) bool {
	se, ok := AsStandardError(err)
	return ok && se.Code == code
}

// HTTPStatus maps an error code to the status the HTTP trigger responds with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeSweepInProgress:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeDocumentsLoadFailed:      "DOCUMENTS_LOAD_FAILED",
	ErrCodeCompanyLookupFailed:      "COMPANY_LOOKUP_FAILED",
	ErrCodeRecipientsResolveFailed:  "RECIPIENTS_RESOLVE_FAILED",
	ErrCodeTemplateLookupFailed:     "TEMPLATE_LOOKUP_FAILED",
	ErrCodeSweepInProgress:          "SWEEP_IN_PROGRESS",
	ErrCodeNotificationSendFailed:   "NOTIFICATION_SEND_FAILED",
	ErrCodeMailConfigMissing:        "MAIL_CONFIG_MISSING",
	ErrCodeInvalidRequest:           "INVALID_REQUEST",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:     "QUERY_EXECUTION_FAILED",
	ErrCodeQueryTimeout:             "QUERY_TIMEOUT",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDocumentsLoadFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed:
		return 3

	case ErrCodeQueryTimeout, ErrCodeWorkflowUnavailable:
		return 2

	case ErrCodeSweepInProgress:
		return 1 // try again once the running sweep is done

	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable && stdErr.Code != ErrCodeSweepInProgress {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: retries > 0,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TEMPLATE"):
		return "TEMPLATE"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") ||
		strings.HasSuffix(codeStr, "LOAD_FAILED") || strings.HasSuffix(codeStr, "LOOKUP_FAILED"):
		return "DATABASE"
	case strings.Contains(codeStr, "RECIPIENTS"):
		return "RECIPIENTS"
	case strings.Contains(codeStr, "NOTIFICATION") || strings.Contains(codeStr, "MAIL"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "SWEEP"):
		return "SWEEP"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.HasPrefix(codeStr, "WORKFLOW"):
		return "WORKFLOW"
	default:
		return "OTHER"
	}
}
