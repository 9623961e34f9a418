package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"
	ErrCodeInvalidAdminKey        = "invalid_admin_key"

	// Request errors
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeInvalidJSON    = "invalid_json"
	ErrCodeMissingField   = "missing_field"

	// Document errors
	ErrCodeDocumentInvalid   = "document_invalid"
	ErrCodeDocumentNotFound  = "document_not_found"
	ErrCodeInvalidDocumentID = "invalid_document_id"
	ErrCodeStoreFailed       = "store_failed"
	ErrCodePublishQueueFull  = "publish_queue_full"

	// Registry errors
	ErrCodeRegistryFetchFailed = "registry_fetch_failed"

	// Token issuing errors
	ErrCodeTokenIssueFailed = "token_issue_failed"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
)
