package errors

// Error codes returned in API error bodies.
// Format: CATEGORY_SPECIFIC_DETAIL

const (
	// Authentication
	AuthUnauthorized = "AUTH_UNAUTHORIZED"
	AuthTokenInvalid = "AUTH_TOKEN_INVALID"
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED"

	// Validation
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"

	// Resources
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"

	ProductNotFound = "PRODUCT_NOT_FOUND"
	TagNotFound     = "TAG_NOT_FOUND"

	// Uploads
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadDecodeFailed    = "UPLOAD_DECODE_FAILED"
	UploadFailed          = "UPLOAD_FAILED"

	// Storage
	StorageUnavailable = "STORAGE_UNAVAILABLE"
	StoragePartial     = "STORAGE_PARTIAL"

	// Internal
	InternalServerError = "INTERNAL_SERVER_ERROR"
)
