package errors

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is the HTTP rendering of an error.
type ErrorInfo struct {
	Status  int
	Code    string
	Message string
}

// As is errors.As, re-exported so callers importing this package as
// apperrors do not also need the standard errors package.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// ParseError converts err into a status, code and user-facing message.
// context names the resource ("product", "tag") for not-found messages.
// Backend details stay in the logs; only the kind reaches the client.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Status: http.StatusInternalServerError, Code: InternalServerError, Message: "Something went wrong"}
	}

	switch {
	case errors.Is(err, ErrValidation):
		return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationInvalidInput, Message: err.Error()}
	case errors.Is(err, ErrDecode):
		return ErrorInfo{Status: http.StatusBadRequest, Code: UploadDecodeFailed, Message: "The uploaded photo could not be read as an image"}
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return ErrorInfo{Status: http.StatusNotFound, Code: notFoundCode(context), Message: notFoundMessage(context)}
	case errors.Is(err, ErrPartial):
		return ErrorInfo{Status: http.StatusOK, Code: StoragePartial, Message: "The operation completed, but some records could not be updated"}
	case errors.Is(err, ErrStorage):
		return ErrorInfo{Status: http.StatusServiceUnavailable, Code: StorageUnavailable, Message: "Storage is unavailable. Please try again"}
	}

	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "duplicate key") || strings.Contains(lower, "unique constraint") {
		return ErrorInfo{Status: http.StatusConflict, Code: ResourceAlreadyExists, Message: "The " + nonEmpty(context, "resource") + " already exists"}
	}
	if strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "timeout") {
		return ErrorInfo{Status: http.StatusServiceUnavailable, Code: StorageUnavailable, Message: "Storage is unavailable. Please try again"}
	}

	return ErrorInfo{Status: http.StatusInternalServerError, Code: InternalServerError, Message: "Something went wrong. Please try again later"}
}

func notFoundCode(context string) string {
	switch context {
	case "product":
		return ProductNotFound
	case "tag":
		return TagNotFound
	default:
		return ResourceNotFound
	}
}

func notFoundMessage(context string) string {
	switch context {
	case "product":
		return "Product not found"
	case "tag":
		return "Tag not found"
	default:
		return "Resource not found"
	}
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
