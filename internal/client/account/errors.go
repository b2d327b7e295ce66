package account

import (
	"github.com/proloapp/sparkle/internal/common"
)

// APIError carries the account service's own error message verbatim, so the
// login flow can surface it unchanged. Unwrap maps the HTTP status onto the
// shared sentinel errors for errors.Is matching.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case 401, 403:
		return common.ErrorUnauthorized
	case 404:
		return common.ErrorNotFound
	case 409:
		return common.ErrorAlreadyExists
	case 502, 503, 504:
		return common.ErrorUnavailable
	default:
		return common.ErrorInternal
	}
}
