// Package catalog holds the canned HTTP responses used for injected errors.
package catalog

import (
	"github.com/prasenjit/go-mocksim/internal/models"
)

type entry struct {
	StatusCode int
	Label      string
	Message    string
	Headers    map[string]string
}

// standard is the fixed error table. It is never mutated.
var standard = map[models.ErrorKind]entry{
	models.ErrorBadRequest: {
		StatusCode: 400,
		Label:      "Bad Request",
		Message:    "The request could not be understood by the server",
	},
	models.ErrorUnauthorized: {
		StatusCode: 401,
		Label:      "Unauthorized",
		Message:    "Authentication is required to access this resource",
	},
	models.ErrorForbidden: {
		StatusCode: 403,
		Label:      "Forbidden",
		Message:    "You do not have permission to access this resource",
	},
	models.ErrorNotFound: {
		StatusCode: 404,
		Label:      "Not Found",
		Message:    "The requested resource was not found",
	},
	models.ErrorInternal: {
		StatusCode: 500,
		Label:      "Internal Server Error",
		Message:    "An unexpected error occurred",
	},
	models.ErrorServiceUnavailable: {
		StatusCode: 503,
		Label:      "Service Unavailable",
		Message:    "The service is temporarily unavailable",
	},
	models.ErrorRateLimited: {
		StatusCode: 429,
		Label:      "Too Many Requests",
		Message:    "Rate limit exceeded. Please try again later",
		Headers:    map[string]string{"Retry-After": "60"},
	},
}

// order is the listing order of Kinds
var order = []models.ErrorKind{
	models.ErrorBadRequest,
	models.ErrorUnauthorized,
	models.ErrorForbidden,
	models.ErrorNotFound,
	models.ErrorInternal,
	models.ErrorServiceUnavailable,
	models.ErrorRateLimited,
}

// ResponseFor returns a fresh copy of the canned response for kind.
// Unknown kinds fall back to INTERNAL_SERVER_ERROR.
func ResponseFor(kind models.ErrorKind) models.MockResponse {
	e, ok := standard[kind]
	if !ok {
		e = standard[models.ErrorInternal]
	}

	var headers map[string]string
	if len(e.Headers) > 0 {
		headers = make(map[string]string, len(e.Headers))
		for k, v := range e.Headers {
			headers[k] = v
		}
	}

	return models.MockResponse{
		StatusCode: e.StatusCode,
		Body: map[string]any{
			"error":   e.Label,
			"message": e.Message,
		},
		Headers: headers,
	}
}

// Kinds lists every error kind of the catalog
func Kinds() []models.ErrorKind {
	out := make([]models.ErrorKind, len(order))
	copy(out, order)
	return out
}
