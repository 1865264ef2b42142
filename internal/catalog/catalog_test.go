package catalog

import (
	"testing"

	"github.com/prasenjit/go-mocksim/internal/models"
)

func TestResponseFor(t *testing.T) {
	tests := []struct {
		kind       models.ErrorKind
		statusCode int
		label      string
	}{
		{models.ErrorBadRequest, 400, "Bad Request"},
		{models.ErrorUnauthorized, 401, "Unauthorized"},
		{models.ErrorForbidden, 403, "Forbidden"},
		{models.ErrorNotFound, 404, "Not Found"},
		{models.ErrorInternal, 500, "Internal Server Error"},
		{models.ErrorServiceUnavailable, 503, "Service Unavailable"},
		{models.ErrorRateLimited, 429, "Too Many Requests"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			resp := ResponseFor(tt.kind)
			if resp.StatusCode != tt.statusCode {
				t.Errorf("expected status %d, got %d", tt.statusCode, resp.StatusCode)
			}
			body, ok := resp.Body.(map[string]any)
			if !ok {
				t.Fatalf("expected map body, got %T", resp.Body)
			}
			if body["error"] != tt.label {
				t.Errorf("expected error label %q, got %v", tt.label, body["error"])
			}
			if msg, _ := body["message"].(string); msg == "" {
				t.Error("expected a message")
			}
		})
	}
}

func TestResponseFor_RateLimitedHeader(t *testing.T) {
	resp := ResponseFor(models.ErrorRateLimited)
	if resp.Headers["Retry-After"] != "60" {
		t.Errorf("expected Retry-After 60, got %q", resp.Headers["Retry-After"])
	}

	if h := ResponseFor(models.ErrorNotFound).Headers; len(h) != 0 {
		t.Errorf("expected no headers for NOT_FOUND, got %v", h)
	}
}

func TestResponseFor_ReturnsCopies(t *testing.T) {
	first := ResponseFor(models.ErrorRateLimited)
	first.Headers["Retry-After"] = "1"
	first.Body.(map[string]any)["error"] = "changed"

	second := ResponseFor(models.ErrorRateLimited)
	if second.Headers["Retry-After"] != "60" {
		t.Error("mutating a returned header map changed the catalog")
	}
	if second.Body.(map[string]any)["error"] != "Too Many Requests" {
		t.Error("mutating a returned body changed the catalog")
	}
}

func TestResponseFor_UnknownKind(t *testing.T) {
	resp := ResponseFor("TEAPOT")
	if resp.StatusCode != 500 {
		t.Errorf("expected fallback status 500, got %d", resp.StatusCode)
	}
}

func TestKinds(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != 7 {
		t.Fatalf("expected 7 kinds, got %d", len(kinds))
	}
	for _, k := range kinds {
		if !k.Valid() {
			t.Errorf("kind %q is not valid", k)
		}
	}
}
