package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveWithRequestID(t *testing.T, inbound string) *httptest.ResponseRecorder {
	t.Helper()

	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if inbound != "" {
		req.Header.Set("X-Request-Id", inbound)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequestIDEchoesWellFormedHeader(t *testing.T) {
	rec := serveWithRequestID(t, "trace-abc-123")
	assert.Equal(t, "trace-abc-123", rec.Header().Get("X-Request-Id"))
}

func TestRequestIDMintsWhenMissing(t *testing.T) {
	rec := serveWithRequestID(t, "")

	id := rec.Header().Get("X-Request-Id")
	_, err := uuid.Parse(id)
	require.NoError(t, err)
}

func TestRequestIDReplacesUntrustedValues(t *testing.T) {
	cases := []struct {
		name    string
		inbound string
	}{
		{"control characters", "abc\x1bdef"},
		{"embedded newline", "abc\ndef"},
		{"oversized", strings.Repeat("x", 200)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serveWithRequestID(t, tc.inbound)

			id := rec.Header().Get("X-Request-Id")
			assert.NotEqual(t, tc.inbound, id)
			_, err := uuid.Parse(id)
			assert.NoError(t, err)
		})
	}
}
