package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeInvalidJSON, http.StatusBadRequest},
		{ErrCodeInvalidPayload, http.StatusBadRequest},
		{ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeUnknownDataKind, http.StatusBadRequest},
		{ErrCodeSourceUnavailable, http.StatusServiceUnavailable},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestResponseSerialization(t *testing.T) {
	t.Run("success response omits error", func(t *testing.T) {
		encoded, err := json.Marshal(NewSuccessResponse(map[string]int{"received": 3}))
		require.NoError(t, err)
		assert.NotContains(t, string(encoded), `"error"`)
		assert.Contains(t, string(encoded), `"success":true`)
	})

	t.Run("error response omits data", func(t *testing.T) {
		encoded, err := json.Marshal(NewErrorResponse(ErrCodeBadRequest, "bad input"))
		require.NoError(t, err)
		assert.NotContains(t, string(encoded), `"data"`)
		assert.Contains(t, string(encoded), ErrCodeBadRequest)
	})

	t.Run("request ID only present when set", func(t *testing.T) {
		plain, err := json.Marshal(NewErrorResponse(ErrCodeInternal, "boom"))
		require.NoError(t, err)
		assert.NotContains(t, string(plain), "request_id")

		withID, err := json.Marshal(NewErrorResponseWithRequestID(ErrCodeInternal, "boom", "req-1"))
		require.NoError(t, err)
		assert.Contains(t, string(withID), `"request_id":"req-1"`)
	})
}
