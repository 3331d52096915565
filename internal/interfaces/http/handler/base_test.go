package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forecast/ingestion/internal/domain/ingest"
	"github.com/forecast/ingestion/internal/interfaces/http/dto"
)

func performWithHandler(fn gin.HandlerFunc) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/test", fn)
	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestBaseHandlerSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var h BaseHandler
	w := performWithHandler(func(c *gin.Context) {
		h.Success(c, gin.H{"value": 42})
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}

func TestBaseHandlerErrorIncludesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var h BaseHandler
	w := performWithHandler(func(c *gin.Context) {
		c.Set(RequestIDKey, "req-789")
		h.BadRequest(c, "bad input")
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
	assert.Equal(t, "req-789", resp.Error.RequestID)
}

func TestBaseHandlerHandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var h BaseHandler

	t.Run("maps domain errors to their status code", func(t *testing.T) {
		w := performWithHandler(func(c *gin.Context) {
			h.HandleError(c, ingest.ErrSourceUnavailable)
		})

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "SOURCE_UNAVAILABLE")
	})

	t.Run("maps wrapped domain errors", func(t *testing.T) {
		wrapped := errors.Join(errors.New("admission failed"), ingest.ErrUnknownDataKind)
		w := performWithHandler(func(c *gin.Context) {
			h.HandleError(c, wrapped)
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "UNKNOWN_DATA_KIND")
	})

	t.Run("unknown errors become internal errors", func(t *testing.T) {
		w := performWithHandler(func(c *gin.Context) {
			h.HandleError(c, errors.New("boom"))
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeInternal)
	})
}
