package api

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestTimeout(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.Use(requestTimeout(20 * time.Millisecond))

	var returned atomic.Bool
	e.GET("/slow", func(c echo.Context) error {
		<-c.Request().Context().Done()
		returned.Store(true)
		return c.Request().Context().Err()
	})
	e.GET("/fast", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.POST("/upload", func(c echo.Context) error {
		select {
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		case <-time.After(60 * time.Millisecond):
			return c.NoContent(http.StatusNoContent)
		}
	})
	e.GET("/bad", func(echo.Context) error {
		return NewValidationError("question")
	})

	serve := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	t.Run("slow handler is cancelled before the response", func(t *testing.T) {
		rec := serve(http.MethodGet, "/slow")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "TIMEOUT", decode[APIError](t, rec).Code)
		assert.True(t, returned.Load(), "the handler has returned by the time the timeout is written")
	})

	t.Run("fast handler", func(t *testing.T) {
		rec := serve(http.MethodGet, "/fast")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("ingestion is not limited", func(t *testing.T) {
		rec := serve(http.MethodPost, "/upload")
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("other errors pass through", func(t *testing.T) {
		rec := serve(http.MethodGet, "/bad")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", decode[APIError](t, rec).Code)
	})
}
