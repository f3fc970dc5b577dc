// Package api exposes the document Q&A services over HTTP using echo.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// HeaderConversationID selects the caller's session context.
const HeaderConversationID = "X-Conversation-ID"

const conversationKey = "conversation_id"

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 10 * time.Second

// Dependencies holds all handler dependencies.
type Dependencies struct {
	Answers        driving.AnswerService
	Documents      driving.DocumentService
	Ingest         driving.IngestService
	Sessions       driving.SessionService
	IngestSettings domain.IngestSettings
	Server         domain.ServerSettings
	Version        string
}

// NewServer builds the echo instance with middleware and routes registered.
func NewServer(deps *Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	SetupMiddleware(e, deps.Server)
	RegisterRoutes(e, NewHandler(deps))
	return e
}

// RegisterRoutes registers all API routes with the echo instance.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/", h.HandleRoot)
	e.GET("/health", h.HandleHealth)

	e.POST("/upload", h.HandleUpload)
	e.POST("/ask", h.HandleAsk)
	e.GET("/documents", h.HandleDocuments)
	e.DELETE("/session", h.HandleClearSession)
	e.DELETE("/clear-all", h.HandleClearAll)
	e.GET("/history", h.HandleHistory)
	e.DELETE("/history", h.HandleClearHistory)
	e.GET("/stats", h.HandleStats)
	e.POST("/load-documents", h.HandleLoadDocuments)
}

// SetupMiddleware configures error handling, logging, recovery and timeouts.
func SetupMiddleware(e *echo.Echo, cfg domain.ServerSettings) {
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			return !logger.IsVerbose() || c.Request().URL.Path == "/health"
		},
		Output: logger.Output(),
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10,
	}))

	if cfg.RequestTimeout > 0 {
		e.Use(requestTimeout(cfg.RequestTimeout))
	}

	e.Use(ConversationMiddleware)
}

// requestTimeout cancels the request context after d. The handler sees the
// cancellation, returns, and only then is the timeout response written.
func requestTimeout(d time.Duration) echo.MiddlewareFunc {
	return middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
		Timeout: d,
		Skipper: func(c echo.Context) bool {
			// Ingestion runs as long as extraction and embedding need.
			path := c.Request().URL.Path
			return strings.HasPrefix(path, "/upload") || strings.HasPrefix(path, "/load-documents")
		},
		ErrorHandler: func(err error, _ echo.Context) error {
			if errors.Is(err, context.DeadlineExceeded) {
				return &APIError{
					Status:  http.StatusServiceUnavailable,
					Code:    "TIMEOUT",
					Message: "Request timeout - the answer took too long",
				}
			}
			return err
		},
	})
}

// ConversationMiddleware reads the conversation id from the X-Conversation-ID
// header or the conversation_id query parameter.
func ConversationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := strings.TrimSpace(c.Request().Header.Get(HeaderConversationID))
		if id == "" {
			id = strings.TrimSpace(c.QueryParam("conversation_id"))
		}
		c.Set(conversationKey, id)
		return next(c)
	}
}

// conversationID returns the id set by ConversationMiddleware.
func conversationID(c echo.Context) string {
	if id, _ := c.Get(conversationKey).(string); id != "" {
		return id
	}
	return domain.DefaultConversation
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, e *echo.Echo, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening on http://%s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
