package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// Handler serves the document Q&A endpoints.
type Handler struct {
	answers   driving.AnswerService
	documents driving.DocumentService
	ingest    driving.IngestService
	sessions  driving.SessionService
	ingestCfg domain.IngestSettings
	version   string
}

// NewHandler creates a handler over the core services.
func NewHandler(deps *Dependencies) *Handler {
	return &Handler{
		answers:   deps.Answers,
		documents: deps.Documents,
		ingest:    deps.Ingest,
		sessions:  deps.Sessions,
		ingestCfg: deps.IngestSettings,
		version:   deps.Version,
	}
}

// HandleRoot describes the service.
func (h *Handler) HandleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service": "docsearch",
		"version": h.version,
		"endpoints": []string{
			"POST /upload",
			"POST /ask",
			"GET /documents",
			"DELETE /session",
			"DELETE /clear-all",
			"GET /history",
			"DELETE /history",
			"GET /stats",
			"POST /load-documents",
		},
	})
}

// HandleHealth returns server health status.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"version": h.version,
	})
}

// HandleUpload ingests the multipart "files" as a new upload session.
func (h *Handler) HandleUpload(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("expected a multipart form", err)
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		return NewValidationError("files")
	}

	uploads := make([]domain.Upload, 0, len(headers))
	for _, fh := range headers {
		upload, err := h.readUpload(fh)
		if err != nil {
			return err
		}
		uploads = append(uploads, upload)
	}

	result, err := h.ingest.IngestBatch(c.Request().Context(), conversationID(c), uploads)
	if err != nil && result == nil {
		return err
	}
	if err != nil {
		logger.Warn("upload interrupted after %d files: %v", result.Processed(), err)
	}
	return c.JSON(http.StatusOK, newIngestResponse(result, "uploaded"))
}

// readUpload reads at most one byte past the size limit so oversized files
// are rejected by the ingest service without buffering them whole.
func (h *Handler) readUpload(fh *multipart.FileHeader) (domain.Upload, error) {
	src, err := fh.Open()
	if err != nil {
		return domain.Upload{}, NewBadRequestError(fmt.Sprintf("cannot open %s", fh.Filename), err)
	}
	defer src.Close()

	r := io.Reader(src)
	if limit := h.ingestCfg.MaxFileSize(); limit > 0 {
		r = io.LimitReader(src, limit+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return domain.Upload{}, NewBadRequestError(fmt.Sprintf("cannot read %s", fh.Filename), err)
	}
	return domain.Upload{Filename: fh.Filename, Content: content}, nil
}

// HandleAsk answers a question. Failures inside the answering engine come back
// as a 200 with mode "error".
func (h *Handler) HandleAsk(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	conv := strings.TrimSpace(req.ConversationID)
	if conv == "" {
		conv = conversationID(c)
	}
	answer := h.answers.Ask(c.Request().Context(), conv, req.Question)
	c.Response().Header().Set(HeaderConversationID, conv)
	return c.JSON(http.StatusOK, answer)
}

// HandleDocuments lists the indexed documents.
func (h *Handler) HandleDocuments(c echo.Context) error {
	groups, err := h.documents.List(c.Request().Context())
	if err != nil {
		return err
	}
	current, _ := h.sessions.Current(conversationID(c))
	return c.JSON(http.StatusOK, newDocumentsResponse(groups, current))
}

// HandleClearSession removes the conversation's current upload session.
func (h *Handler) HandleClearSession(c echo.Context) error {
	conv := conversationID(c)
	current, ok := h.sessions.Current(conv)
	if !ok {
		return c.JSON(http.StatusOK, clearResponse{Message: "No active session"})
	}
	n, err := h.sessions.ClearCurrent(c.Request().Context(), conv)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, clearResponse{
		Message:       "Session cleared",
		DeletedChunks: n,
		SessionID:     current,
	})
}

// HandleClearAll empties the index.
func (h *Handler) HandleClearAll(c echo.Context) error {
	n, err := h.documents.ClearAll(c.Request().Context(), conversationID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, clearResponse{Message: "All documents cleared", DeletedChunks: n})
}

// HandleHistory returns the conversation memory.
func (h *Handler) HandleHistory(c echo.Context) error {
	conv := conversationID(c)
	history := h.answers.History(conv)
	if history == nil {
		history = []domain.Exchange{}
	}
	return c.JSON(http.StatusOK, historyResponse{ConversationID: conv, History: history})
}

// HandleClearHistory empties the conversation memory.
func (h *Handler) HandleClearHistory(c echo.Context) error {
	h.answers.ClearHistory(conversationID(c))
	return c.JSON(http.StatusOK, map[string]string{"message": "History cleared"})
}

// HandleStats summarises the system for the conversation.
func (h *Handler) HandleStats(c echo.Context) error {
	stats, err := h.documents.Stats(c.Request().Context(), conversationID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// HandleLoadDocuments ingests a directory into the permanent corpus.
// The body is optional; the configured source directory is the default, and a
// requested directory must lie inside it. Paths in the response are relative to it.
func (h *Handler) HandleLoadDocuments(c echo.Context) error {
	var req loadDocumentsRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return NewBadRequestError("invalid JSON body", err)
		}
	}
	dir, err := h.sourceSubdir(req.Directory)
	if err != nil {
		return err
	}

	result, err := h.ingest.LoadDirectory(c.Request().Context(), dir)
	if err != nil && result == nil {
		apiErr := *FromDomainError(err)
		apiErr.Message = h.relativePaths(apiErr.Message)
		apiErr.Details = h.relativePaths(apiErr.Details)
		return &apiErr
	}
	if err != nil {
		logger.Warn("loading %s interrupted: %v", dir, err)
	}
	for i, f := range result.Failures {
		result.Failures[i].Filename = h.relativePaths(f.Filename)
		result.Failures[i].Error = h.relativePaths(f.Error)
	}
	return c.JSON(http.StatusOK, newIngestResponse(result, "loaded"))
}

// sourceSubdir resolves a requested directory against the configured source
// directory, following symlinks, and refuses anything outside it.
func (h *Handler) sourceSubdir(requested string) (string, error) {
	root := h.ingestCfg.SourceDir
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return root, nil
	}

	dir := requested
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	dir = filepath.Clean(dir)

	outside := fmt.Errorf("%w: directory must be inside the source directory", domain.ErrInvalidInput)
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", NewInternalError("resolving source directory", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil || !within(absRoot, absDir) {
		return "", outside
	}

	// A symlink inside the root may still point elsewhere.
	if realRoot, err := filepath.EvalSymlinks(absRoot); err == nil {
		if realDir, err := filepath.EvalSymlinks(absDir); err == nil && !within(realRoot, realDir) {
			return "", outside
		}
	}
	return dir, nil
}

// relativePaths rewrites paths below the source directory relative to it.
func (h *Handler) relativePaths(s string) string {
	root := filepath.Clean(h.ingestCfg.SourceDir)
	var prefixes []string
	if abs, err := filepath.Abs(root); err == nil {
		prefixes = append(prefixes, abs)
	}
	if root != "." && !filepath.IsAbs(root) {
		prefixes = append(prefixes, root)
	}
	for _, p := range prefixes {
		s = strings.ReplaceAll(s, p+string(filepath.Separator), "")
	}
	return s
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
