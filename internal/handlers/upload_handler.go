// Package handlers wires gin routes to the upload coordinator and media
// tool, translating protocol errors into the structured JSON error body
// every endpoint returns on failure.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bihari123/reelpick/internal/sessionstore"
	"github.com/bihari123/reelpick/internal/upload"
)

// SessionLister is satisfied by sessionstore.RedisStore's Keys method.
// It backs the supplemented list endpoint; kept as a narrow interface so
// a coordinator wired to a non-Redis store can still run without it
// (List then responds with an empty set).
type SessionLister interface {
	Keys(ctx context.Context) ([]string, error)
}

// UploadHandler exposes the chunked-upload protocol endpoints.
type UploadHandler struct {
	coordinator *upload.Coordinator
	lister      SessionLister
}

// NewUploadHandler builds a handler around coordinator. lister may be
// nil.
func NewUploadHandler(coordinator *upload.Coordinator, lister SessionLister) *UploadHandler {
	return &UploadHandler{coordinator: coordinator, lister: lister}
}

// RegisterRoutes attaches the upload endpoints to rg.
func (h *UploadHandler) RegisterRoutes(rg gin.IRouter) {
	rg.POST("/upload/initialize", h.Initialize)
	rg.POST("/upload/chunk", h.Chunk)
	rg.GET("/upload/status", h.Status)
	rg.GET("/upload/list", h.List)
	rg.DELETE("/upload/:fileId", h.Abort)
}

// List handles GET /api/upload/list — a supplemented, decorative
// endpoint that is a pure read of the session store's key space.
func (h *UploadHandler) List(c *gin.Context) {
	if h.lister == nil {
		c.JSON(http.StatusOK, gin.H{"uploads": []string{}})
		return
	}

	keys, err := h.lister.Keys(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "InternalError")
		return
	}

	c.JSON(http.StatusOK, gin.H{"uploads": keys})
}

type initializeRequest struct {
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	TotalChunks int    `json:"totalChunks"`
}

// Initialize handles POST /api/upload/initialize.
func (h *UploadHandler) Initialize(c *gin.Context) {
	var req initializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "InvalidRequestBody")
		return
	}

	result, err := h.coordinator.Initialize(c.Request.Context(), req.FileName, req.FileSize)
	if err != nil {
		writeCoordinatorError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Chunk handles POST /api/upload/chunk.
func (h *UploadHandler) Chunk(c *gin.Context) {
	fileID := c.GetHeader("X-File-Id")
	chunkIndexHeader := c.GetHeader("X-Chunk-Index")
	if fileID == "" || chunkIndexHeader == "" {
		writeError(c, http.StatusBadRequest, "MissingHeader")
		return
	}

	chunkIndex, err := strconv.Atoi(chunkIndexHeader)
	if err != nil {
		writeError(c, http.StatusBadRequest, "InvalidRequestBody")
		return
	}

	result, err := h.coordinator.Chunk(c.Request.Context(), fileID, chunkIndex, c.Request.Body)
	if err != nil {
		writeCoordinatorError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Status handles GET /api/upload/status.
func (h *UploadHandler) Status(c *gin.Context) {
	fileID := c.GetHeader("X-File-Id")
	if fileID == "" {
		writeError(c, http.StatusBadRequest, "MissingHeader")
		return
	}

	result, err := h.coordinator.Status(c.Request.Context(), fileID)
	if err != nil {
		writeCoordinatorError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Abort handles DELETE /api/upload/:fileId — a supplemented operation
// letting a client cancel an in-progress upload cleanly rather than
// waiting for the session store's TTL to reap it.
func (h *UploadHandler) Abort(c *gin.Context) {
	fileID := c.Param("fileId")
	if fileID == "" {
		writeError(c, http.StatusBadRequest, "MissingHeader")
		return
	}

	if err := h.coordinator.Abort(c.Request.Context(), fileID); err != nil {
		writeCoordinatorError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func writeCoordinatorError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, upload.ErrFileTooLarge):
		writeError(c, http.StatusBadRequest, "FileTooLarge")
	case errors.Is(err, upload.ErrInvalidRequestBody):
		writeError(c, http.StatusBadRequest, "InvalidRequestBody")
	case errors.Is(err, upload.ErrInvalidSession), errors.Is(err, sessionstore.ErrNotFound):
		writeError(c, http.StatusBadRequest, "InvalidSession")
	case errors.Is(err, upload.ErrMissingHeader):
		writeError(c, http.StatusBadRequest, "MissingHeader")
	case errors.Is(err, upload.ErrUnauthorized):
		writeError(c, http.StatusUnauthorized, "Unauthorized")
	default:
		writeError(c, http.StatusInternalServerError, err.Error())
	}
}

// writeError writes the structured error body every endpoint uses on
// failure: {"status":"error","error":"<message>","code":<int>}.
func writeError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"status": "error",
		"error":  message,
		"code":   code,
	})
}
