package handlers

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/bihari123/reelpick/internal/media"
)

// VideoHandler exposes the synchronous trim/join operations.
type VideoHandler struct {
	tool      *media.Tool
	uploadDir string
}

// NewVideoHandler builds a handler that resolves fileName/outputFile
// request fields against uploadDir, the same directory the upload
// coordinator assembles files into.
func NewVideoHandler(tool *media.Tool, uploadDir string) *VideoHandler {
	return &VideoHandler{tool: tool, uploadDir: uploadDir}
}

// RegisterRoutes attaches the video endpoints to rg.
func (h *VideoHandler) RegisterRoutes(rg gin.IRouter) {
	rg.POST("/video/trim", h.Trim)
	rg.POST("/video/join", h.Join)
}

type trimRequest struct {
	FileName   string  `json:"fileName"`
	StartTime  float64 `json:"start_time"`
	Duration   float64 `json:"duration"`
	OutputFile string  `json:"outputFile"`
}

// Trim handles POST /api/video/trim.
func (h *VideoHandler) Trim(c *gin.Context) {
	var req trimRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FileName == "" || req.OutputFile == "" {
		writeError(c, http.StatusBadRequest, "InvalidRequestBody")
		return
	}

	input := filepath.Join(h.uploadDir, req.FileName)
	output := filepath.Join(h.uploadDir, req.OutputFile)

	if err := h.tool.Trim(c.Request.Context(), input, req.StartTime, req.Duration, output); err != nil {
		writeMediaError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

type joinRequest struct {
	Parts      []string `json:"parts"`
	OutputFile string   `json:"outputFile"`
}

// Join handles POST /api/video/join.
func (h *VideoHandler) Join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Parts) < 2 || req.OutputFile == "" {
		writeError(c, http.StatusBadRequest, "JoinError")
		return
	}

	parts := make([]string, len(req.Parts))
	for i, p := range req.Parts {
		parts[i] = filepath.Join(h.uploadDir, p)
	}
	output := filepath.Join(h.uploadDir, req.OutputFile)

	if err := h.tool.Join(c.Request.Context(), parts, output); err != nil {
		writeMediaError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

func writeMediaError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, media.ErrInvalidDuration):
		writeError(c, http.StatusBadRequest, "InvalidDuration")
	case errors.Is(err, media.ErrDurationTooLong):
		writeError(c, http.StatusBadRequest, "DurationTooLong")
	case errors.Is(err, media.ErrInvalidTrimRange):
		writeError(c, http.StatusBadRequest, "InvalidTrimRange")
	case errors.Is(err, media.ErrVideoInfoError):
		writeError(c, http.StatusBadRequest, "VideoInfoError")
	case errors.Is(err, media.ErrTrimError):
		writeError(c, http.StatusInternalServerError, "TrimError")
	case errors.Is(err, media.ErrJoinError):
		writeError(c, http.StatusBadRequest, "JoinError")
	default:
		writeError(c, http.StatusInternalServerError, "InternalError")
	}
}
