// Package api wires the merge pipeline to its HTTP transport.
package api

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fatturamerge/internal/archive"
	"fatturamerge/internal/models"
	"fatturamerge/internal/services"
)

//go:embed index.html
var indexPage []byte

// Handler exposes the upload endpoint and the minimal browser UI.
type Handler struct {
	merger         *services.Merger
	maxUploadBytes int64
}

// NewHandler constructs a Handler. maxUploadBytes caps the total request
// payload; zero disables the cap.
func NewHandler(merger *services.Merger, maxUploadBytes int64) *Handler {
	return &Handler{merger: merger, maxUploadBytes: maxUploadBytes}
}

// Register mounts all routes on the router.
func (h *Handler) Register(router *gin.Engine) {
	router.GET("/", h.index)
	router.GET("/healthz", h.health)
	router.POST("/api/merge", h.merge)
}

func (h *Handler) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexPage)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) merge(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart request"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files uploaded"})
		return
	}

	var docs []models.UploadedDocument
	var totalBytes int64
	for _, fileHeader := range files {
		totalBytes += fileHeader.Size
		if h.maxUploadBytes > 0 && totalBytes > h.maxUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("upload exceeds the %d byte limit", h.maxUploadBytes),
			})
			return
		}
		// The part already passed multipart parsing, so a read failure here
		// is on our side, not the client's.
		content, err := readUpload(fileHeader)
		if err != nil {
			slog.Error("Failed to read uploaded file.", "filename", fileHeader.Filename, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("could not read %s", fileHeader.Filename)})
			return
		}
		docs = append(docs, models.UploadedDocument{
			OriginalName: fileHeader.Filename,
			Content:      content,
		})
	}

	report, err := h.merger.MergeGroups(c.Request.Context(), docs)
	if err != nil {
		if errors.Is(err, services.ErrEmptyResult) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":           "no complete groups found: each merge needs a main document and its attachment sharing one identifier",
				"groupsAttempted": report.GroupsAttempted,
				"failures":        report.Failures,
			})
			return
		}
		slog.Error("Merge request failed.", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	zipBytes, err := archive.BuildZip(report.Outputs)
	if err != nil {
		slog.Error("Failed to build archive.", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="documenti_uniti.zip"`)
	c.Header("X-Groups-Attempted", strconv.Itoa(report.GroupsAttempted))
	c.Header("X-Groups-Merged", strconv.Itoa(report.GroupsMerged))
	c.Header("X-Groups-Failed", strconv.Itoa(len(report.Failures)))
	c.Data(http.StatusOK, "application/zip", zipBytes)
}

func readUpload(fileHeader *multipart.FileHeader) ([]byte, error) {
	f, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
