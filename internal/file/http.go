package file

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/abduss/bitbeem/internal/auth"
	"github.com/abduss/bitbeem/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterRoutes mounts upload, download and listing endpoints. requirePrincipal guards listing.
func RegisterRoutes(group *gin.RouterGroup, service *Service, requirePrincipal gin.HandlerFunc, maxUploadBytes int64) {
	handler := &httpHandler{service: service, maxUploadBytes: maxUploadBytes}
	group.POST("/upload", handler.upload)
	group.GET("/download/:id", handler.download)
	group.GET("/all_files", requirePrincipal, handler.listFiles)
}

type httpHandler struct {
	service        *Service
	maxUploadBytes int64
}

func (h *httpHandler) upload(c *gin.Context) {
	key := c.GetHeader(auth.KeyHeader)
	if strings.TrimSpace(key) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key header is required"})
		return
	}

	limit, err := ParseDownloadLimit(c.GetHeader("download_limit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "download_limit must be a positive integer"})
		return
	}

	body := c.Request.Body
	if h.maxUploadBytes > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.maxUploadBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	record, err := h.service.Upload(c.Request.Context(), UploadInput{
		Key:           key,
		FileName:      c.GetHeader("file_name"),
		ContentType:   c.GetHeader("Content-Type"),
		DownloadLimit: limit,
		Data:          data,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingKey):
			c.JSON(http.StatusBadRequest, gin.H{"error": "key header is required"})
		case errors.Is(err, ErrInvalidDownloadLimit):
			c.JSON(http.StatusBadRequest, gin.H{"error": "download_limit must be a positive integer"})
		case errors.Is(err, auth.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid key"})
		default:
			logger.FromContext(c, h.service.log).Error("upload failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload file"})
		}
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *httpHandler) download(c *gin.Context) {
	payload, err := h.service.Consume(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		logger.FromContext(c, h.service.log).Error("download failed", zap.String("file_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to download file"})
		return
	}

	c.Header("Content-Disposition", contentDisposition(payload.FileName))
	c.Header("Content-Length", strconv.FormatInt(int64(len(payload.Data)), 10))
	c.Header("filename", payload.FileName)
	c.Data(http.StatusOK, payload.ContentType, payload.Data)
}

func (h *httpHandler) listFiles(c *gin.Context) {
	principal, ok := auth.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	files, err := h.service.List(c.Request.Context(), principal)
	if err != nil {
		logger.FromContext(c, h.service.log).Error("list files failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list files"})
		return
	}

	c.JSON(http.StatusOK, files)
}

func contentDisposition(fileName string) string {
	if value := mime.FormatMediaType("attachment", map[string]string{"filename": fileName}); value != "" {
		return value
	}
	return "attachment"
}
