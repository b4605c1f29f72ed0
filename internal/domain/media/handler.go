package media

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio/internal/pkg/response"
	"portfolio/internal/storage"
)

// Handler exposes the media pipeline over HTTP. Uploads are accepted with
// 202 semantics: the bytes are durably recorded, the id comes back at once
// and clients poll the status endpoint for the outcome.
type Handler struct {
	service *Service
	queue   Enqueuer
}

func NewHandler(service *Service, queue Enqueuer) *Handler {
	return &Handler{service: service, queue: queue}
}

// Upload godoc
// @Summary Upload an image for processing
// @Description Accepts the file, queues derivative generation, returns the media ID to poll.
// @Tags Media
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image file (JPEG, PNG, GIF, WebP, HEIC)"
// @Success 202 {object} map[string]interface{}
// @Failure 400,413,500 {object} map[string]interface{}
// @Router /media [post]
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "NO_FILE", "no file provided")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "BAD_FILE", "failed to open file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxFileSize+1))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "READ_FAILED", "failed to read file")
		return
	}

	var meta UploadMetaRequest
	_ = c.ShouldBind(&meta)

	m, err := h.service.Upload(c.Request.Context(), fileHeader.Filename, data, meta.toMetadata())
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyFile), errors.Is(err, ErrInvalidMimeType):
			response.Error(c, http.StatusBadRequest, "INVALID_FILE", err.Error())
		case errors.Is(err, ErrFileTooLarge):
			response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, "UPLOAD_FAILED", "upload failed")
		}
		return
	}

	h.queue.Enqueue(m.ID)
	response.Success(c, http.StatusAccepted, gin.H{"id": m.ID, "status": m.Status})
}

// UploadFromURL godoc
// @Summary Ingest a remote image by URL
// @Tags Media
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 202 {object} map[string]interface{}
// @Failure 400,422,500 {object} map[string]interface{}
// @Router /media/from-url [post]
func (h *Handler) UploadFromURL(c *gin.Context) {
	var req UploadFromURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "url is required")
		return
	}

	m, err := h.service.UploadFromURL(c.Request.Context(), req.URL, req.Filename, req.toMetadata())
	if err != nil {
		var fetchErr *storage.FetchError
		switch {
		case errors.As(err, &fetchErr):
			response.Error(c, http.StatusUnprocessableEntity, "FETCH_FAILED", fetchErr.Error())
		case errors.Is(err, ErrEmptyFile), errors.Is(err, ErrInvalidMimeType):
			response.Error(c, http.StatusBadRequest, "INVALID_FILE", err.Error())
		case errors.Is(err, ErrFileTooLarge):
			response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, "UPLOAD_FAILED", "upload failed")
		}
		return
	}

	h.queue.Enqueue(m.ID)
	response.Success(c, http.StatusAccepted, gin.H{"id": m.ID, "status": m.Status})
}

// Status godoc
// @Summary Poll processing status
// @Description Clients poll every ~2s until processing is false.
// @Tags Media
// @Produce json
// @Param id path string true "Media ID"
// @Success 200 {object} StatusResponse
// @Failure 404 {object} map[string]interface{}
// @Router /media/{id}/status [get]
func (h *Handler) Status(c *gin.Context) {
	m, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "media not found")
		return
	}
	c.JSON(http.StatusOK, NewStatusResponse(m))
}

// Retry godoc
// @Summary Retry a failed media item
// @Tags Media
// @Produce json
// @Security BearerAuth
// @Param id path string true "Media ID"
// @Success 202 {object} map[string]interface{}
// @Failure 404,409 {object} map[string]interface{}
// @Router /media/{id}/retry [post]
func (h *Handler) Retry(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Retry(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "media not found")
		case errors.Is(err, ErrCompleted), errors.Is(err, ErrNotRetryable):
			response.Error(c, http.StatusConflict, "NOT_RETRYABLE", err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, "RETRY_FAILED", "retry failed")
		}
		return
	}

	h.queue.Enqueue(id)
	response.Success(c, http.StatusAccepted, gin.H{"id": id, "status": StatusPending})
}

// UpdateMetadata godoc
// @Summary Update title/description/alt/tags
// @Tags Media
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Media ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /media/{id} [patch]
func (h *Handler) UpdateMetadata(c *gin.Context) {
	var req UploadMetaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid metadata payload")
		return
	}

	id := c.Param("id")
	if err := h.service.UpdateMetadata(c.Request.Context(), id, req.toMetadata()); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "media not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "UPDATE_FAILED", "update failed")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id})
}

// Delete godoc
// @Summary Delete a media item and its stored objects
// @Tags Media
// @Produce json
// @Security BearerAuth
// @Param id path string true "Media ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /media/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "media not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "DELETE_FAILED", "delete failed")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}

// List godoc
// @Summary List media items
// @Tags Media
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /media [get]
func (h *Handler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "LIST_FAILED", "failed to list media")
		return
	}
	response.Success(c, http.StatusOK, items)
}

// Presign godoc
// @Summary Issue a direct-upload URL
// @Description PUT to the returned URL with the bound Content-Type; expires after expires_in seconds.
// @Tags Media
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 400,500 {object} map[string]interface{}
// @Router /media/presign [post]
func (h *Handler) Presign(c *gin.Context) {
	var req PresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "filename and mime_type are required")
		return
	}

	expires := time.Duration(req.ExpiresIn) * time.Second
	key, uploadURL, err := h.service.PresignUpload(c.Request.Context(), req.Filename, req.MimeType, expires)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "PRESIGN_FAILED", "failed to presign upload")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"key": key, "upload_url": uploadURL})
}
