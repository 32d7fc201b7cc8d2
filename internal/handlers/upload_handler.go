package handlers

import (
	"net/http"

	"github.com/campusnet/backend/pkg/logger"
	"github.com/campusnet/backend/pkg/storage"
	"github.com/labstack/echo/v4"
)

// UploadHandler handles multipart file uploads into the storage bucket
type UploadHandler struct {
	uploader *storage.Uploader
	log      *logger.Logger
}

func NewUploadHandler(uploader *storage.Uploader, log *logger.Logger) *UploadHandler {
	return &UploadHandler{uploader: uploader, log: log}
}

// Upload stores a file in the requested folder and returns its public URL
func (h *UploadHandler) Upload(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	if h.uploader == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "File storage is not configured")
	}

	folder := storage.Folder(c.FormValue("folder"))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing file")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if err := storage.ValidateUpload(folder, contentType, fileHeader.Size); err != nil {
		return httpError(err)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read file")
	}
	defer src.Close()

	url, objectPath, err := h.uploader.Upload(c.Request().Context(), folder, userID, fileHeader.Filename, contentType, fileHeader.Size, src)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("Failed to upload file")
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, map[string]string{"url": url, "path": objectPath})
}
