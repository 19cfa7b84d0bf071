package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/service"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/logger"
)

// Parts larger than this spill to temporary files while the form is parsed.
const multipartMemory = 32 << 20

type uploadResponse struct {
	Success  bool   `json:"success"`
	FilePath string `json:"filePath"`
	FileName string `json:"fileName"`
	Size     int64  `json:"size"`
	Message  string `json:"message"`
}

// UploadVideo accepts multipart fields video, consultationId and an optional
// DD-MM-YYYY date. The whole body is capped at maxUploadBytes.
func (h *Handler) UploadVideo(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			h.respondServiceError(c, service.ErrFileTooLarge)
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			h.respondServiceError(c, service.ErrMissingFile)
		default:
			h.log.Warn("unreadable upload body",
				logger.RequestID(requestID(c)),
				zap.Error(err),
			)
			respondError(c, http.StatusBadRequest, "could not read upload body")
		}
		return
	}
	defer func() {
		if err := c.Request.MultipartForm.RemoveAll(); err != nil {
			h.log.Warn("removing multipart temp files", zap.Error(err))
		}
	}()

	in := service.UploadInput{
		ConsultationID: c.Request.FormValue("consultationId"),
		Date:           c.Request.FormValue("date"),
	}
	if fh, err := c.FormFile("video"); err == nil {
		f, err := fh.Open()
		if err != nil {
			h.respondServiceError(c, err)
			return
		}
		defer f.Close()
		in.Body = f
		in.ContentType = fh.Header.Get("Content-Type")
	}

	res, err := h.uploads.Ingest(c.Request.Context(), callerFrom(c), in)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, uploadResponse{
		Success:  true,
		FilePath: res.FilePath,
		FileName: res.FileName,
		Size:     res.Size,
		Message:  "video uploaded",
	})
}
