package v1

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/storage"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/httprange"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/logger"
)

// StreamVideo serves GET and HEAD for /videos/:date/:filename with single
// byte-range support. HEAD answers with the status and headers a GET with
// the same Range would get, so callers can check for existence.
func (h *Handler) StreamVideo(c *gin.Context) {
	head := c.Request.Method == http.MethodHead
	date, name := c.Param("date"), c.Param("filename")

	caller := callerFrom(c)
	f, info, err := h.videos.Open(c.Request.Context(), caller, date, name)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrVideoNotFound) {
			status = http.StatusNotFound
		}
		h.videos.RecordServed(strconv.Itoa(status), 0)
		h.respondServiceError(c, err)
		return
	}
	defer f.Close()

	size := info.Size()
	c.Header("Accept-Ranges", "bytes")
	c.Header("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	c.Header("Cache-Control", "private, max-age=0")

	rng, partial, err := httprange.Parse(c.GetHeader("Range"), size)
	if errors.Is(err, httprange.ErrUnsatisfiable) {
		c.Header("Content-Range", httprange.UnsatisfiedContentRange(size))
		h.videos.RecordServed(strconv.Itoa(http.StatusRequestedRangeNotSatisfiable), 0)
		respondError(c, http.StatusRequestedRangeNotSatisfiable, "requested range not satisfiable")
		return
	}

	c.Header("Content-Type", httprange.VideoContentType(name))

	status, length := http.StatusOK, size
	if partial {
		if _, err := f.Seek(rng.Start, io.SeekStart); err != nil {
			h.videos.RecordServed(strconv.Itoa(http.StatusInternalServerError), 0)
			h.respondServiceError(c, err)
			return
		}
		status, length = http.StatusPartialContent, rng.Length()
		c.Header("Content-Range", rng.ContentRange(size))
	}
	c.Header("Content-Length", strconv.FormatInt(length, 10))
	c.Status(status)
	c.Writer.WriteHeaderNow()

	if head {
		h.videos.RecordServed(strconv.Itoa(status), 0)
		return
	}

	var offset int64
	if partial {
		offset = rng.Start
	}
	h.videos.RecordPlayback(c.Request.Context(), caller, date, name, offset)

	n, err := io.CopyN(c.Writer, f, length)
	h.videos.RecordServed(strconv.Itoa(status), n)
	if err != nil {
		// Players abort and re-request ranges all the time.
		h.log.Debug("video copy ended early",
			logger.VideoPath(date, name),
			zap.Int64("written", n),
			zap.Int64("expected", length),
			zap.Error(err),
		)
	}
}
