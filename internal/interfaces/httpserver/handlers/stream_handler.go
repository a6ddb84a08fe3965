package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/viewcasthq/viewcast-server/internal/domain/video"
	"github.com/viewcasthq/viewcast-server/internal/infrastructure/metrics"
	"github.com/viewcasthq/viewcast-server/internal/interfaces/httpserver/responses"
)

// streamContentType is the fixed playback content type. Browsers accept it
// for every container on the upload allow-list.
const streamContentType = "video/mp4"

// LocalPathResolver maps a stored reference to an absolute path on disk.
type LocalPathResolver interface {
	Resolve(ref string) (string, error)
}

// StreamHandler serves local video files with byte-range support.
type StreamHandler struct {
	service  *video.Service
	resolver LocalPathResolver
	log      zerolog.Logger
}

func NewStreamHandler(service *video.Service, resolver LocalPathResolver, log zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		service:  service,
		resolver: resolver,
		log:      log.With().Str("component", "stream-handler").Logger(),
	}
}

// Stream responds with the video bytes. Requests without a Range header get
// the whole file; ranged requests get a 206 with the requested slice.
// Remotely stored videos are redirected to their URL.
func (h *StreamHandler) Stream(c *gin.Context) {
	v, err := h.service.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	if v.IsRemote() {
		c.Redirect(http.StatusFound, v.StorageRef)
		return
	}
	if h.resolver == nil {
		h.log.Error().Str("video_id", v.ID).Msg("local video with no local storage configured")
		c.AbortWithStatusJSON(http.StatusInternalServerError, responses.ErrorResponse{Error: "video file unavailable"})
		return
	}

	path, err := h.resolver.Resolve(v.StorageRef)
	if err != nil {
		h.log.Error().Err(err).Str("video_id", v.ID).Msg("resolve video path")
		c.AbortWithStatusJSON(http.StatusInternalServerError, responses.ErrorResponse{Error: "video file unavailable"})
		return
	}

	file, err := os.Open(path)
	if err != nil {
		h.log.Error().Err(err).Str("video_id", v.ID).Str("path", path).Msg("open video file")
		c.AbortWithStatusJSON(http.StatusInternalServerError, responses.ErrorResponse{Error: "video file unavailable"})
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		h.log.Error().Err(err).Str("video_id", v.ID).Msg("stat video file")
		c.AbortWithStatusJSON(http.StatusInternalServerError, responses.ErrorResponse{Error: "video file unavailable"})
		return
	}
	size := info.Size()

	rangeHeader := c.GetHeader("Range")
	if rangeHeader == "" {
		c.Header("Content-Length", strconv.FormatInt(size, 10))
		c.Header("Content-Type", streamContentType)
		c.Status(http.StatusOK)
		written, _ := io.Copy(c.Writer, file)
		metrics.RecordStream(false, written)
		return
	}

	start, end, ok := parseRange(rangeHeader, size)
	if !ok {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", size))
		c.AbortWithStatusJSON(http.StatusRequestedRangeNotSatisfiable, responses.ErrorResponse{Error: "invalid range"})
		return
	}

	if _, err := file.Seek(start, io.SeekStart); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, responses.ErrorResponse{Error: "video file unavailable"})
		return
	}

	chunk := end - start + 1
	c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	c.Header("Accept-Ranges", "bytes")
	c.Header("Content-Length", strconv.FormatInt(chunk, 10))
	c.Header("Content-Type", streamContentType)
	c.Status(http.StatusPartialContent)

	written, _ := io.CopyN(c.Writer, file, chunk)
	metrics.RecordStream(true, written)
}

// parseRange handles a single "bytes=start-end" range. The start is
// mandatory; a missing end means the rest of the file.
func parseRange(header string, size int64) (start, end int64, ok bool) {
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return 0, 0, false
	}
	first, last, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false
	}

	start, err := strconv.ParseInt(strings.TrimSpace(first), 10, 64)
	if err != nil || start < 0 || start >= size {
		return 0, 0, false
	}

	end = size - 1
	if trimmed := strings.TrimSpace(last); trimmed != "" {
		end, err = strconv.ParseInt(trimmed, 10, 64)
		if err != nil || end < start {
			return 0, 0, false
		}
		if end >= size {
			end = size - 1
		}
	}
	return start, end, true
}
