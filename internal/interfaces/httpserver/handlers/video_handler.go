package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/viewcasthq/viewcast-server/internal/config"
	"github.com/viewcasthq/viewcast-server/internal/domain/video"
	"github.com/viewcasthq/viewcast-server/internal/interfaces/httpserver/middlewares"
	"github.com/viewcasthq/viewcast-server/internal/interfaces/httpserver/responses"
)

// VideoHandler exposes upload, listing, detail and deletion endpoints.
type VideoHandler struct {
	cfg     *config.Config
	service *video.Service
	log     zerolog.Logger
}

func NewVideoHandler(cfg *config.Config, service *video.Service, log zerolog.Logger) *VideoHandler {
	return &VideoHandler{
		cfg:     cfg,
		service: service,
		log:     log.With().Str("component", "video-handler").Logger(),
	}
}

// Upload accepts a multipart form with title, description and a video file.
func (h *VideoHandler) Upload(c *gin.Context) {
	identity := middlewares.GetIdentity(c)
	if identity == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, responses.ErrorResponse{Error: "authentication required"})
		return
	}

	// Cap the whole request body so an oversized upload is cut off at the
	// transport instead of buffering to disk first. Headroom covers the
	// non-file form fields.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes+1<<20)

	title := c.PostForm("title")
	description := c.PostForm("description")

	fileHeader, err := c.FormFile("video")
	if err != nil {
		responses.BadRequest(c, "video file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		responses.BadRequest(c, "cannot read video file")
		return
	}
	defer file.Close()

	created, err := h.service.Upload(c.Request.Context(), video.UploadInput{
		Title:       title,
		Description: description,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        file,
		UploaderID:  identity.UserID,
	})
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, responses.NewVideoResponse(created))
}

// List returns videos visible to the caller with optional filters.
func (h *VideoHandler) List(c *gin.Context) {
	q := video.ListQuery{
		Search:      c.Query("search"),
		Sensitivity: video.SensitivityStatus(c.Query("sensitivity")),
		Status:      video.ProcessingStatus(c.Query("status")),
		Sort:        video.SortOrder(c.Query("sort")),
	}

	items, err := h.service.List(c.Request.Context(), q, middlewares.GetIdentity(c))
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.NewVideoListResponse(items))
}

// Get returns one video and counts the fetch as a view.
func (h *VideoHandler) Get(c *gin.Context) {
	v, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.NewVideoResponse(v))
}

// Delete removes a video. Owners and admins only.
func (h *VideoHandler) Delete(c *gin.Context) {
	identity := middlewares.GetIdentity(c)
	if identity == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, responses.ErrorResponse{Error: "authentication required"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), identity); err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "video deleted"})
}
