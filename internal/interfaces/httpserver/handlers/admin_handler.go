package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/viewcasthq/viewcast-server/internal/domain/admin"
	"github.com/viewcasthq/viewcast-server/internal/domain/user"
	"github.com/viewcasthq/viewcast-server/internal/domain/video"
	"github.com/viewcasthq/viewcast-server/internal/interfaces/httpserver/responses"
)

// AdminHandler exposes the admin-only management endpoints.
type AdminHandler struct {
	service *admin.Service
	log     zerolog.Logger
}

func NewAdminHandler(service *admin.Service, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		log:     log.With().Str("component", "admin-handler").Logger(),
	}
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		responses.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewStatsResponse(stats))
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		responses.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewUserListResponse(users))
}

type updateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *AdminHandler) UpdateRole(c *gin.Context) {
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	updated, err := h.service.ChangeRole(c.Request.Context(), c.Param("id"), user.Role(req.Role))
	if err != nil {
		responses.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewUserResponse(updated))
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.service.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		responses.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

type updateSensitivityRequest struct {
	Sensitivity string `json:"sensitivity" binding:"required"`
}

func (h *AdminHandler) UpdateSensitivity(c *gin.Context) {
	var req updateSensitivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	updated, err := h.service.OverrideSensitivity(c.Request.Context(), c.Param("id"), video.SensitivityStatus(req.Sensitivity))
	if err != nil {
		responses.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewVideoResponse(updated))
}

func (h *AdminHandler) ListLocalVideos(c *gin.Context) {
	videos, err := h.service.ListLocalVideos(c.Request.Context())
	if err != nil {
		responses.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewVideoListResponse(videos))
}

// PlanMigration reports how to move a locally stored video to object
// storage. Remote videos get a 400.
func (h *AdminHandler) PlanMigration(c *gin.Context) {
	v, err := h.service.PlanMigration(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, admin.ErrAlreadyRemote) {
			responses.BadRequest(c, err.Error())
			return
		}
		responses.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"video": responses.NewVideoResponse(v),
		"message": "local asset at " + v.StorageRef +
			": switch VIDEO_STORAGE_BACKEND to s3 and re-upload, then purge local records",
	})
}

func (h *AdminHandler) PurgeLocalVideos(c *gin.Context) {
	removed, err := h.service.PurgeLocalVideos(c.Request.Context())
	if err != nil {
		responses.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
