package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/viewcasthq/viewcast-server/internal/domain/user"
	"github.com/viewcasthq/viewcast-server/internal/interfaces/httpserver/middlewares"
	"github.com/viewcasthq/viewcast-server/internal/interfaces/httpserver/responses"
)

// AuthHandler exposes registration, login and profile endpoints.
type AuthHandler struct {
	service *user.Service
	log     zerolog.Logger
}

func NewAuthHandler(service *user.Service, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		log:     log.With().Str("component", "auth-handler").Logger(),
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	created, err := h.service.Register(c.Request.Context(), user.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     user.Role(req.Role),
	})
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, responses.NewUserResponse(created))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	token, account, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.AuthResponse{
		Token: token,
		User:  responses.NewUserResponse(account),
	})
}

// Me returns the authenticated caller's account.
func (h *AuthHandler) Me(c *gin.Context) {
	identity := middlewares.GetIdentity(c)
	if identity == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, responses.ErrorResponse{Error: "authentication required"})
		return
	}

	account, err := h.service.Get(c.Request.Context(), identity.UserID)
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.NewUserResponse(account))
}
