package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/viewcasthq/viewcast-server/internal/domain/user"
	"github.com/viewcasthq/viewcast-server/internal/interfaces/httpserver/handlers"
	"github.com/viewcasthq/viewcast-server/internal/interfaces/httpserver/middlewares"
)

// Routes encapsulates API route registration.
type Routes struct {
	handlers *handlers.Provider
	verifier middlewares.TokenVerifier
}

func NewRoutes(provider *handlers.Provider, verifier middlewares.TokenVerifier) *Routes {
	return &Routes{handlers: provider, verifier: verifier}
}

// Register attaches the API and websocket routes.
func (r *Routes) Register(router gin.IRouter) {
	requireAuth := middlewares.RequireAuth(r.verifier)
	optionalAuth := middlewares.OptionalAuth(r.verifier)
	adminOnly := middlewares.RequireRoles(user.RoleAdmin)
	canUpload := middlewares.RequireRoles(user.RoleEditor, user.RoleAdmin)

	api := router.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", r.handlers.Auth.Register)
	auth.POST("/login", r.handlers.Auth.Login)
	auth.GET("/me", requireAuth, r.handlers.Auth.Me)

	videos := api.Group("/videos")
	videos.GET("", optionalAuth, r.handlers.Video.List)
	videos.POST("", requireAuth, canUpload, r.handlers.Video.Upload)
	videos.GET("/:id", optionalAuth, r.handlers.Video.Get)
	videos.DELETE("/:id", requireAuth, r.handlers.Video.Delete)
	videos.GET("/:id/stream", r.handlers.Stream.Stream)

	adm := api.Group("/admin", requireAuth, adminOnly)
	adm.GET("/stats", r.handlers.Admin.Stats)
	adm.GET("/users", r.handlers.Admin.ListUsers)
	adm.PUT("/users/:id/role", r.handlers.Admin.UpdateRole)
	adm.DELETE("/users/:id", r.handlers.Admin.DeleteUser)
	adm.GET("/videos", r.handlers.Video.List)
	adm.PUT("/videos/:id/sensitivity", r.handlers.Admin.UpdateSensitivity)
	adm.GET("/videos/local", r.handlers.Admin.ListLocalVideos)
	adm.DELETE("/videos/local", r.handlers.Admin.PurgeLocalVideos)
	adm.POST("/videos/:id/migrate", r.handlers.Admin.PlanMigration)

	router.GET("/ws/progress", r.handlers.WS.Progress)
}
