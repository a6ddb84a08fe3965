package handlers

import (
	"github.com/rs/zerolog"

	"github.com/viewcasthq/viewcast-server/internal/config"
	"github.com/viewcasthq/viewcast-server/internal/domain/admin"
	"github.com/viewcasthq/viewcast-server/internal/domain/user"
	"github.com/viewcasthq/viewcast-server/internal/domain/video"
	"github.com/viewcasthq/viewcast-server/internal/infrastructure/realtime"
)

// Provider wires HTTP handlers.
type Provider struct {
	Auth   *AuthHandler
	Video  *VideoHandler
	Stream *StreamHandler
	Admin  *AdminHandler
	WS     *WSHandler
}

func NewProvider(
	cfg *config.Config,
	userService *user.Service,
	videoService *video.Service,
	adminService *admin.Service,
	hub *realtime.Hub,
	resolver LocalPathResolver,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		Auth:   NewAuthHandler(userService, log),
		Video:  NewVideoHandler(cfg, videoService, log),
		Stream: NewStreamHandler(videoService, resolver, log),
		Admin:  NewAdminHandler(adminService, log),
		WS:     NewWSHandler(hub, log),
	}
}
