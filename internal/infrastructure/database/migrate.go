package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/viewcasthq/viewcast-server/internal/infrastructure/database/entities"
)

// AutoMigrate applies database schema changes.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(&entities.User{}, &entities.Video{}); err != nil {
		return err
	}
	log.Info().Msg("applied user and video migrations")
	return nil
}
