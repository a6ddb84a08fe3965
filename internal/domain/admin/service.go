package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/viewcasthq/viewcast-server/internal/domain/user"
	"github.com/viewcasthq/viewcast-server/internal/domain/video"
)

// recentLimit caps the recent-videos slice in the stats payload.
const recentLimit = 5

// ErrAlreadyRemote reports a migration request for a video whose asset
// already lives in object storage.
var ErrAlreadyRemote = errors.New("video is already remotely stored")

// VideoRepository is the video persistence surface the admin area needs.
type VideoRepository interface {
	GetByID(ctx context.Context, id string) (*video.Video, error)
	Count(ctx context.Context) (int64, error)
	TotalViews(ctx context.Context) (int64, error)
	CountBySensitivity(ctx context.Context) (map[video.SensitivityStatus]int64, error)
	Recent(ctx context.Context, n int) ([]*video.Video, error)
	UpdateSensitivity(ctx context.Context, id string, s video.SensitivityStatus) (*video.Video, error)
	ListByUploader(ctx context.Context, uploaderID string) ([]*video.Video, error)
	ListLocal(ctx context.Context) ([]*video.Video, error)
	DeleteLocal(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
}

// UserRepository is the account persistence surface the admin area needs.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
	List(ctx context.Context) ([]*user.User, error)
	UpdateRole(ctx context.Context, id string, role user.Role) (*user.User, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context) (map[user.Role]int64, error)
}

// Canceller aborts an in-flight processing job.
type Canceller interface {
	Cancel(videoID string)
}

// Stats is the aggregate dashboard payload.
type Stats struct {
	TotalUsers     int64
	TotalVideos    int64
	TotalViews     int64
	VideosByStatus map[video.SensitivityStatus]int64
	UsersByRole    map[user.Role]int64
	RecentVideos   []*video.Video
}

// Service implements the admin-only operations: dashboard stats, role
// management, cascading account removal, moderation overrides and local
// storage housekeeping.
type Service struct {
	users   UserRepository
	videos  VideoRepository
	storage video.Storage
	queue   Canceller
	log     zerolog.Logger
}

func NewService(users UserRepository, videos VideoRepository, storage video.Storage, queue Canceller, log zerolog.Logger) *Service {
	return &Service{
		users:   users,
		videos:  videos,
		storage: storage,
		queue:   queue,
		log:     log.With().Str("component", "admin").Logger(),
	}
}

// Stats aggregates platform-wide counters for the dashboard.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalVideos, err := s.videos.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalViews, err := s.videos.TotalViews(ctx)
	if err != nil {
		return nil, err
	}
	bySensitivity, err := s.videos.CountBySensitivity(ctx)
	if err != nil {
		return nil, err
	}
	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.videos.Recent(ctx, recentLimit)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalUsers:     totalUsers,
		TotalVideos:    totalVideos,
		TotalViews:     totalViews,
		VideosByStatus: bySensitivity,
		UsersByRole:    byRole,
		RecentVideos:   recent,
	}, nil
}

// ListUsers returns every account.
func (s *Service) ListUsers(ctx context.Context) ([]*user.User, error) {
	return s.users.List(ctx)
}

// ChangeRole updates an account's role after validating it against the fixed
// role set.
func (s *Service) ChangeRole(ctx context.Context, userID string, role user.Role) (*user.User, error) {
	if !role.Valid() {
		return nil, user.ErrInvalidRole
	}
	updated, err := s.users.UpdateRole(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", userID).Str("role", string(role)).Msg("role updated")
	return updated, nil
}

// DeleteUser removes an account together with every video it owns. Stored
// files are removed best-effort; a file that cannot be deleted never blocks
// the account removal.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}

	owned, err := s.videos.ListByUploader(ctx, userID)
	if err != nil {
		return fmt.Errorf("list owned videos: %w", err)
	}
	for _, v := range owned {
		s.queue.Cancel(v.ID)
		if err := s.videos.Delete(ctx, v.ID); err != nil {
			return fmt.Errorf("delete video %s: %w", v.ID, err)
		}
		s.removeStored(ctx, v)
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.log.Info().Str("user_id", userID).Int("videos", len(owned)).Msg("account deleted")
	return nil
}

// OverrideSensitivity applies a manual moderation decision.
func (s *Service) OverrideSensitivity(ctx context.Context, videoID string, status video.SensitivityStatus) (*video.Video, error) {
	if !status.Valid() {
		return nil, video.ErrValidation
	}
	updated, err := s.videos.UpdateSensitivity(ctx, videoID, status)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("video_id", videoID).Str("sensitivity", string(status)).Msg("sensitivity overridden")
	return updated, nil
}

// ListLocalVideos returns records whose primary asset lives on local disk.
func (s *Service) ListLocalVideos(ctx context.Context) ([]*video.Video, error) {
	return s.videos.ListLocal(ctx)
}

// PurgeLocalVideos removes every locally stored video record and its files.
// It exists to clean up after a migration to object storage.
func (s *Service) PurgeLocalVideos(ctx context.Context) (int64, error) {
	locals, err := s.videos.ListLocal(ctx)
	if err != nil {
		return 0, err
	}
	removed, err := s.videos.DeleteLocal(ctx)
	if err != nil {
		return 0, err
	}
	for _, v := range locals {
		s.queue.Cancel(v.ID)
		s.removeStored(ctx, v)
	}
	s.log.Info().Int64("removed", removed).Msg("purged local videos")
	return removed, nil
}

// PlanMigration checks that a video is eligible for a move to object
// storage and returns its record for the migration report.
func (s *Service) PlanMigration(ctx context.Context, videoID string) (*video.Video, error) {
	v, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if v.IsRemote() {
		return nil, ErrAlreadyRemote
	}
	return v, nil
}

func (s *Service) removeStored(ctx context.Context, v *video.Video) {
	ref := v.StorageRef
	if v.StorageKey != "" {
		ref = v.StorageKey
	}
	if err := s.storage.Remove(ctx, ref); err != nil {
		s.log.Warn().Err(err).Str("video_id", v.ID).Msg("remove stored file")
	}
}
