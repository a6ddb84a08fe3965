package video

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/viewcasthq/viewcast-server/internal/config"
	"github.com/viewcasthq/viewcast-server/internal/domain/user"
	"github.com/viewcasthq/viewcast-server/internal/infrastructure/metrics"
	"github.com/viewcasthq/viewcast-server/utils/videoid"
)

var (
	ErrNotFound        = errors.New("video not found")
	ErrForbidden       = errors.New("not authorized for this video")
	ErrUnsupportedType = errors.New("only video files are allowed (mp4, mov, avi, mkv, webm)")
	ErrTooLarge        = errors.New("file exceeds the maximum upload size")
	ErrValidation      = errors.New("invalid request")
)

var allowedExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".avi":  {},
	".mkv":  {},
	".webm": {},
}

var allowedMIMEs = map[string]struct{}{
	"video/mp4":        {},
	"video/quicktime":  {},
	"video/x-msvideo":  {},
	"video/x-matroska": {},
	"video/webm":       {},
}

// Repository defines persistence operations needed by the service.
type Repository interface {
	Create(ctx context.Context, v *Video) error
	GetByID(ctx context.Context, id string) (*Video, error)
	List(ctx context.Context, q ListQuery) ([]*Video, error)
	IncrementViews(ctx context.Context, id string) error
	SetThumbnail(ctx context.Context, id, ref string) error
	Delete(ctx context.Context, id string) error
}

// StoredObject is the result of persisting upload bytes.
type StoredObject struct {
	// Reference is a relative path (local) or an https URL (object storage).
	Reference string
	// Key is the provider-assigned identifier, empty for local files.
	Key string
}

// Storage persists and removes upload bytes. The backend is chosen once at
// process start.
type Storage interface {
	Save(ctx context.Context, filename, contentType string, body io.Reader, size int64) (*StoredObject, error)
	Remove(ctx context.Context, ref string) error
	IsLocal() bool
}

// Thumbnailer extracts a preview frame. An empty reference with a nil error
// means the tool is unavailable or extraction failed; callers must treat the
// thumbnail as best-effort.
type Thumbnailer interface {
	Extract(ctx context.Context, sourceRef, outputDir string) (string, error)
}

// Enqueuer hands a video to the background processing pipeline.
type Enqueuer interface {
	Enqueue(videoID string)
}

// Service orchestrates upload, listing, playback resolution and deletion.
type Service struct {
	cfg     *config.Config
	repo    Repository
	storage Storage
	thumbs  Thumbnailer
	queue   Enqueuer
	log     zerolog.Logger
}

func NewService(cfg *config.Config, repo Repository, storage Storage, thumbs Thumbnailer, queue Enqueuer, log zerolog.Logger) *Service {
	return &Service{
		cfg:     cfg,
		repo:    repo,
		storage: storage,
		thumbs:  thumbs,
		queue:   queue,
		log:     log.With().Str("component", "video-service").Logger(),
	}
}

// UploadInput carries a single multipart upload.
type UploadInput struct {
	Title       string
	Description string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	UploaderID  string
}

// Upload validates and stores the file, creates the record and enqueues the
// processing pipeline. Validation failures happen before any record exists.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*Video, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.Size > s.cfg.MaxUploadBytes {
		return nil, ErrTooLarge
	}

	ext := strings.ToLower(filepath.Ext(in.Filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return nil, ErrUnsupportedType
	}

	body := bufio.NewReader(in.Body)
	head, err := body.Peek(3072)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	sniffed := mimetype.Detect(head).String()
	if !mimeAllowed(in.ContentType) && !mimeAllowed(sniffed) {
		return nil, ErrUnsupportedType
	}

	contentType := in.ContentType
	if !mimeAllowed(contentType) {
		contentType = sniffed
	}

	obj, err := s.storage.Save(ctx, in.Filename, contentType, body, in.Size)
	if err != nil {
		metrics.RecordUpload(contentType, "error", 0)
		return nil, fmt.Errorf("store upload: %w", err)
	}

	v := &Video{
		ID:                 videoid.New(),
		Title:              strings.TrimSpace(in.Title),
		Description:        strings.TrimSpace(in.Description),
		StorageRef:         obj.Reference,
		StorageKey:         obj.Key,
		UploaderID:         in.UploaderID,
		ProcessingStatus:   ProcessingPending,
		SensitivityStatus:  SensitivitySafe,
		ProcessingProgress: 0,
	}
	if err := s.repo.Create(ctx, v); err != nil {
		s.removeStored(v)
		return nil, err
	}

	metrics.RecordUpload(contentType, "success", in.Size)

	// Preview extraction is best-effort and never gates the pipeline.
	if s.storage.IsLocal() {
		go s.extractThumbnail(v.ID, v.StorageRef)
	}

	s.queue.Enqueue(v.ID)
	return v, nil
}

func mimeAllowed(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	_, ok := allowedMIMEs[mime]
	return ok
}

func (s *Service) extractThumbnail(videoID, sourceRef string) {
	ctx := context.Background()
	ref, err := s.thumbs.Extract(ctx, sourceRef, s.cfg.LocalStoragePath)
	if err != nil {
		s.log.Error().Err(err).Str("video_id", videoID).Msg("thumbnail extraction failed")
		return
	}
	if ref == "" {
		s.log.Warn().Str("video_id", videoID).Msg("thumbnail unavailable, continuing without preview")
		return
	}
	if err := s.repo.SetThumbnail(ctx, videoID, ref); err != nil {
		s.log.Error().Err(err).Str("video_id", videoID).Msg("persist thumbnail reference failed")
	}
}

// Get fetches a video and increments its view count as a side effect.
func (s *Service) Get(ctx context.Context, id string) (*Video, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.IncrementViews(ctx, id); err != nil {
		return nil, err
	}
	v.Views++
	return v, nil
}

// Resolve fetches a video without touching the view count; used by the
// streaming responder and internal callers.
func (s *Service) Resolve(ctx context.Context, id string) (*Video, error) {
	return s.repo.GetByID(ctx, id)
}

// List applies the visibility rule: authenticated non-admin callers only see
// their own videos, anonymous and admin callers see everything.
func (s *Service) List(ctx context.Context, q ListQuery, actor *user.Identity) ([]*Video, error) {
	if actor != nil && !actor.IsAdmin() {
		q.OwnerID = actor.UserID
	}
	if q.Sort == "" {
		q.Sort = SortNewest
	}
	return s.repo.List(ctx, q)
}

// Delete removes the record; only the owner or an admin may delete. File
// cleanup is best-effort and never blocks record deletion.
func (s *Service) Delete(ctx context.Context, id string, actor *user.Identity) error {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if actor == nil || (v.UploaderID != actor.UserID && !actor.IsAdmin()) {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.removeStored(v)
	return nil
}

// removeStored deletes the underlying asset and thumbnail, logging failures
// instead of propagating them.
func (s *Service) removeStored(v *Video) {
	ctx := context.Background()
	ref := v.StorageRef
	if v.StorageKey != "" {
		ref = v.StorageKey
	}
	if err := s.storage.Remove(ctx, ref); err != nil {
		s.log.Error().Err(err).Str("video_id", v.ID).Str("ref", ref).Msg("remove stored asset failed")
	}
	if v.ThumbnailRef != "" && !strings.HasPrefix(v.ThumbnailRef, "http") {
		if err := s.storage.Remove(ctx, v.ThumbnailRef); err != nil {
			s.log.Error().Err(err).Str("video_id", v.ID).Msg("remove thumbnail failed")
		}
	}
}
