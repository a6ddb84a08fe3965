package video

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	domain "github.com/viewcasthq/viewcast-server/internal/domain/video"
	"github.com/viewcasthq/viewcast-server/internal/infrastructure/database/entities"
)

// Repository handles video record persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, v *domain.Video) error {
	entity := entities.Video{
		ID:                 v.ID,
		Title:              v.Title,
		Description:        v.Description,
		StorageRef:         v.StorageRef,
		StorageKey:         v.StorageKey,
		ThumbnailRef:       v.ThumbnailRef,
		UploaderID:         v.UploaderID,
		Views:              v.Views,
		DurationSeconds:    v.DurationSeconds,
		ProcessingStatus:   string(v.ProcessingStatus),
		ProcessingProgress: v.ProcessingProgress,
		SensitivityStatus:  string(v.SensitivityStatus),
	}
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return fmt.Errorf("create video: %w", err)
	}
	v.CreatedAt = entity.CreatedAt
	v.UpdatedAt = entity.UpdatedAt
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Video, error) {
	var entity entities.Video
	err := r.db.WithContext(ctx).Preload("Uploader").Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get video by id: %w", err)
	}
	v := mapEntity(entity)
	return &v, nil
}

func (r *Repository) List(ctx context.Context, q domain.ListQuery) ([]*domain.Video, error) {
	tx := r.db.WithContext(ctx).Model(&entities.Video{}).Preload("Uploader")

	if q.OwnerID != "" {
		tx = tx.Where("uploader_id = ?", q.OwnerID)
	}
	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		tx = tx.Where("title ILIKE ? OR description ILIKE ?", pattern, pattern)
	}
	if q.Sensitivity != "" {
		tx = tx.Where("sensitivity_status = ?", string(q.Sensitivity))
	}
	if q.Status != "" {
		tx = tx.Where("processing_status = ?", string(q.Status))
	}

	switch q.Sort {
	case domain.SortOldest:
		tx = tx.Order("created_at ASC")
	case domain.SortViews:
		tx = tx.Order("views DESC")
	case domain.SortTitle:
		tx = tx.Order("title ASC")
	default:
		tx = tx.Order("created_at DESC")
	}

	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []entities.Video
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return mapEntities(rows), nil
}

func (r *Repository) IncrementViews(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Model(&entities.Video{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if result.Error != nil {
		return fmt.Errorf("increment views: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) SetThumbnail(ctx context.Context, id, ref string) error {
	err := r.db.WithContext(ctx).Model(&entities.Video{}).
		Where("id = ?", id).
		Update("thumbnail_ref", ref).Error
	if err != nil {
		return fmt.Errorf("set thumbnail: %w", err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.Video{})
	if result.Error != nil {
		return fmt.Errorf("delete video: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateProgress persists a pipeline state transition.
func (r *Repository) UpdateProgress(ctx context.Context, id string, status domain.ProcessingStatus, progress int) error {
	result := r.db.WithContext(ctx).Model(&entities.Video{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processing_status":   string(status),
			"processing_progress": progress,
		})
	if result.Error != nil {
		return fmt.Errorf("update progress: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Finish records the terminal completed state and classification outcome.
func (r *Repository) Finish(ctx context.Context, id string, sensitivity domain.SensitivityStatus) error {
	result := r.db.WithContext(ctx).Model(&entities.Video{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processing_status":   string(domain.ProcessingCompleted),
			"processing_progress": 100,
			"sensitivity_status":  string(sensitivity),
		})
	if result.Error != nil {
		return fmt.Errorf("finish processing: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkFailed records the terminal failed state with the reason.
func (r *Repository) MarkFailed(ctx context.Context, id, reason string) error {
	err := r.db.WithContext(ctx).Model(&entities.Video{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processing_status": string(domain.ProcessingFailed),
			"processing_error":  reason,
		}).Error
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// UpdateSensitivity applies an admin moderation override.
func (r *Repository) UpdateSensitivity(ctx context.Context, id string, s domain.SensitivityStatus) (*domain.Video, error) {
	result := r.db.WithContext(ctx).Model(&entities.Video{}).
		Where("id = ?", id).
		Update("sensitivity_status", string(s))
	if result.Error != nil {
		return nil, fmt.Errorf("update sensitivity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// ListByUploader returns every video owned by the given account.
func (r *Repository) ListByUploader(ctx context.Context, uploaderID string) ([]*domain.Video, error) {
	var rows []entities.Video
	err := r.db.WithContext(ctx).Where("uploader_id = ?", uploaderID).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list by uploader: %w", err)
	}
	return mapEntities(rows), nil
}

// ListLocal returns records whose primary asset is not remote.
func (r *Repository) ListLocal(ctx context.Context) ([]*domain.Video, error) {
	var rows []entities.Video
	err := r.db.WithContext(ctx).Preload("Uploader").
		Where("storage_ref NOT LIKE 'http%'").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list local videos: %w", err)
	}
	return mapEntities(rows), nil
}

// DeleteLocal removes every record whose primary asset is not remote.
func (r *Repository) DeleteLocal(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("storage_ref NOT LIKE 'http%'").
		Delete(&entities.Video{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete local videos: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Count returns the total number of videos.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&entities.Video{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count videos: %w", err)
	}
	return n, nil
}

// TotalViews sums the view counters across all videos.
func (r *Repository) TotalViews(ctx context.Context) (int64, error) {
	var total *int64
	err := r.db.WithContext(ctx).Model(&entities.Video{}).
		Select("SUM(views)").Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("total views: %w", err)
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

// CountBySensitivity groups video counts by sensitivity status.
func (r *Repository) CountBySensitivity(ctx context.Context) (map[domain.SensitivityStatus]int64, error) {
	type row struct {
		SensitivityStatus string
		Count             int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&entities.Video{}).
		Select("sensitivity_status, COUNT(*) as count").
		Group("sensitivity_status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count by sensitivity: %w", err)
	}
	out := make(map[domain.SensitivityStatus]int64, len(rows))
	for _, r := range rows {
		out[domain.SensitivityStatus(r.SensitivityStatus)] = r.Count
	}
	return out, nil
}

// Recent returns the n most recently created videos.
func (r *Repository) Recent(ctx context.Context, n int) ([]*domain.Video, error) {
	return r.List(ctx, domain.ListQuery{Sort: domain.SortNewest, Limit: n})
}

func mapEntities(rows []entities.Video) []*domain.Video {
	out := make([]*domain.Video, 0, len(rows))
	for _, row := range rows {
		v := mapEntity(row)
		out = append(out, &v)
	}
	return out
}

func mapEntity(entity entities.Video) domain.Video {
	v := domain.Video{
		ID:                 entity.ID,
		Title:              entity.Title,
		Description:        entity.Description,
		StorageRef:         entity.StorageRef,
		StorageKey:         entity.StorageKey,
		ThumbnailRef:       entity.ThumbnailRef,
		UploaderID:         entity.UploaderID,
		Views:              entity.Views,
		DurationSeconds:    entity.DurationSeconds,
		ProcessingStatus:   domain.ProcessingStatus(entity.ProcessingStatus),
		ProcessingProgress: entity.ProcessingProgress,
		ProcessingError:    entity.ProcessingError,
		SensitivityStatus:  domain.SensitivityStatus(entity.SensitivityStatus),
		CreatedAt:          entity.CreatedAt,
		UpdatedAt:          entity.UpdatedAt,
	}
	if entity.Uploader.ID != "" {
		v.Uploader = &domain.Uploader{
			ID:       entity.Uploader.ID,
			Username: entity.Uploader.Username,
			Avatar:   entity.Uploader.Avatar,
			Role:     entity.Uploader.Role,
		}
	}
	return v
}
