package video

import (
	"strings"
	"time"
)

// ProcessingStatus is the lifecycle state of the post-upload pipeline.
type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingInProgress ProcessingStatus = "processing"
	ProcessingCompleted  ProcessingStatus = "completed"
	ProcessingFailed     ProcessingStatus = "failed"
)

// SensitivityStatus is the moderation classification of a video.
type SensitivityStatus string

const (
	SensitivityPending SensitivityStatus = "pending"
	SensitivitySafe    SensitivityStatus = "safe"
	SensitivityFlagged SensitivityStatus = "flagged"
)

// Valid reports whether the status is one of the fixed sensitivity set.
func (s SensitivityStatus) Valid() bool {
	switch s {
	case SensitivityPending, SensitivitySafe, SensitivityFlagged:
		return true
	}
	return false
}

// Uploader is the owner summary populated on listings.
type Uploader struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Role     string `json:"role"`
}

// Video is the persisted media record and its processing state.
type Video struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`

	// StorageRef locates the primary asset: a relative filesystem path for
	// local uploads or an https URL for object storage. Never empty.
	StorageRef string `json:"storage_ref"`
	// StorageKey is the provider-assigned object key, empty for local files.
	StorageKey string `json:"storage_key,omitempty"`
	// ThumbnailRef is empty until a preview frame has been extracted.
	ThumbnailRef string `json:"thumbnail_ref"`

	UploaderID string    `json:"uploader_id"`
	Uploader   *Uploader `json:"uploader,omitempty"`

	Views           int64 `json:"views"`
	DurationSeconds int   `json:"duration_seconds"`

	ProcessingStatus   ProcessingStatus `json:"processing_status"`
	ProcessingProgress int              `json:"processing_progress"`
	ProcessingError    string           `json:"processing_error,omitempty"`

	SensitivityStatus SensitivityStatus `json:"sensitivity_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsRemote reports whether the primary asset lives on an object-storage
// provider rather than the local disk.
func (v *Video) IsRemote() bool {
	return strings.HasPrefix(v.StorageRef, "http://") || strings.HasPrefix(v.StorageRef, "https://")
}

// SortOrder selects the listing order.
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
	SortViews  SortOrder = "views"
	SortTitle  SortOrder = "title"
)

// ListQuery carries the listing filters. An empty OwnerID means no
// ownership restriction.
type ListQuery struct {
	Search      string
	Sensitivity SensitivityStatus
	Status      ProcessingStatus
	Sort        SortOrder
	OwnerID     string
	Limit       int
}
