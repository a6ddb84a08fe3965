package responses

import (
	"time"

	"github.com/viewcasthq/viewcast-server/internal/domain/admin"
	"github.com/viewcasthq/viewcast-server/internal/domain/user"
	"github.com/viewcasthq/viewcast-server/internal/domain/video"
)

// UploaderResponse is the public summary of a video's owner.
type UploaderResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Role     string `json:"role"`
}

// VideoResponse is the public shape of a video record.
type VideoResponse struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Description        string            `json:"description,omitempty"`
	VideoURL           string            `json:"videoUrl"`
	ThumbnailURL       string            `json:"thumbnailUrl,omitempty"`
	Uploader           *UploaderResponse `json:"uploader,omitempty"`
	Views              int64             `json:"views"`
	DurationSeconds    int               `json:"duration"`
	ProcessingStatus   string            `json:"processingStatus"`
	ProcessingProgress int               `json:"processingProgress"`
	ProcessingError    string            `json:"processingError,omitempty"`
	SensitivityStatus  string            `json:"sensitivity"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// NewVideoResponse maps a domain video to its public shape.
func NewVideoResponse(v *video.Video) VideoResponse {
	resp := VideoResponse{
		ID:                 v.ID,
		Title:              v.Title,
		Description:        v.Description,
		VideoURL:           v.StorageRef,
		ThumbnailURL:       v.ThumbnailRef,
		Views:              v.Views,
		DurationSeconds:    v.DurationSeconds,
		ProcessingStatus:   string(v.ProcessingStatus),
		ProcessingProgress: v.ProcessingProgress,
		ProcessingError:    v.ProcessingError,
		SensitivityStatus:  string(v.SensitivityStatus),
		CreatedAt:          v.CreatedAt,
		UpdatedAt:          v.UpdatedAt,
	}
	if v.Uploader != nil {
		resp.Uploader = &UploaderResponse{
			ID:       v.Uploader.ID,
			Username: v.Uploader.Username,
			Avatar:   v.Uploader.Avatar,
			Role:     v.Uploader.Role,
		}
	}
	return resp
}

// NewVideoListResponse maps a slice of domain videos.
func NewVideoListResponse(videos []*video.Video) []VideoResponse {
	out := make([]VideoResponse, 0, len(videos))
	for _, v := range videos {
		out = append(out, NewVideoResponse(v))
	}
	return out
}

// UserResponse is the public shape of an account.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUserResponse maps a domain user to its public shape.
func NewUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
}

// NewUserListResponse maps a slice of domain users.
func NewUserListResponse(users []*user.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserResponse(u))
	}
	return out
}

// AuthResponse carries a freshly issued token and its account.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// StatsResponse is the admin dashboard payload.
type StatsResponse struct {
	TotalUsers     int64            `json:"totalUsers"`
	TotalVideos    int64            `json:"totalVideos"`
	TotalViews     int64            `json:"totalViews"`
	VideosByStatus map[string]int64 `json:"videosByStatus"`
	UsersByRole    map[string]int64 `json:"usersByRole"`
	RecentVideos   []VideoResponse  `json:"recentVideos"`
}

// NewStatsResponse maps the aggregate stats to the dashboard payload.
func NewStatsResponse(s *admin.Stats) StatsResponse {
	byStatus := make(map[string]int64, len(s.VideosByStatus))
	for k, v := range s.VideosByStatus {
		byStatus[string(k)] = v
	}
	byRole := make(map[string]int64, len(s.UsersByRole))
	for k, v := range s.UsersByRole {
		byRole[string(k)] = v
	}
	return StatsResponse{
		TotalUsers:     s.TotalUsers,
		TotalVideos:    s.TotalVideos,
		TotalViews:     s.TotalViews,
		VideosByStatus: byStatus,
		UsersByRole:    byRole,
		RecentVideos:   NewVideoListResponse(s.RecentVideos),
	}
}
