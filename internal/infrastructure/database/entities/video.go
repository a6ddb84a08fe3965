package entities

import "time"

// Video represents the persisted video record and its processing state.
type Video struct {
	ID                 string    `gorm:"type:varchar(40);primaryKey"`
	Title              string    `gorm:"type:varchar(255);not null"`
	Description        string    `gorm:"type:text"`
	StorageRef         string    `gorm:"type:varchar(512);not null"`
	StorageKey         string    `gorm:"type:varchar(512)"`
	ThumbnailRef       string    `gorm:"type:varchar(512)"`
	UploaderID         string    `gorm:"type:varchar(40);not null;index"`
	Views              int64     `gorm:"not null;default:0"`
	DurationSeconds    int       `gorm:"not null;default:0"`
	ProcessingStatus   string    `gorm:"type:varchar(16);not null;default:'pending'"`
	ProcessingProgress int       `gorm:"not null;default:0"`
	ProcessingError    string    `gorm:"type:text"`
	SensitivityStatus  string    `gorm:"type:varchar(16);not null;default:'safe'"`
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`

	Uploader User `gorm:"foreignKey:UploaderID"`
}

func (Video) TableName() string {
	return "videos"
}
