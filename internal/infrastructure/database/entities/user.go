package entities

import "time"

// User represents a persisted account.
type User struct {
	ID           string    `gorm:"type:varchar(40);primaryKey"`
	Username     string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:varchar(100);not null"`
	Role         string    `gorm:"type:varchar(16);not null;default:'Viewer'"`
	Avatar       string    `gorm:"type:varchar(255)"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
