package model

import "time"

type User struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Fullname string `gorm:"not null" json:"fullname"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	ProfilePic string `json:"profilePic"`

	// Derived counters kept up to date by file-lifecycle events. Display
	// statistics, not authoritative accounting
	TotalUploads   int64 `gorm:"default:0" json:"totalUploads"`
	TotalDownloads int64 `gorm:"default:0" json:"totalDownloads"`
	ImageCount     int64 `gorm:"default:0" json:"imageCount"`
	VideoCount     int64 `gorm:"default:0" json:"videoCount"`
	DocumentCount  int64 `gorm:"default:0" json:"documentCount"`

	LastLogin *time.Time `json:"lastLogin"`
	CreatedAt time.Time  `json:"createdAt"`

	Files []File `gorm:"foreignKey:CreatedBy" json:"-"`
}
