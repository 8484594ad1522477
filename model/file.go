// Package model defines database models
package model

import (
	"net/url"
	"time"
)

const (
	StatusActive  = "active"
	StatusExpired = "expired"
)

type File struct {
	ID uint `gorm:"primaryKey;autoIncrement;index" json:"id"`

	// Opaque locator into the storage backend. Unrelated to the public
	// short code so records stay relocatable on disk.
	Path string `gorm:"not null" json:"-"`

	// Original file name before it was turned into a storage key
	Name string `gorm:"not null" json:"name"`
	Type string `gorm:"not null" json:"type"`
	Size int64  `gorm:"not null" json:"size"`

	IsPasswordProtected bool   `json:"isPasswordProtected"`
	Password            string `json:"-"`

	HasExpiry bool       `json:"hasExpiry"`
	ExpiresAt *time.Time `json:"expiresAt"`

	// "active" or "expired". The stored value may lag behind ExpiresAt,
	// callers must treat a past ExpiresAt as expired regardless
	Status string `gorm:"default:active" json:"status"`

	ShortCode string `gorm:"uniqueIndex;not null" json:"-"`
	ShortURL  string `json:"shortUrl"`

	// Weak reference to the owning user, 0 when the owner was deleted
	CreatedBy uint `gorm:"index" json:"createdBy"`

	DownloadedContent int64     `gorm:"default:0" json:"downloadedContent"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Expired reports whether the record's expiry is set and in the past,
// independent of the stored Status field
func (f *File) Expired() bool {
	return f.HasExpiry && f.ExpiresAt != nil && f.ExpiresAt.Before(time.Now())
}

// FileView is the redacted representation handed out to share-link
// visitors. It never carries the password hash or the storage path.
type FileView struct {
	ID                  uint       `json:"id"`
	Name                string     `json:"name"`
	Type                string     `json:"type"`
	Size                int64      `json:"size"`
	IsPasswordProtected bool       `json:"isPasswordProtected"`
	HasExpiry           bool       `json:"hasExpiry"`
	ExpiresAt           *time.Time `json:"expiresAt"`
	Status              string     `json:"status"`
	ShortURL            string     `json:"shortUrl"`
	CreatedAt           time.Time  `json:"createdAt"`
	DownloadedContent   int64      `json:"downloadedContent"`

	// Only set once the caller proved knowledge of the file password
	Path string `json:"path,omitempty"`
}

func (f *File) Public() FileView {
	return FileView{
		ID:                  f.ID,
		Name:                f.Name,
		Type:                f.Type,
		Size:                f.Size,
		IsPasswordProtected: f.IsPasswordProtected,
		HasExpiry:           f.HasExpiry,
		ExpiresAt:           f.ExpiresAt,
		Status:              f.Status,
		ShortURL:            f.ShortURL,
		CreatedAt:           f.CreatedAt,
		DownloadedContent:   f.DownloadedContent,
	}
}

// DispositionName returns the original name percent-encoded for safe use
// inside a Content-Disposition header
func (f *File) DispositionName() string {
	return url.PathEscape(f.Name)
}
