package models

import "time"

// UploadedFile records locally stored media. ExpireAt is cleared once a post
// references the file; unclaimed files are removed after expiry.
type UploadedFile struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	StorageID string     `gorm:"size:128;not null;uniqueIndex" json:"storage_id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	Type      string     `gorm:"size:16;not null" json:"type"`
	FilePath  string     `gorm:"size:1024;not null" json:"-"`
	URL       string     `gorm:"size:1024;not null" json:"url"`
	ExpireAt  *time.Time `gorm:"index" json:"expire_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
