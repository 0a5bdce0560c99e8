package models

// PostMedia is one attachment descriptor supplied by the media collaborator.
// Position preserves creation order.
type PostMedia struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	PostID    string `gorm:"size:36;not null;index:idx_post_media_post_position,priority:1" json:"-"`
	Position  int    `gorm:"not null;index:idx_post_media_post_position,priority:2" json:"-"`
	Type      string `gorm:"size:16;not null" json:"type"`
	Link      string `gorm:"size:1024;not null" json:"link"`
	StorageID string `gorm:"size:128;not null" json:"storageId"`
}
