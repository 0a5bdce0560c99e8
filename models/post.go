package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostKind is fixed at creation.
type PostKind string

const (
	PostKindOriginal PostKind = "original"
	PostKindQuote    PostKind = "quote"
	PostKindReply    PostKind = "reply"
	PostKindRepost   PostKind = "repost"
)

// PostStatus only ever moves from draft to published.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// Post is a node of the content graph. Counters are denormalized and only
// changed through atomic column updates.
type Post struct {
	ID            string      `gorm:"primaryKey;size:36" json:"id"`
	UserID        uint        `gorm:"index:idx_posts_author_created,priority:1;not null" json:"user_id"`
	Kind          PostKind    `gorm:"size:16;not null;index:idx_posts_parent_kind,priority:2" json:"kind"`
	Status        PostStatus  `gorm:"size:16;not null;index" json:"status"`
	ParentID      *string     `gorm:"size:36;index:idx_posts_parent_kind,priority:1" json:"parent_id,omitempty"`
	Body          *string     `gorm:"type:text" json:"body,omitempty"`
	LikesCount    int64       `gorm:"not null;default:0" json:"likes_count"`
	DislikesCount int64       `gorm:"not null;default:0" json:"dislikes_count"`
	QuotesCount   int64       `gorm:"not null;default:0" json:"quotes_count"`
	CommentsCount int64       `gorm:"not null;default:0" json:"comments_count"`
	RepostsCount  int64       `gorm:"not null;default:0" json:"reposts_count"`
	CreatedAt     time.Time   `gorm:"index:idx_posts_author_created,priority:2" json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	User          User        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Parent        *Post       `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Media         []PostMedia `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"media"`
}

// BeforeCreate assigns an opaque id when the caller did not.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
