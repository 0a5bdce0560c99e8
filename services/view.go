package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/Firesolami/needles-sub001/models"
)

// AuthorView is the public part of a post's author.
type AuthorView struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	ProfilePic  string `json:"profile_pic"`
}

// MediaView is one attachment as supplied at creation.
type MediaView struct {
	Link      string `json:"link"`
	Type      string `json:"type"`
	StorageID string `json:"storageId"`
}

// PostView is the presented shape of a post. Parent is expanded one level
// only. For reposts the engagement counters are the parent's live values.
type PostView struct {
	ID            string            `json:"id"`
	Body          *string           `json:"body,omitempty"`
	Media         []MediaView       `json:"media"`
	CreatedAt     time.Time         `json:"created_at"`
	Kind          models.PostKind   `json:"kind"`
	Status        models.PostStatus `json:"status"`
	LikesCount    int64             `json:"likes_count"`
	DislikesCount int64             `json:"dislikes_count"`
	QuotesCount   int64             `json:"quotes_count"`
	CommentsCount int64             `json:"comments_count"`
	RepostsCount  int64             `json:"reposts_count"`
	Author        AuthorView        `json:"author"`
	Parent        *PostView         `json:"parent,omitempty"`
}

// PostPage is one page of a listing.
type PostPage struct {
	Items      []PostView `json:"items"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	Total      int64      `json:"total"`
	TotalPages int        `json:"total_pages"`
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// withProjection preloads everything a PostView needs.
func withProjection(db *gorm.DB) *gorm.DB {
	return db.
		Preload("User").
		Preload("Media", byPosition).
		Preload("Parent").
		Preload("Parent.User").
		Preload("Parent.Media", byPosition)
}

func toAuthorView(u models.User) AuthorView {
	return AuthorView{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		ProfilePic:  u.ProfilePic,
	}
}

func toMediaViews(media []models.PostMedia) []MediaView {
	out := make([]MediaView, 0, len(media))
	for _, m := range media {
		out = append(out, MediaView{Link: m.Link, Type: m.Type, StorageID: m.StorageID})
	}
	return out
}

// toView projects p and, when loaded, its immediate parent.
func toView(p *models.Post) PostView {
	v := flatView(p)
	if p.Parent != nil {
		parent := flatView(p.Parent)
		v.Parent = &parent
		if p.Kind == models.PostKindRepost {
			v.LikesCount = p.Parent.LikesCount
			v.DislikesCount = p.Parent.DislikesCount
			v.QuotesCount = p.Parent.QuotesCount
			v.CommentsCount = p.Parent.CommentsCount
			v.RepostsCount = p.Parent.RepostsCount
		}
	}
	return v
}

func flatView(p *models.Post) PostView {
	return PostView{
		ID:            p.ID,
		Body:          p.Body,
		Media:         toMediaViews(p.Media),
		CreatedAt:     p.CreatedAt,
		Kind:          p.Kind,
		Status:        p.Status,
		LikesCount:    p.LikesCount,
		DislikesCount: p.DislikesCount,
		QuotesCount:   p.QuotesCount,
		CommentsCount: p.CommentsCount,
		RepostsCount:  p.RepostsCount,
		Author:        toAuthorView(p.User),
	}
}

func newPage(posts []models.Post, page, pageSize int, total int64) *PostPage {
	items := make([]PostView, 0, len(posts))
	for i := range posts {
		items = append(items, toView(&posts[i]))
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &PostPage{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}
