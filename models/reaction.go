package models

import "time"

// ReactionKind is the kind of a reaction edge.
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

// Reaction is a like or dislike edge. The (post, user) primary key allows a
// single edge per pair, so a user can never hold both kinds on one post.
type Reaction struct {
	PostID    string       `gorm:"primaryKey;size:36" json:"post_id"`
	UserID    uint         `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	Kind      ReactionKind `gorm:"size:16;not null" json:"kind"`
	CreatedAt time.Time    `json:"created_at"`
}

// TableName keeps the edge table name explicit.
func (Reaction) TableName() string {
	return "post_reactions"
}
