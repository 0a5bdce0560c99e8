package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Firesolami/needles-sub001/models"
)

// ReactionState is a user's reaction to one post.
type ReactionState string

const (
	ReactionNone     ReactionState = "none"
	ReactionLiked    ReactionState = "liked"
	ReactionDisliked ReactionState = "disliked"
)

// ReactionResult is the outcome of a toggle: the user's new state and the
// post's counters as of the same transaction.
type ReactionResult struct {
	PostID        string        `json:"post_id"`
	State         ReactionState `json:"state"`
	LikesCount    int64         `json:"likes_count"`
	DislikesCount int64         `json:"dislikes_count"`
}

// ReactionService keeps like and dislike edges and the matching post
// counters in step.
type ReactionService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewReactionService creates a ReactionService backed by db.
func NewReactionService(db *gorm.DB, logger *zap.Logger) *ReactionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReactionService{db: db, log: logger}
}

// ToggleLike likes the post, removes an existing like, or switches an
// existing dislike to a like.
func (s *ReactionService) ToggleLike(ctx context.Context, userID uint, postID string) (*ReactionResult, error) {
	ctx, span := tracer.Start(ctx, "ReactionService.ToggleLike")
	defer span.End()
	return s.toggle(ctx, userID, postID, models.ReactionLike)
}

// ToggleDislike is the mirror of ToggleLike.
func (s *ReactionService) ToggleDislike(ctx context.Context, userID uint, postID string) (*ReactionResult, error) {
	ctx, span := tracer.Start(ctx, "ReactionService.ToggleDislike")
	defer span.End()
	return s.toggle(ctx, userID, postID, models.ReactionDislike)
}

// State reports the user's reaction to an interactable post.
func (s *ReactionService) State(ctx context.Context, userID uint, postID string) (ReactionState, error) {
	var p models.Post
	err := s.db.WithContext(ctx).Where("id = ?", postID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ReactionNone, ErrNotFound
	}
	if err != nil {
		return ReactionNone, fmt.Errorf("get post: %w", err)
	}
	if !IsInteractable(&p) {
		return ReactionNone, ErrNotFound
	}
	var r models.Reaction
	err = s.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ReactionNone, nil
	}
	if err != nil {
		return ReactionNone, fmt.Errorf("get reaction: %w", err)
	}
	return stateOf(r.Kind), nil
}

// toggle runs one transition of the (user, post) state machine. The post row
// lock serializes toggles on the post, so the edge read below cannot go
// stale before the delete. A counter is only decremented after the delete of
// its edge affected exactly one row.
func (s *ReactionService) toggle(ctx context.Context, userID uint, postID string, want models.ReactionKind) (*ReactionResult, error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("post.id", postID),
		attribute.String("reaction.kind", string(want)),
	)

	var result ReactionResult
	err := withTx(ctx, s.db, s.log, "toggle_"+string(want), func(tx *gorm.DB) error {
		p, err := lockPost(tx, postID)
		if err != nil {
			return err
		}
		if !IsInteractable(p) {
			return ErrNotFound
		}

		var existing models.Reaction
		err = tx.Where("post_id = ? AND user_id = ?", postID, userID).Take(&existing).Error
		found := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		state := stateOf(want)
		if found {
			removed, err := removeEdge(tx, postID, userID, existing.Kind)
			if err != nil {
				return err
			}
			if removed && existing.Kind == want {
				state = ReactionNone
			}
		}
		if state != ReactionNone {
			if err := addEdge(tx, postID, userID, want); err != nil {
				return err
			}
		}

		var counts models.Post
		err = tx.Select("likes_count", "dislikes_count").Where("id = ?", postID).Take(&counts).Error
		if err != nil {
			return err
		}
		result = ReactionResult{
			PostID:        postID,
			State:         state,
			LikesCount:    counts.LikesCount,
			DislikesCount: counts.DislikesCount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	span.AddEvent("reaction toggled", trace.WithAttributes(attribute.String("reaction.state", string(result.State))))
	return &result, nil
}

// removeEdge deletes the user's edge of the given kind and decrements the
// matching counter when a row was actually removed.
func removeEdge(tx *gorm.DB, postID string, userID uint, kind models.ReactionKind) (bool, error) {
	res := tx.Where("post_id = ? AND user_id = ? AND kind = ?", postID, userID, kind).Delete(&models.Reaction{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected != 1 {
		return false, nil
	}
	return true, bumpCounter(tx, postID, reactionColumn(kind), -1)
}

func addEdge(tx *gorm.DB, postID string, userID uint, kind models.ReactionKind) error {
	edge := models.Reaction{PostID: postID, UserID: userID, Kind: kind}
	if err := tx.Create(&edge).Error; err != nil {
		return err
	}
	return bumpCounter(tx, postID, reactionColumn(kind), 1)
}

func reactionColumn(kind models.ReactionKind) string {
	if kind == models.ReactionDislike {
		return "dislikes_count"
	}
	return "likes_count"
}

func stateOf(kind models.ReactionKind) ReactionState {
	if kind == models.ReactionDislike {
		return ReactionDisliked
	}
	return ReactionLiked
}
