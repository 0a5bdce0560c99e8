package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Firesolami/needles-sub001/models"
)

// FollowCounts summarizes one user's place in the follow graph.
type FollowCounts struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}

// UserPage is one page of a follower or following listing.
type UserPage struct {
	Items      []AuthorView `json:"items"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	Total      int64        `json:"total"`
	TotalPages int          `json:"total_pages"`
}

// FollowService manages follow edges. There are no counters to reconcile;
// counts are derived from the edges.
type FollowService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewFollowService(db *gorm.DB, logger *zap.Logger) *FollowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FollowService{db: db, log: logger}
}

// FindUser resolves a username to its account.
func (s *FollowService) FindUser(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

// Follow makes followerID follow username. Following twice is a no-op.
func (s *FollowService) Follow(ctx context.Context, followerID uint, username string) (*models.User, error) {
	target, err := s.FindUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == followerID {
		return nil, newValidationError("username", "cannot follow yourself")
	}
	edge := models.Follow{FollowerID: followerID, FolloweeID: target.ID}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error
	if err != nil {
		return nil, fmt.Errorf("follow: %w", err)
	}
	return target, nil
}

// Unfollow removes the edge if present.
func (s *FollowService) Unfollow(ctx context.Context, followerID uint, username string) (*models.User, error) {
	target, err := s.FindUser(ctx, username)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, target.ID).
		Delete(&models.Follow{}).Error
	if err != nil {
		return nil, fmt.Errorf("unfollow: %w", err)
	}
	return target, nil
}

// IsFollowing reports whether followerID follows followeeID.
func (s *FollowService) IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&n).Error
	return n > 0, err
}

func (s *FollowService) Counts(ctx context.Context, userID uint) (FollowCounts, error) {
	var c FollowCounts
	db := s.db.WithContext(ctx).Model(&models.Follow{})
	if err := db.Where("followee_id = ?", userID).Count(&c.Followers).Error; err != nil {
		return c, fmt.Errorf("count followers: %w", err)
	}
	db = s.db.WithContext(ctx).Model(&models.Follow{})
	if err := db.Where("follower_id = ?", userID).Count(&c.Following).Error; err != nil {
		return c, fmt.Errorf("count following: %w", err)
	}
	return c, nil
}

// ListFollowers lists the users following userID, most recent first.
func (s *FollowService) ListFollowers(ctx context.Context, userID uint, page, pageSize int) (*UserPage, error) {
	return s.list(ctx, "follows.followee_id = ?", "follows.follower_id", userID, page, pageSize)
}

// ListFollowing lists the users userID follows, most recent first.
func (s *FollowService) ListFollowing(ctx context.Context, userID uint, page, pageSize int) (*UserPage, error) {
	return s.list(ctx, "follows.follower_id = ?", "follows.followee_id", userID, page, pageSize)
}

func (s *FollowService) list(ctx context.Context, where, joinColumn string, userID uint, page, pageSize int) (*UserPage, error) {
	if page < 1 {
		return nil, newValidationError("page", "must be at least 1")
	}
	if pageSize < 1 {
		return nil, newValidationError("count", "must be at least 1")
	}
	query := s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN follows ON users.id = "+joinColumn).
		Where(where, userID).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count follows: %w", err)
	}
	var users []models.User
	err := query.Order("follows.created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list follows: %w", err)
	}

	items := make([]AuthorView, 0, len(users))
	for _, u := range users {
		items = append(items, toAuthorView(u))
	}
	return &UserPage{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}
