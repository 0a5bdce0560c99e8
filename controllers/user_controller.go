package controllers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Firesolami/needles-sub001/models"
	"github.com/Firesolami/needles-sub001/services"
	"github.com/Firesolami/needles-sub001/utils"
)

// UserController serves public profiles, the follow graph and per-author
// post listings.
type UserController struct {
	follows *services.FollowService
	posts   *services.PostService
	log     *zap.Logger
}

// NewUserController creates a new UserController instance.
func NewUserController(db *gorm.DB, logger *zap.Logger) *UserController {
	return &UserController{
		follows: services.NewFollowService(db, logger.Named("follows")),
		posts:   services.NewPostService(db, logger.Named("posts")),
		log:     logger,
	}
}

// GetProfile returns a user's public profile with follow counts.
func (u *UserController) GetProfile(ctx *gin.Context) {
	user, err := u.follows.FindUser(ctx.Request.Context(), ctx.Param("username"))
	if err != nil {
		respondError(ctx, u.log, err)
		return
	}
	counts, err := u.follows.Counts(ctx.Request.Context(), user.ID)
	if err != nil {
		respondError(ctx, u.log, err)
		return
	}

	payload := publicUser(*user)
	payload["followers"] = counts.Followers
	payload["following"] = counts.Following
	if viewerID, ok := getUserID(ctx); ok && viewerID != user.ID {
		following, err := u.follows.IsFollowing(ctx.Request.Context(), viewerID, user.ID)
		if err != nil {
			respondError(ctx, u.log, err)
			return
		}
		payload["is_following"] = following
	}
	utils.Success(ctx, payload)
}

// ListPosts lists a user's posts. Query: status (published|draft), kind
// (comma separated), page, count.
func (u *UserController) ListPosts(ctx *gin.Context) {
	user, err := u.follows.FindUser(ctx.Request.Context(), ctx.Param("username"))
	if err != nil {
		respondError(ctx, u.log, err)
		return
	}
	viewerID, _ := getUserID(ctx)
	page, pageSize := parsePagination(ctx)

	in := services.ListByAuthorInput{
		AuthorID:    user.ID,
		RequesterID: viewerID,
		Status:      models.PostStatus(strings.TrimSpace(ctx.Query("status"))),
		Page:        page,
		PageSize:    pageSize,
	}
	for _, k := range strings.Split(ctx.Query("kind"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			in.Kinds = append(in.Kinds, models.PostKind(k))
		}
	}

	result, err := u.posts.ListByAuthor(ctx.Request.Context(), in)
	if err != nil {
		respondError(ctx, u.log, err)
		return
	}
	utils.Success(ctx, pagePayload(result))
}

// Follow makes the caller follow the user in the path.
func (u *UserController) Follow(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	target, err := u.follows.Follow(ctx.Request.Context(), userID, ctx.Param("username"))
	if err != nil {
		respondError(ctx, u.log, err)
		return
	}
	utils.Success(ctx, gin.H{"user": publicUser(*target), "following": true})
}

// Unfollow removes the caller's follow of the user in the path.
func (u *UserController) Unfollow(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	target, err := u.follows.Unfollow(ctx.Request.Context(), userID, ctx.Param("username"))
	if err != nil {
		respondError(ctx, u.log, err)
		return
	}
	utils.Success(ctx, gin.H{"user": publicUser(*target), "following": false})
}

func (u *UserController) ListFollowers(ctx *gin.Context) {
	u.listFollows(ctx, u.follows.ListFollowers)
}

func (u *UserController) ListFollowing(ctx *gin.Context) {
	u.listFollows(ctx, u.follows.ListFollowing)
}

func (u *UserController) listFollows(ctx *gin.Context, list func(ctx context.Context, userID uint, page, pageSize int) (*services.UserPage, error)) {
	user, err := u.follows.FindUser(ctx.Request.Context(), ctx.Param("username"))
	if err != nil {
		respondError(ctx, u.log, err)
		return
	}
	page, pageSize := parsePagination(ctx)
	result, err := list(ctx.Request.Context(), user.ID, page, pageSize)
	if err != nil {
		respondError(ctx, u.log, err)
		return
	}
	utils.Success(ctx, gin.H{
		"items": result.Items,
		"pagination": gin.H{
			"page":        result.Page,
			"page_size":   result.PageSize,
			"total":       result.Total,
			"total_pages": result.TotalPages,
		},
	})
}

func publicUser(user models.User) gin.H {
	return gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"display_name": user.DisplayName,
		"profile_pic":  user.ProfilePic,
		"created_at":   user.CreatedAt,
	}
}
