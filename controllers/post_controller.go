package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Firesolami/needles-sub001/models"
	"github.com/Firesolami/needles-sub001/services"
	"github.com/Firesolami/needles-sub001/utils"
)

// PostController exposes the content graph and reactions over HTTP.
type PostController struct {
	posts     *services.PostService
	reactions *services.ReactionService
	media     *services.MediaService
	log       *zap.Logger
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB, media *services.MediaService, logger *zap.Logger) *PostController {
	return &PostController{
		posts:     services.NewPostService(db, logger.Named("posts")),
		reactions: services.NewReactionService(db, logger.Named("reactions")),
		media:     media,
		log:       logger,
	}
}

type contentRequest struct {
	Body  *string               `json:"body"`
	Media []services.MediaInput `json:"media"`
}

func (r contentRequest) input() services.CreatePostInput {
	return services.CreatePostInput{Body: r.Body, Media: r.Media}
}

// CreatePost creates an original post, or a draft when "draft" is true.
func (p *PostController) CreatePost(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req struct {
		contentRequest
		Draft bool `json:"draft"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	var (
		post *services.PostView
		err  error
	)
	if req.Draft {
		post, err = p.posts.CreateDraft(ctx.Request.Context(), userID, req.input())
	} else {
		post, err = p.posts.CreateOriginal(ctx.Request.Context(), userID, req.input())
	}
	if err != nil {
		respondError(ctx, p.log, err)
		return
	}
	p.claimMedia(ctx, userID, post)
	utils.Created(ctx, gin.H{"post": post})
}

// GetPost returns a single post. Drafts are only visible to their author.
func (p *PostController) GetPost(ctx *gin.Context) {
	viewerID, _ := getUserID(ctx)
	post, err := p.posts.GetByID(ctx.Request.Context(), ctx.Param("id"), viewerID)
	if err != nil {
		respondError(ctx, p.log, err)
		return
	}
	if post == nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "post not found")
		return
	}

	payload := gin.H{"post": post}
	if viewerID != 0 && post.Status == models.PostStatusPublished && post.Kind != models.PostKindRepost {
		state, err := p.reactions.State(ctx.Request.Context(), viewerID, post.ID)
		if err != nil && !errors.Is(err, services.ErrNotFound) {
			respondError(ctx, p.log, err)
			return
		}
		payload["reaction"] = state
	}
	utils.Success(ctx, payload)
}

// PublishDraft publishes the caller's draft.
func (p *PostController) PublishDraft(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	post, err := p.posts.PublishDraft(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, p.log, err)
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

// CreateReply replies to the post in the path.
func (p *PostController) CreateReply(ctx *gin.Context) {
	p.createWithContent(ctx, p.posts.CreateReply)
}

// CreateQuote quotes the post in the path.
func (p *PostController) CreateQuote(ctx *gin.Context) {
	p.createWithContent(ctx, p.posts.CreateQuote)
}

type childCreator func(ctx context.Context, authorID uint, parentID string, in services.CreatePostInput) (*services.PostView, error)

func (p *PostController) createWithContent(ctx *gin.Context, create childCreator) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req contentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	post, err := create(ctx.Request.Context(), userID, ctx.Param("id"), req.input())
	if err != nil {
		respondError(ctx, p.log, err)
		return
	}
	p.claimMedia(ctx, userID, post)
	utils.Created(ctx, gin.H{"post": post})
}

// CreateRepost reposts the post in the path.
func (p *PostController) CreateRepost(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	post, err := p.posts.CreateRepost(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, p.log, err)
		return
	}
	utils.Created(ctx, gin.H{"post": post})
}

// ListReplies returns a page of replies to the post in the path.
func (p *PostController) ListReplies(ctx *gin.Context) {
	p.listChildren(ctx, models.PostKindReply)
}

// ListQuotes returns a page of quotes of the post in the path.
func (p *PostController) ListQuotes(ctx *gin.Context) {
	p.listChildren(ctx, models.PostKindQuote)
}

func (p *PostController) listChildren(ctx *gin.Context, kind models.PostKind) {
	viewerID, _ := getUserID(ctx)
	page, pageSize := parsePagination(ctx)
	result, err := p.posts.ListChildren(ctx.Request.Context(), ctx.Param("id"), kind, viewerID, page, pageSize)
	if err != nil {
		respondError(ctx, p.log, err)
		return
	}
	utils.Success(ctx, pagePayload(result))
}

// ToggleLike likes, unlikes, or switches a dislike to a like.
func (p *PostController) ToggleLike(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	res, err := p.reactions.ToggleLike(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, p.log, err)
		return
	}
	utils.Success(ctx, res)
}

// ToggleDislike is the mirror of ToggleLike.
func (p *PostController) ToggleDislike(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	res, err := p.reactions.ToggleDislike(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, p.log, err)
		return
	}
	utils.Success(ctx, res)
}

// claimMedia keeps the caller's uploads that a new post references. The
// post already exists at this point, so failures are only logged.
func (p *PostController) claimMedia(ctx *gin.Context, userID uint, post *services.PostView) {
	if p.media == nil {
		return
	}
	ids := utils.Unique(services.StorageIDs(post))
	if err := p.media.Claim(ctx.Request.Context(), userID, ids); err != nil {
		p.log.Warn("claim media", zap.String("post_id", post.ID), zap.Error(err))
	}
}

func pagePayload(page *services.PostPage) gin.H {
	return gin.H{
		"items": page.Items,
		"pagination": gin.H{
			"page":        page.Page,
			"page_size":   page.PageSize,
			"total":       page.Total,
			"total_pages": page.TotalPages,
		},
	}
}
