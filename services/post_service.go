package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Firesolami/needles-sub001/models"
)

var tracer = otel.Tracer("github.com/Firesolami/needles-sub001/services")

// PostService owns the content graph: creation, publication and retrieval of
// posts, and the quote, comment and repost counters of parents.
type PostService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewPostService creates a PostService backed by db.
func NewPostService(db *gorm.DB, logger *zap.Logger) *PostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostService{db: db, log: logger}
}

// CreateOriginal creates a published original post.
func (s *PostService) CreateOriginal(ctx context.Context, authorID uint, in CreatePostInput) (*PostView, error) {
	ctx, span := tracer.Start(ctx, "PostService.CreateOriginal")
	defer span.End()
	return s.createRoot(ctx, authorID, models.PostStatusPublished, in)
}

// CreateDraft creates an unpublished original post visible only to its author.
func (s *PostService) CreateDraft(ctx context.Context, authorID uint, in CreatePostInput) (*PostView, error) {
	ctx, span := tracer.Start(ctx, "PostService.CreateDraft")
	defer span.End()
	return s.createRoot(ctx, authorID, models.PostStatusDraft, in)
}

func (s *PostService) createRoot(ctx context.Context, authorID uint, status models.PostStatus, in CreatePostInput) (*PostView, error) {
	body, media, err := normalizeContent(in)
	if err != nil {
		return nil, err
	}
	post := newPost(authorID, models.PostKindOriginal, status, nil, body, media)
	if err := s.db.WithContext(ctx).Omit("User", "Parent").Create(post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("post.id", post.ID),
		attribute.String("post.status", string(status)),
	)
	return s.load(ctx, post.ID)
}

// PublishDraft moves a draft original to published. Only the author may do
// so, and only once.
func (s *PostService) PublishDraft(ctx context.Context, requesterID uint, draftID string) (*PostView, error) {
	ctx, span := tracer.Start(ctx, "PostService.PublishDraft",
		trace.WithAttributes(attribute.String("post.id", draftID)))
	defer span.End()

	err := withTx(ctx, s.db, s.log, "publish_draft", func(tx *gorm.DB) error {
		p, err := lockPost(tx, draftID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrNotFound
		}
		if p.UserID != requesterID {
			return ErrForbidden
		}
		if p.Kind != models.PostKindOriginal {
			return ErrNotFound
		}
		if p.Status != models.PostStatusDraft {
			return ErrInvalidState
		}
		res := tx.Model(&models.Post{}).
			Where("id = ? AND status = ?", draftID, models.PostStatusDraft).
			Update("status", models.PostStatusPublished)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrInvalidState
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("draft published", zap.String("post_id", draftID), zap.Uint("user_id", requesterID))
	return s.load(ctx, draftID)
}

// CreateQuote creates a quote of parentID and bumps its quotes_count.
func (s *PostService) CreateQuote(ctx context.Context, authorID uint, parentID string, in CreatePostInput) (*PostView, error) {
	ctx, span := tracer.Start(ctx, "PostService.CreateQuote",
		trace.WithAttributes(attribute.String("post.parent_id", parentID)))
	defer span.End()

	body, media, err := normalizeContent(in)
	if err != nil {
		return nil, err
	}
	return s.createChild(ctx, authorID, parentID, models.PostKindQuote, body, media)
}

// CreateReply creates a reply to parentID and bumps its comments_count.
func (s *PostService) CreateReply(ctx context.Context, authorID uint, parentID string, in CreatePostInput) (*PostView, error) {
	ctx, span := tracer.Start(ctx, "PostService.CreateReply",
		trace.WithAttributes(attribute.String("post.parent_id", parentID)))
	defer span.End()

	body, media, err := normalizeContent(in)
	if err != nil {
		return nil, err
	}
	return s.createChild(ctx, authorID, parentID, models.PostKindReply, body, media)
}

// CreateRepost creates a content-less repost of parentID and bumps its
// reposts_count.
func (s *PostService) CreateRepost(ctx context.Context, authorID uint, parentID string) (*PostView, error) {
	ctx, span := tracer.Start(ctx, "PostService.CreateRepost",
		trace.WithAttributes(attribute.String("post.parent_id", parentID)))
	defer span.End()

	return s.createChild(ctx, authorID, parentID, models.PostKindRepost, nil, nil)
}

// createChild inserts the child and increments the parent counter in one
// transaction, holding the parent row lock throughout.
func (s *PostService) createChild(ctx context.Context, authorID uint, parentID string, kind models.PostKind, body *string, media []MediaInput) (*PostView, error) {
	column := counterColumn(kind)
	var childID string
	err := withTx(ctx, s.db, s.log, "create_"+string(kind), func(tx *gorm.DB) error {
		parent, err := lockPost(tx, parentID)
		if err != nil {
			return err
		}
		if err := CheckParentEligible(parent); err != nil {
			return err
		}
		child := newPost(authorID, kind, models.PostStatusPublished, &parentID, body, media)
		if err := tx.Omit("User", "Parent").Create(child).Error; err != nil {
			return err
		}
		if err := bumpCounter(tx, parentID, column, 1); err != nil {
			return err
		}
		childID = child.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("post.id", childID),
		attribute.String("post.kind", string(kind)),
	)
	return s.load(ctx, childID)
}

// GetByID returns the post when it exists and viewerID may see it. A missing
// or hidden post yields nil without an error. viewerID 0 is anonymous.
func (s *PostService) GetByID(ctx context.Context, id string, viewerID uint) (*PostView, error) {
	ctx, span := tracer.Start(ctx, "PostService.GetByID",
		trace.WithAttributes(attribute.String("post.id", id)))
	defer span.End()

	var p models.Post
	err := withProjection(s.db.WithContext(ctx)).Where("id = ?", id).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	if !isVisibleTo(&p, viewerID) {
		return nil, nil
	}
	v := toView(&p)
	return &v, nil
}

// ListByAuthor lists one author's posts, newest first. Drafts are listed
// only for the author.
func (s *PostService) ListByAuthor(ctx context.Context, in ListByAuthorInput) (*PostPage, error) {
	ctx, span := tracer.Start(ctx, "PostService.ListByAuthor")
	defer span.End()

	if in.Status == "" {
		in.Status = models.PostStatusPublished
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Status == models.PostStatusDraft && in.RequesterID != in.AuthorID {
		return nil, ErrForbidden
	}

	query := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("user_id = ? AND status = ?", in.AuthorID, in.Status)
	if len(in.Kinds) > 0 {
		query = query.Where("kind IN ?", in.Kinds)
	}
	return s.page(query, in.Page, in.PageSize)
}

// ListChildren lists the published replies or quotes of a visible post.
func (s *PostService) ListChildren(ctx context.Context, parentID string, kind models.PostKind, viewerID uint, page, pageSize int) (*PostPage, error) {
	ctx, span := tracer.Start(ctx, "PostService.ListChildren",
		trace.WithAttributes(
			attribute.String("post.parent_id", parentID),
			attribute.String("post.kind", string(kind)),
		))
	defer span.End()

	if kind != models.PostKindReply && kind != models.PostKindQuote {
		return nil, newValidationError("kind", "must be one of: reply quote")
	}
	if page < 1 {
		return nil, newValidationError("page", "must be at least 1")
	}
	if pageSize < 1 {
		return nil, newValidationError("count", "must be at least 1")
	}

	var parent models.Post
	err := s.db.WithContext(ctx).Where("id = ?", parentID).Take(&parent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get parent: %w", err)
	}
	if !isVisibleTo(&parent, viewerID) {
		return nil, ErrNotFound
	}

	query := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("parent_id = ? AND kind = ? AND status = ?", parentID, kind, models.PostStatusPublished)
	return s.page(query, page, pageSize)
}

func (s *PostService) page(query *gorm.DB, page, pageSize int) (*PostPage, error) {
	query = query.Session(&gorm.Session{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	var posts []models.Post
	err := withProjection(query).
		Order("created_at DESC").
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return newPage(posts, page, pageSize, total), nil
}

func (s *PostService) load(ctx context.Context, id string) (*PostView, error) {
	var p models.Post
	if err := withProjection(s.db.WithContext(ctx)).Where("id = ?", id).Take(&p).Error; err != nil {
		return nil, fmt.Errorf("load post %s: %w", id, err)
	}
	v := toView(&p)
	return &v, nil
}

func newPost(authorID uint, kind models.PostKind, status models.PostStatus, parentID *string, body *string, media []MediaInput) *models.Post {
	p := &models.Post{
		UserID:   authorID,
		Kind:     kind,
		Status:   status,
		ParentID: parentID,
		Body:     body,
	}
	for i, m := range media {
		p.Media = append(p.Media, models.PostMedia{
			Position:  i,
			Type:      m.Type,
			Link:      m.Link,
			StorageID: m.StorageID,
		})
	}
	return p
}

// counterColumn is the parent counter a child of kind contributes to.
func counterColumn(kind models.PostKind) string {
	switch kind {
	case models.PostKindQuote:
		return "quotes_count"
	case models.PostKindReply:
		return "comments_count"
	case models.PostKindRepost:
		return "reposts_count"
	default:
		panic("no parent counter for kind " + string(kind))
	}
}
