package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Firesolami/needles-sub001/models"
)

func TestCreateOriginal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	in := text("  hello <script>alert(1)</script>world  ")
	in.Media = []MediaInput{
		{Link: "https://cdn.example.com/a.png", Type: "image", StorageID: "s-1"},
		{Link: "https://cdn.example.com/b.mp4", Type: "video", StorageID: "s-2"},
	}
	v, err := f.posts.CreateOriginal(ctx, alice.ID, in)
	require.NoError(t, err)

	assert.NotEmpty(t, v.ID)
	assert.Equal(t, models.PostKindOriginal, v.Kind)
	assert.Equal(t, models.PostStatusPublished, v.Status)
	require.NotNil(t, v.Body)
	assert.Equal(t, "hello world", *v.Body)
	assert.Equal(t, "alice", v.Author.Username)
	assert.Equal(t, "alice", v.Author.DisplayName)
	assert.Nil(t, v.Parent)
	require.Len(t, v.Media, 2)
	assert.Equal(t, "s-1", v.Media[0].StorageID)
	assert.Equal(t, "s-2", v.Media[1].StorageID)
	assert.Zero(t, v.LikesCount)
	assert.Zero(t, v.CommentsCount)
}

func TestCreateOriginalRequiresContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	_, err := f.posts.CreateOriginal(ctx, alice.ID, CreatePostInput{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.posts.CreateOriginal(ctx, alice.ID, text("   "))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.posts.CreateOriginal(ctx, alice.ID, text(strings.Repeat("x", MaxBodyLength+1)))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "body")

	// Media alone is enough.
	v, err := f.posts.CreateOriginal(ctx, alice.ID, CreatePostInput{
		Media: []MediaInput{{Link: "https://cdn.example.com/a.ogg", Type: "audio", StorageID: "s-a"}},
	})
	require.NoError(t, err)
	assert.Nil(t, v.Body)
}

func TestDraftVisibilityAndPublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	draft, err := f.posts.CreateDraft(ctx, alice.ID, text("soon"))
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusDraft, draft.Status)

	got, err := f.posts.GetByID(ctx, draft.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, got, "anonymous viewers must not see drafts")

	got, err = f.posts.GetByID(ctx, draft.ID, bob.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = f.posts.GetByID(ctx, draft.ID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	_, err = f.posts.CreateReply(ctx, bob.ID, draft.ID, text("early"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.reactions.ToggleLike(ctx, bob.ID, draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.posts.PublishDraft(ctx, bob.ID, draft.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	published, err := f.posts.PublishDraft(ctx, alice.ID, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublished, published.Status)
	assert.Equal(t, draft.CreatedAt.Unix(), published.CreatedAt.Unix())

	_, err = f.posts.PublishDraft(ctx, alice.ID, draft.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	got, err = f.posts.GetByID(ctx, draft.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestPublishDraftRejectsUnknownAndNonOriginal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	_, err := f.posts.PublishDraft(ctx, alice.ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := f.posts.CreateOriginal(ctx, alice.ID, text("root"))
	require.NoError(t, err)
	reply, err := f.posts.CreateReply(ctx, alice.ID, p.ID, text("child"))
	require.NoError(t, err)

	_, err = f.posts.PublishDraft(ctx, alice.ID, reply.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.posts.PublishDraft(ctx, alice.ID, p.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestChildCreationBumpsParentCounters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	root, err := f.posts.CreateOriginal(ctx, alice.ID, text("root"))
	require.NoError(t, err)

	reply, err := f.posts.CreateReply(ctx, bob.ID, root.ID, text("reply"))
	require.NoError(t, err)
	assert.Equal(t, models.PostKindReply, reply.Kind)
	require.NotNil(t, reply.Parent)
	assert.Equal(t, root.ID, reply.Parent.ID)
	assert.Equal(t, "alice", reply.Parent.Author.Username)

	quote, err := f.posts.CreateQuote(ctx, bob.ID, root.ID, text("quote"))
	require.NoError(t, err)
	assert.Equal(t, models.PostKindQuote, quote.Kind)

	repost, err := f.posts.CreateRepost(ctx, bob.ID, root.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostKindRepost, repost.Kind)
	assert.Nil(t, repost.Body)
	assert.Empty(t, repost.Media)

	p := f.reload(t, root.ID)
	assert.EqualValues(t, 1, p.CommentsCount)
	assert.EqualValues(t, 1, p.QuotesCount)
	assert.EqualValues(t, 1, p.RepostsCount)

	// Replies and quotes are interactable parents themselves.
	_, err = f.posts.CreateReply(ctx, alice.ID, reply.ID, text("nested"))
	require.NoError(t, err)
	_, err = f.posts.CreateQuote(ctx, alice.ID, quote.ID, text("nested quote"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.reload(t, reply.ID).CommentsCount)
	assert.EqualValues(t, 1, f.reload(t, quote.ID).QuotesCount)
}

func TestStructuralRejection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	root, err := f.posts.CreateOriginal(ctx, alice.ID, text("root"))
	require.NoError(t, err)
	repost, err := f.posts.CreateRepost(ctx, bob.ID, root.ID)
	require.NoError(t, err)
	draft, err := f.posts.CreateDraft(ctx, alice.ID, text("draft"))
	require.NoError(t, err)

	_, err = f.posts.CreateReply(ctx, alice.ID, repost.ID, text("reply to repost"))
	assert.ErrorIs(t, err, ErrInvalidTarget)
	_, err = f.posts.CreateQuote(ctx, alice.ID, repost.ID, text("quote of repost"))
	assert.ErrorIs(t, err, ErrInvalidTarget)
	_, err = f.posts.CreateRepost(ctx, alice.ID, repost.ID)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = f.posts.CreateReply(ctx, bob.ID, draft.ID, text("reply to draft"))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.posts.CreateReply(ctx, bob.ID, "does-not-exist", text("reply"))
	assert.ErrorIs(t, err, ErrNotFound)

	// Failed creations leave no rows and no counter changes behind.
	var n int64
	require.NoError(t, f.db.Model(&models.Post{}).Count(&n).Error)
	assert.EqualValues(t, 3, n)
	assert.EqualValues(t, 0, f.reload(t, repost.ID).CommentsCount)
	assert.EqualValues(t, 1, f.reload(t, root.ID).RepostsCount)
}

// On SQLite the transactions run one after another; see
// TestContendedCountersOnServerDatabase for the row-lock path.
func TestConcurrentRepliesCountExactly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	root, err := f.posts.CreateOriginal(ctx, alice.ID, text("root"))
	require.NoError(t, err)

	const n = 3
	users := make([]*models.User, n)
	for i := range users {
		users[i] = f.user(t, "replier"+string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, u := range users {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := f.posts.CreateReply(ctx, id, root.ID, text("me too"))
			errs <- err
		}(u.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.EqualValues(t, n, f.reload(t, root.ID).CommentsCount)
	var children int64
	require.NoError(t, f.db.Model(&models.Post{}).
		Where("parent_id = ? AND kind = ?", root.ID, models.PostKindReply).Count(&children).Error)
	assert.EqualValues(t, n, children)
}

func TestRepostCountersAreLive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")

	root, err := f.posts.CreateOriginal(ctx, alice.ID, text("root"))
	require.NoError(t, err)
	repost, err := f.posts.CreateRepost(ctx, bob.ID, root.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, repost.RepostsCount)

	_, err = f.reactions.ToggleLike(ctx, carol.ID, root.ID)
	require.NoError(t, err)
	_, err = f.reactions.ToggleDislike(ctx, bob.ID, root.ID)
	require.NoError(t, err)
	_, err = f.posts.CreateReply(ctx, carol.ID, root.ID, text("reply"))
	require.NoError(t, err)

	got, err := f.posts.GetByID(ctx, repost.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.EqualValues(t, 1, got.LikesCount)
	assert.EqualValues(t, 1, got.DislikesCount)
	assert.EqualValues(t, 1, got.CommentsCount)
	require.NotNil(t, got.Parent)
	assert.Equal(t, got.Parent.LikesCount, got.LikesCount)
	assert.Equal(t, got.Parent.DislikesCount, got.DislikesCount)

	// Nothing is stored on the repost row itself.
	stored := f.reload(t, repost.ID)
	assert.Zero(t, stored.LikesCount)
	assert.Zero(t, stored.DislikesCount)
}

func TestParentEmbeddedOneLevel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	root, err := f.posts.CreateOriginal(ctx, alice.ID, text("root"))
	require.NoError(t, err)
	mid, err := f.posts.CreateReply(ctx, alice.ID, root.ID, text("mid"))
	require.NoError(t, err)
	leaf, err := f.posts.CreateReply(ctx, alice.ID, mid.ID, text("leaf"))
	require.NoError(t, err)

	got, err := f.posts.GetByID(ctx, leaf.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, got.Parent)
	assert.Equal(t, mid.ID, got.Parent.ID)
	assert.Nil(t, got.Parent.Parent)
}

func TestListByAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	root, err := f.posts.CreateOriginal(ctx, alice.ID, text("one"))
	require.NoError(t, err)
	_, err = f.posts.CreateOriginal(ctx, alice.ID, text("two"))
	require.NoError(t, err)
	_, err = f.posts.CreateReply(ctx, alice.ID, root.ID, text("three"))
	require.NoError(t, err)
	_, err = f.posts.CreateDraft(ctx, alice.ID, text("draft"))
	require.NoError(t, err)
	_, err = f.posts.CreateOriginal(ctx, bob.ID, text("bob"))
	require.NoError(t, err)

	page, err := f.posts.ListByAuthor(ctx, ListByAuthorInput{AuthorID: alice.ID, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, page.Items, 3)
	for _, it := range page.Items {
		assert.Equal(t, models.PostStatusPublished, it.Status)
		assert.Equal(t, alice.ID, it.Author.ID)
	}

	page, err = f.posts.ListByAuthor(ctx, ListByAuthorInput{
		AuthorID: alice.ID, Kinds: []models.PostKind{models.PostKindReply}, Page: 1, PageSize: 10,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	page, err = f.posts.ListByAuthor(ctx, ListByAuthorInput{AuthorID: alice.ID, Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 1)

	_, err = f.posts.ListByAuthor(ctx, ListByAuthorInput{
		AuthorID: alice.ID, RequesterID: bob.ID, Status: models.PostStatusDraft, Page: 1, PageSize: 10,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	page, err = f.posts.ListByAuthor(ctx, ListByAuthorInput{
		AuthorID: alice.ID, RequesterID: alice.ID, Status: models.PostStatusDraft, Page: 1, PageSize: 10,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	_, err = f.posts.ListByAuthor(ctx, ListByAuthorInput{AuthorID: alice.ID, Page: 0, PageSize: 10})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.posts.ListByAuthor(ctx, ListByAuthorInput{
		AuthorID: alice.ID, Kinds: []models.PostKind{"story"}, Page: 1, PageSize: 10,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListChildren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	root, err := f.posts.CreateOriginal(ctx, alice.ID, text("root"))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = f.posts.CreateReply(ctx, bob.ID, root.ID, text("reply"))
		require.NoError(t, err)
	}
	_, err = f.posts.CreateQuote(ctx, bob.ID, root.ID, text("quote"))
	require.NoError(t, err)
	_, err = f.posts.CreateRepost(ctx, bob.ID, root.ID)
	require.NoError(t, err)

	replies, err := f.posts.ListChildren(ctx, root.ID, models.PostKindReply, 0, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, replies.Total)
	for _, it := range replies.Items {
		assert.Equal(t, models.PostKindReply, it.Kind)
		require.NotNil(t, it.Parent)
		assert.Equal(t, root.ID, it.Parent.ID)
	}

	quotes, err := f.posts.ListChildren(ctx, root.ID, models.PostKindQuote, 0, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, quotes.Total)

	_, err = f.posts.ListChildren(ctx, root.ID, models.PostKindRepost, 0, 1, 10)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.posts.ListChildren(ctx, "missing", models.PostKindReply, 0, 1, 10)
	assert.ErrorIs(t, err, ErrNotFound)

	draft, err := f.posts.CreateDraft(ctx, alice.ID, text("draft"))
	require.NoError(t, err)
	_, err = f.posts.ListChildren(ctx, draft.ID, models.PostKindReply, bob.ID, 1, 10)
	assert.ErrorIs(t, err, ErrNotFound)
}
