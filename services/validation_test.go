package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeContent(t *testing.T) {
	body := "  <b>bold</b> <img src=x onerror=alert(1)> text "
	got, media, err := normalizeContent(CreatePostInput{Body: &body})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotContains(t, *got, "onerror")
	assert.Contains(t, *got, "<b>bold</b>")
	assert.Empty(t, media)
}

func TestNormalizeContentFieldErrors(t *testing.T) {
	_, _, err := normalizeContent(CreatePostInput{
		Media: []MediaInput{{Link: "https://x", Type: "gif", StorageID: "s"}},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be one of: audio image video", verr.Fields["media[0].type"])

	media := make([]MediaInput, MaxMediaItems+1)
	for i := range media {
		media[i] = MediaInput{Link: "https://x", Type: "image", StorageID: "s"}
	}
	_, _, err = normalizeContent(CreatePostInput{Media: media})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "media")

	long := strings.Repeat("a", MaxBodyLength+1)
	_, _, err = normalizeContent(CreatePostInput{Body: &long})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be at most 1000", verr.Fields["body"])
	assert.ErrorIs(t, err, ErrValidation)
	assert.True(t, IsExpected(err))
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"page": "must be at least 1", "body": "is required"}}
	assert.Equal(t, "validation failed: body: is required; page: must be at least 1", err.Error())
}
