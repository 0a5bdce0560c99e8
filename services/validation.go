package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/Firesolami/needles-sub001/models"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

const (
	MaxBodyLength = 1000
	MaxMediaItems = 10
)

var (
	validate  = newValidator()
	sanitizer = bluemonday.UGCPolicy()
)

// MediaInput is an attachment descriptor from the media collaborator. It is
// stored verbatim; the link is not checked beyond its length.
type MediaInput struct {
	Link      string `json:"link" validate:"required,max=1024"`
	Type      string `json:"type" validate:"required,oneof=audio image video"`
	StorageID string `json:"storageId" validate:"required,max=128"`
}

// CreatePostInput is the content of an original, draft, quote or reply.
type CreatePostInput struct {
	Body  *string      `json:"body" validate:"omitempty,max=1000"`
	Media []MediaInput `json:"media" validate:"max=10,dive"`
}

// ListByAuthorInput selects a page of one author's posts.
type ListByAuthorInput struct {
	AuthorID    uint              `json:"author" validate:"required"`
	RequesterID uint              `json:"-" validate:"-"`
	Status      models.PostStatus `json:"status" validate:"omitempty,oneof=draft published"`
	Kinds       []models.PostKind `json:"kind" validate:"dive,oneof=original quote reply repost"`
	Page        int               `json:"page" validate:"min=1"`
	PageSize    int               `json:"count" validate:"min=1"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their json name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct turns validator errors into a *ValidationError.
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fieldPath(fe)] = describe(fe)
	}
	return out
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

// normalizeContent validates in and returns the sanitized body (nil when
// empty) and media. At least one of body and media must be non-empty.
func normalizeContent(in CreatePostInput) (*string, []MediaInput, error) {
	if err := validateStruct(in); err != nil {
		return nil, nil, err
	}
	var body *string
	if in.Body != nil {
		cleaned := strings.TrimSpace(sanitizer.Sanitize(*in.Body))
		if cleaned != "" {
			body = &cleaned
		}
	}
	if body == nil && len(in.Media) == 0 {
		return nil, nil, newValidationError("body", "body or media is required")
	}
	return body, in.Media, nil
}
