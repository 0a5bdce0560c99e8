package services

import "github.com/Firesolami/needles-sub001/models"

// IsInteractable reports whether p can be reacted to, replied to, quoted or
// reposted. Both the content graph and the reaction ledger use it.
func IsInteractable(p *models.Post) bool {
	if p == nil || p.Status != models.PostStatusPublished {
		return false
	}
	switch p.Kind {
	case models.PostKindOriginal, models.PostKindQuote, models.PostKindReply:
		return true
	default:
		return false
	}
}

// CheckParentEligible maps a would-be parent to the error a child creation
// must fail with. A repost that is otherwise visible is a structural
// rejection; anything else not interactable is reported as missing.
func CheckParentEligible(p *models.Post) error {
	if IsInteractable(p) {
		return nil
	}
	if p != nil && p.Status == models.PostStatusPublished && p.Kind == models.PostKindRepost {
		return ErrInvalidTarget
	}
	return ErrNotFound
}

// isVisibleTo reports whether viewerID may read p. Drafts are visible only
// to their author; viewerID 0 is an anonymous viewer.
func isVisibleTo(p *models.Post, viewerID uint) bool {
	if p == nil {
		return false
	}
	if p.Status == models.PostStatusPublished {
		return true
	}
	return viewerID != 0 && p.UserID == viewerID
}
