package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreationType enumerates the artifact kinds produced by the tools.
type CreationType string

const (
	CreationTypeArticle      CreationType = "article"
	CreationTypeBlogTitle    CreationType = "blog-title"
	CreationTypeImage        CreationType = "image"
	CreationTypeResumeReview CreationType = "resume-review"
)

// Creation is one generated artifact. Records are append-only: nothing in
// the service updates or deletes them after insert.
type Creation struct {
	ID        uuid.UUID    `json:"id"`
	UserID    string       `json:"user_id"`
	Prompt    string       `json:"prompt"`
	Content   string       `json:"content"`
	Type      CreationType `json:"type"`
	Publish   bool         `json:"publish"`
	CreatedAt time.Time    `json:"created_at"`
}

// NormalizeCreationType sanitizes free-form input into a supported type.
func NormalizeCreationType(t string) (CreationType, bool) {
	switch CreationType(strings.ToLower(strings.TrimSpace(t))) {
	case CreationTypeArticle:
		return CreationTypeArticle, true
	case CreationTypeBlogTitle:
		return CreationTypeBlogTitle, true
	case CreationTypeImage:
		return CreationTypeImage, true
	case CreationTypeResumeReview:
		return CreationTypeResumeReview, true
	default:
		return "", false
	}
}
