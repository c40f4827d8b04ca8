package domain

import "time"

// CommentType differentiates customer-visible replies from staff notes.
type CommentType string

const (
	CommentTypePublic   CommentType = "public"
	CommentTypeInternal CommentType = "internal"
)

// Valid reports whether c is a known comment type.
func (c CommentType) Valid() bool {
	return c == CommentTypePublic || c == CommentTypeInternal
}

// Comment is an immutable note in a ticket thread.
type Comment struct {
	ID        string
	TicketID  string
	Body      string
	Type      CommentType
	CreatedBy string
	CreatedAt time.Time
}
