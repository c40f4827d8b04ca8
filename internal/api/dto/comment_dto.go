package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateCommentRequest payload. Type defaults to public.
type CreateCommentRequest struct {
	Body string `json:"body"`
	Type string `json:"type"`
}

// CommentResponse renders a comment.
type CommentResponse struct {
	ID        string             `json:"id"`
	TicketID  string             `json:"ticketId"`
	Body      string             `json:"body"`
	Type      domain.CommentType `json:"type"`
	CreatedBy string             `json:"createdBy"`
	CreatedAt time.Time          `json:"createdAt"`
}

// TicketThreadResponse is a ticket with its visible comments.
type TicketThreadResponse struct {
	Ticket   TicketResponse    `json:"ticket"`
	Comments []CommentResponse `json:"comments"`
}

// NewCommentResponse maps a domain comment.
func NewCommentResponse(comment *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID,
		TicketID:  comment.TicketID,
		Body:      comment.Body,
		Type:      comment.Type,
		CreatedBy: comment.CreatedBy,
		CreatedAt: comment.CreatedAt,
	}
}
