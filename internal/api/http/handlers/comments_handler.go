package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// CommentsHandler serves ticket threads.
type CommentsHandler struct {
	service *service.CommentService
}

// NewCommentsHandler constructs handler.
func NewCommentsHandler(commentService *service.CommentService) *CommentsHandler {
	return &CommentsHandler{service: commentService}
}

// AddComment POST /api/tickets/:id/comments.
func (h *CommentsHandler) AddComment(c *fiber.Ctx) error {
	caller, err := auth.CallerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.service.Add(c.UserContext(), caller, c.Params("id"), service.CommentInput{
		Body: req.Body,
		Type: req.Type,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewCommentResponse(comment))
}

// ListComments GET /api/tickets/:id/comments.
func (h *CommentsHandler) ListComments(c *fiber.Ctx) error {
	caller, err := auth.CallerFromContext(c)
	if err != nil {
		return err
	}
	thread, err := h.service.ListWithTicket(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	comments := make([]dto.CommentResponse, 0, len(thread.Comments))
	for i := range thread.Comments {
		comments = append(comments, dto.NewCommentResponse(&thread.Comments[i]))
	}
	return respond(c, http.StatusOK, dto.TicketThreadResponse{
		Ticket:   dto.NewTicketResponse(thread.Ticket),
		Comments: comments,
	})
}
