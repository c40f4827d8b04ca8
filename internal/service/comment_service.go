package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/policy"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/validation"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

const previewLength = 80

// CommentService manages ticket threads.
type CommentService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	dispatcher events.Dispatcher
	validator  *validation.Validator
	logger     *zap.Logger
	now        func() time.Time
}

// CommentDependencies bundles collaborators for the comment service.
type CommentDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	Dispatcher  events.Dispatcher
	Validator   *validation.Validator
	Logger      *zap.Logger
}

// CommentInput is a new comment. An empty Type means public.
type CommentInput struct {
	Body string `json:"body" validate:"required,min=1,max=2000"`
	Type string `json:"type" validate:"omitempty,comment_type"`
}

// TicketThread is a ticket together with the comments its reader may see.
type TicketThread struct {
	Ticket   *domain.Ticket
	Comments []domain.Comment
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validator := deps.Validator
	if validator == nil {
		validator = validation.New()
	}
	return &CommentService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		dispatcher: deps.Dispatcher,
		validator:  validator,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Add appends a comment to a ticket caller may read.
func (s *CommentService) Add(ctx context.Context, caller domain.Caller, ticketID string, input CommentInput) (*domain.Comment, error) {
	if err := policy.Require(caller.Role, policy.CapCommentCreate); err != nil {
		return nil, err
	}
	input.Body = strings.TrimSpace(input.Body)
	if input.Type == "" {
		input.Type = string(domain.CommentTypePublic)
	}
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	ticket, err := s.readableTicket(ctx, caller, ticketID)
	if err != nil {
		return nil, err
	}

	commentType := domain.CommentType(input.Type)
	if !policy.CanCreateComment(caller, commentType) {
		return nil, apperrors.NewForbidden("customers cannot create internal comments")
	}

	comment := &domain.Comment{
		ID:        uuid.NewString(),
		TicketID:  ticket.ID,
		Body:      input.Body,
		Type:      commentType,
		CreatedBy: caller.ID,
		CreatedAt: s.now(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	publish(ctx, s.dispatcher, s.logger, events.New(events.EventCommentAdded, ticket.ID, caller, events.CommentAddedPayload{
		CommentID:   comment.ID,
		CommentType: comment.Type,
		BodyPreview: preview(comment.Body),
	}))
	return comment, nil
}

// ListWithTicket returns the ticket and the comments caller may see, oldest
// first.
func (s *CommentService) ListWithTicket(ctx context.Context, caller domain.Caller, ticketID string) (*TicketThread, error) {
	if err := policy.Require(caller.Role, policy.CapCommentRead); err != nil {
		return nil, err
	}
	ticket, err := s.readableTicket(ctx, caller, ticketID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.List(ctx, repository.CommentFilter{
		TicketID: ticket.ID,
		Types:    policy.CommentScope(caller),
	})
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return &TicketThread{Ticket: ticket, Comments: comments}, nil
}

func (s *CommentService) readableTicket(ctx context.Context, caller domain.Caller, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID, "load ticket")
	}
	if err := policy.CheckTicketRead(caller, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func preview(body string) string {
	if utf8.RuneCountInString(body) <= previewLength {
		return body
	}
	return string([]rune(body)[:previewLength]) + "..."
}
