package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/policy"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/validation"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets         repository.TicketRepository
	users           repository.UserRepository
	history         repository.TicketHistoryRepository
	dispatcher      events.Dispatcher
	validator       *validation.Validator
	logger          *zap.Logger
	defaultPageSize int
	maxPageSize     int
	now             func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo      repository.TicketRepository
	UserRepo        repository.UserRepository
	HistoryRepo     repository.TicketHistoryRepository
	Dispatcher      events.Dispatcher
	Validator       *validation.Validator
	Logger          *zap.Logger
	DefaultPageSize int
	MaxPageSize     int
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string   `json:"title" validate:"required,min=5,max=200"`
	Description string   `json:"description" validate:"required,min=10,max=5000"`
	Priority    string   `json:"priority" validate:"required,ticket_priority"`
	Tags        []string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
}

// TicketListQuery carries the optional list filters as received from the
// client. Dates accept RFC3339 or YYYY-MM-DD.
type TicketListQuery struct {
	Status      string `json:"status" validate:"omitempty,ticket_status"`
	Priority    string `json:"priority" validate:"omitempty,ticket_priority"`
	Tag         string `json:"tag" validate:"max=50"`
	Search      string `json:"search" validate:"max=200"`
	CreatedFrom string `json:"createdFrom"`
	CreatedTo   string `json:"createdTo"`
	Page        int    `json:"page"`
	Limit       int    `json:"limit"`
}

// TicketPage is one page of a ticket listing.
type TicketPage struct {
	Tickets []domain.Ticket
	Total   int
	Page    int
	Limit   int
	Pages   int
}

type statusChangeInput struct {
	Status string `json:"status" validate:"required,ticket_status"`
}

type assignInput struct {
	AssigneeID string `json:"assignedTo" validate:"required,uuid"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validator := deps.Validator
	if validator == nil {
		validator = validation.New()
	}
	maxPageSize := deps.MaxPageSize
	if maxPageSize <= 0 {
		maxPageSize = 50
	}
	defaultPageSize := deps.DefaultPageSize
	if defaultPageSize <= 0 || defaultPageSize > maxPageSize {
		defaultPageSize = min(10, maxPageSize)
	}
	return &TicketService{
		tickets:         deps.TicketRepo,
		users:           deps.UserRepo,
		history:         deps.HistoryRepo,
		dispatcher:      deps.Dispatcher,
		validator:       validator,
		logger:          logger,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a ticket on behalf of caller.
func (s *TicketService) Create(ctx context.Context, caller domain.Caller, input TicketCreateInput) (*domain.Ticket, error) {
	if err := policy.Require(caller.Role, policy.CapTicketCreate); err != nil {
		return nil, err
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	// Tag limits apply to the stored set, not to duplicates the client sent.
	input.Tags = domain.NormalizeTags(input.Tags)
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	now := s.now()
	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		Priority:    domain.TicketPriority(input.Priority),
		Status:      domain.TicketStatusOpen,
		CreatedBy:   caller.ID,
		Tags:        input.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	publish(ctx, s.dispatcher, s.logger, events.New(events.EventTicketCreated, ticket.ID, caller, events.TicketCreatedPayload{
		Priority: ticket.Priority,
		Title:    ticket.Title,
		Tags:     ticket.Tags,
	}))
	return ticket, nil
}

// List returns the page of tickets visible to caller that match query,
// newest first.
func (s *TicketService) List(ctx context.Context, caller domain.Caller, query TicketListQuery) (*TicketPage, error) {
	if err := policy.Require(caller.Role, policy.CapTicketRead); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}
	from, err := parseDateBound(query.CreatedFrom, "createdFrom", false)
	if err != nil {
		return nil, err
	}
	to, err := parseDateBound(query.CreatedTo, "createdTo", true)
	if err != nil {
		return nil, err
	}

	filter := repository.NewTicketFilterBuilder().
		CreatedBy(policy.TicketScope(caller)).
		Status(domain.TicketStatus(query.Status)).
		Priority(domain.TicketPriority(query.Priority)).
		Tag(query.Tag).
		Search(query.Search).
		CreatedBetween(from, to).
		Build()

	page, limit := s.pageWindow(query.Page, query.Limit)

	total, err := s.tickets.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count tickets: %w", err)
	}
	result := &TicketPage{
		Tickets: []domain.Ticket{},
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   (total + limit - 1) / limit,
	}
	// Past the last page the offset could overflow; there is nothing to fetch.
	if page > result.Pages {
		return result, nil
	}
	tickets, err := s.tickets.List(ctx, filter, repository.Page{Limit: limit, Offset: (page - 1) * limit})
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	if tickets != nil {
		result.Tickets = tickets
	}
	return result, nil
}

// Get loads a single ticket caller may read.
func (s *TicketService) Get(ctx context.Context, caller domain.Caller, id string) (*domain.Ticket, error) {
	if err := policy.Require(caller.Role, policy.CapTicketRead); err != nil {
		return nil, err
	}
	return s.loadReadable(ctx, caller, id)
}

// ChangeStatus moves a ticket along the transition table.
func (s *TicketService) ChangeStatus(ctx context.Context, caller domain.Caller, id, status string) (*domain.Ticket, error) {
	if err := policy.Require(caller.Role, policy.CapTicketChangeStatus); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(statusChangeInput{Status: status}); err != nil {
		return nil, err
	}
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	next := domain.TicketStatus(status)
	previous := ticket.Status
	if !policy.CanTransition(previous, next) {
		return nil, apperrors.NewInvalidTransition(string(previous), string(next))
	}

	ticket.Status = next
	ticket.UpdatedAt = s.now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, notFoundOr(err, "ticket", id, "update ticket status")
	}
	s.recordHistory(ctx, ticket.ID, caller, domain.ChangeTypeStatus,
		map[string]any{"status": string(previous)},
		map[string]any{"status": string(next)})

	publish(ctx, s.dispatcher, s.logger, events.New(events.EventTicketStatusChanged, ticket.ID, caller, events.TicketStatusChangedPayload{
		OldStatus: previous,
		NewStatus: next,
	}))
	return ticket, nil
}

// Assign hands a ticket to an active agent or admin.
func (s *TicketService) Assign(ctx context.Context, caller domain.Caller, id, assigneeID string) (*domain.Ticket, error) {
	if err := policy.Require(caller.Role, policy.CapTicketAssign); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(assignInput{AssigneeID: assigneeID}); err != nil {
		return nil, err
	}
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, assigneeID); err != nil {
		return nil, err
	}

	previous := ticket.AssignedTo
	assignee := assigneeID
	ticket.AssignedTo = &assignee
	ticket.UpdatedAt = s.now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, notFoundOr(err, "ticket", id, "assign ticket")
	}
	s.recordHistory(ctx, ticket.ID, caller, domain.ChangeTypeAssignee,
		map[string]any{"assignedTo": derefOrNil(previous)},
		map[string]any{"assignedTo": assignee})

	publish(ctx, s.dispatcher, s.logger, events.New(events.EventTicketAssigned, ticket.ID, caller, events.TicketAssignedPayload{
		OldAssigneeID: previous,
		AssigneeID:    assignee,
	}))
	return ticket, nil
}

// History returns the audit trail of a ticket, oldest first.
func (s *TicketService) History(ctx context.Context, caller domain.Caller, id string) ([]domain.TicketHistory, error) {
	if err := policy.Require(caller.Role, policy.CapTicketHistory); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list ticket history: %w", err)
	}
	return entries, nil
}

func (s *TicketService) load(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "ticket", id, "load ticket")
	}
	return ticket, nil
}

// loadReadable applies the single-ticket read rule after loading.
func (s *TicketService) loadReadable(ctx context.Context, caller domain.Caller, id string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CheckTicketRead(caller, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) checkAssignee(ctx context.Context, assigneeID string) error {
	user, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewValidationError("assignee does not exist", map[string]any{"field": "assignedTo", "rule": "exists"})
		}
		return fmt.Errorf("load assignee: %w", err)
	}
	if !user.IsActive {
		return apperrors.NewValidationError("assignee is inactive", map[string]any{"field": "assignedTo", "rule": "active"})
	}
	if !user.Role.IsStaff() {
		return apperrors.NewValidationError("assignee must be an agent or admin", map[string]any{"field": "assignedTo", "rule": "staff"})
	}
	return nil
}

func (s *TicketService) recordHistory(ctx context.Context, ticketID string, caller domain.Caller, changeType domain.TicketChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		ID:         uuid.NewString(),
		TicketID:   ticketID,
		ChangedBy:  caller.ID,
		ChangeType: changeType,
		OldValue:   oldValue,
		NewValue:   newValue,
		CreatedAt:  s.now(),
	}
	// The ticket change is already committed; a lost audit row is logged.
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Error("failed to record ticket history",
			zap.String("ticket_id", ticketID),
			zap.String("change_type", string(changeType)),
			zap.Error(err))
	}
}

func (s *TicketService) pageWindow(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	return page, limit
}

const dateOnly = "2006-01-02"

// parseDateBound accepts RFC3339 or a bare date. A bare upper bound covers
// the whole day.
func parseDateBound(raw, field string, upper bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateOnly, raw)
	if err != nil {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("%s must be an RFC3339 timestamp or YYYY-MM-DD date", field),
			map[string]any{"field": field, "rule": "date"},
		)
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func derefOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
