package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter, page Page) ([]domain.Ticket, error)
	Count(ctx context.Context, filter TicketFilter) (int, error)
	DeleteAll(ctx context.Context) error
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

var ticketColumns = []string{
	"id", "title", "description", "priority", "status",
	"created_by", "assigned_to", "tags", "created_at", "updated_at",
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	query, args, err := psql.Insert("tickets").
		Columns(ticketColumns...).
		Values(
			ticket.ID,
			ticket.Title,
			ticket.Description,
			ticket.Priority,
			ticket.Status,
			ticket.CreatedBy,
			ticket.AssignedTo,
			ticket.Tags,
			ticket.CreatedAt,
			ticket.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert ticket: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return mapError(err)
	}
	return nil
}

// Update persists the mutable fields. Concurrent updates are last write wins.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	query, args, err := psql.Update("tickets").
		Set("status", ticket.Status).
		Set("assigned_to", ticket.AssignedTo).
		Set("updated_at", ticket.UpdatedAt).
		Where(squirrel.Eq{"id": ticket.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update ticket: %w", err)
	}
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	query, args, err := psql.Select(ticketColumns...).
		From("tickets").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select ticket: %w", err)
	}
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return ticket, nil
}

// List returns tickets matching filter, newest first.
func (r *ticketRepository) List(ctx context.Context, filter TicketFilter, page Page) ([]domain.Ticket, error) {
	qb := psql.Select(ticketColumns...).From("tickets")
	for _, cond := range filter.conditions() {
		qb = qb.Where(cond)
	}
	qb = qb.OrderBy("created_at DESC", "id DESC")
	if page.Limit > 0 {
		qb = qb.Limit(uint64(page.Limit))
	}
	if page.Offset > 0 {
		qb = qb.Offset(uint64(page.Offset))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list tickets: %w", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Count(ctx context.Context, filter TicketFilter) (int, error) {
	qb := psql.Select("COUNT(*)").From("tickets")
	for _, cond := range filter.conditions() {
		qb = qb.Where(cond)
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count tickets: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return int(total), nil
}

func (r *ticketRepository) DeleteAll(ctx context.Context) error {
	_, err := r.db.Exec(ctx, "DELETE FROM tickets")
	return err
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.Tags,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if ticket.Tags == nil {
		ticket.Tags = []string{}
	}
	return &ticket, nil
}
