package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TicketHistoryRepository stores audit entries.
type TicketHistoryRepository interface {
	Create(ctx context.Context, history *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	db DBTX
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(db DBTX) TicketHistoryRepository {
	return &ticketHistoryRepository{db: db}
}

var historyColumns = []string{"id", "ticket_id", "changed_by", "change_type", "old_value", "new_value", "created_at"}

func (r *ticketHistoryRepository) Create(ctx context.Context, history *domain.TicketHistory) error {
	query, args, err := psql.Insert("ticket_history").
		Columns(historyColumns...).
		Values(
			history.ID,
			history.TicketID,
			history.ChangedBy,
			history.ChangeType,
			history.OldValue,
			history.NewValue,
			history.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert history: %w", err)
	}
	_, err = r.db.Exec(ctx, query, args...)
	return mapError(err)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	query, args, err := psql.Select(historyColumns...).
		From("ticket_history").
		Where(squirrel.Eq{"ticket_id": ticketID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list history: %w", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.TicketHistory{}
	for rows.Next() {
		var history domain.TicketHistory
		if err := rows.Scan(
			&history.ID,
			&history.TicketID,
			&history.ChangedBy,
			&history.ChangeType,
			&history.OldValue,
			&history.NewValue,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
