package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CommentFilter selects the comments of one ticket, optionally restricted to
// a set of types.
type CommentFilter struct {
	TicketID string
	Types    []domain.CommentType
}

// Matches evaluates the filter against a single comment.
func (f CommentFilter) Matches(c *domain.Comment) bool {
	if c.TicketID != f.TicketID {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if c.Type == t {
			return true
		}
	}
	return false
}

// CommentRepository manages ticket thread comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	List(ctx context.Context, filter CommentFilter) ([]domain.Comment, error)
	DeleteAll(ctx context.Context) error
}

type commentRepository struct {
	db DBTX
}

// NewCommentRepository builds repository.
func NewCommentRepository(db DBTX) CommentRepository {
	return &commentRepository{db: db}
}

var commentColumns = []string{"id", "ticket_id", "body", "type", "created_by", "created_at"}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	query, args, err := psql.Insert("comments").
		Columns(commentColumns...).
		Values(comment.ID, comment.TicketID, comment.Body, comment.Type, comment.CreatedBy, comment.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert comment: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return mapError(err)
	}
	return nil
}

// List returns matching comments in thread order, oldest first.
func (r *commentRepository) List(ctx context.Context, filter CommentFilter) ([]domain.Comment, error) {
	qb := psql.Select(commentColumns...).
		From("comments").
		Where(squirrel.Eq{"ticket_id": filter.TicketID})
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		qb = qb.Where(squirrel.Eq{"type": types})
	}
	query, args, err := qb.OrderBy("created_at ASC", "id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list comments: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Comment{}
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(
			&c.ID,
			&c.TicketID,
			&c.Body,
			&c.Type,
			&c.CreatedBy,
			&c.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *commentRepository) DeleteAll(ctx context.Context) error {
	_, err := r.db.Exec(ctx, "DELETE FROM comments")
	return err
}
