package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

var commentCols = []string{"id", "ticket_id", "body", "type", "created_by", "created_at"}

func TestCommentRepository_Create(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()
	repo := repository.NewCommentRepository(mockPool)
	comment := &domain.Comment{
		ID:        uuid.NewString(),
		TicketID:  uuid.NewString(),
		Body:      "Checking the account logs now",
		Type:      domain.CommentTypeInternal,
		CreatedBy: uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	mockPool.ExpectExec("INSERT INTO comments").
		WithArgs(comment.ID, comment.TicketID, comment.Body, comment.Type, comment.CreatedBy, comment.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), comment))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCommentRepository_List(t *testing.T) {
	t.Run("Should restrict types and order oldest first", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := repository.NewCommentRepository(mockPool)
		ticketID := uuid.NewString()
		now := time.Now().UTC()

		mockPool.ExpectQuery(`SELECT (.+) FROM comments WHERE ticket_id = \$1 AND type IN \(\$2\) ORDER BY created_at ASC, id ASC`).
			WithArgs(ticketID, "public").
			WillReturnRows(mockPool.NewRows(commentCols).
				AddRow(uuid.NewString(), ticketID, "first", domain.CommentTypePublic, uuid.NewString(), now).
				AddRow(uuid.NewString(), ticketID, "second", domain.CommentTypePublic, uuid.NewString(), now.Add(time.Minute)))

		got, err := repo.List(context.Background(), repository.CommentFilter{
			TicketID: ticketID,
			Types:    []domain.CommentType{domain.CommentTypePublic},
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "first", got[0].Body)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should list every type when unrestricted", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := repository.NewCommentRepository(mockPool)
		ticketID := uuid.NewString()

		mockPool.ExpectQuery(`SELECT (.+) FROM comments WHERE ticket_id = \$1 ORDER BY created_at ASC, id ASC`).
			WithArgs(ticketID).
			WillReturnRows(mockPool.NewRows(commentCols))

		got, err := repo.List(context.Background(), repository.CommentFilter{TicketID: ticketID})
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
