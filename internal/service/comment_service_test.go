package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

func TestCommentService_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("Should default to public", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.createTicket(t, f.customer, "Payment not processing")

		comment, err := f.comments.Add(ctx, f.customer, ticket.ID, CommentInput{Body: "  Any update?  "})
		require.NoError(t, err)
		assert.Equal(t, domain.CommentTypePublic, comment.Type)
		assert.Equal(t, "Any update?", comment.Body)
		assert.Equal(t, f.customer.ID, comment.CreatedBy)
	})

	t.Run("Should forbid internal comments from customers and store nothing", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.createTicket(t, f.customer, "Payment not processing")

		_, err := f.comments.Add(ctx, f.customer, ticket.ID, CommentInput{Body: "secret", Type: "internal"})
		requireCode(t, err, apperrors.CodeForbidden)
		assert.Zero(t, f.store.Comments.Len())
	})

	t.Run("Should let staff write internal notes", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.createTicket(t, f.customer, "Payment not processing")

		comment, err := f.comments.Add(ctx, f.agent, ticket.ID, CommentInput{Body: "Checking logs", Type: "internal"})
		require.NoError(t, err)
		assert.Equal(t, domain.CommentTypeInternal, comment.Type)
	})

	t.Run("Should apply the parent read rule", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.createTicket(t, f.customer, "Payment not processing")

		_, err := f.comments.Add(ctx, f.otherCustomer, ticket.ID, CommentInput{Body: "Me too"})
		requireCode(t, err, apperrors.CodeAccessDenied)

		_, err = f.comments.Add(ctx, f.customer, uuid.NewString(), CommentInput{Body: "Hello"})
		requireCode(t, err, apperrors.CodeNotFound)
		assert.Zero(t, f.store.Comments.Len())
	})

	t.Run("Should validate body and type", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.createTicket(t, f.customer, "Payment not processing")

		_, err := f.comments.Add(ctx, f.customer, ticket.ID, CommentInput{Body: "   "})
		requireCode(t, err, apperrors.CodeValidation)

		_, err = f.comments.Add(ctx, f.customer, ticket.ID, CommentInput{Body: strings.Repeat("x", 2001)})
		requireCode(t, err, apperrors.CodeValidation)

		_, err = f.comments.Add(ctx, f.agent, ticket.ID, CommentInput{Body: "hello", Type: "private"})
		requireCode(t, err, apperrors.CodeValidation)
	})
}

func TestCommentService_ListWithTicket(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.createTicket(t, f.customer, "Payment not processing")

	_, err := f.comments.Add(ctx, f.customer, ticket.ID, CommentInput{Body: "first"})
	require.NoError(t, err)
	_, err = f.comments.Add(ctx, f.agent, ticket.ID, CommentInput{Body: "internal note", Type: "internal"})
	require.NoError(t, err)
	_, err = f.comments.Add(ctx, f.agent, ticket.ID, CommentInput{Body: "reply"})
	require.NoError(t, err)

	t.Run("Should hide internal comments from customers", func(t *testing.T) {
		thread, err := f.comments.ListWithTicket(ctx, f.customer, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, ticket.ID, thread.Ticket.ID)
		require.Len(t, thread.Comments, 2)
		for _, c := range thread.Comments {
			assert.Equal(t, domain.CommentTypePublic, c.Type)
		}
		assert.Equal(t, "first", thread.Comments[0].Body)
		assert.Equal(t, "reply", thread.Comments[1].Body)
	})

	t.Run("Should show staff every comment in order", func(t *testing.T) {
		thread, err := f.comments.ListWithTicket(ctx, f.admin, ticket.ID)
		require.NoError(t, err)
		require.Len(t, thread.Comments, 3)
		assert.Equal(t, "internal note", thread.Comments[1].Body)
	})

	t.Run("Should deny other customers", func(t *testing.T) {
		_, err := f.comments.ListWithTicket(ctx, f.otherCustomer, ticket.ID)
		requireCode(t, err, apperrors.CodeAccessDenied)
	})
}

func TestPreviewTruncates(t *testing.T) {
	assert.Equal(t, "short", preview("short"))
	long := strings.Repeat("é", previewLength+5)
	assert.Equal(t, strings.Repeat("é", previewLength)+"...", preview(long))
}
