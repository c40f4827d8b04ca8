package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/repository/repositorytest"
)

func TestRunInsertsDemoData(t *testing.T) {
	ctx := context.Background()
	store := repositorytest.NewStore()
	repos := Repositories{Users: store.Users, Tickets: store.Tickets, Comments: store.Comments}

	result, err := Run(ctx, repos, 4, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, result.Users, 3)
	assert.Len(t, result.Tickets, 3)
	assert.Len(t, result.Comments, 5)

	admin, err := store.Users.GetByEmail(ctx, "admin@test.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.NoError(t, auth.ComparePassword(admin.PasswordHash, DemoPassword))

	agent, err := store.Users.GetByEmail(ctx, "agent@test.com")
	require.NoError(t, err)
	payment := result.Tickets[1]
	assert.Equal(t, domain.TicketStatusInProgress, payment.Status)
	require.NotNil(t, payment.AssignedTo)
	assert.Equal(t, agent.ID, *payment.AssignedTo)

	internal := 0
	for _, c := range result.Comments {
		if c.Type == domain.CommentTypeInternal {
			internal++
		}
	}
	assert.Equal(t, 2, internal)
}

func TestRunIsRepeatable(t *testing.T) {
	ctx := context.Background()
	store := repositorytest.NewStore()
	repos := Repositories{Users: store.Users, Tickets: store.Tickets, Comments: store.Comments}

	_, err := Run(ctx, repos, 4, zap.NewNop())
	require.NoError(t, err)
	_, err = Run(ctx, repos, 4, zap.NewNop())
	require.NoError(t, err)

	count, err := store.Tickets.Count(ctx, repository.TicketFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 5, store.Comments.Len())
}
