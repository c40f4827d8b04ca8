package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository/repositorytest"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

type fixture struct {
	store    *repositorytest.Store
	tickets  *TicketService
	comments *CommentService
	recorder *eventRecorder

	customer      domain.Caller
	otherCustomer domain.Caller
	agent         domain.Caller
	admin         domain.Caller
	inactiveAgent domain.Caller
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// steppingClock returns a clock that advances one second per call so
// creation order is observable.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	current := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repositorytest.NewStore()
	dispatcher := events.NewInMemoryDispatcher()
	recorder := &eventRecorder{}
	for _, eventType := range events.EventTypes {
		dispatcher.Subscribe(eventType, recorder.handle)
	}

	f := &fixture{
		store:    store,
		recorder: recorder,
		tickets: NewTicketService(TicketDependencies{
			TicketRepo:  store.Tickets,
			UserRepo:    store.Users,
			HistoryRepo: store.History,
			Dispatcher:  dispatcher,
		}),
		comments: NewCommentService(CommentDependencies{
			TicketRepo:  store.Tickets,
			CommentRepo: store.Comments,
			Dispatcher:  dispatcher,
		}),
	}
	clock := steppingClock()
	f.tickets.now = clock
	f.comments.now = clock

	f.customer = f.addUser(domain.RoleCustomer, true)
	f.otherCustomer = f.addUser(domain.RoleCustomer, true)
	f.agent = f.addUser(domain.RoleAgent, true)
	f.admin = f.addUser(domain.RoleAdmin, true)
	f.inactiveAgent = f.addUser(domain.RoleAgent, false)
	return f
}

func (f *fixture) addUser(role domain.Role, active bool) domain.Caller {
	id := uuid.NewString()
	f.store.Users.Put(domain.User{
		ID:       id,
		Name:     string(role) + " user",
		Email:    id + "@test.com",
		Role:     role,
		IsActive: active,
	})
	return domain.Caller{ID: id, Role: role}
}

func (f *fixture) createTicket(t *testing.T, caller domain.Caller, title string, tags ...string) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.Create(context.Background(), caller, TicketCreateInput{
		Title:       title,
		Description: "Detailed description of " + title,
		Priority:    "medium",
		Tags:        tags,
	})
	require.NoError(t, err)
	return ticket
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	require.Equal(t, code, de.Code, "unexpected error: %v", err)
}
