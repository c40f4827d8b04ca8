// Package repositorytest provides in-memory repositories for service and
// handler tests. They honor the same filters, ordering and error values as
// the Postgres implementations, except that search is a plain substring match.
package repositorytest

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

// Store bundles one of each repository over shared state.
type Store struct {
	Users    *Users
	Tickets  *Tickets
	Comments *Comments
	History  *History
}

// NewStore returns empty repositories.
func NewStore() *Store {
	return &Store{
		Users:    &Users{byID: map[string]domain.User{}},
		Tickets:  &Tickets{byID: map[string]domain.Ticket{}},
		Comments: &Comments{},
		History:  &History{},
	}
}

// Users is an in-memory repository.UserRepository.
type Users struct {
	mu   sync.RWMutex
	byID map[string]domain.User
}

var _ repository.UserRepository = (*Users)(nil)

func (r *Users) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	r.byID[user.ID] = *user
	return nil
}

func (r *Users) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.byID {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Users) DeleteAll(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = map[string]domain.User{}
	return nil
}

// Put stores user as is, bypassing uniqueness checks.
func (r *Users) Put(user domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[user.ID] = user
}

// Tickets is an in-memory repository.TicketRepository.
type Tickets struct {
	mu   sync.RWMutex
	byID map[string]domain.Ticket
}

var _ repository.TicketRepository = (*Tickets)(nil)

func (r *Tickets) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[ticket.ID]; ok {
		return repository.ErrDuplicate
	}
	r.byID[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *Tickets) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Status = ticket.Status
	stored.AssignedTo = cloneString(ticket.AssignedTo)
	stored.UpdatedAt = ticket.UpdatedAt
	r.byID[ticket.ID] = stored
	return nil
}

func (r *Tickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t := cloneTicket(ticket)
	return &t, nil
}

func (r *Tickets) List(_ context.Context, filter repository.TicketFilter, page repository.Page) ([]domain.Ticket, error) {
	matched := r.matching(filter)
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	if page.Limit <= 0 {
		return matched, nil
	}
	start, end := page.Apply(len(matched))
	return matched[start:end], nil
}

func (r *Tickets) Count(_ context.Context, filter repository.TicketFilter) (int, error) {
	return len(r.matching(filter)), nil
}

func (r *Tickets) DeleteAll(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = map[string]domain.Ticket{}
	return nil
}

func (r *Tickets) matching(filter repository.TicketFilter) []domain.Ticket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Ticket{}
	for _, ticket := range r.byID {
		if filter.Matches(&ticket) {
			out = append(out, cloneTicket(ticket))
		}
	}
	return out
}

// Comments is an in-memory repository.CommentRepository.
type Comments struct {
	mu   sync.RWMutex
	rows []domain.Comment
}

var _ repository.CommentRepository = (*Comments)(nil)

func (r *Comments) Create(_ context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *comment)
	return nil
}

func (r *Comments) List(_ context.Context, filter repository.CommentFilter) ([]domain.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Comment{}
	for i := range r.rows {
		if filter.Matches(&r.rows[i]) {
			out = append(out, r.rows[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Comments) DeleteAll(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = nil
	return nil
}

// Len returns the number of stored comments.
func (r *Comments) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}

// History is an in-memory repository.TicketHistoryRepository.
type History struct {
	mu   sync.RWMutex
	rows []domain.TicketHistory
}

var _ repository.TicketHistoryRepository = (*History)(nil)

func (r *History) Create(_ context.Context, entry *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *entry)
	return nil
}

func (r *History) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.TicketHistory{}
	for _, entry := range r.rows {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.AssignedTo = cloneString(t.AssignedTo)
	t.Tags = append([]string{}, t.Tags...)
	return t
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
