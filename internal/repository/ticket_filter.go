package repository

import (
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TicketFilter is a storage-independent description of which tickets a query
// selects. Nil fields do not constrain the result.
type TicketFilter struct {
	CreatedBy   *string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	Tag         *string
	Search      *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// TicketFilterBuilder composes a TicketFilter one constraint at a time. Zero
// values passed to its methods are ignored.
type TicketFilterBuilder struct {
	filter TicketFilter
}

// NewTicketFilterBuilder starts an unconstrained filter.
func NewTicketFilterBuilder() *TicketFilterBuilder {
	return &TicketFilterBuilder{}
}

// CreatedBy restricts to tickets created by id. A nil id leaves the filter open.
func (b *TicketFilterBuilder) CreatedBy(id *string) *TicketFilterBuilder {
	if id != nil {
		v := *id
		b.filter.CreatedBy = &v
	}
	return b
}

func (b *TicketFilterBuilder) Status(status domain.TicketStatus) *TicketFilterBuilder {
	if status != "" {
		b.filter.Status = &status
	}
	return b
}

func (b *TicketFilterBuilder) Priority(priority domain.TicketPriority) *TicketFilterBuilder {
	if priority != "" {
		b.filter.Priority = &priority
	}
	return b
}

func (b *TicketFilterBuilder) Tag(tag string) *TicketFilterBuilder {
	if tag = strings.TrimSpace(tag); tag != "" {
		b.filter.Tag = &tag
	}
	return b
}

func (b *TicketFilterBuilder) Search(term string) *TicketFilterBuilder {
	if term = strings.TrimSpace(term); term != "" {
		b.filter.Search = &term
	}
	return b
}

// CreatedBetween bounds creation time inclusively on both ends.
func (b *TicketFilterBuilder) CreatedBetween(from, to *time.Time) *TicketFilterBuilder {
	if from != nil {
		v := *from
		b.filter.CreatedFrom = &v
	}
	if to != nil {
		v := *to
		b.filter.CreatedTo = &v
	}
	return b
}

// Build returns the composed filter.
func (b *TicketFilterBuilder) Build() TicketFilter {
	return b.filter
}

// Matches evaluates the filter against a single ticket for in-memory
// stores. Search matches when every whitespace-separated term occurs in the
// title or description, ignoring case. That is looser than the postgres
// predicate in conditions, which stems words and drops stop words: "log"
// matches "login" here but not there.
func (f TicketFilter) Matches(t *domain.Ticket) bool {
	if f.CreatedBy != nil && t.CreatedBy != *f.CreatedBy {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.Tag != nil && !t.HasTag(*f.Tag) {
		return false
	}
	if f.CreatedFrom != nil && t.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && t.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	if f.Search != nil {
		haystack := strings.ToLower(t.Title + " " + t.Description)
		for _, term := range strings.Fields(strings.ToLower(*f.Search)) {
			if !strings.Contains(haystack, term) {
				return false
			}
		}
	}
	return true
}

const searchVector = "to_tsvector('english', title || ' ' || description)"

// conditions translates the filter into postgres predicates.
func (f TicketFilter) conditions() []squirrel.Sqlizer {
	var conds []squirrel.Sqlizer
	if f.CreatedBy != nil {
		conds = append(conds, squirrel.Eq{"created_by": *f.CreatedBy})
	}
	if f.Status != nil {
		conds = append(conds, squirrel.Eq{"status": *f.Status})
	}
	if f.Priority != nil {
		conds = append(conds, squirrel.Eq{"priority": *f.Priority})
	}
	if f.Tag != nil {
		conds = append(conds, squirrel.Expr("? = ANY(tags)", *f.Tag))
	}
	if f.Search != nil {
		conds = append(conds, squirrel.Expr(searchVector+" @@ plainto_tsquery('english', ?)", *f.Search))
	}
	if f.CreatedFrom != nil {
		conds = append(conds, squirrel.GtOrEq{"created_at": *f.CreatedFrom})
	}
	if f.CreatedTo != nil {
		conds = append(conds, squirrel.LtOrEq{"created_at": *f.CreatedTo})
	}
	return conds
}

// Page is an offset window over an ordered result.
type Page struct {
	Limit  int
	Offset int
}

// Apply slices an already ordered result to the page window.
func (p Page) Apply(n int) (start, end int) {
	start = max(p.Offset, 0)
	if start > n {
		start = n
	}
	end = start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}
