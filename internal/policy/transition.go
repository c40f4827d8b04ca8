package policy

import "github.com/spec-kit/support-desk/internal/domain"

// allowedTransitions is the ticket lifecycle graph. Closed is terminal and
// resolved -> in_progress is the only way back.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress},
	domain.TicketStatusInProgress: {domain.TicketStatusResolved},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed, domain.TicketStatusInProgress},
	domain.TicketStatusClosed:     {},
}

// CanTransition reports whether a ticket may move from current to next.
func CanTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from current in one step.
func NextStatuses(current domain.TicketStatus) []domain.TicketStatus {
	next := allowedTransitions[current]
	out := make([]domain.TicketStatus, len(next))
	copy(out, next)
	return out
}
