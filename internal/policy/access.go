package policy

import (
	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// TicketScope returns the creator id a caller's ticket queries must be
// restricted to, or nil when the caller may see every ticket.
func TicketScope(caller domain.Caller) *string {
	if caller.Role.IsStaff() {
		return nil
	}
	id := caller.ID
	return &id
}

// CanReadTicket reports whether caller may see ticket.
func CanReadTicket(caller domain.Caller, ticket *domain.Ticket) bool {
	if caller.Role.IsStaff() {
		return true
	}
	return caller.Role == domain.RoleCustomer && ticket.CreatedBy == caller.ID
}

// CheckTicketRead returns Access-Denied for a ticket that exists but is hidden
// from caller. The distinction from Not-Found is deliberate API behavior.
func CheckTicketRead(caller domain.Caller, ticket *domain.Ticket) error {
	if !CanReadTicket(caller, ticket) {
		return apperrors.NewAccessDenied("ticket")
	}
	return nil
}

// CanCreateComment reports whether caller may author a comment of type.
func CanCreateComment(caller domain.Caller, commentType domain.CommentType) bool {
	if commentType == domain.CommentTypeInternal {
		return Has(caller.Role, CapCommentInternal)
	}
	return Has(caller.Role, CapCommentCreate)
}

// CommentScope returns the comment types caller may read, or nil for all.
func CommentScope(caller domain.Caller) []domain.CommentType {
	if Has(caller.Role, CapCommentInternal) {
		return nil
	}
	return []domain.CommentType{domain.CommentTypePublic}
}
