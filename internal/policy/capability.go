package policy

import (
	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// Capability names a single permission an operation requires.
type Capability string

const (
	CapTicketCreate       Capability = "ticket:create"
	CapTicketRead         Capability = "ticket:read"
	CapTicketChangeStatus Capability = "ticket:change_status"
	CapTicketAssign       Capability = "ticket:assign"
	CapTicketHistory      Capability = "ticket:history"
	CapCommentCreate      Capability = "comment:create"
	CapCommentRead        Capability = "comment:read"
	CapCommentInternal    Capability = "comment:internal"
)

var customerCapabilities = []Capability{
	CapTicketCreate,
	CapTicketRead,
	CapCommentCreate,
	CapCommentRead,
}

var staffCapabilities = []Capability{
	CapTicketCreate,
	CapTicketRead,
	CapTicketChangeStatus,
	CapTicketAssign,
	CapTicketHistory,
	CapCommentCreate,
	CapCommentRead,
	CapCommentInternal,
}

var roleCapabilities = buildCapabilityTable(map[domain.Role][]Capability{
	domain.RoleCustomer: customerCapabilities,
	domain.RoleAgent:    staffCapabilities,
	domain.RoleAdmin:    staffCapabilities,
})

func buildCapabilityTable(in map[domain.Role][]Capability) map[domain.Role]map[Capability]struct{} {
	out := make(map[domain.Role]map[Capability]struct{}, len(in))
	for role, caps := range in {
		set := make(map[Capability]struct{}, len(caps))
		for _, c := range caps {
			set[c] = struct{}{}
		}
		out[role] = set
	}
	return out
}

// Has reports whether role grants capability.
func Has(role domain.Role, capability Capability) bool {
	_, ok := roleCapabilities[role][capability]
	return ok
}

// Require is the single gate every operation passes through. It returns a
// Forbidden error when role lacks capability.
func Require(role domain.Role, capability Capability) error {
	if !Has(role, capability) {
		return apperrors.NewForbidden("insufficient permissions")
	}
	return nil
}
