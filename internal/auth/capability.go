package auth

import (
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/deskops/support-core/internal/domain"
	apperrors "github.com/deskops/support-core/pkg/util"
)

// Capability is a feature tag an agent may hold. Route access is a
// set-membership test, not a chain of role string comparisons.
type Capability string

const (
	CapabilityTicketsRead         Capability = "tickets:read"
	CapabilityTicketsWrite        Capability = "tickets:write"
	CapabilityTicketsAssign       Capability = "tickets:assign"
	CapabilityNotificationsManage Capability = "notifications:manage"
	CapabilityStatsRead           Capability = "stats:read"
	CapabilityInboxIngest         Capability = "inbox:ingest"
)

// CapabilitySet is the set of feature tags permitted to a principal.
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet builds a set from the given capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// List returns the capabilities in stable order.
func (s CapabilitySet) List() []Capability {
	out := make([]Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CapabilitiesForRole maps an agent role onto its capability set.
func CapabilitiesForRole(role domain.AgentRole) CapabilitySet {
	switch role {
	case domain.AgentRoleAdmin:
		return NewCapabilitySet(
			CapabilityTicketsRead,
			CapabilityTicketsWrite,
			CapabilityTicketsAssign,
			CapabilityNotificationsManage,
			CapabilityStatsRead,
			CapabilityInboxIngest,
		)
	case domain.AgentRoleAgent:
		return NewCapabilitySet(
			CapabilityTicketsRead,
			CapabilityTicketsWrite,
			CapabilityTicketsAssign,
			CapabilityNotificationsManage,
			CapabilityStatsRead,
		)
	default:
		return NewCapabilitySet()
	}
}

// RequireCapability ensures the authenticated principal holds the capability.
func RequireCapability(capability Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.Capabilities.Has(capability) {
			return apperrors.NewForbidden("missing capability " + string(capability))
		}
		return c.Next()
	}
}
