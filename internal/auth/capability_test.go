package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deskops/support-core/internal/domain"
)

func TestCapabilitiesForRole(t *testing.T) {
	tests := []struct {
		name    string
		role    domain.AgentRole
		has     []Capability
		missing []Capability
	}{
		{
			name: "admin holds everything",
			role: domain.AgentRoleAdmin,
			has: []Capability{
				CapabilityTicketsRead,
				CapabilityTicketsWrite,
				CapabilityTicketsAssign,
				CapabilityNotificationsManage,
				CapabilityStatsRead,
				CapabilityInboxIngest,
			},
		},
		{
			name: "agent cannot ingest",
			role: domain.AgentRoleAgent,
			has: []Capability{
				CapabilityTicketsRead,
				CapabilityTicketsWrite,
				CapabilityStatsRead,
			},
			missing: []Capability{CapabilityInboxIngest},
		},
		{
			name:    "unknown role holds nothing",
			role:    domain.AgentRole("intern"),
			missing: []Capability{CapabilityTicketsRead, CapabilityInboxIngest},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			set := CapabilitiesForRole(tc.role)
			for _, capability := range tc.has {
				assert.True(t, set.Has(capability), "expected %s", capability)
			}
			for _, capability := range tc.missing {
				assert.False(t, set.Has(capability), "unexpected %s", capability)
			}
		})
	}
}

func TestCapabilitySetList(t *testing.T) {
	set := NewCapabilitySet(CapabilityTicketsWrite, CapabilityInboxIngest, CapabilityStatsRead)
	assert.Equal(t, []Capability{
		CapabilityInboxIngest,
		CapabilityStatsRead,
		CapabilityTicketsWrite,
	}, set.List())
}
