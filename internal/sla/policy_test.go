package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskops/support-core/internal/config"
	"github.com/deskops/support-core/internal/domain"
	apperrors "github.com/deskops/support-core/pkg/util"
)

func testSLAConfig() config.SLAConfig {
	return config.SLAConfig{
		UrgentTarget:   config.SLATarget{FirstResponse: time.Hour, Resolution: 4 * time.Hour},
		HighTarget:     config.SLATarget{FirstResponse: 4 * time.Hour, Resolution: 24 * time.Hour},
		MediumTarget:   config.SLATarget{FirstResponse: 8 * time.Hour, Resolution: 48 * time.Hour},
		LowTarget:      config.SLATarget{FirstResponse: 24 * time.Hour, Resolution: 72 * time.Hour},
		AtRiskFraction: 0.20,
	}
}

func TestPolicyDueTimes(t *testing.T) {
	policy := NewPolicy(testSLAConfig())
	createdAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		priority      domain.TicketPriority
		firstResponse time.Duration
		resolution    time.Duration
	}{
		{domain.TicketPriorityUrgent, time.Hour, 4 * time.Hour},
		{domain.TicketPriorityHigh, 4 * time.Hour, 24 * time.Hour},
		{domain.TicketPriorityMedium, 8 * time.Hour, 48 * time.Hour},
		{domain.TicketPriorityLow, 24 * time.Hour, 72 * time.Hour},
	}

	for _, tc := range tests {
		t.Run(string(tc.priority), func(t *testing.T) {
			frDue, resDue, err := policy.DueTimes(tc.priority, createdAt)
			require.NoError(t, err)
			assert.Equal(t, createdAt.Add(tc.firstResponse), frDue)
			assert.Equal(t, createdAt.Add(tc.resolution), resDue)
		})
	}
}

func TestPolicyUnknownPriority(t *testing.T) {
	policy := NewPolicy(testSLAConfig())

	_, err := policy.Target(domain.TicketPriority("critical"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "CONFIG_ERROR"))

	_, _, err = policy.DueTimes(domain.TicketPriority(""), time.Now())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "CONFIG_ERROR"))
}
