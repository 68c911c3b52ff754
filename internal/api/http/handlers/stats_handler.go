package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskops/support-core/internal/api/dto"
	"github.com/deskops/support-core/internal/service"
)

// StatsHandler serves the aggregate stats and badge endpoints.
type StatsHandler struct {
	stats  *service.StatsService
	badges *service.BadgeService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(stats *service.StatsService, badges *service.BadgeService) *StatsHandler {
	return &StatsHandler{stats: stats, badges: badges}
}

// GetStats GET /stats.
func (h *StatsHandler) GetStats(c *fiber.Ctx) error {
	if _, err := requirePrincipal(c); err != nil {
		return err
	}
	stats, err := h.stats.GetStats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StatsResponse{
		StatusCounts:            stats.StatusCounts,
		UnreadConversations:     stats.UnreadConversations,
		UrgentOrBreachedTickets: stats.UrgentOrBreachedTickets,
		FirstResponseCompliance: stats.FirstResponseCompliance,
		ResolutionCompliance:    stats.ResolutionCompliance,
	}})
}

// GetBadges GET /badges. Serves the aggregator's latest snapshot; values
// lag real state by at most the poll interval.
func (h *StatsHandler) GetBadges(c *fiber.Ctx) error {
	if _, err := requirePrincipal(c); err != nil {
		return err
	}
	counts := h.badges.Counts()
	return c.JSON(fiber.Map{"data": dto.BadgeCountsResponse{
		UnreadConversations:     counts.UnreadConversations,
		UrgentOrBreachedTickets: counts.UrgentOrBreachedTickets,
		ComputedAt:              counts.ComputedAt,
	}})
}
