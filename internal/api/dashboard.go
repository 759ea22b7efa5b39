package api

import (
	"context"

	"github.com/me/jejakliqo/internal/apiclient"
	"github.com/me/jejakliqo/pkg/model"
)

// DashboardService reads dashboard statistics.
type DashboardService struct {
	c *apiclient.Client
}

// Stats returns the admin dashboard counters.
func (s *DashboardService) Stats(ctx context.Context) (*model.DashboardStats, error) {
	var st model.DashboardStats
	if _, err := s.c.Get(ctx, "/dashboard/stats", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// MentorStats returns the counters of the logged-in mentor.
func (s *DashboardService) MentorStats(ctx context.Context) (*model.MentorStats, error) {
	var st model.MentorStats
	if _, err := s.c.Get(ctx, "/mentor/dashboard/stats", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
