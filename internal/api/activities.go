package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/me/jejakliqo/internal/apiclient"
	"github.com/me/jejakliqo/pkg/model"
)

// ActivityService reads the audit trail.
type ActivityService struct {
	c *apiclient.Client
}

// List returns one page of activities, newest first.
func (s *ActivityService) List(ctx context.Context, opts model.ListOptions) (*model.Page[model.Activity], error) {
	return apiclient.GetPage[model.Activity](ctx, s.c, "/activities", opts)
}

// Recent returns the latest activities for dashboard widgets.
func (s *ActivityService) Recent(ctx context.Context, limit int) ([]model.Activity, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []model.Activity
	if _, err := s.c.Get(ctx, "/activities/recent", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}
