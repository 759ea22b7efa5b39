package api

import (
	"context"

	"github.com/me/jejakliqo/internal/apiclient"
	"github.com/me/jejakliqo/pkg/model"
)

// MentorService covers the logged-in mentor's own groups and meetings.
type MentorService struct {
	c *apiclient.Client
}

// Groups lists the mentor's groups.
func (s *MentorService) Groups(ctx context.Context) ([]model.Group, error) {
	var out []model.Group
	if _, err := s.c.Get(ctx, "/mentor/groups", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Group returns one of the mentor's groups with its mentees.
func (s *MentorService) Group(ctx context.Context, id int64) (*model.Group, error) {
	var g model.Group
	if _, err := s.c.Get(ctx, idPath("mentor/groups", id), nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Meetings returns one page of the mentor's meetings.
func (s *MentorService) Meetings(ctx context.Context, opts model.ListOptions) (*model.Page[model.Meeting], error) {
	return apiclient.GetPage[model.Meeting](ctx, s.c, "/mentor/meetings", opts)
}
