package api

import (
	"context"

	"github.com/me/jejakliqo/internal/apiclient"
	"github.com/me/jejakliqo/pkg/model"
)

// GroupInput creates or updates a mentee group.
type GroupInput struct {
	Name        string  `json:"group_name"`
	Description string  `json:"description,omitempty"`
	MentorID    int64   `json:"mentor_id"`
	MenteeIDs   []int64 `json:"mentee_ids,omitempty"`
}

// MenteeInput creates or updates a mentee.
type MenteeInput struct {
	FullName      string `json:"full_name"`
	Nickname      string `json:"nickname,omitempty"`
	Gender        string `json:"gender,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	BirthDate     string `json:"birth_date,omitempty"`
	ActivityClass string `json:"activity_class,omitempty"`
	Hobby         string `json:"hobby,omitempty"`
	Address       string `json:"address,omitempty"`
	Status        string `json:"status,omitempty"`
	GroupID       *int64 `json:"group_id,omitempty"`
}

// GroupService manages mentee groups and the mentees in them.
type GroupService struct {
	c *apiclient.Client
}

// List returns one page of groups.
func (s *GroupService) List(ctx context.Context, opts model.ListOptions) (*model.Page[model.Group], error) {
	return apiclient.GetPage[model.Group](ctx, s.c, "/groups", opts)
}

// Get returns a group with its mentees.
func (s *GroupService) Get(ctx context.Context, id int64) (*model.Group, error) {
	var g model.Group
	if _, err := s.c.Get(ctx, idPath("groups", id), nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Create creates a group.
func (s *GroupService) Create(ctx context.Context, in GroupInput) (*model.Group, error) {
	var g model.Group
	if _, err := s.c.Post(ctx, "/groups", in, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Update updates a group.
func (s *GroupService) Update(ctx context.Context, id int64, in GroupInput) (*model.Group, error) {
	var g model.Group
	if _, err := s.c.Put(ctx, idPath("groups", id), in, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Delete deletes a group. Its mentees become unassigned.
func (s *GroupService) Delete(ctx context.Context, id int64) error {
	_, err := s.c.Delete(ctx, idPath("groups", id), nil)
	return err
}

// Mentees lists the mentees of a group.
func (s *GroupService) Mentees(ctx context.Context, groupID int64) ([]model.Mentee, error) {
	var out []model.Mentee
	if _, err := s.c.Get(ctx, idPath("groups", groupID, "mentees"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddMentees assigns existing mentees to a group.
func (s *GroupService) AddMentees(ctx context.Context, groupID int64, menteeIDs []int64) error {
	_, err := s.c.Post(ctx, idPath("groups", groupID, "mentees"), map[string]any{"mentee_ids": menteeIDs}, nil)
	return err
}

// MoveMentees moves mentees into the target group.
func (s *GroupService) MoveMentees(ctx context.Context, menteeIDs []int64, targetGroupID int64) error {
	body := map[string]any{"mentee_ids": menteeIDs, "target_group_id": targetGroupID}
	_, err := s.c.Post(ctx, "/mentees/move", body, nil)
	return err
}

// ListMentees returns one page of mentees across groups.
func (s *GroupService) ListMentees(ctx context.Context, opts model.ListOptions) (*model.Page[model.Mentee], error) {
	return apiclient.GetPage[model.Mentee](ctx, s.c, "/mentees", opts)
}

// CreateMentee creates a mentee.
func (s *GroupService) CreateMentee(ctx context.Context, in MenteeInput) (*model.Mentee, error) {
	var m model.Mentee
	if _, err := s.c.Post(ctx, "/mentees", in, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMentee updates a mentee.
func (s *GroupService) UpdateMentee(ctx context.Context, id int64, in MenteeInput) (*model.Mentee, error) {
	var m model.Mentee
	if _, err := s.c.Put(ctx, idPath("mentees", id), in, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteMentee deletes a mentee.
func (s *GroupService) DeleteMentee(ctx context.Context, id int64) error {
	_, err := s.c.Delete(ctx, idPath("mentees", id), nil)
	return err
}
