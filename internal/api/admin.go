package api

import (
	"context"

	"github.com/me/jejakliqo/internal/apiclient"
	"github.com/me/jejakliqo/pkg/model"
)

// Account statuses.
const (
	StatusActive  = "Active"
	StatusBlocked = "Blocked"
)

// UserInput creates or updates an admin or mentor account. Empty fields are
// left unchanged on update.
type UserInput struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Gender   string `json:"gender,omitempty"`
	Status   string `json:"status,omitempty"`
}

// AdminService manages admin and mentor accounts. Admin accounts are
// restricted to super admins by the backend.
type AdminService struct {
	c *apiclient.Client
}

// ListAdmins returns one page of admin accounts.
func (s *AdminService) ListAdmins(ctx context.Context, opts model.ListOptions) (*model.Page[model.User], error) {
	return apiclient.GetPage[model.User](ctx, s.c, "/admins", opts)
}

// CreateAdmin creates an admin account.
func (s *AdminService) CreateAdmin(ctx context.Context, in UserInput) (*model.User, error) {
	return s.create(ctx, "/admins", in)
}

// UpdateAdmin updates an admin account.
func (s *AdminService) UpdateAdmin(ctx context.Context, id int64, in UserInput) (*model.User, error) {
	return s.update(ctx, idPath("admins", id), in)
}

// DeleteAdmin deletes an admin account.
func (s *AdminService) DeleteAdmin(ctx context.Context, id int64) error {
	_, err := s.c.Delete(ctx, idPath("admins", id), nil)
	return err
}

// ListMentors returns one page of mentor accounts.
func (s *AdminService) ListMentors(ctx context.Context, opts model.ListOptions) (*model.Page[model.User], error) {
	return apiclient.GetPage[model.User](ctx, s.c, "/mentors", opts)
}

// GetMentor returns one mentor.
func (s *AdminService) GetMentor(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if _, err := s.c.Get(ctx, idPath("mentors", id), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateMentor creates a mentor account.
func (s *AdminService) CreateMentor(ctx context.Context, in UserInput) (*model.User, error) {
	return s.create(ctx, "/mentors", in)
}

// UpdateMentor updates a mentor account.
func (s *AdminService) UpdateMentor(ctx context.Context, id int64, in UserInput) (*model.User, error) {
	return s.update(ctx, idPath("mentors", id), in)
}

// DeleteMentor deletes a mentor account.
func (s *AdminService) DeleteMentor(ctx context.Context, id int64) error {
	_, err := s.c.Delete(ctx, idPath("mentors", id), nil)
	return err
}

// Block prevents a user from logging in.
func (s *AdminService) Block(ctx context.Context, userID int64) error {
	_, err := s.c.Patch(ctx, idPath("users", userID, "status"), map[string]string{"status": StatusBlocked}, nil)
	return err
}

// Unblock re-enables a blocked user.
func (s *AdminService) Unblock(ctx context.Context, userID int64) error {
	_, err := s.c.Patch(ctx, idPath("users", userID, "status"), map[string]string{"status": StatusActive}, nil)
	return err
}

func (s *AdminService) create(ctx context.Context, p string, in UserInput) (*model.User, error) {
	var u model.User
	if _, err := s.c.Post(ctx, p, in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *AdminService) update(ctx context.Context, p string, in UserInput) (*model.User, error) {
	var u model.User
	if _, err := s.c.Put(ctx, p, in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
