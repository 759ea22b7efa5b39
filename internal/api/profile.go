package api

import (
	"context"
	"io"

	"github.com/me/jejakliqo/internal/apiclient"
	"github.com/me/jejakliqo/pkg/model"
)

// ProfileInput updates the logged-in user's profile.
type ProfileInput struct {
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Gender string `json:"gender,omitempty"`
}

// PasswordChange changes the logged-in user's password.
type PasswordChange struct {
	Current      string `json:"current_password"`
	New          string `json:"new_password"`
	Confirmation string `json:"new_password_confirmation"`
}

// ProfileService manages the logged-in user's own account.
type ProfileService struct {
	c *apiclient.Client
}

// Get returns the profile.
func (s *ProfileService) Get(ctx context.Context) (*model.User, error) {
	var u model.User
	if _, err := s.c.Get(ctx, "/profile", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Update updates the profile.
func (s *ProfileService) Update(ctx context.Context, in ProfileInput) (*model.User, error) {
	var u model.User
	if _, err := s.c.Put(ctx, "/profile", in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ChangePassword changes the password. The confirmation defaults to New.
func (s *ProfileService) ChangePassword(ctx context.Context, pc PasswordChange) error {
	if pc.Confirmation == "" {
		pc.Confirmation = pc.New
	}
	_, err := s.c.Put(ctx, "/profile/password", pc, nil)
	return err
}

// UploadPicture replaces the profile picture.
func (s *ProfileService) UploadPicture(ctx context.Context, name string, r io.Reader) (*model.User, error) {
	mp := apiclient.NewMultipart().File("profile_picture", name, r)
	var u model.User
	if _, err := s.c.Upload(ctx, "/profile/picture", mp, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
