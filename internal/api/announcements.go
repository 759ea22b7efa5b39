package api

import (
	"context"
	"net/http"

	"github.com/me/jejakliqo/internal/apiclient"
	"github.com/me/jejakliqo/pkg/model"
)

// AnnouncementInput is the editable part of an announcement.
type AnnouncementInput struct {
	Title    string
	Content  string
	EventAt  string
	Location string
	Status   string
}

func (in AnnouncementInput) multipart() *apiclient.Multipart {
	mp := apiclient.NewMultipart().
		Field("title", in.Title).
		Field("content", in.Content)
	if in.EventAt != "" {
		mp.Field("event_at", in.EventAt)
	}
	if in.Location != "" {
		mp.Field("location", in.Location)
	}
	if in.Status != "" {
		mp.Field("status", in.Status)
	}
	return mp
}

// AnnouncementService manages announcements. Create and update are
// multipart so an attachment can be sent along.
type AnnouncementService struct {
	c *apiclient.Client
}

// List returns one page of announcements.
func (s *AnnouncementService) List(ctx context.Context, opts model.ListOptions) (*model.Page[model.Announcement], error) {
	return apiclient.GetPage[model.Announcement](ctx, s.c, "/announcements", opts)
}

// Get returns one announcement.
func (s *AnnouncementService) Get(ctx context.Context, id int64) (*model.Announcement, error) {
	var a model.Announcement
	if _, err := s.c.Get(ctx, idPath("announcements", id), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Create publishes an announcement. attachment may be nil.
func (s *AnnouncementService) Create(ctx context.Context, in AnnouncementInput, attachment *apiclient.File) (*model.Announcement, error) {
	mp := in.multipart()
	if attachment != nil {
		mp.File("file", attachment.Name, attachment.Reader)
	}
	var a model.Announcement
	if _, err := s.c.Upload(ctx, "/announcements", mp, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Update replaces an announcement's fields and, if given, its attachment.
func (s *AnnouncementService) Update(ctx context.Context, id int64, in AnnouncementInput, attachment *apiclient.File) (*model.Announcement, error) {
	mp := in.multipart().Field(methodOverride, http.MethodPut)
	if attachment != nil {
		mp.File("file", attachment.Name, attachment.Reader)
	}
	var a model.Announcement
	if _, err := s.c.Upload(ctx, idPath("announcements", id), mp, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Delete removes an announcement.
func (s *AnnouncementService) Delete(ctx context.Context, id int64) error {
	_, err := s.c.Delete(ctx, idPath("announcements", id), nil)
	return err
}
