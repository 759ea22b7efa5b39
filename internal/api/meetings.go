package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/me/jejakliqo/internal/apiclient"
	"github.com/me/jejakliqo/pkg/model"
)

// Meeting types.
const (
	MeetingOffline    = "Offline"
	MeetingOnline     = "Online"
	MeetingAssignment = "Assignment"
)

// MeetingInput records a meeting and its attendance.
type MeetingInput struct {
	GroupID     int64
	MeetingDate string
	Place       string
	Topic       string
	Notes       string
	MeetingType string
	Attendances []model.Attendance
}

// multipart encodes the input with indexed attendance fields, e.g.
// attendances[0][mentee_id].
func (in MeetingInput) multipart() *apiclient.Multipart {
	mp := apiclient.NewMultipart().
		Field("group_id", strconv.FormatInt(in.GroupID, 10)).
		Field("meeting_date", in.MeetingDate).
		Field("place", in.Place).
		Field("topic", in.Topic)
	if in.Notes != "" {
		mp.Field("notes", in.Notes)
	}
	if in.MeetingType != "" {
		mp.Field("meeting_type", in.MeetingType)
	}
	for i, a := range in.Attendances {
		mp.Field(fmt.Sprintf("attendances[%d][mentee_id]", i), strconv.FormatInt(a.MenteeID, 10))
		mp.Field(fmt.Sprintf("attendances[%d][status]", i), a.Status)
		if a.Notes != "" {
			mp.Field(fmt.Sprintf("attendances[%d][notes]", i), a.Notes)
		}
	}
	return mp
}

// MeetingService manages group meetings.
type MeetingService struct {
	c *apiclient.Client
}

// List returns one page of meetings.
func (s *MeetingService) List(ctx context.Context, opts model.ListOptions) (*model.Page[model.Meeting], error) {
	return apiclient.GetPage[model.Meeting](ctx, s.c, "/meetings", opts)
}

// Get returns a meeting with its attendance.
func (s *MeetingService) Get(ctx context.Context, id int64) (*model.Meeting, error) {
	var m model.Meeting
	if _, err := s.c.Get(ctx, idPath("meetings", id), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Create records a meeting with optional photos.
func (s *MeetingService) Create(ctx context.Context, in MeetingInput, photos []apiclient.File) (*model.Meeting, error) {
	mp := in.multipart()
	for _, p := range photos {
		mp.File("photos[]", p.Name, p.Reader)
	}
	var m model.Meeting
	if _, err := s.c.Upload(ctx, "/meetings", mp, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Update replaces a meeting's fields; photos are appended.
func (s *MeetingService) Update(ctx context.Context, id int64, in MeetingInput, photos []apiclient.File) (*model.Meeting, error) {
	mp := in.multipart().Field(methodOverride, http.MethodPut)
	for _, p := range photos {
		mp.File("photos[]", p.Name, p.Reader)
	}
	var m model.Meeting
	if _, err := s.c.Upload(ctx, idPath("meetings", id), mp, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Delete removes a meeting.
func (s *MeetingService) Delete(ctx context.Context, id int64) error {
	_, err := s.c.Delete(ctx, idPath("meetings", id), nil)
	return err
}
