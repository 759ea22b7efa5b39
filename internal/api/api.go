// Package api wraps the backend's domain endpoints in typed calls. Every
// call goes through the shared apiclient.Client, so authentication and
// session handling are inherited.
package api

import (
	"fmt"

	"github.com/me/jejakliqo/internal/apiclient"
)

// API groups the domain services.
type API struct {
	Activities    *ActivityService
	Admin         *AdminService
	Announcements *AnnouncementService
	Dashboard     *DashboardService
	Groups        *GroupService
	Meetings      *MeetingService
	Mentor        *MentorService
	Profile       *ProfileService
	Imports       *ImportService
}

// New creates the domain services on top of c.
func New(c *apiclient.Client) *API {
	return &API{
		Activities:    &ActivityService{c: c},
		Admin:         &AdminService{c: c},
		Announcements: &AnnouncementService{c: c},
		Dashboard:     &DashboardService{c: c},
		Groups:        &GroupService{c: c},
		Meetings:      &MeetingService{c: c},
		Mentor:        &MentorService{c: c},
		Profile:       &ProfileService{c: c},
		Imports:       &ImportService{c: c},
	}
}

// idPath formats "/<collection>/<id>" followed by optional sub-resources.
func idPath(collection string, id int64, sub ...string) string {
	p := fmt.Sprintf("/%s/%d", collection, id)
	for _, s := range sub {
		p += "/" + s
	}
	return p
}

// methodOverride marks a multipart POST as an update; the backend cannot read
// multipart bodies on PUT.
const methodOverride = "_method"
