package devserver

import (
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/me/jejakliqo/pkg/model"
)

func (s *Server) handleListAnnouncements(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	var items []model.Announcement
	for _, a := range s.store.Announcements() {
		if matches(search, a.Title, a.Content) {
			items = append(items, a)
		}
	}
	page, pg := paginate(r, items)
	respondList(w, page, pg)
}

func (s *Server) handleGetAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	a, err := s.store.Announcement(id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondOK(w, "", a)
}

// parseAnnouncementForm reads an announcement and stores the optional
// attachment name.
func parseAnnouncementForm(r *http.Request) (model.Announcement, map[string][]string) {
	a := model.Announcement{
		Title:    r.FormValue("title"),
		Content:  r.FormValue("content"),
		EventAt:  r.FormValue("event_at"),
		Location: r.FormValue("location"),
		Status:   r.FormValue("status"),
	}
	fields := map[string][]string{}
	if a.Title == "" {
		fields["title"] = []string{"The title field is required."}
	}
	if a.Content == "" {
		fields["content"] = []string{"The content field is required."}
	}
	if _, fh, err := r.FormFile("file"); err == nil {
		a.File = "announcements/" + uuid.NewString() + strings.ToLower(path.Ext(fh.Filename))
	}
	return a, fields
}

func (s *Server) handleCreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	a, fields := parseAnnouncementForm(r)
	if len(fields) > 0 {
		respondValidation(w, fields)
		return
	}
	created := s.store.CreateAnnouncement(a)
	s.store.LogActivity(PrincipalFromContext(r.Context()).User.Name, "create", "announcement", created.Title)
	respondCreated(w, "Announcement created", created)
}

func (s *Server) handleUpdateAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	if r.FormValue("_method") != http.MethodPut {
		respondError(w, http.StatusMethodNotAllowed, "The POST method is not supported for this route.")
		return
	}
	in, fields := parseAnnouncementForm(r)
	if len(fields) > 0 {
		respondValidation(w, fields)
		return
	}
	a, err := s.store.UpdateAnnouncement(id, func(a *model.Announcement) {
		a.Title = in.Title
		a.Content = in.Content
		a.EventAt = in.EventAt
		a.Location = in.Location
		setIf(&a.Status, in.Status)
		setIf(&a.File, in.File)
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondOK(w, "Announcement updated", a)
}

func (s *Server) handleDeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	if err := s.store.DeleteAnnouncement(id); err != nil {
		respondStoreError(w, err)
		return
	}
	respondOK(w, "Announcement deleted", nil)
}
