package devserver

import (
	"net/http"
	"strconv"

	"github.com/me/jejakliqo/pkg/model"
)

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	respondOK(w, "", s.store.Stats())
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	var items []model.Activity
	for _, a := range s.store.Activities() {
		if matches(search, a.UserName, a.Action, a.Description) {
			items = append(items, a)
		}
	}
	page, pg := paginate(r, items)
	respondList(w, page, pg)
}

func (s *Server) handleRecentActivities(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 5
	}
	items := s.store.Activities()
	if len(items) > limit {
		items = items[:limit]
	}
	respondOK(w, "", items)
}

func (s *Server) handleMentorStats(w http.ResponseWriter, r *http.Request) {
	respondOK(w, "", s.store.MentorStats(PrincipalFromContext(r.Context()).User.ID))
}

func (s *Server) handleMentorGroups(w http.ResponseWriter, r *http.Request) {
	groups := s.store.Groups(PrincipalFromContext(r.Context()).User.ID)
	if groups == nil {
		groups = []model.Group{}
	}
	respondOK(w, "", groups)
}

func (s *Server) handleMentorGroup(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	g, err := s.store.Group(id)
	if err != nil || g.MentorID != PrincipalFromContext(r.Context()).User.ID {
		respondError(w, http.StatusNotFound, "Data tidak ditemukan.")
		return
	}
	respondOK(w, "", g)
}

func (s *Server) handleMentorMeetings(w http.ResponseWriter, r *http.Request) {
	page, pg := paginate(r, s.store.Meetings(PrincipalFromContext(r.Context()).User.ID))
	respondList(w, page, pg)
}
