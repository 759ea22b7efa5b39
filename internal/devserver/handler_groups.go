package devserver

import (
	"encoding/json"
	"net/http"

	"github.com/me/jejakliqo/pkg/model"
)

type groupRequest struct {
	Name        string  `json:"group_name"`
	Description string  `json:"description"`
	MentorID    int64   `json:"mentor_id"`
	MenteeIDs   []int64 `json:"mentee_ids"`
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	var groups []model.Group
	for _, g := range s.store.Groups(0) {
		mentor := ""
		if g.Mentor != nil {
			mentor = g.Mentor.Name
		}
		if matches(search, g.Name, mentor) {
			groups = append(groups, g)
		}
	}
	page, pg := paginate(r, groups)
	respondList(w, page, pg)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	g, err := s.store.Group(id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondOK(w, "", g)
}

func (s *Server) validateGroup(req groupRequest) map[string][]string {
	fields := map[string][]string{}
	if req.Name == "" {
		fields["group_name"] = []string{"The group name field is required."}
	}
	if u, err := s.store.User(req.MentorID); err != nil || u.Role != model.RoleMentor {
		fields["mentor_id"] = []string{"The selected mentor is invalid."}
	}
	return fields
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if fields := s.validateGroup(req); len(fields) > 0 {
		respondValidation(w, fields)
		return
	}
	created := s.store.CreateGroup(model.Group{Name: req.Name, Description: req.Description, MentorID: req.MentorID})
	if len(req.MenteeIDs) > 0 {
		if err := s.store.AssignMentees(created.ID, req.MenteeIDs); err != nil {
			respondValidation(w, map[string][]string{"mentee_ids": {"One or more mentees do not exist."}})
			return
		}
	}
	g, err := s.store.Group(created.ID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	s.store.LogActivity(PrincipalFromContext(r.Context()).User.Name, "create", "group", "Membuat "+g.Name)
	respondCreated(w, "Group created", g)
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if fields := s.validateGroup(req); len(fields) > 0 {
		respondValidation(w, fields)
		return
	}
	g, err := s.store.UpdateGroup(id, func(g *model.Group) {
		g.Name = req.Name
		g.Description = req.Description
		g.MentorID = req.MentorID
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	s.store.LogActivity(PrincipalFromContext(r.Context()).User.Name, "update", "group", "Memperbarui "+g.Name)
	respondOK(w, "Group updated", g)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	if err := s.store.DeleteGroup(id); err != nil {
		respondStoreError(w, err)
		return
	}
	s.store.LogActivity(PrincipalFromContext(r.Context()).User.Name, "delete", "group", "Menghapus kelompok")
	respondOK(w, "Group deleted", nil)
}

func (s *Server) handleGroupMentees(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	mentees, err := s.store.GroupMentees(id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if mentees == nil {
		mentees = []model.Mentee{}
	}
	respondOK(w, "", mentees)
}

type menteeIDsRequest struct {
	MenteeIDs     []int64 `json:"mentee_ids"`
	TargetGroupID int64   `json:"target_group_id"`
}

func (s *Server) handleAddGroupMentees(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	var req menteeIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.store.AssignMentees(id, req.MenteeIDs); err != nil {
		respondStoreError(w, err)
		return
	}
	respondOK(w, "Mentees added", nil)
}

func (s *Server) handleMoveMentees(w http.ResponseWriter, r *http.Request) {
	var req menteeIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.MenteeIDs) == 0 {
		respondValidation(w, map[string][]string{"mentee_ids": {"The mentee ids field is required."}})
		return
	}
	if err := s.store.AssignMentees(req.TargetGroupID, req.MenteeIDs); err != nil {
		respondStoreError(w, err)
		return
	}
	s.store.LogActivity(PrincipalFromContext(r.Context()).User.Name, "move", "mentee", "Memindahkan binaan")
	respondOK(w, "Mentees moved", nil)
}

func (s *Server) handleListMentees(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search, gender := q.Get("search"), q.Get("gender")
	var mentees []model.Mentee
	for _, m := range s.store.Mentees() {
		if gender != "" && m.Gender != gender {
			continue
		}
		if matches(search, m.FullName, m.Nickname, m.ActivityClass) {
			mentees = append(mentees, m)
		}
	}
	page, pg := paginate(r, mentees)
	respondList(w, page, pg)
}

func (s *Server) handleCreateMentee(w http.ResponseWriter, r *http.Request) {
	var m model.Mentee
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if m.FullName == "" {
		respondValidation(w, map[string][]string{"full_name": {"The full name field is required."}})
		return
	}
	if m.GroupID != nil {
		if _, err := s.store.Group(*m.GroupID); err != nil {
			respondValidation(w, map[string][]string{"group_id": {"The selected group is invalid."}})
			return
		}
	}
	created := s.store.CreateMentee(m)
	s.store.LogActivity(PrincipalFromContext(r.Context()).User.Name, "create", "mentee", "Menambahkan "+created.FullName)
	respondCreated(w, "Mentee created", created)
}

func (s *Server) handleUpdateMentee(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	var in model.Mentee
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	m, err := s.store.UpdateMentee(id, func(m *model.Mentee) {
		setIf(&m.FullName, in.FullName)
		setIf(&m.Nickname, in.Nickname)
		setIf(&m.Gender, in.Gender)
		setIf(&m.PhoneNumber, in.PhoneNumber)
		setIf(&m.BirthDate, in.BirthDate)
		setIf(&m.ActivityClass, in.ActivityClass)
		setIf(&m.Hobby, in.Hobby)
		setIf(&m.Address, in.Address)
		setIf(&m.Status, in.Status)
		if in.GroupID != nil {
			m.GroupID = in.GroupID
		}
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondOK(w, "Mentee updated", m)
}

func (s *Server) handleDeleteMentee(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	if err := s.store.DeleteMentee(id); err != nil {
		respondStoreError(w, err)
		return
	}
	respondOK(w, "Mentee deleted", nil)
}
