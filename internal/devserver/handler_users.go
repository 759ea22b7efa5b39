package devserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/me/jejakliqo/pkg/model"
)

type userRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Gender   string `json:"gender"`
	Status   string `json:"status"`
}

func matches(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func (s *Server) handleListUsers(role model.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		search := r.URL.Query().Get("search")
		var users []model.User
		for _, u := range s.store.Users(role) {
			if matches(search, u.Name, u.Email) {
				users = append(users, u)
			}
		}
		page, pg := paginate(r, users)
		respondList(w, page, pg)
	}
}

func (s *Server) handleGetUser(role model.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			respondError(w, http.StatusNotFound, "Data tidak ditemukan.")
			return
		}
		u, err := s.store.User(id)
		if err != nil || u.Role != role {
			respondError(w, http.StatusNotFound, "Data tidak ditemukan.")
			return
		}
		respondOK(w, "", u)
	}
}

func (s *Server) handleCreateUser(role model.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req userRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		fields := map[string][]string{}
		if req.Name == "" {
			fields["name"] = []string{"The name field is required."}
		}
		if !strings.Contains(req.Email, "@") {
			fields["email"] = []string{"The email field must be a valid email address."}
		}
		if len(req.Password) < 8 {
			fields["password"] = []string{"The password field must be at least 8 characters."}
		}
		if len(fields) > 0 {
			respondValidation(w, fields)
			return
		}

		u, err := s.store.CreateUser(model.User{
			Name:   req.Name,
			Email:  req.Email,
			Role:   role,
			Phone:  req.Phone,
			Gender: req.Gender,
			Status: req.Status,
		}, req.Password)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		s.store.LogActivity(PrincipalFromContext(r.Context()).User.Name, "create", string(role), "Menambahkan "+u.Name)
		respondCreated(w, "Created", u)
	}
}

func (s *Server) handleUpdateUser(role model.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			respondError(w, http.StatusNotFound, "Data tidak ditemukan.")
			return
		}
		var req userRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if existing, err := s.store.User(id); err != nil || existing.Role != role {
			respondError(w, http.StatusNotFound, "Data tidak ditemukan.")
			return
		}
		u, err := s.store.UpdateUser(id, req.Password, func(u *model.User) {
			setIf(&u.Name, req.Name)
			setIf(&u.Email, req.Email)
			setIf(&u.Phone, req.Phone)
			setIf(&u.Gender, req.Gender)
			setIf(&u.Status, req.Status)
		})
		if err != nil {
			respondStoreError(w, err)
			return
		}
		s.store.LogActivity(PrincipalFromContext(r.Context()).User.Name, "update", string(role), "Memperbarui "+u.Name)
		respondOK(w, "Updated", u)
	}
}

func (s *Server) handleDeleteUser(role model.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			respondError(w, http.StatusNotFound, "Data tidak ditemukan.")
			return
		}
		u, err := s.store.User(id)
		if err != nil || u.Role != role {
			respondError(w, http.StatusNotFound, "Data tidak ditemukan.")
			return
		}
		if err := s.store.DeleteUser(id); err != nil {
			respondStoreError(w, err)
			return
		}
		s.tokens.RevokeUser(id)
		s.store.LogActivity(PrincipalFromContext(r.Context()).User.Name, "delete", string(role), "Menghapus "+u.Name)
		respondOK(w, "Deleted", nil)
	}
}

func (s *Server) handleSetUserStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusNotFound, "Data tidak ditemukan.")
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Status != "Active" && req.Status != "Blocked" {
		respondValidation(w, map[string][]string{"status": {"The selected status is invalid."}})
		return
	}
	caller := PrincipalFromContext(r.Context()).User
	target, err := s.store.User(id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if target.Role != model.RoleMentor && caller.Role != model.RoleSuperAdmin {
		respondError(w, http.StatusForbidden, "This action is unauthorized.")
		return
	}
	u, err := s.store.UpdateUser(id, "", func(u *model.User) { u.Status = req.Status })
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if req.Status == "Blocked" {
		s.tokens.RevokeUser(id)
	}
	s.store.LogActivity(caller.Name, strings.ToLower(req.Status), "user", u.Name)
	respondOK(w, "Status updated", u)
}
