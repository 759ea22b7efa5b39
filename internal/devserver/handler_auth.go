package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/me/jejakliqo/pkg/model"
)

// maxUpload bounds multipart bodies.
const maxUpload = 10 << 20

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	fields := map[string][]string{}
	switch {
	case strings.TrimSpace(req.Email) == "":
		fields["email"] = []string{"The email field is required."}
	case !strings.Contains(req.Email, "@"):
		fields["email"] = []string{"The email field must be a valid email address."}
	}
	if req.Password == "" {
		fields["password"] = []string{"The password field is required."}
	}
	if len(fields) > 0 {
		respondValidation(w, fields)
		return
	}

	if s.knobs.Maintenance() {
		respondError(w, http.StatusInternalServerError, MaintenanceMessage)
		return
	}

	u, err := s.store.Authenticate(req.Email, req.Password)
	if err != nil {
		s.logger.Info("login rejected", "email", req.Email)
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if u.Status == "Blocked" {
		respondError(w, http.StatusForbidden, "Akun Anda diblokir. Hubungi admin.")
		return
	}

	if s.knobs.MalformedLogin() {
		respondOK(w, "Login successful", map[string]any{"user": u})
		return
	}

	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		s.logger.Error("issue token", "error", err)
		respondError(w, http.StatusInternalServerError, "Server Error")
		return
	}
	data := map[string]any{
		"token":      token,
		"token_type": "Bearer",
		"user":       u,
	}
	if !s.knobs.OmitExpiry() {
		data["token_expires_at"] = exp.Unix()
	}
	s.store.LogActivity(u.Name, "login", "auth", "Login ke sistem")
	respondOK(w, "Login successful", data)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	s.tokens.Revoke(p.TokenID)
	s.store.LogActivity(p.User.Name, "logout", "auth", "Logout dari sistem")
	respondOK(w, "Logged out", nil)
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	n := s.tokens.RevokeUser(p.User.ID)
	s.store.LogActivity(p.User.Name, "logout", "auth", fmt.Sprintf("Logout dari %d perangkat", n))
	respondOK(w, "Logged out from all devices", map[string]int{"revoked": n})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	respondOK(w, "", PrincipalFromContext(r.Context()).User)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.User(PrincipalFromContext(r.Context()).User.ID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondOK(w, "", u)
}

type profileRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Gender string `json:"gender"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email != "" && !strings.Contains(req.Email, "@") {
		respondValidation(w, map[string][]string{"email": {"The email field must be a valid email address."}})
		return
	}
	p := PrincipalFromContext(r.Context())
	u, err := s.store.UpdateUser(p.User.ID, "", func(u *model.User) {
		setIf(&u.Name, req.Name)
		setIf(&u.Email, req.Email)
		setIf(&u.Phone, req.Phone)
		setIf(&u.Gender, req.Gender)
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	s.store.LogActivity(u.Name, "update", "profile", "Memperbarui profil")
	respondOK(w, "Profile updated", u)
}

type passwordRequest struct {
	Current      string `json:"current_password"`
	New          string `json:"new_password"`
	Confirmation string `json:"new_password_confirmation"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p := PrincipalFromContext(r.Context())
	fields := map[string][]string{}
	if err := s.store.CheckPassword(p.User.ID, req.Current); err != nil {
		fields["current_password"] = []string{"Password saat ini salah."}
	}
	if len(req.New) < 8 {
		fields["new_password"] = append(fields["new_password"], "The new password field must be at least 8 characters.")
	}
	if req.New != req.Confirmation {
		fields["new_password"] = append(fields["new_password"], "The new password field confirmation does not match.")
	}
	if len(fields) > 0 {
		respondValidation(w, fields)
		return
	}
	if _, err := s.store.UpdateUser(p.User.ID, req.New, nil); err != nil {
		respondStoreError(w, err)
		return
	}
	respondOK(w, "Password changed", nil)
}

func (s *Server) handleUploadPicture(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	_, fh, err := r.FormFile("profile_picture")
	if err != nil {
		respondValidation(w, map[string][]string{"profile_picture": {"The profile picture field is required."}})
		return
	}
	stored := "profile-pictures/" + uuid.NewString() + strings.ToLower(path.Ext(fh.Filename))
	p := PrincipalFromContext(r.Context())
	u, err := s.store.UpdateUser(p.User.ID, "", func(u *model.User) {
		u.ProfilePicture = &stored
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondOK(w, "Profile picture updated", u)
}

// respondStoreError maps Store errors onto HTTP statuses.
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respondError(w, http.StatusNotFound, "Data tidak ditemukan.")
	case errors.Is(err, ErrEmailTaken):
		respondValidation(w, map[string][]string{"email": {"The email has already been taken."}})
	default:
		respondError(w, http.StatusInternalServerError, "Server Error")
	}
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
