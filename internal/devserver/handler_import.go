package devserver

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/me/jejakliqo/pkg/model"
)

// importColumns are the CSV headers per dataset.
var importColumns = map[string][]string{
	"mentees":  {"full_name", "nickname", "gender", "activity_class", "phone_number", "group_id"},
	"mentors":  {"name", "email", "password", "gender", "phone"},
	"groups":   {"group_name", "mentor_email", "description"},
	"meetings": {"meeting_date", "group_name", "topic", "place", "meeting_type"},
}

func (s *Server) handleImportTemplate(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	cols, ok := importColumns[kind]
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown import type.")
		return
	}
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.Write(cols)
	cw.Flush()
	sendFile(w, "template-"+kind+".csv", "text/csv", buf.Bytes())
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	cols, ok := importColumns[kind]
	if !ok || kind == "meetings" {
		respondError(w, http.StatusNotFound, "Unknown import type.")
		return
	}
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	f, fh, err := r.FormFile("file")
	if err != nil {
		respondValidation(w, map[string][]string{"file": {"The file field is required."}})
		return
	}
	defer f.Close()
	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".csv") {
		respondValidation(w, map[string][]string{"file": {"The file must be a file of type: csv."}})
		return
	}

	rows, err := readRows(f, cols)
	if err != nil {
		respondValidation(w, map[string][]string{"file": {err.Error()}})
		return
	}

	var res model.ImportResult
	for i, row := range rows {
		line := i + 2
		if err := s.importRow(kind, row); err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		res.Imported++
	}
	s.store.LogActivity(PrincipalFromContext(r.Context()).User.Name, "import", kind,
		fmt.Sprintf("Impor %d data %s", res.Imported, kind))
	respondOK(w, "Import finished", res)
}

// readRows parses CSV with a header row that must contain cols.
func readRows(r io.Reader, cols []string) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, errors.New("the file is empty")
	}
	index := map[string]int{}
	for i, h := range header {
		index[strings.TrimSpace(strings.ToLower(h))] = i
	}
	if _, ok := index[cols[0]]; !ok {
		return nil, fmt.Errorf("missing column %q", cols[0])
	}

	var rows []map[string]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := map[string]string{}
		for _, c := range cols {
			if i, ok := index[c]; ok && i < len(rec) {
				row[c] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Server) importRow(kind string, row map[string]string) error {
	switch kind {
	case "mentees":
		if row["full_name"] == "" {
			return errors.New("full_name is required")
		}
		m := model.Mentee{
			FullName:      row["full_name"],
			Nickname:      row["nickname"],
			Gender:        row["gender"],
			ActivityClass: row["activity_class"],
			PhoneNumber:   row["phone_number"],
			Status:        "Aktif",
		}
		if raw := row["group_id"]; raw != "" {
			gid, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid group_id %q", raw)
			}
			if _, err := s.store.Group(gid); err != nil {
				return fmt.Errorf("group %d not found", gid)
			}
			m.GroupID = &gid
		}
		s.store.CreateMentee(m)
	case "mentors":
		if row["name"] == "" || !strings.Contains(row["email"], "@") {
			return errors.New("name and a valid email are required")
		}
		password := row["password"]
		if len(password) < 8 {
			return errors.New("password must be at least 8 characters")
		}
		_, err := s.store.CreateUser(model.User{
			Name:   row["name"],
			Email:  row["email"],
			Role:   model.RoleMentor,
			Gender: row["gender"],
			Phone:  row["phone"],
		}, password)
		return err
	case "groups":
		if row["group_name"] == "" {
			return errors.New("group_name is required")
		}
		var mentorID int64
		for _, u := range s.store.Users(model.RoleMentor) {
			if strings.EqualFold(u.Email, row["mentor_email"]) {
				mentorID = u.ID
			}
		}
		if mentorID == 0 {
			return fmt.Errorf("mentor %q not found", row["mentor_email"])
		}
		s.store.CreateGroup(model.Group{Name: row["group_name"], MentorID: mentorID, Description: row["description"]})
	}
	return nil
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	cols, ok := importColumns[kind]
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown export type.")
		return
	}
	if format := r.URL.Query().Get("format"); format != "" && format != "csv" {
		respondValidation(w, map[string][]string{"format": {"This server only exports csv."}})
		return
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.Write(cols)
	gender := r.URL.Query().Get("gender")
	switch kind {
	case "mentees":
		for _, m := range s.store.Mentees() {
			if gender != "" && m.Gender != gender {
				continue
			}
			gid := ""
			if m.GroupID != nil {
				gid = strconv.FormatInt(*m.GroupID, 10)
			}
			cw.Write([]string{m.FullName, m.Nickname, m.Gender, m.ActivityClass, m.PhoneNumber, gid})
		}
	case "mentors":
		for _, u := range s.store.Users(model.RoleMentor) {
			cw.Write([]string{u.Name, u.Email, "", u.Gender, u.Phone})
		}
	case "groups":
		for _, g := range s.store.Groups(0) {
			email := ""
			if g.Mentor != nil {
				email = g.Mentor.Email
			}
			cw.Write([]string{g.Name, email, g.Description})
		}
	case "meetings":
		for _, m := range s.store.Meetings(0) {
			name := ""
			if g, err := s.store.Group(m.GroupID); err == nil {
				name = g.Name
			}
			cw.Write([]string{m.MeetingDate, name, m.Topic, m.Place, m.MeetingType})
		}
	}
	cw.Flush()
	sendFile(w, kind+".csv", "text/csv", buf.Bytes())
}

func sendFile(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
