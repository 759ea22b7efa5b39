package devserver

import (
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/me/jejakliqo/pkg/model"
)

var attendanceStatuses = map[string]bool{
	model.AttendancePresent: true,
	model.AttendanceSick:    true,
	model.AttendancePermit:  true,
	model.AttendanceAbsent:  true,
}

// parseMeetingForm reads a meeting from a multipart form. Attendance rows
// are indexed as attendances[i][field].
func (s *Server) parseMeetingForm(r *http.Request) (model.Meeting, map[string][]string) {
	fields := map[string][]string{}
	m := model.Meeting{
		MeetingDate: r.FormValue("meeting_date"),
		Place:       r.FormValue("place"),
		Topic:       r.FormValue("topic"),
		Notes:       r.FormValue("notes"),
		MeetingType: r.FormValue("meeting_type"),
	}
	gid, err := strconv.ParseInt(r.FormValue("group_id"), 10, 64)
	if err != nil {
		fields["group_id"] = []string{"The group id field is required."}
	} else if g, err := s.store.Group(gid); err != nil || !ownsGroup(r, g.MentorID) {
		fields["group_id"] = []string{"The selected group is invalid."}
	} else {
		m.GroupID = g.ID
		m.MentorID = g.MentorID
	}
	if m.MeetingDate == "" {
		fields["meeting_date"] = []string{"The meeting date field is required."}
	}
	if m.Topic == "" {
		fields["topic"] = []string{"The topic field is required."}
	}

	for i := 0; ; i++ {
		prefix := fmt.Sprintf("attendances[%d]", i)
		raw := r.FormValue(prefix + "[mentee_id]")
		if raw == "" {
			break
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		status := r.FormValue(prefix + "[status]")
		if err != nil || !attendanceStatuses[status] {
			fields[prefix] = []string{"The attendance entry is invalid."}
			continue
		}
		m.Attendances = append(m.Attendances, model.Attendance{
			MenteeID: id,
			Status:   status,
			Notes:    r.FormValue(prefix + "[notes]"),
		})
	}

	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["photos[]"] {
			m.Photos = append(m.Photos, "meeting-photos/"+uuid.NewString()+strings.ToLower(path.Ext(fh.Filename)))
		}
	}
	return m, fields
}

// ownsGroup reports whether the caller may record meetings for a group led
// by mentorID. Admins may record for any group.
func ownsGroup(r *http.Request, mentorID int64) bool {
	u := PrincipalFromContext(r.Context()).User
	return u.Role != model.RoleMentor || u.ID == mentorID
}

func (s *Server) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	var meetings []model.Meeting
	for _, m := range s.store.Meetings(0) {
		if matches(search, m.Topic, m.Place) {
			meetings = append(meetings, m)
		}
	}
	page, pg := paginate(r, meetings)
	respondList(w, page, pg)
}

func (s *Server) handleGetMeeting(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	m, err := s.store.Meeting(id)
	if err == nil && !ownsGroup(r, m.MentorID) {
		err = ErrNotFound
	}
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondOK(w, "", m)
}

func (s *Server) handleCreateMeeting(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	m, fields := s.parseMeetingForm(r)
	if len(fields) > 0 {
		respondValidation(w, fields)
		return
	}
	created := s.store.CreateMeeting(m)
	s.store.LogActivity(PrincipalFromContext(r.Context()).User.Name, "create", "meeting", "Mencatat pertemuan "+created.Topic)
	respondCreated(w, "Meeting created", created)
}

func (s *Server) handleUpdateMeeting(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	if r.FormValue("_method") != http.MethodPut {
		respondError(w, http.StatusMethodNotAllowed, "The POST method is not supported for this route.")
		return
	}
	if existing, err := s.store.Meeting(id); err != nil || !ownsGroup(r, existing.MentorID) {
		respondStoreError(w, ErrNotFound)
		return
	}
	in, fields := s.parseMeetingForm(r)
	if len(fields) > 0 {
		respondValidation(w, fields)
		return
	}
	m, err := s.store.UpdateMeeting(id, func(m *model.Meeting) {
		photos := append(m.Photos, in.Photos...)
		*m = in
		m.ID = id
		m.Photos = photos
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondOK(w, "Meeting updated", m)
}

func (s *Server) handleDeleteMeeting(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	if err := s.store.DeleteMeeting(id); err != nil {
		respondStoreError(w, err)
		return
	}
	respondOK(w, "Meeting deleted", nil)
}
