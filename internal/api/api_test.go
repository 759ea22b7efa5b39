package api

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/me/jejakliqo/internal/apiclient"
	"github.com/me/jejakliqo/internal/session"
	"github.com/me/jejakliqo/internal/storage"
	"github.com/me/jejakliqo/pkg/model"
)

// captured is one request as the server saw it.
type captured struct {
	Method string
	Path   string
	Query  string
	Auth   string
	JSON   map[string]any
	Form   map[string][]string
	Files  map[string][]string
}

type backend struct {
	mu       sync.Mutex
	requests []captured
	status   int
	body     any
	header   http.Header
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := captured{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		json.NewDecoder(r.Body).Decode(&c.JSON)
	case "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			c.Form = r.MultipartForm.Value
			c.Files = map[string][]string{}
			for field, fhs := range r.MultipartForm.File {
				for _, fh := range fhs {
					c.Files[field] = append(c.Files[field], fh.Filename)
				}
			}
		}
	}

	b.mu.Lock()
	b.requests = append(b.requests, c)
	status, body, header := b.status, b.body, b.header
	b.mu.Unlock()

	for k, vs := range header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	if raw, ok := body.([]byte); ok {
		w.WriteHeader(status)
		w.Write(raw)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (b *backend) respond(status int, body any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status, b.body, b.header = status, body, nil
}

func (b *backend) last(t *testing.T) captured {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.requests) == 0 {
		t.Fatal("no request reached the server")
	}
	return b.requests[len(b.requests)-1]
}

func envelope(data any) map[string]any {
	return map[string]any{"status": "success", "message": "ok", "data": data}
}

func newTestAPI(t *testing.T) (*API, *backend) {
	t.Helper()
	b := &backend{status: http.StatusOK, body: envelope(nil)}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	sessions := session.NewManager(storage.NewMemoryStore())
	user := &model.User{ID: 1, Name: "Admin", Role: model.RoleSuperAdmin}
	if err := sessions.SetAuthData(context.Background(), "tok", user, time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	c := apiclient.New(apiclient.DefaultConfig().WithBaseURL(srv.URL), sessions,
		apiclient.WithScheduler(func(time.Duration, func()) {}))
	return New(c), b
}

func TestEndpoints(t *testing.T) {
	ctx := context.Background()
	opts := model.ListOptions{Page: 2, PerPage: 5}

	tests := []struct {
		name       string
		call       func(a *API) error
		wantMethod string
		wantPath   string
	}{
		{"activities list", func(a *API) error { _, err := a.Activities.List(ctx, opts); return err }, "GET", "/activities"},
		{"activities recent", func(a *API) error { _, err := a.Activities.Recent(ctx, 5); return err }, "GET", "/activities/recent"},
		{"admins list", func(a *API) error { _, err := a.Admin.ListAdmins(ctx, opts); return err }, "GET", "/admins"},
		{"admin create", func(a *API) error { _, err := a.Admin.CreateAdmin(ctx, UserInput{Name: "A"}); return err }, "POST", "/admins"},
		{"admin update", func(a *API) error { _, err := a.Admin.UpdateAdmin(ctx, 4, UserInput{Name: "A"}); return err }, "PUT", "/admins/4"},
		{"admin delete", func(a *API) error { return a.Admin.DeleteAdmin(ctx, 4) }, "DELETE", "/admins/4"},
		{"mentors list", func(a *API) error { _, err := a.Admin.ListMentors(ctx, opts); return err }, "GET", "/mentors"},
		{"mentor get", func(a *API) error { _, err := a.Admin.GetMentor(ctx, 9); return err }, "GET", "/mentors/9"},
		{"mentor create", func(a *API) error { _, err := a.Admin.CreateMentor(ctx, UserInput{Name: "M"}); return err }, "POST", "/mentors"},
		{"mentor update", func(a *API) error { _, err := a.Admin.UpdateMentor(ctx, 9, UserInput{}); return err }, "PUT", "/mentors/9"},
		{"mentor delete", func(a *API) error { return a.Admin.DeleteMentor(ctx, 9) }, "DELETE", "/mentors/9"},
		{"block", func(a *API) error { return a.Admin.Block(ctx, 9) }, "PATCH", "/users/9/status"},
		{"announcements list", func(a *API) error { _, err := a.Announcements.List(ctx, opts); return err }, "GET", "/announcements"},
		{"announcement get", func(a *API) error { _, err := a.Announcements.Get(ctx, 3); return err }, "GET", "/announcements/3"},
		{"announcement delete", func(a *API) error { return a.Announcements.Delete(ctx, 3) }, "DELETE", "/announcements/3"},
		{"dashboard stats", func(a *API) error { _, err := a.Dashboard.Stats(ctx); return err }, "GET", "/dashboard/stats"},
		{"mentor stats", func(a *API) error { _, err := a.Dashboard.MentorStats(ctx); return err }, "GET", "/mentor/dashboard/stats"},
		{"groups list", func(a *API) error { _, err := a.Groups.List(ctx, opts); return err }, "GET", "/groups"},
		{"group get", func(a *API) error { _, err := a.Groups.Get(ctx, 2); return err }, "GET", "/groups/2"},
		{"group create", func(a *API) error { _, err := a.Groups.Create(ctx, GroupInput{Name: "G"}); return err }, "POST", "/groups"},
		{"group update", func(a *API) error { _, err := a.Groups.Update(ctx, 2, GroupInput{Name: "G"}); return err }, "PUT", "/groups/2"},
		{"group delete", func(a *API) error { return a.Groups.Delete(ctx, 2) }, "DELETE", "/groups/2"},
		{"group mentees", func(a *API) error { _, err := a.Groups.Mentees(ctx, 2); return err }, "GET", "/groups/2/mentees"},
		{"group add mentees", func(a *API) error { return a.Groups.AddMentees(ctx, 2, []int64{1}) }, "POST", "/groups/2/mentees"},
		{"mentees list", func(a *API) error { _, err := a.Groups.ListMentees(ctx, opts); return err }, "GET", "/mentees"},
		{"mentee create", func(a *API) error { _, err := a.Groups.CreateMentee(ctx, MenteeInput{FullName: "F"}); return err }, "POST", "/mentees"},
		{"mentee update", func(a *API) error { _, err := a.Groups.UpdateMentee(ctx, 8, MenteeInput{}); return err }, "PUT", "/mentees/8"},
		{"mentee delete", func(a *API) error { return a.Groups.DeleteMentee(ctx, 8) }, "DELETE", "/mentees/8"},
		{"meetings list", func(a *API) error { _, err := a.Meetings.List(ctx, opts); return err }, "GET", "/meetings"},
		{"meeting get", func(a *API) error { _, err := a.Meetings.Get(ctx, 6); return err }, "GET", "/meetings/6"},
		{"meeting delete", func(a *API) error { return a.Meetings.Delete(ctx, 6) }, "DELETE", "/meetings/6"},
		{"mentor groups", func(a *API) error { _, err := a.Mentor.Groups(ctx); return err }, "GET", "/mentor/groups"},
		{"mentor group", func(a *API) error { _, err := a.Mentor.Group(ctx, 2); return err }, "GET", "/mentor/groups/2"},
		{"mentor meetings", func(a *API) error { _, err := a.Mentor.Meetings(ctx, opts); return err }, "GET", "/mentor/meetings"},
		{"profile get", func(a *API) error { _, err := a.Profile.Get(ctx); return err }, "GET", "/profile"},
		{"profile update", func(a *API) error { _, err := a.Profile.Update(ctx, ProfileInput{Name: "N"}); return err }, "PUT", "/profile"},
		{"profile password", func(a *API) error { return a.Profile.ChangePassword(ctx, PasswordChange{Current: "a", New: "b"}) }, "PUT", "/profile/password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := newTestAPI(t)
			if err := tt.call(a); err != nil {
				t.Fatalf("call: %v", err)
			}
			got := b.last(t)
			if got.Method != tt.wantMethod || got.Path != tt.wantPath {
				t.Errorf("request = %s %s, want %s %s", got.Method, got.Path, tt.wantMethod, tt.wantPath)
			}
			if got.Auth != "Bearer tok" {
				t.Errorf("Authorization = %q", got.Auth)
			}
		})
	}
}

func TestGroups_ListDecodesPage(t *testing.T) {
	a, b := newTestAPI(t)
	b.respond(http.StatusOK, map[string]any{
		"status": "success",
		"data": []map[string]any{
			{"id": 1, "group_name": "Halaqah Al-Fatih", "mentor_id": 3, "mentees_count": 8},
			{"id": 2, "group_name": "Halaqah Umar", "mentor_id": 4, "mentees_count": 5},
		},
		"meta": map[string]any{"current_page": 1, "last_page": 3, "per_page": 2, "total": 6},
	})

	page, err := a.Groups.List(context.Background(), model.ListOptions{Page: 1, PerPage: 2, Search: "halaqah"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].Name != "Halaqah Al-Fatih" || page.Items[1].MenteeCount != 5 {
		t.Errorf("items = %+v", page.Items)
	}
	if !page.Pagination.HasMore() || page.Pagination.Total != 6 {
		t.Errorf("pagination = %+v", page.Pagination)
	}
	if q := b.last(t).Query; !strings.Contains(q, "search=halaqah") || !strings.Contains(q, "per_page=2") {
		t.Errorf("query = %q", q)
	}
}

func TestGroups_MoveMentees(t *testing.T) {
	a, b := newTestAPI(t)
	if err := a.Groups.MoveMentees(context.Background(), []int64{4, 5}, 7); err != nil {
		t.Fatalf("MoveMentees: %v", err)
	}
	got := b.last(t)
	if got.Path != "/mentees/move" {
		t.Errorf("path = %s", got.Path)
	}
	if got.JSON["target_group_id"] != float64(7) {
		t.Errorf("body = %v", got.JSON)
	}
	if ids, _ := got.JSON["mentee_ids"].([]any); len(ids) != 2 {
		t.Errorf("mentee_ids = %v", got.JSON["mentee_ids"])
	}
}

func TestAdmin_BlockUnblock(t *testing.T) {
	a, b := newTestAPI(t)
	if err := a.Admin.Block(context.Background(), 5); err != nil {
		t.Fatal(err)
	}
	if s := b.last(t).JSON["status"]; s != StatusBlocked {
		t.Errorf("block status = %v", s)
	}
	if err := a.Admin.Unblock(context.Background(), 5); err != nil {
		t.Fatal(err)
	}
	if s := b.last(t).JSON["status"]; s != StatusActive {
		t.Errorf("unblock status = %v", s)
	}
}

func TestAnnouncements_CreateMultipart(t *testing.T) {
	a, b := newTestAPI(t)
	b.respond(http.StatusCreated, envelope(map[string]any{"id": 11, "title": "Kajian Akbar"}))

	in := AnnouncementInput{Title: "Kajian Akbar", Content: "Ahad pagi", Location: "Masjid Kampus"}
	att := &apiclient.File{Name: "poster.pdf", Reader: strings.NewReader("%PDF")}
	got, err := a.Announcements.Create(context.Background(), in, att)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ID != 11 {
		t.Errorf("announcement = %+v", got)
	}

	req := b.last(t)
	if req.Method != http.MethodPost || req.Path != "/announcements" {
		t.Errorf("request = %s %s", req.Method, req.Path)
	}
	if req.Form["title"][0] != "Kajian Akbar" || req.Form["location"][0] != "Masjid Kampus" {
		t.Errorf("form = %v", req.Form)
	}
	if _, ok := req.Form["event_at"]; ok {
		t.Error("empty event_at was sent")
	}
	if req.Files["file"][0] != "poster.pdf" {
		t.Errorf("files = %v", req.Files)
	}
}

func TestAnnouncements_UpdateUsesMethodOverride(t *testing.T) {
	a, b := newTestAPI(t)
	if _, err := a.Announcements.Update(context.Background(), 11, AnnouncementInput{Title: "T", Content: "C"}, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}
	req := b.last(t)
	if req.Method != http.MethodPost || req.Path != "/announcements/11" {
		t.Errorf("request = %s %s", req.Method, req.Path)
	}
	if req.Form[methodOverride][0] != http.MethodPut {
		t.Errorf("_method = %v", req.Form[methodOverride])
	}
	if len(req.Files) != 0 {
		t.Errorf("unexpected files %v", req.Files)
	}
}

func TestMeetings_CreateWithAttendanceAndPhotos(t *testing.T) {
	a, b := newTestAPI(t)
	in := MeetingInput{
		GroupID:     2,
		MeetingDate: "2024-03-01",
		Place:       "Masjid",
		Topic:       "Tazkiyatun Nafs",
		MeetingType: MeetingOffline,
		Attendances: []model.Attendance{
			{MenteeID: 10, Status: model.AttendancePresent},
			{MenteeID: 11, Status: model.AttendanceSick, Notes: "demam"},
		},
	}
	photos := []apiclient.File{
		{Name: "a.jpg", Reader: strings.NewReader("a")},
		{Name: "b.jpg", Reader: strings.NewReader("b")},
	}
	if _, err := a.Meetings.Create(context.Background(), in, photos); err != nil {
		t.Fatalf("Create: %v", err)
	}

	req := b.last(t)
	want := map[string]string{
		"group_id":                  "2",
		"topic":                     "Tazkiyatun Nafs",
		"meeting_type":              MeetingOffline,
		"attendances[0][mentee_id]": "10",
		"attendances[0][status]":    model.AttendancePresent,
		"attendances[1][notes]":     "demam",
	}
	for k, v := range want {
		if got := req.Form[k]; len(got) != 1 || got[0] != v {
			t.Errorf("form[%s] = %v, want %q", k, got, v)
		}
	}
	if _, ok := req.Form["attendances[0][notes]"]; ok {
		t.Error("empty notes were sent")
	}
	if len(req.Files["photos[]"]) != 2 {
		t.Errorf("photos = %v", req.Files)
	}
}

func TestMeetings_UpdateUsesMethodOverride(t *testing.T) {
	a, b := newTestAPI(t)
	if _, err := a.Meetings.Update(context.Background(), 6, MeetingInput{GroupID: 2}, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}
	req := b.last(t)
	if req.Path != "/meetings/6" || req.Form[methodOverride][0] != http.MethodPut {
		t.Errorf("request = %s %v", req.Path, req.Form)
	}
}

func TestProfile_ChangePasswordDefaultsConfirmation(t *testing.T) {
	a, b := newTestAPI(t)
	if err := a.Profile.ChangePassword(context.Background(), PasswordChange{Current: "lama", New: "baru123"}); err != nil {
		t.Fatal(err)
	}
	body := b.last(t).JSON
	if body["new_password_confirmation"] != "baru123" || body["current_password"] != "lama" {
		t.Errorf("body = %v", body)
	}
}

func TestProfile_UploadPicture(t *testing.T) {
	a, b := newTestAPI(t)
	b.respond(http.StatusOK, envelope(map[string]any{"id": 1, "name": "Admin", "profile_picture": "profile/1.jpg"}))

	u, err := a.Profile.UploadPicture(context.Background(), "me.jpg", strings.NewReader("jpeg"))
	if err != nil {
		t.Fatalf("UploadPicture: %v", err)
	}
	if u.PicturePath() != "profile/1.jpg" {
		t.Errorf("picture = %q", u.PicturePath())
	}
	if b.last(t).Files["profile_picture"][0] != "me.jpg" {
		t.Errorf("files = %v", b.last(t).Files)
	}
}

func TestImports_Upload(t *testing.T) {
	a, b := newTestAPI(t)
	b.respond(http.StatusOK, envelope(map[string]any{"imported": 12, "skipped": 1, "errors": []string{"row 4: email taken"}}))

	res, err := a.Imports.Upload(context.Background(), KindMentees, "mentees.xlsx", strings.NewReader("xlsx"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Imported != 12 || res.Skipped != 1 || len(res.Errors) != 1 {
		t.Errorf("result = %+v", res)
	}
	req := b.last(t)
	if req.Path != "/import/mentees" || req.Files["file"][0] != "mentees.xlsx" {
		t.Errorf("request = %s %v", req.Path, req.Files)
	}
}

func TestImports_UploadValidationError(t *testing.T) {
	a, b := newTestAPI(t)
	b.respond(http.StatusUnprocessableEntity, map[string]any{
		"status":  "error",
		"message": "The file must be a file of type: xlsx.",
		"errors":  map[string][]string{"file": {"The file must be a file of type: xlsx."}},
	})

	_, err := a.Imports.Upload(context.Background(), KindGroups, "groups.txt", strings.NewReader("x"))
	var httpErr *apiclient.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("err = %v", err)
	}
	if len(httpErr.Errors["file"]) != 1 {
		t.Errorf("field errors = %v", httpErr.Errors)
	}
}

func TestImports_ExportAndTemplate(t *testing.T) {
	a, b := newTestAPI(t)
	b.mu.Lock()
	b.status = http.StatusOK
	b.body = []byte("PK\x03\x04")
	b.header = http.Header{
		"Content-Type":        {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		"Content-Disposition": {`attachment; filename="mentees-2024.xlsx"`},
	}
	b.mu.Unlock()

	d, err := a.Imports.Export(context.Background(), KindMentees, FormatXLSX, map[string]string{"gender": model.GenderFemale, "group_id": ""})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if d.Filename != "mentees-2024.xlsx" || string(d.Data) != "PK\x03\x04" {
		t.Errorf("download = %q %q", d.Filename, d.Data)
	}
	req := b.last(t)
	if req.Path != "/export/mentees" || !strings.Contains(req.Query, "format=xlsx") || !strings.Contains(req.Query, "gender=Akhwat") {
		t.Errorf("request = %s?%s", req.Path, req.Query)
	}
	if strings.Contains(req.Query, "group_id") {
		t.Errorf("empty filter sent: %s", req.Query)
	}

	if _, err := a.Imports.Export(context.Background(), KindGroups, "", nil); err != nil {
		t.Fatalf("Export default format: %v", err)
	}
	if q := b.last(t).Query; q != "format=csv" {
		t.Errorf("default export query = %q, want format=csv", q)
	}

	if _, err := a.Imports.Template(context.Background(), KindGroups); err != nil {
		t.Fatalf("Template: %v", err)
	}
	if p := b.last(t).Path; p != "/import/groups/template" {
		t.Errorf("template path = %s", p)
	}
}

func TestParseImportKind(t *testing.T) {
	for _, s := range []string{"mentees", "mentors", "groups", "meetings"} {
		if _, err := ParseImportKind(s); err != nil {
			t.Errorf("ParseImportKind(%q): %v", s, err)
		}
	}
	if _, err := ParseImportKind("payments"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("err = %v, want ErrUnknownKind", err)
	}
}
