package devserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/me/jejakliqo/pkg/model"
)

// Store errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrEmailTaken  = errors.New("email already taken")
	ErrBadPassword = errors.New("password mismatch")
)

// SeedPassword is the password of every seeded account.
const SeedPassword = "password123"

type account struct {
	user model.User
	hash []byte
}

// Store is the reference backend's in-memory data.
type Store struct {
	mu            sync.RWMutex
	now           func() time.Time
	cost          int
	nextID        int64
	accounts      map[int64]*account
	groups        map[int64]*model.Group
	mentees       map[int64]*model.Mentee
	meetings      map[int64]*model.Meeting
	announcements map[int64]*model.Announcement
	activities    []model.Activity
}

// NewStore creates an empty store. cost is the bcrypt cost; values below
// bcrypt.MinCost use bcrypt.DefaultCost.
func NewStore(now func() time.Time, cost int) *Store {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Store{
		now:           now,
		cost:          cost,
		accounts:      map[int64]*account{},
		groups:        map[int64]*model.Group{},
		mentees:       map[int64]*model.Mentee{},
		meetings:      map[int64]*model.Meeting{},
		announcements: map[int64]*model.Announcement{},
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Seed loads one account per role, two groups with mentees, a meeting and
// an announcement.
func (s *Store) Seed() error {
	seed := []model.User{
		{Name: "Super Admin", Email: "superadmin@jejakliqo.test", Role: model.RoleSuperAdmin, Status: "Active"},
		{Name: "Admin Liqo", Email: "admin@jejakliqo.test", Role: model.RoleAdmin, Status: "Active"},
		{Name: "Ustadz Hasan", Email: "mentor@jejakliqo.test", Role: model.RoleMentor, Gender: model.GenderMale, Status: "Active"},
		{Name: "Ustadzah Aisyah", Email: "mentor2@jejakliqo.test", Role: model.RoleMentor, Gender: model.GenderFemale, Status: "Active"},
	}
	var mentorIDs []int64
	for _, u := range seed {
		created, err := s.CreateUser(u, SeedPassword)
		if err != nil {
			return err
		}
		if created.Role == model.RoleMentor {
			mentorIDs = append(mentorIDs, created.ID)
		}
	}

	g1 := s.CreateGroup(model.Group{Name: "Halaqah Al-Fatih", MentorID: mentorIDs[0]})
	g2 := s.CreateGroup(model.Group{Name: "Halaqah Khadijah", MentorID: mentorIDs[1]})
	for _, m := range []model.Mentee{
		{FullName: "Ahmad Fauzi", Gender: model.GenderMale, ActivityClass: "XI IPA 1", Status: "Aktif", GroupID: &g1.ID},
		{FullName: "Budi Santoso", Gender: model.GenderMale, ActivityClass: "XI IPS 2", Status: "Aktif", GroupID: &g1.ID},
		{FullName: "Siti Maryam", Gender: model.GenderFemale, ActivityClass: "X IPA 3", Status: "Aktif", GroupID: &g2.ID},
	} {
		s.CreateMentee(m)
	}

	s.CreateMeeting(model.Meeting{
		GroupID:     g1.ID,
		MentorID:    mentorIDs[0],
		MeetingDate: s.now().Format("2006-01-02"),
		Place:       "Masjid Sekolah",
		Topic:       "Adab Menuntut Ilmu",
		MeetingType: "Offline",
	})
	s.CreateAnnouncement(model.Announcement{
		Title:   "Mabit Bulanan",
		Content: "Mabit bulan ini dilaksanakan Sabtu malam di masjid sekolah.",
		Status:  "published",
	})
	return nil
}

// CreateUser adds an account with a bcrypt-hashed password.
func (s *Store) CreateUser(u model.User, password string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if strings.EqualFold(a.user.Email, u.Email) {
			return nil, ErrEmailTaken
		}
	}
	if u.Status == "" {
		u.Status = "Active"
	}
	u.ID = s.id()
	s.accounts[u.ID] = &account{user: u, hash: hash}
	return &u, nil
}

// Authenticate checks email and password.
func (s *Store) Authenticate(email, password string) (*model.User, error) {
	s.mu.RLock()
	var found *account
	for _, a := range s.accounts {
		if strings.EqualFold(a.user.Email, email) {
			found = a
			break
		}
	}
	s.mu.RUnlock()
	if found == nil {
		return nil, ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword(found.hash, []byte(password)); err != nil {
		return nil, ErrBadPassword
	}
	u := found.user
	return &u, nil
}

// User returns an account.
func (s *Store) User(id int64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	u := a.user
	return &u, nil
}

// Users lists accounts with role, sorted by id.
func (s *Store) Users(role model.Role) []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.User
	for _, a := range s.accounts {
		if a.user.Role == role {
			out = append(out, a.user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateUser applies fn to an account. A non-empty password is rehashed.
func (s *Store) UpdateUser(id int64, password string, fn func(*model.User)) (*model.User, error) {
	var hash []byte
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
		if err != nil {
			return nil, err
		}
		hash = h
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if fn != nil {
		fn(&a.user)
	}
	if hash != nil {
		a.hash = hash
	}
	u := a.user
	return &u, nil
}

// CheckPassword verifies the current password of an account.
func (s *Store) CheckPassword(id int64, password string) error {
	s.mu.RLock()
	a, ok := s.accounts[id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if bcrypt.CompareHashAndPassword(a.hash, []byte(password)) != nil {
		return ErrBadPassword
	}
	return nil
}

// DeleteUser removes an account.
func (s *Store) DeleteUser(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

// CreateGroup adds a group.
func (s *Store) CreateGroup(g model.Group) *model.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = s.id()
	g.CreatedAt = s.now().UTC().Format(time.RFC3339)
	g.Mentees = nil
	s.groups[g.ID] = &g
	out := g
	return &out
}

// Group returns a group with its mentor and mentees filled in.
func (s *Store) Group(id int64) (*model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := s.decorateGroup(*g)
	out.Mentees = s.menteesOf(id)
	return &out, nil
}

// Groups lists groups, optionally only those of mentorID.
func (s *Store) Groups(mentorID int64) []model.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Group
	for _, g := range s.groups {
		if mentorID != 0 && g.MentorID != mentorID {
			continue
		}
		out = append(out, s.decorateGroup(*g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// decorateGroup must be called with mu held.
func (s *Store) decorateGroup(g model.Group) model.Group {
	if a, ok := s.accounts[g.MentorID]; ok {
		u := a.user
		g.Mentor = &u
	}
	g.MenteeCount = len(s.menteesOf(g.ID))
	return g
}

// menteesOf must be called with mu held.
func (s *Store) menteesOf(groupID int64) []model.Mentee {
	var out []model.Mentee
	for _, m := range s.mentees {
		if m.GroupID != nil && *m.GroupID == groupID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateGroup applies fn to a group.
func (s *Store) UpdateGroup(id int64, fn func(*model.Group)) (*model.Group, error) {
	s.mu.Lock()
	g, ok := s.groups[id]
	if ok {
		fn(g)
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.Group(id)
}

// DeleteGroup removes a group and unassigns its mentees.
func (s *Store) DeleteGroup(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		return ErrNotFound
	}
	delete(s.groups, id)
	for _, m := range s.mentees {
		if m.GroupID != nil && *m.GroupID == id {
			m.GroupID = nil
		}
	}
	return nil
}

// GroupMentees lists the mentees of a group.
func (s *Store) GroupMentees(groupID int64) ([]model.Mentee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.groups[groupID]; !ok {
		return nil, ErrNotFound
	}
	return s.menteesOf(groupID), nil
}

// AssignMentees moves mentees into groupID. Unknown ids are reported.
func (s *Store) AssignMentees(groupID int64, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[groupID]; !ok {
		return ErrNotFound
	}
	for _, id := range ids {
		if _, ok := s.mentees[id]; !ok {
			return ErrNotFound
		}
	}
	for _, id := range ids {
		gid := groupID
		s.mentees[id].GroupID = &gid
	}
	return nil
}

// CreateMentee adds a mentee.
func (s *Store) CreateMentee(m model.Mentee) *model.Mentee {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.id()
	s.mentees[m.ID] = &m
	out := m
	return &out
}

// Mentees lists all mentees.
func (s *Store) Mentees() []model.Mentee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Mentee, 0, len(s.mentees))
	for _, m := range s.mentees {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateMentee applies fn to a mentee.
func (s *Store) UpdateMentee(id int64, fn func(*model.Mentee)) (*model.Mentee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mentees[id]
	if !ok {
		return nil, ErrNotFound
	}
	fn(m)
	out := *m
	return &out, nil
}

// DeleteMentee removes a mentee.
func (s *Store) DeleteMentee(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mentees[id]; !ok {
		return ErrNotFound
	}
	delete(s.mentees, id)
	return nil
}

// CreateMeeting adds a meeting.
func (s *Store) CreateMeeting(m model.Meeting) *model.Meeting {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.id()
	s.meetings[m.ID] = &m
	out := m
	return &out
}

// Meeting returns a meeting.
func (s *Store) Meeting(id int64) (*model.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *m
	return &out, nil
}

// Meetings lists meetings newest first, optionally only those of mentorID.
func (s *Store) Meetings(mentorID int64) []model.Meeting {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Meeting
	for _, m := range s.meetings {
		if mentorID != 0 && m.MentorID != mentorID {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MeetingDate != out[j].MeetingDate {
			return out[i].MeetingDate > out[j].MeetingDate
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// UpdateMeeting applies fn to a meeting.
func (s *Store) UpdateMeeting(id int64, fn func(*model.Meeting)) (*model.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, ErrNotFound
	}
	fn(m)
	out := *m
	return &out, nil
}

// DeleteMeeting removes a meeting.
func (s *Store) DeleteMeeting(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetings[id]; !ok {
		return ErrNotFound
	}
	delete(s.meetings, id)
	return nil
}

// CreateAnnouncement adds an announcement.
func (s *Store) CreateAnnouncement(a model.Announcement) *model.Announcement {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	a.CreatedAt = s.now().UTC().Format(time.RFC3339)
	if a.Status == "" {
		a.Status = "published"
	}
	s.announcements[a.ID] = &a
	out := a
	return &out
}

// Announcement returns an announcement.
func (s *Store) Announcement(id int64) (*model.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.announcements[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *a
	return &out, nil
}

// Announcements lists announcements newest first.
func (s *Store) Announcements() []model.Announcement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Announcement, 0, len(s.announcements))
	for _, a := range s.announcements {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// UpdateAnnouncement applies fn to an announcement.
func (s *Store) UpdateAnnouncement(id int64, fn func(*model.Announcement)) (*model.Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.announcements[id]
	if !ok {
		return nil, ErrNotFound
	}
	fn(a)
	out := *a
	return &out, nil
}

// DeleteAnnouncement removes an announcement.
func (s *Store) DeleteAnnouncement(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.announcements[id]; !ok {
		return ErrNotFound
	}
	delete(s.announcements, id)
	return nil
}

// LogActivity appends an audit entry.
func (s *Store) LogActivity(userName, action, subject, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = append(s.activities, model.Activity{
		ID:          s.id(),
		UserName:    userName,
		Action:      action,
		Subject:     subject,
		Description: description,
		CreatedAt:   s.now().UTC().Format(time.RFC3339),
	})
}

// Activities lists audit entries newest first.
func (s *Store) Activities() []model.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Activity, len(s.activities))
	for i, a := range s.activities {
		out[len(out)-1-i] = a
	}
	return out
}

// Stats computes the admin dashboard counters.
func (s *Store) Stats() model.DashboardStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := model.DashboardStats{
		TotalMentees:    len(s.mentees),
		TotalGroups:     len(s.groups),
		TotalMeetings:   len(s.meetings),
		GenderBreakdown: map[string]int{},
	}
	for _, a := range s.accounts {
		switch a.user.Role {
		case model.RoleMentor:
			st.TotalMentors++
		case model.RoleAdmin, model.RoleSuperAdmin:
			st.TotalAdmins++
		}
	}
	for _, m := range s.mentees {
		if m.Gender != "" {
			st.GenderBreakdown[m.Gender]++
		}
	}
	month := s.now().Format("2006-01")
	for _, m := range s.meetings {
		if strings.HasPrefix(m.MeetingDate, month) {
			st.MeetingsThisMonth++
		}
	}
	return st
}

// MentorStats computes the counters of one mentor.
func (s *Store) MentorStats(mentorID int64) model.MentorStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st model.MentorStats
	for _, g := range s.groups {
		if g.MentorID == mentorID {
			st.TotalGroups++
			st.TotalMentees += len(s.menteesOf(g.ID))
		}
	}
	month := s.now().Format("2006-01")
	for _, m := range s.meetings {
		if m.MentorID != mentorID {
			continue
		}
		st.TotalMeetings++
		if strings.HasPrefix(m.MeetingDate, month) {
			st.MeetingsThisMonth++
		}
	}
	return st
}
