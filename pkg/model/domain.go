package model

// Gender values used for mentees and mentors.
const (
	GenderMale   = "Ikhwan"
	GenderFemale = "Akhwat"
)

// Group is a mentee group (halaqah) led by one mentor.
type Group struct {
	ID          int64    `json:"id"`
	Name        string   `json:"group_name"`
	Description string   `json:"description,omitempty"`
	MentorID    int64    `json:"mentor_id"`
	Mentor      *User    `json:"mentor,omitempty"`
	MenteeCount int      `json:"mentees_count"`
	Mentees     []Mentee `json:"mentees,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// Mentee is a member of a group.
type Mentee struct {
	ID            int64  `json:"id"`
	FullName      string `json:"full_name"`
	Nickname      string `json:"nickname,omitempty"`
	Gender        string `json:"gender,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	BirthDate     string `json:"birth_date,omitempty"`
	ActivityClass string `json:"activity_class,omitempty"`
	Hobby         string `json:"hobby,omitempty"`
	Address       string `json:"address,omitempty"`
	Status        string `json:"status,omitempty"`
	GroupID       *int64 `json:"group_id,omitempty"`
}

// Attendance statuses for a mentee at a meeting.
const (
	AttendancePresent = "Hadir"
	AttendanceSick    = "Sakit"
	AttendancePermit  = "Izin"
	AttendanceAbsent  = "Alpa"
)

// Attendance is one mentee's attendance at a meeting.
type Attendance struct {
	MenteeID int64  `json:"mentee_id"`
	Status   string `json:"status"`
	Notes    string `json:"notes,omitempty"`
}

// Meeting is a recorded group meeting.
type Meeting struct {
	ID          int64        `json:"id"`
	GroupID     int64        `json:"group_id"`
	Group       *Group       `json:"group,omitempty"`
	MentorID    int64        `json:"mentor_id"`
	MeetingDate string       `json:"meeting_date"`
	Place       string       `json:"place"`
	Topic       string       `json:"topic"`
	Notes       string       `json:"notes,omitempty"`
	MeetingType string       `json:"meeting_type,omitempty"` // Offline, Online, Assignment
	Photos      []string     `json:"photos,omitempty"`
	Attendances []Attendance `json:"attendances,omitempty"`
}

// Announcement is a broadcast message shown on dashboards.
type Announcement struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	EventAt   string `json:"event_at,omitempty"`
	Location  string `json:"location,omitempty"`
	File      string `json:"file_path,omitempty"`
	Status    string `json:"status,omitempty"` // published, archived
	CreatedAt string `json:"created_at,omitempty"`
}

// Activity is an audit trail entry.
type Activity struct {
	ID          int64  `json:"id"`
	UserName    string `json:"user_name"`
	Action      string `json:"action"`
	Subject     string `json:"subject,omitempty"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// DashboardStats summarizes counts shown on admin dashboards.
type DashboardStats struct {
	TotalMentees      int            `json:"total_mentees"`
	TotalMentors      int            `json:"total_mentors"`
	TotalAdmins       int            `json:"total_admins"`
	TotalGroups       int            `json:"total_groups"`
	TotalMeetings     int            `json:"total_meetings"`
	MeetingsThisMonth int            `json:"meetings_this_month"`
	GenderBreakdown   map[string]int `json:"gender_breakdown,omitempty"`
}

// MentorStats summarizes a mentor's own groups.
type MentorStats struct {
	TotalGroups       int `json:"total_groups"`
	TotalMentees      int `json:"total_mentees"`
	TotalMeetings     int `json:"total_meetings"`
	MeetingsThisMonth int `json:"meetings_this_month"`
}

// ImportResult reports the outcome of a spreadsheet import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}
