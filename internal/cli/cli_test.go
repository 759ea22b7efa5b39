package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/me/jejakliqo/internal/devserver"
	"github.com/me/jejakliqo/pkg/model"
)

// harness runs liqo commands against a seeded reference backend. Every
// command of one harness shares the same session file.
type harness struct {
	t       *testing.T
	srv     *devserver.Server
	url     string
	dir     string
	cfgPath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := devserver.DefaultConfig()
	cfg.BcryptCost = bcrypt.MinCost
	srv, err := devserver.New(cfg)
	if err != nil {
		t.Fatalf("devserver.New: %v", err)
	}
	t.Cleanup(srv.Close)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	cfgPath := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf("storage:\n  backend: file\n  path: %s\nauth:\n  retry_delay: 0s\n",
		filepath.Join(dir, "storage.json"))
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &harness{t: t, srv: srv, url: ts.URL + "/api", dir: dir, cfgPath: cfgPath}
}

// run executes one command line and returns stdout, stderr and the error.
func (h *harness) run(stdin string, args ...string) (string, string, error) {
	h.t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", h.cfgPath, "--server", h.url, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// mustRun fails the test when the command errors.
func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, errOut, err := h.run("", args...)
	if err != nil {
		h.t.Fatalf("liqo %s: %v\nstderr: %s", strings.Join(args, " "), err, errOut)
	}
	return out
}

func (h *harness) login(email string) {
	h.t.Helper()
	h.mustRun("login", "--email", email, "--password", devserver.SeedPassword)
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("login", "--email", "admin@jejakliqo.test", "--password", devserver.SeedPassword)
	if !strings.Contains(out, "Selamat datang, Admin Liqo (Admin)") {
		t.Errorf("login output = %q", out)
	}
	if !strings.Contains(out, "/admin/dashboard") {
		t.Errorf("login output lacks home path: %q", out)
	}

	out = h.mustRun("whoami")
	if !strings.Contains(out, "admin@jejakliqo.test") || !strings.Contains(out, "menit tersisa") {
		t.Errorf("whoami = %q", out)
	}

	var info whoami
	if err := json.Unmarshal([]byte(h.mustRun("whoami", "--verify", "-o", "json")), &info); err != nil {
		t.Fatalf("decode whoami json: %v", err)
	}
	if info.Role != string(model.RoleAdmin) || info.RemainingMin < 178 || info.ExpiringSoon {
		t.Errorf("whoami json = %+v", info)
	}

	if out := h.mustRun("logout"); !strings.Contains(out, "Berhasil logout.") {
		t.Errorf("logout = %q", out)
	}
	if h.srv.Tokens().Len() != 0 {
		t.Errorf("backend still holds %d tokens", h.srv.Tokens().Len())
	}
	if _, _, err := h.run("", "whoami"); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("whoami after logout = %v", err)
	}
}

func TestLoginPromptsForCredentials(t *testing.T) {
	h := newHarness(t)
	out, errOut, err := h.run("mentor@jejakliqo.test\n"+devserver.SeedPassword+"\n", "login")
	if err != nil {
		t.Fatalf("login: %v\n%s", err, errOut)
	}
	if !strings.Contains(out, "Email: ") || !strings.Contains(out, "Ustadz Hasan (Mentor)") {
		t.Errorf("login output = %q", out)
	}
}

func TestLoginFailureMessages(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("", "login", "--email", "admin@jejakliqo.test", "--password", "salah-sekali")
	if err == nil || err.Error() != "Email atau password salah." {
		t.Errorf("wrong password error = %v", err)
	}

	h.srv.Knobs().SetMaintenance(true)
	_, _, err = h.run("", "login", "--email", "admin@jejakliqo.test", "--password", devserver.SeedPassword)
	if err == nil || !strings.Contains(err.Error(), "pemeliharaan") {
		t.Errorf("maintenance error = %v", err)
	}
}

func TestRoleGatingHappensLocally(t *testing.T) {
	h := newHarness(t)
	h.login("mentor@jejakliqo.test")

	for _, args := range [][]string{
		{"mentors", "list"},
		{"admins", "list"},
		{"activities"},
		{"export", "mentees"},
	} {
		if _, _, err := h.run("", args...); !errors.Is(err, ErrForbidden) {
			t.Errorf("liqo %s: err = %v, want ErrForbidden", strings.Join(args, " "), err)
		}
	}

	out := h.mustRun("dashboard")
	if !strings.Contains(out, "Kelompok") || !strings.Contains(out, "Pertemuan bulan ini") {
		t.Errorf("mentor dashboard = %q", out)
	}

	out = h.mustRun("groups", "list")
	if !strings.Contains(out, "Halaqah Al-Fatih") || strings.Contains(out, "Halaqah Khadijah") {
		t.Errorf("mentor groups = %q", out)
	}
}

func TestAdminCannotManageAdmins(t *testing.T) {
	h := newHarness(t)
	h.login("admin@jejakliqo.test")
	if _, _, err := h.run("", "admins", "list"); !errors.Is(err, ErrForbidden) {
		t.Errorf("admin listing admins: %v", err)
	}

	h.mustRun("logout")
	h.login("superadmin@jejakliqo.test")
	out := h.mustRun("admins", "list")
	if !strings.Contains(out, "admin@jejakliqo.test") {
		t.Errorf("admins list = %q", out)
	}
}

func TestGroupsAndMentees(t *testing.T) {
	h := newHarness(t)
	h.login("admin@jejakliqo.test")

	out := h.mustRun("mentees", "create", "--name", "Zaid bin Tsabit", "--gender", model.GenderMale)
	if !strings.Contains(out, "Zaid bin Tsabit") {
		t.Errorf("create mentee = %q", out)
	}

	var groups []model.Group
	if err := json.Unmarshal([]byte(h.mustRun("groups", "list", "-o", "json")), &groups); err != nil {
		t.Fatalf("decode groups: %v", err)
	}
	if len(groups) != 2 || groups[0].Name != "Halaqah Al-Fatih" || groups[0].MenteeCount != 2 {
		t.Errorf("groups = %+v", groups)
	}

	out = h.mustRun("mentees", "list", "--gender", model.GenderFemale, "-o", "yaml")
	if !strings.Contains(out, "full_name: Siti Maryam") || strings.Contains(out, "Zaid") {
		t.Errorf("mentees yaml = %q", out)
	}

	_, _, err := h.run("", "groups", "create", "--name", "")
	if err == nil || !strings.Contains(err.Error(), "group_name:") || !strings.Contains(err.Error(), "mentor_id:") {
		t.Errorf("invalid group error = %v", err)
	}
}

func TestMentorRecordsMeeting(t *testing.T) {
	h := newHarness(t)
	h.login("mentor@jejakliqo.test")

	groups := h.srv.Store().Groups(0)
	own, other := groups[0], groups[1]
	mentees, err := h.srv.Store().GroupMentees(own.ID)
	if err != nil || len(mentees) == 0 {
		t.Fatalf("seeded mentees: %v", err)
	}
	photo := filepath.Join(h.dir, "kajian.jpg")
	if err := os.WriteFile(photo, []byte("jpeg"), 0o600); err != nil {
		t.Fatal(err)
	}

	out := h.mustRun("meetings", "create",
		"--group-id", fmt.Sprint(own.ID),
		"--date", "2026-10-01",
		"--topic", "Tazkiyatun Nafs",
		"--place", "Musala",
		"--attendance", fmt.Sprintf("%d:%s", mentees[0].ID, model.AttendancePresent),
		"--photo", photo,
	)
	if !strings.Contains(out, "1 kehadiran, 1 foto") {
		t.Errorf("create meeting = %q", out)
	}

	_, _, err = h.run("", "meetings", "create", "--group-id", fmt.Sprint(other.ID), "--date", "2026-10-01", "--topic", "x")
	if err == nil || !strings.Contains(err.Error(), "group_id:") {
		t.Errorf("meeting for another mentor's group: %v", err)
	}

	out = h.mustRun("meetings", "list")
	if !strings.Contains(out, "Tazkiyatun Nafs") {
		t.Errorf("meetings list = %q", out)
	}
}

func TestExportAndTemplate(t *testing.T) {
	h := newHarness(t)
	h.login("admin@jejakliqo.test")

	dest := filepath.Join(h.dir, "mentees.csv")
	h.mustRun("export", "mentees", "--out", dest)
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) != 4 {
		t.Errorf("export has %d lines:\n%s", len(lines), data)
	}

	out := h.mustRun("template", "groups", "--out", "-")
	if !strings.HasPrefix(out, "group_name,") {
		t.Errorf("template = %q", out)
	}

	csvPath := filepath.Join(h.dir, "baru.csv")
	if err := os.WriteFile(csvPath, []byte("full_name,gender\nHamzah,Ikhwan\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if out := h.mustRun("import", "mentees", csvPath); !strings.Contains(out, "1 data diimpor, 0 dilewati.") {
		t.Errorf("import = %q", out)
	}
}

func TestRevokedTokenClearsSession(t *testing.T) {
	h := newHarness(t)
	h.login("admin@jejakliqo.test")

	for _, u := range h.srv.Store().Users(model.RoleAdmin) {
		h.srv.Tokens().RevokeUser(u.ID)
	}

	_, errOut, err := h.run("", "groups", "list")
	if err == nil {
		t.Fatal("groups list succeeded with a revoked token")
	}
	if !strings.Contains(errOut, "Sesi tidak valid") || !strings.Contains(errOut, "liqo login") {
		t.Errorf("stderr = %q", errOut)
	}
	if _, _, err := h.run("", "whoami"); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("whoami after 401 = %v", err)
	}
}

func TestThemeSurvivesLogout(t *testing.T) {
	h := newHarness(t)
	h.mustRun("profile", "theme", "dark")
	h.login("admin@jejakliqo.test")
	h.mustRun("logout")
	if out := h.mustRun("profile", "theme"); !strings.Contains(out, "Tema: dark") {
		t.Errorf("theme = %q", out)
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("config", "show")
	if !strings.Contains(out, "base_url:") || !strings.Contains(out, h.url) {
		t.Errorf("config show lacks base url:\n%s", out)
	}
	if strings.Contains(out, devserver.DefaultConfig().JWTSecret) {
		t.Error("config show printed the JWT secret")
	}
}

func TestInvalidOutputFormat(t *testing.T) {
	h := newHarness(t)
	if _, _, err := h.run("", "whoami", "-o", "xml"); err == nil {
		t.Error("expected error for unknown output format")
	}
}
