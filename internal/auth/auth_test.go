package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/me/jejakliqo/internal/apiclient"
	"github.com/me/jejakliqo/internal/session"
	"github.com/me/jejakliqo/internal/storage"
	"github.com/me/jejakliqo/pkg/model"
)

var testNow = time.Unix(1_700_000_000, 0)

type harness struct {
	ctrl     *Controller
	sessions *session.Manager
	kv       *storage.MemoryStore
	states   []State
	mu       sync.Mutex
}

func (h *harness) observe(s State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, s)
}

func (h *harness) seenStates() []State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]State(nil), h.states...)
}

func newHarness(t *testing.T, handler http.HandlerFunc, opts LoginOptions) *harness {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	h := &harness{kv: storage.NewMemoryStore()}
	h.sessions = session.NewManager(h.kv, session.WithClock(func() time.Time { return testNow }))
	client := apiclient.New(apiclient.DefaultConfig().WithBaseURL(srv.URL), h.sessions,
		apiclient.WithScheduler(func(time.Duration, func()) {}),
	)
	h.ctrl = New(client, WithLoginOptions(opts), WithStateObserver(h.observe))
	h.ctrl.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return h
}

func fastOptions() LoginOptions {
	o := DefaultLoginOptions()
	o.FirstTimeout = 100 * time.Millisecond
	o.RetryTimeout = 100 * time.Millisecond
	o.RetryDelay = 0
	return o
}

// stall holds a request until the client gives up. The body is drained first
// so the server notices the disconnect and cancels r.Context().
func stall(r *http.Request) {
	io.Copy(io.Discard, r.Body)
	select {
	case <-r.Context().Done():
	case <-time.After(2 * time.Second):
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func loginOK(w http.ResponseWriter, expires any) {
	data := map[string]any{
		"token": "tok-123",
		"user": map[string]any{
			"id": 7, "name": "Ustadz Hasan", "email": "hasan@example.com", "role": "mentor",
		},
	}
	if expires != nil {
		data["token_expires_at"] = expires
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "message": "ok", "data": data})
}

func TestLogin_StoresSession(t *testing.T) {
	expires := testNow.Add(2 * time.Hour).Unix()
	var gotBody credentials
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != PathLogin {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		loginOK(w, expires)
	}, fastOptions())

	res, err := h.ctrl.Login(context.Background(), "hasan@example.com", "rahasia")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if gotBody.Email != "hasan@example.com" || gotBody.Password != "rahasia" {
		t.Errorf("body = %+v", gotBody)
	}
	if res.User.Role != model.RoleMentor || res.User.ID != 7 {
		t.Errorf("user = %+v", res.User)
	}
	if !res.ExpiresAt.Equal(time.UnixMilli(expires * 1000)) {
		t.Errorf("ExpiresAt = %v, want %v", res.ExpiresAt, time.Unix(expires, 0))
	}

	raw, _, _ := h.kv.Get(context.Background(), session.KeyExpiresAt)
	if want := time.Unix(expires, 0).UnixMilli(); raw != jsonInt(want) {
		t.Errorf("stored expiry = %q, want %d", raw, want)
	}

	states := h.seenStates()
	if len(states) == 0 || states[len(states)-1] != StateSuccess {
		t.Errorf("states = %v", states)
	}
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestLogin_DefaultExpiry(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		loginOK(w, nil)
	}, fastOptions())

	res, err := h.ctrl.Login(context.Background(), "a@b.c", "x")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if want := testNow.Add(session.DefaultTokenLifetime); !res.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", res.ExpiresAt, want)
	}
}

func TestLogin_TopLevelPayload(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"token":            "tok",
			"user":             map[string]any{"id": 1, "name": "A", "email": "a@b.c", "role": "admin"},
			"token_expires_at": "1700003600",
		})
	}, fastOptions())

	res, err := h.ctrl.Login(context.Background(), "a@b.c", "x")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.ExpiresAt.Equal(time.Unix(1_700_003_600, 0)) {
		t.Errorf("ExpiresAt = %v", res.ExpiresAt)
	}
}

func TestLogin_MalformedResponse(t *testing.T) {
	cases := map[string]any{
		"missing token": map[string]any{"data": map[string]any{"user": map[string]any{"id": 1}}},
		"null user":     map[string]any{"data": map[string]any{"token": "t", "user": nil}},
		"empty object":  map[string]any{},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, body)
			}, fastOptions())

			_, err := h.ctrl.Login(context.Background(), "a@b.c", "x")
			if KindOf(err) != KindMalformedResponse {
				t.Fatalf("err = %v, want malformed response", err)
			}
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("err does not wrap ErrMalformedResponse: %v", err)
			}
			if h.sessions.IsAuthenticated(context.Background()) {
				t.Error("session stored from malformed response")
			}
		})
	}
}

func TestLogin_Classification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		message  string
		wantKind Kind
	}{
		{"maintenance", http.StatusInternalServerError, `Attempt to read property "id" on null`, KindServerMaintenance},
		{"server error", http.StatusInternalServerError, "Server Error", KindServerError},
		{"invalid format", http.StatusUnprocessableEntity, "The email field must be a valid email address.", KindInvalidFormat},
		{"wrong credentials", http.StatusUnauthorized, "Invalid credentials", KindWrongCredentials},
		{"forbidden unclassified", http.StatusForbidden, "Account disabled", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				writeJSON(w, tt.status, map[string]any{"status": "error", "message": tt.message})
			}, fastOptions())

			_, err := h.ctrl.Login(context.Background(), "a@b.c", "x")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := KindOf(err); got != tt.wantKind {
				t.Errorf("kind = %q, want %q (err %v)", got, tt.wantKind, err)
			}
			if got := apiclient.StatusCode(err); got != tt.status {
				t.Errorf("status = %d, want %d", got, tt.status)
			}
			if hits.Load() != 1 {
				t.Errorf("attempts = %d, want 1 for a non-transient failure", hits.Load())
			}
			if tt.wantKind != "" && UserMessage(err) != messages[tt.wantKind] {
				t.Errorf("UserMessage = %q", UserMessage(err))
			}
		})
	}
}

func TestLogin_RetryBound(t *testing.T) {
	for _, maxRetries := range []int{0, 1, 2} {
		var hits atomic.Int32
		opts := fastOptions()
		opts.MaxRetries = maxRetries
		h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			stall(r)
		}, opts)

		_, err := h.ctrl.Login(context.Background(), "a@b.c", "x")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("MaxRetries=%d: err = %v, want deadline exceeded", maxRetries, err)
		}
		if got, want := int(hits.Load()), maxRetries+1; got != want {
			t.Errorf("MaxRetries=%d: attempts = %d, want %d", maxRetries, got, want)
		}
		states := h.seenStates()
		if states[len(states)-1] != StateFailed {
			t.Errorf("final state = %v", states[len(states)-1])
		}
	}
}

func TestLogin_RetryThenSuccess(t *testing.T) {
	var hits atomic.Int32
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			stall(r)
			return
		}
		loginOK(w, nil)
	}, fastOptions())

	if _, err := h.ctrl.Login(context.Background(), "a@b.c", "x"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("attempts = %d, want 2", hits.Load())
	}
	want := []State{StateIdle, StateRequesting, StateRetrying, StateRequesting, StateSuccess}
	got := h.seenStates()
	if len(got) != len(want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("states[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLogin_CanceledDuringDelay(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		stall(r)
	}, fastOptions())
	h.ctrl.sleep = sleepContext
	h.ctrl.opts.RetryDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	h.ctrl.observe = func(s State) {
		if s == StateRetrying {
			cancel()
		}
	}
	_, err := h.ctrl.Login(ctx, "a@b.c", "x")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want canceled", err)
	}
}

func TestLogin_ClearsExpiredLeftover(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("stale token sent: %q", r.Header.Get("Authorization"))
		}
		loginOK(w, nil)
	}, fastOptions())

	user := &model.User{ID: 1, Name: "A", Role: model.RoleAdmin}
	if err := h.sessions.SetAuthData(context.Background(), "old", user, testNow.Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}
	if _, err := h.ctrl.Login(context.Background(), "a@b.c", "x"); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func seedSession(t *testing.T, h *harness) {
	t.Helper()
	user := &model.User{ID: 3, Name: "Admin", Email: "admin@example.com", Role: model.RoleAdmin}
	if err := h.sessions.SetAuthData(context.Background(), "tok", user, testNow.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := h.sessions.SetPreference(context.Background(), session.KeyTheme, "dark"); err != nil {
		t.Fatal(err)
	}
}

func TestLogout_ClearsEvenWhenServerFails(t *testing.T) {
	for _, path := range []string{PathLogout, PathLogoutAll} {
		var gotPath, gotAuth string
		h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "boom"})
		}, fastOptions())
		seedSession(t, h)

		var err error
		if path == PathLogout {
			err = h.ctrl.Logout(context.Background())
		} else {
			err = h.ctrl.LogoutAll(context.Background())
		}
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if gotPath != path || gotAuth != "Bearer tok" {
			t.Errorf("server saw %s with auth %q", gotPath, gotAuth)
		}
		if h.sessions.IsAuthenticated(context.Background()) {
			t.Errorf("%s: session survived", path)
		}
		if theme, _, _ := h.kv.Get(context.Background(), session.KeyTheme); theme != "dark" {
			t.Errorf("%s: theme = %q, want preserved", path, theme)
		}
	}
}

func TestLogout_NoSessionSkipsServer(t *testing.T) {
	var hits atomic.Int32
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}, fastOptions())

	if err := h.ctrl.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("server called %d times", hits.Load())
	}
}

func TestValidateToken(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != PathUser {
				t.Errorf("path = %s", r.URL.Path)
			}
			writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
		}, fastOptions())
		seedSession(t, h)

		user, err := h.ctrl.ValidateToken(context.Background())
		if err != nil {
			t.Fatalf("ValidateToken: %v", err)
		}
		if user == nil || user.ID != 3 {
			t.Errorf("user = %+v", user)
		}
	})

	for _, status := range []int{http.StatusUnauthorized, apiclient.StatusPageExpired} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, status, map[string]any{"message": "nope"})
			}, fastOptions())
			seedSession(t, h)

			user, err := h.ctrl.ValidateToken(context.Background())
			if err == nil || user != nil {
				t.Fatalf("ValidateToken = %v, %v; want error", user, err)
			}
			if apiclient.StatusCode(err) != status {
				t.Errorf("status = %d", apiclient.StatusCode(err))
			}
			if h.sessions.IsAuthenticated(context.Background()) {
				t.Error("session survived failed validation")
			}
		})
	}

	t.Run("server error keeps session", func(t *testing.T) {
		h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "boom"})
		}, fastOptions())
		seedSession(t, h)

		if _, err := h.ctrl.ValidateToken(context.Background()); err == nil {
			t.Fatal("expected error")
		}
		if !h.sessions.IsAuthenticated(context.Background()) {
			t.Error("session purged on 500")
		}
	})
}

func TestCurrentUser(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("CurrentUser contacted the server")
	}, fastOptions())

	user, err := h.ctrl.CurrentUser(context.Background())
	if err != nil || user != nil {
		t.Fatalf("CurrentUser = %v, %v; want nil, nil", user, err)
	}
	seedSession(t, h)
	user, err = h.ctrl.CurrentUser(context.Background())
	if err != nil || user == nil || user.Name != "Admin" {
		t.Fatalf("CurrentUser = %+v, %v", user, err)
	}
}

func TestUserMessage_Unclassified(t *testing.T) {
	if got := UserMessage(errors.New("dial tcp: refused")); got == "" {
		t.Error("empty message for unclassified error")
	}
}

func TestLogin_ExpiryOutOfRange(t *testing.T) {
	for name, expires := range map[string]any{
		"float":   9.3e15,
		"string":  "99999999999999999999",
		"integer": int64(9_300_000_000_000_000),
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
				loginOK(w, expires)
			}, fastOptions())

			res, err := h.ctrl.Login(context.Background(), "a@b.c", "x")
			if KindOf(err) != KindMalformedResponse {
				t.Fatalf("Login = %+v, %v; want malformed response", res, err)
			}
			if h.sessions.IsAuthenticated(context.Background()) {
				t.Error("session stored with out-of-range expiry")
			}
			if states := h.seenStates(); states[len(states)-1] != StateFailed {
				t.Errorf("final state = %v", states[len(states)-1])
			}
		})
	}
}

func TestLogin_ExpiredOnArrival(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		loginOK(w, testNow.Add(-time.Minute).Unix())
	}, fastOptions())

	_, err := h.ctrl.Login(context.Background(), "a@b.c", "x")
	if KindOf(err) != KindMalformedResponse {
		t.Fatalf("err = %v, want malformed response", err)
	}
	if h.sessions.IsAuthenticated(context.Background()) {
		t.Error("expired session reported as authenticated")
	}
}

func TestLoginLogout_CorruptFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	kv, err := storage.NewFileStore(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case PathLogin:
			loginOK(w, testNow.Add(time.Hour).Unix())
		case PathLogout:
			writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
		}
	}))
	t.Cleanup(srv.Close)

	sessions := session.NewManager(kv, session.WithClock(func() time.Time { return testNow }))
	ctrl := New(apiclient.New(apiclient.DefaultConfig().WithBaseURL(srv.URL), sessions,
		apiclient.WithScheduler(func(time.Duration, func()) {})))

	if sess, err := sessions.GetAuthData(ctx); err != nil || sess != nil {
		t.Fatalf("GetAuthData = %+v, %v; want absent", sess, err)
	}
	if _, err := ctrl.Login(ctx, "a@b.c", "x"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !sessions.IsAuthenticated(ctx) {
		t.Fatal("expected a session after login")
	}

	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if sessions.IsAuthenticated(ctx) {
		t.Error("session survived logout")
	}
}
