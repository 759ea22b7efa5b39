// Package devserver is an in-process reference implementation of the Jejak
// Liqo REST backend. It serves local development and end-to-end tests.
package devserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/me/jejakliqo/internal/logging"
	"github.com/me/jejakliqo/pkg/model"
)

// Config configures the reference backend.
type Config struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int  // 0 uses bcrypt.DefaultCost
	Seed       bool // load demo accounts and data
}

// DefaultConfig returns a seeded backend with three-hour tokens.
func DefaultConfig() Config {
	return Config{
		JWTSecret: "jejakliqo-dev-secret",
		TokenTTL:  3 * time.Hour,
		Seed:      true,
	}
}

// Server is the reference backend. Routes are mounted under /api.
type Server struct {
	router chi.Router
	logger *slog.Logger
	cfg    Config
	now    func() time.Time
	store  *Store
	tokens *TokenRegistry
	knobs  *Knobs
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger.With("component", "devserver")
	}
}

// WithClock replaces time.Now for token timestamps and dashboard counters.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a Server with all routes registered.
func New(cfg Config, opts ...Option) (*Server, error) {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultConfig().TokenTTL
	}
	s := &Server{
		router: chi.NewRouter(),
		logger: logging.Discard(),
		cfg:    cfg,
		now:    time.Now,
		knobs:  &Knobs{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.store = NewStore(s.now, cfg.BcryptCost)
	s.tokens = NewTokenRegistry(cfg.JWTSecret, cfg.TokenTTL, s.now)
	if cfg.Seed {
		if err := s.store.Seed(); err != nil {
			s.tokens.Close()
			return nil, err
		}
	}
	s.routes()
	return s, nil
}

// Close releases background resources.
func (s *Server) Close() {
	s.tokens.Close()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Knobs returns the fault-injection switches.
func (s *Server) Knobs() *Knobs {
	return s.knobs
}

// Store returns the backing data, for tests and seeding.
func (s *Server) Store() *Store {
	return s.store
}

// Tokens returns the token registry.
func (s *Server) Tokens() *TokenRegistry {
	return s.tokens
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Route("/api", func(r chi.Router) {
		r.Use(s.knobsMiddleware)

		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/logout", s.handleLogout)
			r.Post("/logout-all", s.handleLogoutAll)
			r.Get("/user", s.handleUser)

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", s.handleGetProfile)
				r.Put("/", s.handleUpdateProfile)
				r.Put("/password", s.handleChangePassword)
				r.Post("/picture", s.handleUploadPicture)
			})

			r.Get("/announcements", s.handleListAnnouncements)
			r.Get("/announcements/{id}", s.handleGetAnnouncement)

			// Admin area.
			r.Group(func(r chi.Router) {
				r.Use(requireRole(model.RoleSuperAdmin, model.RoleAdmin))

				r.Get("/dashboard/stats", s.handleDashboardStats)

				r.Get("/activities", s.handleListActivities)
				r.Get("/activities/recent", s.handleRecentActivities)

				r.Route("/mentors", func(r chi.Router) {
					r.Get("/", s.handleListUsers(model.RoleMentor))
					r.Post("/", s.handleCreateUser(model.RoleMentor))
					r.Get("/{id}", s.handleGetUser(model.RoleMentor))
					r.Put("/{id}", s.handleUpdateUser(model.RoleMentor))
					r.Delete("/{id}", s.handleDeleteUser(model.RoleMentor))
				})
				r.Patch("/users/{id}/status", s.handleSetUserStatus)

				r.Route("/groups", func(r chi.Router) {
					r.Get("/", s.handleListGroups)
					r.Post("/", s.handleCreateGroup)
					r.Get("/{id}", s.handleGetGroup)
					r.Put("/{id}", s.handleUpdateGroup)
					r.Delete("/{id}", s.handleDeleteGroup)
					r.Get("/{id}/mentees", s.handleGroupMentees)
					r.Post("/{id}/mentees", s.handleAddGroupMentees)
				})

				r.Route("/mentees", func(r chi.Router) {
					r.Get("/", s.handleListMentees)
					r.Post("/", s.handleCreateMentee)
					r.Post("/move", s.handleMoveMentees)
					r.Put("/{id}", s.handleUpdateMentee)
					r.Delete("/{id}", s.handleDeleteMentee)
				})

				r.Get("/meetings", s.handleListMeetings)
				r.Delete("/meetings/{id}", s.handleDeleteMeeting)

				r.Post("/announcements", s.handleCreateAnnouncement)
				r.Post("/announcements/{id}", s.handleUpdateAnnouncement)
				r.Delete("/announcements/{id}", s.handleDeleteAnnouncement)

				r.Post("/import/{kind}", s.handleImport)
				r.Get("/import/{kind}/template", s.handleImportTemplate)
				r.Get("/export/{kind}", s.handleExport)

				// Admin accounts.
				r.Group(func(r chi.Router) {
					r.Use(requireRole(model.RoleSuperAdmin))
					r.Route("/admins", func(r chi.Router) {
						r.Get("/", s.handleListUsers(model.RoleAdmin))
						r.Post("/", s.handleCreateUser(model.RoleAdmin))
						r.Put("/{id}", s.handleUpdateUser(model.RoleAdmin))
						r.Delete("/{id}", s.handleDeleteUser(model.RoleAdmin))
					})
				})
			})

			// Mentors record meetings for their own groups.
			r.Group(func(r chi.Router) {
				r.Use(requireRole(model.RoleSuperAdmin, model.RoleAdmin, model.RoleMentor))
				r.Post("/meetings", s.handleCreateMeeting)
				r.Get("/meetings/{id}", s.handleGetMeeting)
				r.Post("/meetings/{id}", s.handleUpdateMeeting)
			})

			// Mentor area.
			r.Route("/mentor", func(r chi.Router) {
				r.Use(requireRole(model.RoleMentor))
				r.Get("/dashboard/stats", s.handleMentorStats)
				r.Get("/groups", s.handleMentorGroups)
				r.Get("/groups/{id}", s.handleMentorGroup)
				r.Get("/meetings", s.handleMentorMeetings)
			})
		})
	})
}

// listOptions reads page, per_page and search from the query.
func listOptions(r *http.Request) model.ListOptions {
	q := r.URL.Query()
	opts := model.DefaultListOptions()
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		opts.Page = v
	}
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil {
		opts.PerPage = v
	}
	opts.Search = q.Get("search")
	opts.Clamp()
	return opts
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}
