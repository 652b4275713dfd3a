package web

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/local/lessonplanner/internal/acquire"
	"github.com/local/lessonplanner/internal/config"
	"github.com/local/lessonplanner/internal/course"
	"github.com/local/lessonplanner/internal/logger"
	"github.com/local/lessonplanner/internal/metrics"
	"github.com/local/lessonplanner/internal/planner"
	"github.com/local/lessonplanner/internal/session"
	"github.com/local/lessonplanner/internal/statuscheck"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	sessionCookie = "planner_session"
	authCookie    = "planner_auth"
)

// Deps are the collaborators of the web UI.
type Deps struct {
	Config    config.Config
	Store     session.Store
	Extractor *acquire.Extractor
	Generator *planner.Generator
	Health    *statuscheck.Checker
}

// Web serves the lesson planner UI.
type Web struct {
	tpl   *template.Template
	deps  Deps
	cfg   config.WebConfig
	locks *keyedMutex
}

func New(deps Deps) *Web {
	tpl := template.Must(template.New("").Funcs(template.FuncMap{
		"competency": competencyLabel,
	}).ParseFS(templateFS, "templates/*.html"))
	return &Web{tpl: tpl, deps: deps, cfg: deps.Config.Web, locks: newKeyedMutex()}
}

func (w *Web) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /login", w.handleLogin)
	mux.HandleFunc("POST /login", w.handleLogin)
	mux.HandleFunc("POST /logout", w.handleLogout)

	mux.HandleFunc("GET /{$}", w.requireAuth(w.handleIndex))
	mux.HandleFunc("POST /text", w.requireAuth(w.handleText))
	mux.HandleFunc("POST /upload", w.requireAuth(w.handleUpload))
	mux.HandleFunc("POST /generate", w.requireAuth(w.handleGenerate))
	mux.HandleFunc("POST /demo", w.requireAuth(w.handleDemo))
	mux.HandleFunc("POST /reset", w.requireAuth(w.handleReset))
	mux.HandleFunc("GET /module/{id}", w.requireAuth(w.handleModule))
	mux.HandleFunc("GET /lesson/{id}", w.requireAuth(w.handleLesson))
	mux.HandleFunc("POST /lesson/close", w.requireAuth(w.handleCloseLesson))
	mux.HandleFunc("POST /notice/{n}/dismiss", w.requireAuth(w.handleDismiss))
	mux.HandleFunc("GET /print", w.requireAuth(w.handlePrint))
	mux.HandleFunc("GET /api/plan", w.requireAuth(w.handlePlanJSON))

	mux.HandleFunc("GET /health", w.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
}

type pageData struct {
	Title       string
	Error       string
	S           *session.Session
	Module      *course.Module
	Lesson      *course.Lesson
	MaxMB       int64
	PageCap     int
	MinChars    int
	Provider    string
	Configured  bool
	AuthEnabled bool
}

func (w *Web) render(wr http.ResponseWriter, name string, data pageData) {
	wr.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := w.tpl.ExecuteTemplate(wr, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("render failed")
	}
}

func (w *Web) page(s *session.Session) pageData {
	d := pageData{
		S:           s,
		MaxMB:       w.deps.Config.Acquisition.MaxFileBytes >> 20,
		PageCap:     w.deps.Config.Acquisition.PageCap,
		MinChars:    w.deps.Config.Generation.MinInputChars,
		AuthEnabled: w.authEnabled(),
	}
	if w.deps.Generator != nil {
		d.Provider = w.deps.Generator.Provider()
		d.Configured = w.deps.Generator.Configured()
	}
	if s.Course != nil {
		d.Title = s.Course.CourseName
	}
	if m, ok := s.Module(); ok {
		d.Module = m
	}
	if l, ok := s.Lesson(); ok {
		d.Lesson = l
	}
	return d
}

func competencyLabel(cd *course.CourseData, id course.ID) string {
	if cd != nil {
		if c, ok := cd.Competency(id); ok {
			return "C" + id.String() + " " + c.Description
		}
	}
	return "C" + id.String()
}

// Auth

func (w *Web) authEnabled() bool { return w.cfg.Username != "" && w.cfg.PasswordHash != "" }

func (w *Web) authToken() string {
	mac := hmac.New(sha256.New, []byte(w.cfg.PasswordHash))
	mac.Write([]byte(w.cfg.Username))
	return hex.EncodeToString(mac.Sum(nil))
}

func (w *Web) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(wr http.ResponseWriter, r *http.Request) {
		if !w.authEnabled() {
			next(wr, r)
			return
		}
		c, err := r.Cookie(authCookie)
		if err != nil || !hmac.Equal([]byte(c.Value), []byte(w.authToken())) {
			http.Redirect(wr, r, "/login", http.StatusSeeOther)
			return
		}
		next(wr, r)
	}
}

func (w *Web) handleLogin(wr http.ResponseWriter, r *http.Request) {
	if !w.authEnabled() {
		http.Redirect(wr, r, "/", http.StatusSeeOther)
		return
	}
	if r.Method == http.MethodGet {
		w.render(wr, "login.html", pageData{Title: "Entrar", Error: r.URL.Query().Get("error")})
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Redirect(wr, r, "/login?error=formul%C3%A1rio+inv%C3%A1lido", http.StatusSeeOther)
		return
	}
	userOK := hmac.Equal([]byte(r.Form.Get("username")), []byte(w.cfg.Username))
	passErr := bcrypt.CompareHashAndPassword([]byte(w.cfg.PasswordHash), []byte(r.Form.Get("password")))
	if !userOK || passErr != nil {
		log.Warn().Str("remote", r.RemoteAddr).Msg("login rejected")
		http.Redirect(wr, r, "/login?error=usu%C3%A1rio+ou+senha+inv%C3%A1lidos", http.StatusSeeOther)
		return
	}
	http.SetCookie(wr, &http.Cookie{
		Name: authCookie, Value: w.authToken(), Path: "/",
		HttpOnly: true, Secure: w.cfg.CookieSecure, SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(wr, r, "/", http.StatusSeeOther)
}

func (w *Web) handleLogout(wr http.ResponseWriter, r *http.Request) {
	http.SetCookie(wr, &http.Cookie{Name: authCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(wr, r, "/login", http.StatusSeeOther)
}

// Sessions

// sessionID returns the id from the cookie, issuing a new one when absent.
func (w *Web) sessionID(wr http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := session.New().ID
	http.SetCookie(wr, &http.Cookie{
		Name: sessionCookie, Value: id, Path: "/",
		HttpOnly: true, Secure: w.cfg.CookieSecure, SameSite: http.SameSiteLaxMode,
	})
	return id
}

// update loads the session under its lock, applies fn and saves the result.
func (w *Web) update(ctx context.Context, id string, fn func(s *session.Session) error) (*session.Session, error) {
	unlock := w.locks.Lock(id)
	defer unlock()
	s, err := w.load(ctx, id)
	if err != nil {
		return nil, err
	}
	fnErr := fn(s)
	if err := w.deps.Store.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, fnErr
}

func (w *Web) load(ctx context.Context, id string) (*session.Session, error) {
	s, err := w.deps.Store.Get(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		s = session.New()
		s.ID = id
		return s, nil
	}
	return s, err
}

func (w *Web) storeFailed(wr http.ResponseWriter, id string, err error) {
	lg := logger.Session(id)
	lg.Error().Err(err).Msg("session store failed")
	http.Error(wr, "session unavailable", http.StatusServiceUnavailable)
}

func back(wr http.ResponseWriter, r *http.Request) {
	http.Redirect(wr, r, "/", http.StatusSeeOther)
}

// keyedMutex serializes work per session id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex { return &keyedMutex{locks: map[string]*keyedEntry{}} }

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (w *Web) handleHealth(wr http.ResponseWriter, r *http.Request) {
	if w.deps.Health == nil {
		writeJSON(wr, http.StatusOK, map[string]any{"ok": true, "time": time.Now().UTC()})
		return
	}
	sum := w.deps.Health.Summary(r.Context())
	code := http.StatusOK
	if !sum.OK {
		code = http.StatusServiceUnavailable
	}
	writeJSON(wr, code, sum)
}
