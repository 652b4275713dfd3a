// Package session tracks what one browser (or CLI run) is doing: the source
// text, the single in-flight operation, the generated plan and what part of
// it is being viewed.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/local/lessonplanner/internal/acquire"
	"github.com/local/lessonplanner/internal/course"
	"github.com/local/lessonplanner/internal/planner"
)

// State is the UI state of a session.
type State string

const (
	Idle           State = "idle"
	Acquiring      State = "acquiring"
	Ready          State = "ready"
	Requesting     State = "requesting"
	Success        State = "success"
	Failed         State = "failed"
	FallbackLoaded State = "fallback_loaded"
	Browsing       State = "browsing"
)

var (
	ErrBusy              = errors.New("another operation is in progress")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrNoPlan            = errors.New("no plan loaded")
	ErrUnknownModule     = errors.New("unknown module")
	ErrUnknownLesson     = errors.New("unknown lesson")
	ErrNoNotice          = errors.New("no such notice")
)

// Level is the severity of a notice.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Notice is a dismissible message shown to the user.
type Notice struct {
	Level   Level     `json:"level"`
	Kind    string    `json:"kind,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Session is the state of one user's work. It is not safe for concurrent
// use; callers serialize access per session.
type Session struct {
	ID       string `json:"id"`
	State    State  `json:"state"`
	Text     string `json:"text"`
	FileName string `json:"file_name,omitempty"`

	Course      *course.CourseData `json:"course,omitempty"`
	Demo        bool               `json:"demo"`
	DemoOffered bool               `json:"demo_offered"`

	SelectedModule course.ID `json:"selected_module,omitempty"`
	SelectedLesson course.ID `json:"selected_lesson,omitempty"`

	Notices []Notice `json:"notices,omitempty"`

	// Op increases whenever an operation starts or the session is reset, so
	// a finishing operation can tell whether it is still current.
	Op        uint64    `json:"op"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an idle session with a fresh id.
func New() *Session {
	return &Session{ID: uuid.NewString(), State: Idle, UpdatedAt: time.Now()}
}

// Busy reports whether an acquisition or generation is in flight.
func (s *Session) Busy() bool { return s.State == Acquiring || s.State == Requesting }

func (s *Session) touch() { s.UpdatedAt = time.Now() }

func (s *Session) notify(level Level, kind, msg string) {
	s.Notices = append(s.Notices, Notice{Level: level, Kind: kind, Message: msg, At: time.Now()})
}

func (s *Session) idleOrReady() State {
	if s.Course != nil {
		return Browsing
	}
	if s.Text != "" {
		return Ready
	}
	return Idle
}

// BeginAcquire starts reading a document.
func (s *Session) BeginAcquire(fileName string) error {
	if s.Busy() {
		return ErrBusy
	}
	s.State = Acquiring
	s.FileName = fileName
	s.Op++
	s.touch()
	return nil
}

// FinishAcquire places extracted text in the input area. A soft extraction
// warning is kept as a notice.
func (s *Session) FinishAcquire(text string, warn error) error {
	if s.State != Acquiring {
		return fmt.Errorf("%w: finish acquire from %s", ErrInvalidTransition, s.State)
	}
	s.Text = text
	if warn != nil {
		s.notify(LevelWarning, "extraction", noticeMessage(warn))
	}
	s.State = s.idleOrReady()
	s.touch()
	return nil
}

// FailAcquire records a rejected or unreadable document. Previously entered
// text is kept.
func (s *Session) FailAcquire(err error) error {
	if s.State != Acquiring {
		return fmt.Errorf("%w: fail acquire from %s", ErrInvalidTransition, s.State)
	}
	s.notify(LevelError, kindOf(err), noticeMessage(err))
	s.State = s.idleOrReady()
	s.touch()
	return nil
}

// SetText replaces the source text.
func (s *Session) SetText(text string) error {
	if s.Busy() {
		return ErrBusy
	}
	s.Text = text
	switch s.State {
	case Idle, Ready, Failed:
		if text == "" {
			s.State = Idle
		} else {
			s.State = Ready
		}
	}
	s.touch()
	return nil
}

// BeginRequest starts a generation request after checking the text. When the
// check fails the session is left as it was, apart from a new notice.
func (s *Session) BeginRequest(minChars int) (string, error) {
	if s.Busy() {
		return "", ErrBusy
	}
	text, err := acquire.CheckInput(s.Text, minChars)
	if err != nil {
		s.notify(LevelError, kindOf(err), noticeMessage(err))
		s.touch()
		return "", err
	}
	s.State = Requesting
	s.DemoOffered = false
	s.Op++
	s.touch()
	return text, nil
}

// Succeed shows the generated plan, selecting its first module.
func (s *Session) Succeed(cd *course.CourseData) error {
	if s.State != Requesting {
		return fmt.Errorf("%w: succeed from %s", ErrInvalidTransition, s.State)
	}
	if cd == nil {
		return ErrNoPlan
	}
	s.State = Success
	s.show(cd, false)
	return nil
}

func (s *Session) show(cd *course.CourseData, demo bool) {
	s.Course = cd
	s.Demo = demo
	s.DemoOffered = false
	s.SelectedModule, s.SelectedLesson = 0, 0
	if m, ok := cd.FirstModule(); ok {
		s.SelectedModule = m.ID
	}
	s.State = Browsing
	s.touch()
}

// Fail records a failed generation. A configuration failure offers the
// demonstration plan instead of a plain failure.
func (s *Session) Fail(err error) error {
	if s.State != Requesting {
		return fmt.Errorf("%w: fail from %s", ErrInvalidTransition, s.State)
	}
	s.notify(LevelError, kindOf(err), noticeMessage(err))
	s.State = Failed
	if planner.IsConfiguration(err) {
		s.OfferDemo()
	}
	s.touch()
	return nil
}

// OfferDemo makes the demonstration plan available for an explicit accept.
func (s *Session) OfferDemo() {
	s.DemoOffered = true
	s.State = FallbackLoaded
	s.touch()
}

// AcceptDemo shows the demonstration plan. It stays flagged as such until
// the session is reset or a real plan replaces it.
func (s *Session) AcceptDemo() error {
	if !s.DemoOffered || s.State != FallbackLoaded {
		return fmt.Errorf("%w: demo not offered", ErrInvalidTransition)
	}
	s.show(planner.Demo(), true)
	return nil
}

// SelectModule shows a module and closes any open lesson.
func (s *Session) SelectModule(id course.ID) error {
	if s.Course == nil {
		return ErrNoPlan
	}
	if _, ok := s.Course.Module(id); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownModule, id)
	}
	s.SelectedModule = id
	s.SelectedLesson = 0
	s.touch()
	return nil
}

// SelectLesson opens a lesson of the selected module.
func (s *Session) SelectLesson(id course.ID) error {
	m, ok := s.Module()
	if !ok {
		return ErrNoPlan
	}
	if _, ok := m.Lesson(id); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownLesson, id)
	}
	s.SelectedLesson = id
	s.touch()
	return nil
}

// CloseLesson returns to the module view.
func (s *Session) CloseLesson() {
	s.SelectedLesson = 0
	s.touch()
}

// Module returns the selected module.
func (s *Session) Module() (*course.Module, bool) {
	if s.Course == nil {
		return nil, false
	}
	return s.Course.Module(s.SelectedModule)
}

// Lesson returns the open lesson.
func (s *Session) Lesson() (*course.Lesson, bool) {
	m, ok := s.Module()
	if !ok || s.SelectedLesson == 0 {
		return nil, false
	}
	return m.Lesson(s.SelectedLesson)
}

// Reset clears everything but the id. Any operation still in flight is
// discarded when it finishes.
func (s *Session) Reset() {
	*s = Session{ID: s.ID, State: Idle, Op: s.Op + 1}
	s.touch()
}

// DismissNotice removes the i-th notice. Dismissing the demo offer falls back
// to a plain failure.
func (s *Session) DismissNotice(i int) error {
	if i < 0 || i >= len(s.Notices) {
		return ErrNoNotice
	}
	if s.State == FallbackLoaded && s.Notices[i].Kind == kindConfig {
		s.DemoOffered = false
		s.State = Failed
	}
	s.Notices = append(s.Notices[:i], s.Notices[i+1:]...)
	s.touch()
	return nil
}

const kindConfig = "configuration"

func kindOf(err error) string {
	var (
		ve *acquire.ValidationError
		ee *acquire.ExtractionError
		ge *planner.GenerationError
	)
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &ee):
		return "extraction"
	case planner.IsConfiguration(err):
		return kindConfig
	case errors.As(err, &ge):
		return "generation"
	}
	return "error"
}

func noticeMessage(err error) string {
	var (
		ve *acquire.ValidationError
		ee *acquire.ExtractionError
		ge *planner.GenerationError
		ce *planner.ConfigurationError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &ee):
		return ee.Message
	case errors.As(err, &ce):
		msg := "O serviço de IA não está configurado"
		if ce.Hint != "" {
			msg += " (" + ce.Hint + ")"
		}
		return msg + ". Você pode carregar um plano de demonstração."
	case errors.As(err, &ge):
		return ge.Message()
	}
	return err.Error()
}
