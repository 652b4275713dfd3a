package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/local/lessonplanner/internal/acquire"
	"github.com/local/lessonplanner/internal/course"
	"github.com/local/lessonplanner/internal/logger"
	"github.com/local/lessonplanner/internal/metrics"
	"github.com/local/lessonplanner/internal/session"
)

// multipartOverhead is the room left for form boundaries and headers on top
// of the file size limit.
const multipartOverhead = 64 << 10

func (w *Web) handleIndex(wr http.ResponseWriter, r *http.Request) {
	id := w.sessionID(wr, r)
	s, err := w.load(r.Context(), id)
	if err != nil {
		w.storeFailed(wr, id, err)
		return
	}
	w.render(wr, "index.html", w.page(s))
}

func (w *Web) handleText(wr http.ResponseWriter, r *http.Request) {
	id := w.sessionID(wr, r)
	if err := r.ParseForm(); err != nil {
		http.Error(wr, "invalid form", http.StatusBadRequest)
		return
	}
	if _, err := w.update(r.Context(), id, func(s *session.Session) error {
		return s.SetText(r.Form.Get("text"))
	}); err != nil && !errors.Is(err, session.ErrBusy) {
		w.storeFailed(wr, id, err)
		return
	}
	back(wr, r)
}

func (w *Web) handleUpload(wr http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := w.sessionID(wr, r)
	lg := logger.Session(id)
	limits := w.deps.Extractor.Limits()

	var op uint64
	if _, err := w.update(ctx, id, func(s *session.Session) error {
		if err := s.BeginAcquire(""); err != nil {
			return err
		}
		op = s.Op
		return nil
	}); err != nil {
		if !errors.Is(err, session.ErrBusy) {
			w.storeFailed(wr, id, err)
			return
		}
		back(wr, r)
		return
	}

	text, warn, err := w.readUpload(wr, r, limits)
	if err != nil {
		lg.Info().Err(err).Msg("upload rejected")
	}

	if _, serr := w.update(context.WithoutCancel(ctx), id, func(s *session.Session) error {
		if s.Op != op || s.State != session.Acquiring {
			lg.Info().Msg("discarding stale extraction result")
			return nil
		}
		if err != nil {
			return s.FailAcquire(err)
		}
		return s.FinishAcquire(text, warn)
	}); serr != nil {
		w.storeFailed(wr, id, serr)
		return
	}
	back(wr, r)
}

// readUpload enforces the size limit on the request before parsing it and
// on the file part before extraction.
func (w *Web) readUpload(wr http.ResponseWriter, r *http.Request, limits acquire.Limits) (text string, warn, err error) {
	tooLarge := &acquire.ValidationError{Code: acquire.CodeTooLarge, Message: "arquivo muito grande: o limite é de " + strconv.FormatInt(limits.MaxFileBytes>>20, 10) + " MB"}
	maxBody := limits.MaxFileBytes + multipartOverhead
	if limits.MaxFileBytes > 0 && r.ContentLength > maxBody {
		return "", nil, tooLarge
	}
	if limits.MaxFileBytes > 0 {
		r.Body = http.MaxBytesReader(wr, r.Body, maxBody)
	}
	if err := r.ParseMultipartForm(maxBody); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return "", nil, tooLarge
		}
		return "", nil, &acquire.ValidationError{Code: acquire.CodeWrongType, Message: "envio inválido"}
	}
	defer r.MultipartForm.RemoveAll()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		return "", nil, &acquire.ValidationError{Code: acquire.CodeInputRequired, Message: "escolha um arquivo PDF"}
	}
	defer file.Close()

	f := acquire.File{Name: hdr.Filename, MediaType: hdr.Header.Get("Content-Type"), Size: hdr.Size}
	if err := w.deps.Extractor.CheckFile(f); err != nil {
		return "", nil, err
	}
	if f.Data, err = io.ReadAll(file); err != nil {
		return "", nil, err
	}

	res, err := w.deps.Extractor.Extract(r.Context(), f, func(done, total int) {
		log.Debug().Str("file", f.Name).Int("page", done).Int("of", total).Msg("extraction progress")
	})
	if acquire.IsSoftExtraction(err) {
		return res.Text, err, nil
	}
	if err != nil {
		return "", nil, err
	}
	return res.Text, nil, nil
}

func (w *Web) handleGenerate(wr http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := w.sessionID(wr, r)
	lg := logger.Session(id)
	if err := r.ParseForm(); err != nil {
		http.Error(wr, "invalid form", http.StatusBadRequest)
		return
	}

	var (
		text string
		op   uint64
	)
	_, err := w.update(ctx, id, func(s *session.Session) error {
		if r.Form.Has("text") {
			if err := s.SetText(r.Form.Get("text")); err != nil {
				return err
			}
		}
		t, err := s.BeginRequest(w.deps.Config.Generation.MinInputChars)
		text, op = t, s.Op
		return err
	})
	if err != nil {
		var ve *acquire.ValidationError
		if !errors.Is(err, session.ErrBusy) && !errors.As(err, &ve) {
			w.storeFailed(wr, id, err)
			return
		}
		back(wr, r)
		return
	}

	cd, genErr := w.deps.Generator.Generate(ctx, text)

	if _, err := w.update(context.WithoutCancel(ctx), id, func(s *session.Session) error {
		if s.Op != op || s.State != session.Requesting {
			lg.Info().Msg("discarding stale generation result")
			return nil
		}
		if genErr != nil {
			return s.Fail(genErr)
		}
		return s.Succeed(cd)
	}); err != nil {
		w.storeFailed(wr, id, err)
		return
	}
	back(wr, r)
}

func (w *Web) handleDemo(wr http.ResponseWriter, r *http.Request) {
	id := w.sessionID(wr, r)
	_, err := w.update(r.Context(), id, func(s *session.Session) error {
		return s.AcceptDemo()
	})
	switch {
	case err == nil:
		metrics.IncPlan("demo")
		lg := logger.Session(id)
		lg.Info().Msg("demonstration plan loaded")
	case !errors.Is(err, session.ErrInvalidTransition):
		w.storeFailed(wr, id, err)
		return
	}
	back(wr, r)
}

func (w *Web) handleReset(wr http.ResponseWriter, r *http.Request) {
	id := w.sessionID(wr, r)
	if _, err := w.update(r.Context(), id, func(s *session.Session) error {
		s.Reset()
		return nil
	}); err != nil {
		w.storeFailed(wr, id, err)
		return
	}
	back(wr, r)
}

func (w *Web) navigate(wr http.ResponseWriter, r *http.Request, fn func(s *session.Session, id course.ID) error) {
	id := w.sessionID(wr, r)
	target, err := course.ParseID(r.PathValue("id"))
	if err != nil {
		http.NotFound(wr, r)
		return
	}
	if _, err := w.update(r.Context(), id, func(s *session.Session) error {
		return fn(s, target)
	}); err != nil {
		if errors.Is(err, session.ErrNoPlan) || errors.Is(err, session.ErrUnknownModule) || errors.Is(err, session.ErrUnknownLesson) {
			http.NotFound(wr, r)
			return
		}
		w.storeFailed(wr, id, err)
		return
	}
	back(wr, r)
}

func (w *Web) handleModule(wr http.ResponseWriter, r *http.Request) {
	w.navigate(wr, r, (*session.Session).SelectModule)
}

func (w *Web) handleLesson(wr http.ResponseWriter, r *http.Request) {
	w.navigate(wr, r, (*session.Session).SelectLesson)
}

func (w *Web) handleCloseLesson(wr http.ResponseWriter, r *http.Request) {
	id := w.sessionID(wr, r)
	if _, err := w.update(r.Context(), id, func(s *session.Session) error {
		s.CloseLesson()
		return nil
	}); err != nil {
		w.storeFailed(wr, id, err)
		return
	}
	back(wr, r)
}

func (w *Web) handleDismiss(wr http.ResponseWriter, r *http.Request) {
	id := w.sessionID(wr, r)
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil {
		http.NotFound(wr, r)
		return
	}
	if _, err := w.update(r.Context(), id, func(s *session.Session) error {
		return s.DismissNotice(n)
	}); err != nil && !errors.Is(err, session.ErrNoNotice) {
		w.storeFailed(wr, id, err)
		return
	}
	back(wr, r)
}

func (w *Web) handlePrint(wr http.ResponseWriter, r *http.Request) {
	id := w.sessionID(wr, r)
	s, err := w.load(r.Context(), id)
	if err != nil {
		w.storeFailed(wr, id, err)
		return
	}
	if s.Course == nil {
		back(wr, r)
		return
	}
	d := w.page(s)
	d.Title = s.Course.CourseName
	w.render(wr, "print.html", d)
}

type planResponse struct {
	Demo   bool               `json:"demonstration"`
	Course *course.CourseData `json:"course"`
}

func (w *Web) handlePlanJSON(wr http.ResponseWriter, r *http.Request) {
	id := w.sessionID(wr, r)
	s, err := w.load(r.Context(), id)
	if err != nil {
		w.storeFailed(wr, id, err)
		return
	}
	if s.Course == nil {
		writeJSON(wr, http.StatusNotFound, map[string]string{"error": "no plan loaded"})
		return
	}
	writeJSON(wr, http.StatusOK, planResponse{Demo: s.Demo, Course: s.Course})
}

func writeJSON(wr http.ResponseWriter, code int, v any) {
	wr.Header().Set("Content-Type", "application/json")
	wr.WriteHeader(code)
	_ = json.NewEncoder(wr).Encode(v)
}
