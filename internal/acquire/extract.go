// Package acquire turns uploaded PDFs and pasted text into the source text a
// course plan is generated from.
package acquire

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/local/lessonplanner/internal/config"
	"github.com/local/lessonplanner/internal/metrics"
)

const pdfMediaType = "application/pdf"

// Limits bounds a single extraction.
type Limits struct {
	MaxFileBytes int64
	PageCap      int
	MinChars     int
}

// File is a document handed to the extractor. Size is the declared size; when
// zero the length of Data is used.
type File struct {
	Name      string
	MediaType string
	Size      int64
	Data      []byte
}

func (f File) size() int64 {
	if f.Size > 0 {
		return f.Size
	}
	return int64(len(f.Data))
}

// Result is the outcome of an extraction.
type Result struct {
	Text       string
	Pages      int // pages read
	TotalPages int
	Truncated  bool
	Backend    string
	Duration   time.Duration
}

// ProgressFunc is called after each page with the number of pages read so far
// and the number that will be read in total.
type ProgressFunc func(done, total int)

// Preflight returns the page count of a PDF without extracting text.
type Preflight func(data []byte) (int, error)

// Extractor reads text from PDFs within the configured limits.
type Extractor struct {
	limits    Limits
	opener    Opener
	preflight Preflight
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithPreflight replaces the pdfcpu page counter; nil disables preflight.
func WithPreflight(p Preflight) Option { return func(e *Extractor) { e.preflight = p } }

// New creates an extractor backed by opener.
func New(limits Limits, opener Opener, opts ...Option) *Extractor {
	if opener == nil {
		opener = FitzOpener{}
	}
	e := &Extractor{limits: limits, opener: opener, preflight: PDFCPUPageCount}
	for _, o := range opts {
		o(e)
	}
	return e
}

// NewFromConfig builds an extractor from the acquisition settings.
func NewFromConfig(cfg config.AcquisitionConfig) *Extractor {
	return New(Limits{
		MaxFileBytes: cfg.MaxFileBytes,
		PageCap:      cfg.PageCap,
		MinChars:     cfg.MinChars,
	}, OpenerFor(cfg.Backend))
}

// Limits returns the configured bounds.
func (e *Extractor) Limits() Limits { return e.limits }

// CheckFile validates the declared media type and size of a file. It never
// touches the content and is safe to call before the body has been read.
func (e *Extractor) CheckFile(f File) error {
	if !isPDFType(f.MediaType, f.Name) {
		return &ValidationError{Code: CodeWrongType, Message: "apenas arquivos PDF são aceitos"}
	}
	if e.limits.MaxFileBytes > 0 && f.size() > e.limits.MaxFileBytes {
		return &ValidationError{
			Code:    CodeTooLarge,
			Message: fmt.Sprintf("arquivo muito grande: %s excede o limite de %s", humanBytes(f.size()), humanBytes(e.limits.MaxFileBytes)),
		}
	}
	return nil
}

// Extract reads the text of up to PageCap pages, in page order, joined with a
// single newline. When the text is shorter than MinChars the text is still
// returned together with a soft *ExtractionError.
func (e *Extractor) Extract(ctx context.Context, f File, progress ProgressFunc) (Result, error) {
	start := time.Now()
	backend := e.opener.Name()
	res := Result{Backend: backend}

	if err := e.CheckFile(f); err != nil {
		metrics.IncExtraction(backend, "rejected")
		return res, err
	}
	if int64(len(f.Data)) > f.size() {
		// declared size lied
		f.Size = int64(len(f.Data))
		if err := e.CheckFile(f); err != nil {
			metrics.IncExtraction(backend, "rejected")
			return res, err
		}
	}
	if !mimetype.Detect(f.Data).Is(pdfMediaType) {
		metrics.IncExtraction(backend, "rejected")
		return res, &ValidationError{Code: CodeWrongType, Message: "o conteúdo do arquivo não é um PDF"}
	}

	lg := log.With().Str("file", f.Name).Str("backend", backend).Logger()

	if e.preflight != nil {
		if n, err := e.preflight(f.Data); err != nil {
			if isEncrypted(err) {
				metrics.IncExtraction(backend, "failed")
				lg.Warn().Err(err).Msg("pdf is password protected")
				return res, &ExtractionError{Message: msgUnreadable, Err: err}
			}
			lg.Warn().Err(err).Msg("pdf preflight failed; trying backend")
		} else {
			lg.Debug().Int("pages", n).Msg("pdf preflight ok")
		}
	}

	doc, err := e.opener.Open(f.Data)
	if err != nil {
		metrics.IncExtraction(backend, "failed")
		lg.Warn().Err(err).Msg("pdf open failed")
		return res, &ExtractionError{Message: msgUnreadable, Err: err}
	}
	defer doc.Close()

	res.TotalPages = doc.NumPage()
	limit := res.TotalPages
	if e.limits.PageCap > 0 && limit > e.limits.PageCap {
		limit = e.limits.PageCap
		res.Truncated = true
	}

	pages := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		if err := ctx.Err(); err != nil {
			metrics.IncExtraction(backend, "canceled")
			return Result{Backend: backend}, err
		}
		text, err := doc.Text(i)
		if err != nil {
			metrics.IncExtraction(backend, "failed")
			lg.Warn().Err(err).Int("page", i+1).Msg("page text extraction failed")
			return Result{Backend: backend}, &ExtractionError{Message: msgUnreadable, Err: err}
		}
		pages = append(pages, strings.TrimSpace(text))
		if progress != nil {
			progress(i+1, limit)
		}
	}

	res.Text = strings.Join(pages, "\n")
	res.Pages = limit
	res.Duration = time.Since(start)
	metrics.AddPages(limit)

	lg.Info().
		Int("pages", res.Pages).
		Int("total_pages", res.TotalPages).
		Bool("truncated", res.Truncated).
		Int("chars", utf8.RuneCountInString(res.Text)).
		Dur("duration", res.Duration).
		Msg("pdf text extracted")

	if utf8.RuneCountInString(strings.TrimSpace(res.Text)) < e.limits.MinChars {
		metrics.IncExtraction(backend, "short")
		return res, &ExtractionError{Message: msgTooShort, Soft: true}
	}
	metrics.IncExtraction(backend, "ok")
	return res, nil
}

var disableConfigDir sync.Once

// PDFCPUPageCount counts pages with pdfcpu. It fails on encrypted files.
func PDFCPUPageCount(data []byte) (int, error) {
	disableConfigDir.Do(api.DisableConfigDir)
	return api.PageCount(bytes.NewReader(data), nil)
}

func isEncrypted(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "password") || strings.Contains(s, "encrypt")
}

func isPDFType(mediaType, name string) bool {
	if mediaType == "" || mediaType == "application/octet-stream" {
		return strings.EqualFold(extOf(name), ".pdf")
	}
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return false
	}
	return mt == pdfMediaType || mt == "application/x-pdf"
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

func humanBytes(n int64) string {
	const mb = 1 << 20
	if n >= mb {
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	}
	return fmt.Sprintf("%d KB", (n+1023)/1024)
}
