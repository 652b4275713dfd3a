package acquire

import (
	"bytes"
	"fmt"
	"strings"

	fitz "github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
)

// Doc abstracts an opened PDF document for text extraction. Pages are 0-based.
type Doc interface {
	NumPage() int
	Text(page int) (string, error)
	Close() error
}

// Opener abstracts opening PDF bytes into a Doc.
type Opener interface {
	Name() string
	Open(data []byte) (Doc, error)
}

// OpenerFor returns the backend registered under name; unknown names fall back to fitz.
func OpenerFor(name string) Opener {
	switch strings.ToLower(name) {
	case "pure", "ledongthuc":
		return PureOpener{}
	default:
		return FitzOpener{}
	}
}

// FitzOpener uses MuPDF through github.com/gen2brain/go-fitz.
type FitzOpener struct{}

func (FitzOpener) Name() string { return "fitz" }

func (FitzOpener) Open(data []byte) (Doc, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, err
	}
	return fitzDoc{doc}, nil
}

type fitzDoc struct{ *fitz.Document }

func (d fitzDoc) Text(page int) (string, error) { return d.Document.Text(page) }

// PureOpener uses the pure Go github.com/ledongthuc/pdf reader; no cgo needed.
type PureOpener struct{}

func (PureOpener) Name() string { return "pure" }

func (PureOpener) Open(data []byte) (d Doc, err error) {
	defer func() {
		if r := recover(); r != nil {
			d, err = nil, fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &pureDoc{r: r, fonts: map[string]*pdf.Font{}}, nil
}

type pureDoc struct {
	r     *pdf.Reader
	fonts map[string]*pdf.Font
}

func (d *pureDoc) NumPage() int { return d.r.NumPage() }

func (d *pureDoc) Text(page int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("page %d: pdf reader panic: %v", page+1, r)
		}
	}()
	// ledongthuc/pdf pages are 1-based
	p := d.r.Page(page + 1)
	if p.V.IsNull() {
		return "", nil
	}
	for _, name := range p.Fonts() {
		if _, ok := d.fonts[name]; !ok {
			f := p.Font(name)
			d.fonts[name] = &f
		}
	}
	return p.GetPlainText(d.fonts)
}

func (d *pureDoc) Close() error { return nil }
