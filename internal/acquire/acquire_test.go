package acquire

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/lessonplanner/internal/config"
)

var pdfHeader = []byte("%PDF-1.4\n%fake test document\n")

type fakeDoc struct {
	pages  []string
	failAt int
	reads  int
	closed bool
}

func (d *fakeDoc) NumPage() int { return len(d.pages) }
func (d *fakeDoc) Text(i int) (string, error) {
	d.reads++
	if d.failAt > 0 && i+1 == d.failAt {
		return "", errors.New("broken page")
	}
	return d.pages[i], nil
}
func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

type fakeOpener struct {
	doc   *fakeDoc
	err   error
	opens int
}

func (o *fakeOpener) Name() string { return "fake" }
func (o *fakeOpener) Open([]byte) (Doc, error) {
	o.opens++
	if o.err != nil {
		return nil, o.err
	}
	return o.doc, nil
}

func pagesOf(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("page %02d has enough words to pass the minimum", i+1)
	}
	return out
}

func newTestExtractor(o Opener) *Extractor {
	return New(Limits{MaxFileBytes: 5 << 20, PageCap: 20, MinChars: 50}, o, WithPreflight(nil))
}

func pdfFile() File {
	return File{Name: "notes.pdf", MediaType: "application/pdf", Data: pdfHeader}
}

func TestExtractJoinsPagesInOrder(t *testing.T) {
	for _, n := range []int{1, 3, 20} {
		o := &fakeOpener{doc: &fakeDoc{pages: pagesOf(n)}}
		var calls []int
		res, err := newTestExtractor(o).Extract(context.Background(), pdfFile(), func(done, total int) {
			calls = append(calls, done)
			assert.Equal(t, n, total)
		})
		require.NoError(t, err)

		segs := strings.Split(res.Text, "\n")
		require.Len(t, segs, n)
		for i, s := range segs {
			assert.Equal(t, pagesOf(n)[i], s)
		}
		assert.Equal(t, n, res.Pages)
		assert.False(t, res.Truncated)
		assert.Len(t, calls, n)
		assert.True(t, o.doc.closed)
	}
}

func TestExtractCapsPages(t *testing.T) {
	o := &fakeOpener{doc: &fakeDoc{pages: pagesOf(35)}}
	res, err := newTestExtractor(o).Extract(context.Background(), pdfFile(), nil)
	require.NoError(t, err)

	assert.Equal(t, 20, res.Pages)
	assert.Equal(t, 35, res.TotalPages)
	assert.True(t, res.Truncated)
	assert.Equal(t, 20, o.doc.reads)
	segs := strings.Split(res.Text, "\n")
	require.Len(t, segs, 20)
	assert.Equal(t, pagesOf(20)[19], segs[19])
}

func TestExtractRejectsOversizeBeforeOpening(t *testing.T) {
	o := &fakeOpener{doc: &fakeDoc{pages: pagesOf(1)}}
	f := pdfFile()
	f.Size = 6 << 20

	_, err := newTestExtractor(o).Extract(context.Background(), f, nil)
	require.Error(t, err)
	assert.True(t, IsValidation(err, CodeTooLarge))
	assert.Equal(t, 0, o.opens)
	assert.Contains(t, err.Error(), "6.0 MB")
}

func TestExtractRejectsWrongType(t *testing.T) {
	o := &fakeOpener{doc: &fakeDoc{pages: pagesOf(1)}}
	e := newTestExtractor(o)

	_, err := e.Extract(context.Background(), File{Name: "a.txt", MediaType: "text/plain", Data: []byte("hello")}, nil)
	assert.True(t, IsValidation(err, CodeWrongType))

	// declared PDF, content is not
	_, err = e.Extract(context.Background(), File{Name: "a.pdf", MediaType: "application/pdf", Data: []byte("hello world")}, nil)
	assert.True(t, IsValidation(err, CodeWrongType))
	assert.Equal(t, 0, o.opens)
}

func TestCheckFileAcceptsOctetStreamWithPDFName(t *testing.T) {
	e := newTestExtractor(&fakeOpener{})
	assert.NoError(t, e.CheckFile(File{Name: "Plan.PDF", MediaType: "application/octet-stream", Size: 10}))
	assert.NoError(t, e.CheckFile(File{Name: "x", MediaType: "application/pdf; charset=binary", Size: 10}))
	assert.Error(t, e.CheckFile(File{Name: "x.doc", MediaType: "", Size: 10}))
}

func TestExtractShortTextIsSoft(t *testing.T) {
	o := &fakeOpener{doc: &fakeDoc{pages: []string{"tiny", ""}}}
	res, err := newTestExtractor(o).Extract(context.Background(), pdfFile(), nil)
	require.Error(t, err)
	assert.True(t, IsSoftExtraction(err))
	assert.Equal(t, "tiny\n", res.Text)
}

func TestExtractOpenFailureHasNoText(t *testing.T) {
	o := &fakeOpener{err: errors.New("xref table broken")}
	res, err := newTestExtractor(o).Extract(context.Background(), pdfFile(), nil)
	require.Error(t, err)

	var ee *ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.False(t, ee.Soft)
	assert.Contains(t, ee.Message, "protegido por senha")
	assert.Empty(t, res.Text)
}

func TestExtractPageFailureDropsPartialText(t *testing.T) {
	o := &fakeOpener{doc: &fakeDoc{pages: pagesOf(5), failAt: 3}}
	res, err := newTestExtractor(o).Extract(context.Background(), pdfFile(), nil)
	require.Error(t, err)
	assert.False(t, IsSoftExtraction(err))
	assert.Empty(t, res.Text)
}

func TestExtractEncryptedPreflight(t *testing.T) {
	o := &fakeOpener{doc: &fakeDoc{pages: pagesOf(1)}}
	e := New(Limits{MaxFileBytes: 1 << 20, PageCap: 20}, o, WithPreflight(func([]byte) (int, error) {
		return 0, errors.New("pdfcpu: please provide the correct password")
	}))
	_, err := e.Extract(context.Background(), pdfFile(), nil)
	var ee *ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 0, o.opens)
}

func TestExtractPreflightNoiseIsTolerated(t *testing.T) {
	o := &fakeOpener{doc: &fakeDoc{pages: pagesOf(2)}}
	e := New(Limits{MaxFileBytes: 1 << 20, PageCap: 20}, o, WithPreflight(func([]byte) (int, error) {
		return 0, errors.New("pdfcpu: corrupt xref")
	}))
	res, err := e.Extract(context.Background(), pdfFile(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
}

func TestExtractCanceled(t *testing.T) {
	o := &fakeOpener{doc: &fakeDoc{pages: pagesOf(3)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestExtractor(o).Extract(ctx, pdfFile(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckInput(t *testing.T) {
	_, err := CheckInput("   \n\t", 100)
	assert.True(t, IsValidation(err, CodeInputRequired))

	_, err = CheckInput("curto demais", 100)
	assert.True(t, IsValidation(err, CodeInputTooShort))

	long := "  " + strings.Repeat("ação ", 25) + "  "
	got, err := CheckInput(long, 100)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(long), got)
}

func TestOpenerFor(t *testing.T) {
	assert.Equal(t, "pure", OpenerFor("pure").Name())
	assert.Equal(t, "fitz", OpenerFor("").Name())
	assert.Equal(t, "fitz", OpenerFor("FITZ").Name())
}

func TestSourceFileSizeCheckedBeforeRead(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.pdf")
	require.NoError(t, os.WriteFile(big, make([]byte, 2048), 0o600))
	small := filepath.Join(dir, "small.pdf")
	require.NoError(t, os.WriteFile(small, pdfHeader, 0o600))

	src := NewSource(config.AcquisitionConfig{MaxFileBytes: 1024}, nil)
	_, err := src.Fetch(context.Background(), big)
	assert.True(t, IsValidation(err, CodeTooLarge))

	f, err := src.Fetch(context.Background(), "file://"+small)
	require.NoError(t, err)
	assert.Equal(t, "small.pdf", f.Name)
	assert.Equal(t, "application/pdf", f.MediaType)
	assert.Equal(t, pdfHeader, f.Data)
}

func TestSourceHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/big.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write(make([]byte, 4096))
		case "/doc.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write(pdfHeader)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewSource(config.AcquisitionConfig{MaxFileBytes: 1024}, srv.Client())

	f, err := src.Fetch(context.Background(), srv.URL+"/doc.pdf#page=2")
	require.NoError(t, err)
	assert.Equal(t, "doc.pdf", f.Name)
	assert.Equal(t, "application/pdf", f.MediaType)

	_, err = src.Fetch(context.Background(), srv.URL+"/big.pdf")
	assert.True(t, IsValidation(err, CodeTooLarge))

	_, err = src.Fetch(context.Background(), srv.URL+"/missing.pdf")
	assert.Error(t, err)
}

type fakeS3 struct {
	size int64
	gets int
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(f.size), ContentType: aws.String("application/pdf")}, nil
}

func (f *fakeS3) GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gets++
	return nil, errors.New("unexpected download")
}

func TestSourceS3RejectsOversizeWithoutDownloading(t *testing.T) {
	fake := &fakeS3{size: 6 << 20}
	src := NewSource(config.AcquisitionConfig{MaxFileBytes: 5 << 20}, nil).WithS3(fake)

	_, err := src.Fetch(context.Background(), "s3://bucket/plans/big.pdf")
	assert.True(t, IsValidation(err, CodeTooLarge))
	assert.Equal(t, 0, fake.gets)

	_, err = src.Fetch(context.Background(), "s3://bucket-only/")
	assert.Error(t, err)
}
