package acquire

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/local/lessonplanner/internal/config"
)

// S3API is the subset of the S3 client used to fetch documents.
type S3API interface {
	manager.DownloadAPIClient
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Source loads documents referenced by path, file://, http(s):// or s3:// URL.
// The size limit is enforced before the body is read whenever the size is
// known up front.
type Source struct {
	maxBytes int64
	http     *http.Client

	cfg    config.AcquisitionConfig
	s3Once sync.Once
	s3     S3API
	s3Err  error
}

// NewSource creates a Source using the acquisition settings.
func NewSource(cfg config.AcquisitionConfig, httpClient *http.Client) *Source {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Source{maxBytes: cfg.MaxFileBytes, http: httpClient, cfg: cfg}
}

// WithS3 sets the S3 client instead of building one from the default chain.
func (s *Source) WithS3(c S3API) *Source {
	s.s3Once.Do(func() {})
	s.s3 = c
	return s
}

// Fetch loads the document at ref.
func (s *Source) Fetch(ctx context.Context, ref string) (File, error) {
	if i := strings.Index(ref, "#"); i >= 0 {
		ref = ref[:i]
	}
	switch {
	case strings.HasPrefix(ref, "s3://"):
		return s.fetchS3(ctx, ref)
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		return s.fetchHTTP(ctx, ref)
	default:
		return s.fetchFile(strings.TrimPrefix(ref, "file://"))
	}
}

func (s *Source) tooLarge(name string, n int64) error {
	if s.maxBytes > 0 && n > s.maxBytes {
		return &ValidationError{
			Code:    CodeTooLarge,
			Message: fmt.Sprintf("arquivo muito grande: %s tem %s, limite de %s", name, humanBytes(n), humanBytes(s.maxBytes)),
		}
	}
	return nil
}

func (s *Source) fetchFile(path string) (File, error) {
	st, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	name := filepath.Base(path)
	if err := s.tooLarge(name, st.Size()); err != nil {
		return File{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	return File{
		Name:      name,
		MediaType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Size:      int64(len(data)),
		Data:      data,
	}, nil
}

func (s *Source) fetchHTTP(ctx context.Context, url string) (File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return File{}, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return File{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return File{}, fmt.Errorf("http %d fetching %s", resp.StatusCode, url)
	}
	name := filepath.Base(req.URL.Path)
	if err := s.tooLarge(name, resp.ContentLength); err != nil {
		return File{}, err
	}
	body := io.Reader(resp.Body)
	if s.maxBytes > 0 {
		body = io.LimitReader(resp.Body, s.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return File{}, err
	}
	if err := s.tooLarge(name, int64(len(data))); err != nil {
		return File{}, err
	}
	return File{Name: name, MediaType: resp.Header.Get("Content-Type"), Size: int64(len(data)), Data: data}, nil
}

func (s *Source) s3Client(ctx context.Context) (S3API, error) {
	s.s3Once.Do(func() {
		var opts []func(*awscfg.LoadOptions) error
		if s.cfg.S3Region != "" {
			opts = append(opts, awscfg.WithRegion(s.cfg.S3Region))
		}
		if s.cfg.S3AccessKey != "" && s.cfg.S3SecretKey != "" {
			opts = append(opts, awscfg.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(s.cfg.S3AccessKey, s.cfg.S3SecretKey, "")))
		}
		cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			s.s3Err = fmt.Errorf("failed to load AWS config: %w", err)
			return
		}
		s.s3 = s3.NewFromConfig(cfg)
	})
	return s.s3, s.s3Err
}

func (s *Source) fetchS3(ctx context.Context, ref string) (File, error) {
	path := strings.TrimPrefix(ref, "s3://")
	slash := strings.Index(path, "/")
	if slash <= 0 || slash == len(path)-1 {
		return File{}, fmt.Errorf("invalid s3 url: %s", ref)
	}
	bucket, key := path[:slash], path[slash+1:]

	cli, err := s.s3Client(ctx)
	if err != nil {
		return File{}, err
	}
	head, err := cli.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return File{}, fmt.Errorf("s3 head %s: %w", ref, err)
	}
	size := aws.ToInt64(head.ContentLength)
	name := filepath.Base(key)
	if err := s.tooLarge(name, size); err != nil {
		return File{}, err
	}

	buf := manager.NewWriteAtBuffer(make([]byte, 0, size))
	n, err := manager.NewDownloader(cli).Download(ctx, buf, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return File{}, fmt.Errorf("s3 download %s: %w", ref, err)
	}
	log.Info().Str("bucket", bucket).Str("key", key).Int64("bytes", n).Msg("downloaded s3 pdf")

	return File{
		Name:      name,
		MediaType: aws.ToString(head.ContentType),
		Size:      n,
		Data:      buf.Bytes(),
	}, nil
}
