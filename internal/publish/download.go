package publish

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"crosspost/internal"
)

// DownloadError wraps a shared-media fetch failure. It is the only
// error class that aborts a whole job instead of one platform.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("video download failed: %v", e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// MediaFetcher materializes the source video at a local path.
type MediaFetcher interface {
	Fetch(ctx context.Context, rawURL, dest string) error
}

// HTTPFetcher streams a public URL to disk.
type HTTPFetcher struct {
	Client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &DownloadError{URL: rawURL, Err: err}
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return &DownloadError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &DownloadError{URL: rawURL, Err: fmt.Errorf("http %d", resp.StatusCode)}
	}

	out, err := os.Create(dest)
	if err != nil {
		return &DownloadError{URL: rawURL, Err: err}
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return &DownloadError{URL: rawURL, Err: err}
	}
	return nil
}

// S3Fetcher downloads s3://bucket/key locators through the transfer
// manager.
type S3Fetcher struct {
	dl *manager.Downloader
}

func NewS3Fetcher(cfg internal.Config) (*S3Fetcher, error) {
	endpoint := cfg.S3Endpoint
	forcePathStyle := true
	if strings.Contains(endpoint, "amazonaws.com") {
		forcePathStyle = false
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		o.UsePathStyle = forcePathStyle
		o.BaseEndpoint = &endpoint
	})

	return &S3Fetcher{dl: manager.NewDownloader(client)}, nil
}

func (f *S3Fetcher) Fetch(ctx context.Context, rawURL, dest string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return &DownloadError{URL: rawURL, Err: fmt.Errorf("invalid s3 locator %q", rawURL)}
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")

	out, err := os.Create(dest)
	if err != nil {
		return &DownloadError{URL: rawURL, Err: err}
	}
	defer out.Close()

	if _, err := f.dl.Download(ctx, out, &awss3.GetObjectInput{Bucket: &bucket, Key: &key}); err != nil {
		return &DownloadError{URL: rawURL, Err: err}
	}
	return nil
}

// Fetcher dispatches on the locator scheme: s3:// goes to the transfer
// manager, everything else is fetched over HTTP.
type Fetcher struct {
	HTTP MediaFetcher
	S3   MediaFetcher
}

func NewFetcher(cfg internal.Config) (*Fetcher, error) {
	s3f, err := NewS3Fetcher(cfg)
	if err != nil {
		return nil, err
	}
	return &Fetcher{
		HTTP: NewHTTPFetcher(cfg.DownloadTimeout),
		S3:   s3f,
	}, nil
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL, dest string) error {
	if strings.HasPrefix(rawURL, "s3://") {
		return f.S3.Fetch(ctx, rawURL, dest)
	}
	return f.HTTP.Fetch(ctx, rawURL, dest)
}

// filenameFromURL picks a local filename for the downloaded video,
// falling back to video.mp4 when the locator path carries none.
func filenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "video.mp4"
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "video.mp4"
	}
	return name
}
