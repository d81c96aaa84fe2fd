package secrets

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"crosspost/internal"
)

// ErrNotFound is returned by a Store when the named secret does not exist.
var ErrNotFound = errors.New("secret not found")

// Store is an opaque key-value secret backend. Values are never cached
// here; every Get hits the backend.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
}

// s3Store keeps one object per secret under a fixed prefix.
type s3Store struct {
	bucket string
	prefix string
	api    *awss3.Client
}

func NewS3Store(cfg internal.Config) (Store, error) {
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

	return &s3Store{
		bucket: cfg.S3Bucket,
		prefix: cfg.SecretsPrefix,
		api:    client,
	}, nil
}

func (s *s3Store) Get(ctx context.Context, name string) (string, error) {
	key := s.prefix + name
	out, err := s.api.GetObject(ctx, &awss3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return "", ErrNotFound
		}
		return "", err
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

var (
	sharedOnce sync.Once
	sharedS    Store
	sharedErr  error
)

// Shared returns the process-wide store handle, created on first use.
// The handle is reused across jobs and never torn down.
func Shared(cfg internal.Config) (Store, error) {
	sharedOnce.Do(func() {
		sharedS, sharedErr = NewS3Store(cfg)
	})
	return sharedS, sharedErr
}
