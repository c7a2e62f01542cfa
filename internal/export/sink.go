package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"bdsp-batch-editor/internal/fsutil"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Sink receives exported files addressed by slash-separated relative paths.
type Sink interface {
	Put(ctx context.Context, rel string, r io.Reader, size int64) error
	Location(rel string) string
}

// DirSink writes files below a local directory.
type DirSink struct {
	Root string
}

// Put implements Sink. Files are replaced atomically.
func (d DirSink) Put(ctx context.Context, rel string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest, err := d.path(rel)
	if err != nil {
		return err
	}
	return fsutil.WriteAtomic(dest, 0o644, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
}

// Location implements Sink.
func (d DirSink) Location(rel string) string {
	p, err := d.path(rel)
	if err != nil {
		return rel
	}
	return p
}

func (d DirSink) path(rel string) (string, error) {
	clean := path.Clean("/" + rel)
	if clean == "/" {
		return "", fmt.Errorf("invalid export path %q", rel)
	}
	return filepath.Join(d.Root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// S3Config locates an S3-compatible bucket.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// S3Sink uploads files to an S3-compatible bucket.
type S3Sink struct {
	client   *minio.Client
	bucket   string
	region   string
	prefix   string
	initOnce sync.Once
	initErr  error
}

// NewS3Sink creates an S3Sink. The bucket is created on first use if it
// does not exist.
func NewS3Sink(cfg S3Config) (*S3Sink, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Sink{
		client: client,
		bucket: bucket,
		region: region,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (s *S3Sink) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Put implements Sink.
func (s *S3Sink) Put(ctx context.Context, rel string, r io.Reader, size int64) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	_, err := s.client.PutObject(ctx, s.bucket, s.key(rel), r, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", rel, err)
	}
	return nil
}

// Location implements Sink.
func (s *S3Sink) Location(rel string) string {
	return "s3://" + s.bucket + "/" + s.key(rel)
}

func (s *S3Sink) key(rel string) string {
	rel = strings.TrimLeft(path.Clean("/"+rel), "/")
	if s.prefix == "" {
		return rel
	}
	return s.prefix + "/" + rel
}

// putFile streams a local file into sink.
func putFile(ctx context.Context, sink Sink, rel, file string) (int64, error) {
	f, err := os.Open(file)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if err := sink.Put(ctx, rel, f, info.Size()); err != nil {
		return 0, err
	}
	return info.Size(), nil
}
