package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"course-dedupe/internal/export"
)

// GCSSink writes documents to gs://Bucket/Prefix/<name>.
type GCSSink struct {
	Bucket string
	Prefix string

	client    *storage.Client
	newWriter func(ctx context.Context, bucket, key string) io.WriteCloser
}

// NewGCSSink creates a storage client using application default
// credentials, GOOGLE_APPLICATION_CREDENTIALS(_JSON), or the emulator when
// STORAGE_EMULATOR_HOST is set.
func NewGCSSink(ctx context.Context, bucket, prefix string) (*GCSSink, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("gcs sink: missing bucket")
	}
	client, err := storage.NewClient(ctx, clientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("gcs sink: new client: %w", err)
	}
	s := &GCSSink{Bucket: bucket, Prefix: strings.Trim(prefix, "/"), client: client}
	s.newWriter = func(ctx context.Context, bucket, key string) io.WriteCloser {
		return client.Bucket(bucket).Object(key).NewWriter(ctx)
	}
	return s, nil
}

func clientOptionsFromEnv() []option.ClientOption {
	if strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")) != "" {
		return []option.ClientOption{option.WithoutAuthentication()}
	}
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func (s *GCSSink) Name() string { return "gcs:" + s.Bucket }

func (s *GCSSink) key(name string) string {
	if s.Prefix == "" {
		return name
	}
	return path.Join(s.Prefix, name)
}

func (s *GCSSink) Publish(ctx context.Context, doc export.Document) error {
	key := s.key(doc.Name)
	w := s.newWriter(ctx, s.Bucket, key)
	if ow, ok := w.(*storage.Writer); ok {
		ow.ContentType = doc.ContentType
	}
	if _, err := w.Write(doc.Data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs sink: write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs sink: close %s: %w", key, err)
	}
	return nil
}

func (s *GCSSink) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
