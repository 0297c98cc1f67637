package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/oksasatya/appserv/internal/domain/repository"
)

// NewGCSClient creates a Cloud Storage client. If credsPath is empty, ADC is used.
func NewGCSClient(ctx context.Context, credsPath string) (*gcs.Client, error) {
	if credsPath == "" {
		return gcs.NewClient(ctx)
	}
	return gcs.NewClient(ctx, option.WithCredentialsFile(credsPath))
}

// GCSStore keeps avatars as objects under prefix in one bucket.
type GCSStore struct {
	bucket *gcs.BucketHandle
	prefix string
}

var _ repository.AvatarStore = (*GCSStore)(nil)

func NewGCSStore(client *gcs.Client, bucket, prefix string) *GCSStore {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &GCSStore{bucket: client.Bucket(bucket), prefix: prefix}
}

func (s *GCSStore) object(name string) (*gcs.ObjectHandle, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	return s.bucket.Object(s.prefix + name), nil
}

func (s *GCSStore) Exists(ctx context.Context, name string) (bool, error) {
	obj, err := s.object(name)
	if err != nil {
		return false, err
	}
	_, err = obj.Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (s *GCSStore) Read(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := s.object(name)
	if err != nil {
		return nil, err
	}
	return obj.NewReader(ctx)
}

func (s *GCSStore) Write(ctx context.Context, name, contentType string, r io.Reader) error {
	obj, err := s.object(name)
	if err != nil {
		return err
	}
	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType
	wc.ChunkSize = 0 // avatars are small; single request upload
	if _, err := io.Copy(wc, r); err != nil {
		_ = wc.Close()
		return err
	}
	return wc.Close()
}

func (s *GCSStore) Delete(ctx context.Context, name string) error {
	obj, err := s.object(name)
	if err != nil {
		return err
	}
	if err := obj.Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return err
	}
	return nil
}

func (s *GCSStore) List(ctx context.Context) ([]string, error) {
	it := s.bucket.Objects(ctx, &gcs.Query{Prefix: s.prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		name := strings.TrimPrefix(attrs.Name, s.prefix)
		if name != "" && !strings.Contains(name, "/") {
			names = append(names, name)
		}
	}
	return names, nil
}
