// Package storage keeps uploaded proof-of-payment files.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"affconsole/internal/config"
)

var ErrObjectNotFound = errors.New("object not found")

// Object is a stored file opened for reading. The caller closes Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (Object, error)
	Remove(ctx context.Context, key string) error
	URL(key string) string
}

// MinioStore keeps objects in one S3 compatible bucket.
type MinioStore struct {
	client *minio.Client
	cfg    config.StorageConfig
}

var _ ObjectStore = (*MinioStore)(nil)

func NewMinioStore(cfg config.StorageConfig) (*MinioStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &MinioStore{client: client, cfg: cfg}, nil
}

func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	bucket := s.cfg.BucketProof
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}
	return nil
}

func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.cfg.BucketProof, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (s *MinioStore) Get(ctx context.Context, key string) (Object, error) {
	obj, err := s.client.GetObject(ctx, s.cfg.BucketProof, key, minio.GetObjectOptions{})
	if err != nil {
		return Object{}, fmt.Errorf("get object: %w", err)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return Object{}, ErrObjectNotFound
		}
		return Object{}, fmt.Errorf("stat object: %w", err)
	}
	return Object{Body: obj, ContentType: info.ContentType, Size: info.Size}, nil
}

func (s *MinioStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.cfg.BucketProof, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

// URL is the public address of key. PublicURL wins over the endpoint.
func (s *MinioStore) URL(key string) string {
	base := strings.TrimSuffix(s.cfg.PublicURL, "/")
	if base == "" {
		base = strings.TrimSuffix(s.cfg.Endpoint, "/")
		if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
			base = "https://" + base
		}
		base += "/" + s.cfg.BucketProof
	}
	return base + "/" + key
}

type memObject struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
	baseURL string
}

var _ ObjectStore = (*MemoryStore)(nil)

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memObject),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (s *MemoryStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	s.mu.Lock()
	s.objects[key] = memObject{data: data, contentType: contentType}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (Object, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return Object{}, ErrObjectNotFound
	}
	return Object{
		Body:        io.NopCloser(bytes.NewReader(obj.data)),
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) URL(key string) string {
	return s.baseURL + "/" + key
}
