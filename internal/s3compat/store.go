// Package s3compat stores images on MinIO or any S3-compatible service through
// minio-go.
package s3compat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mahirjain10/image-optimizer/internal/types"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// API is the subset of *minio.Client the store calls.
type API interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Store struct {
	client API
}

func NewClient(cfg Config) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("minio endpoint must be provided")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("minio credentials must be provided")
	}
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return client, nil
}

func NewStore(client API) *Store {
	return &Store{client: client}
}

func (s *Store) ListObjects(ctx context.Context, bucket, prefix string, maxKeys int) ([]types.ObjectInfo, error) {
	// Cancelling stops the listing goroutine when we leave early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := make([]types.ObjectInfo, 0)
	for obj := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
		MaxKeys:   maxKeys,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("minio list failed: %w", obj.Err)
		}
		objects = append(objects, types.ObjectInfo{
			Bucket:       bucket,
			Key:          obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
		if len(objects) == maxKeys {
			break
		}
	}
	log.Debug().Str("bucket", bucket).Str("prefix", prefix).Int("count", len(objects)).Msg("listed objects")
	return objects, nil
}

func (s *Store) GetObject(ctx context.Context, bucket, key string) (*types.ImageBuffer, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get %s failed: %w", key, err)
	}
	defer obj.Close()
	return readObject(obj, obj.Stat)
}

func readObject(r io.Reader, stat func() (minio.ObjectInfo, error)) (*types.ImageBuffer, error) {
	info, err := stat()
	if err != nil {
		return nil, fmt.Errorf("minio stat failed: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read object data: %w", err)
	}
	return &types.ImageBuffer{Data: data, ContentType: info.ContentType}, nil
}

func (s *Store) PutObject(ctx context.Context, bucket, key string, buffer *types.ImageBuffer, acl string) error {
	opts := minio.PutObjectOptions{ContentType: buffer.ContentType}
	if acl != "" {
		opts.UserMetadata = map[string]string{"x-amz-acl": acl}
	}
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(buffer.Data), int64(len(buffer.Data)), opts)
	if err != nil {
		return fmt.Errorf("minio put %s failed: %w", key, err)
	}
	return nil
}
