// Package optimizer lists images under a bucket prefix and shrinks the ones
// that reach the configured bounding box, re-encoding them as JPEG.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mahirjain10/image-optimizer/internal/metrics"
	"github.com/mahirjain10/image-optimizer/internal/types"
)

// ObjectStore is the storage capability the optimizer needs.
type ObjectStore interface {
	ListObjects(ctx context.Context, bucket, prefix string, maxKeys int) ([]types.ObjectInfo, error)
	GetObject(ctx context.Context, bucket, key string) (*types.ImageBuffer, error)
	PutObject(ctx context.Context, bucket, key string, buffer *types.ImageBuffer, acl string) error
}

// Codec is the image capability the optimizer needs.
type Codec interface {
	DecodeDimensions(buffer []byte) (types.Dimensions, error)
	ResizeAndEncode(ctx context.Context, buffer []byte, target types.Dimensions, opts types.EncodeOptions) ([]byte, error)
}

// Interlacer is implemented by codecs that report whether they can write
// progressive JPEG.
type Interlacer interface {
	SupportsInterlace() bool
}

type Config struct {
	Bucket            string
	Prefix            string
	MaxKeys           int
	MaxWidth          int
	MaxHeight         int
	Quality           int
	Interlace         bool
	MaxSourcePixels   int
	OverwriteInPlace  bool
	DestinationBucket string
	DestinationPrefix string
	UploadACL         string
	Concurrency       int
	SweepTimeout      time.Duration
	ObjectTimeout     time.Duration
}

// DefaultConfig mirrors the values the handler historically shipped with.
func DefaultConfig() Config {
	return Config{
		Prefix:            "folder/",
		MaxKeys:           5000,
		MaxWidth:          1440,
		MaxHeight:         890,
		Quality:           80,
		Interlace:         true,
		MaxSourcePixels:   50_000_000,
		DestinationPrefix: "optimized/",
		UploadACL:         "public-read",
		Concurrency:       1,
		SweepTimeout:      10 * time.Minute,
		ObjectTimeout:     2 * time.Minute,
	}
}

// destinationBucket falls back to the source bucket.
func (c Config) destinationBucket() string {
	if c.DestinationBucket == "" {
		return c.Bucket
	}
	return c.DestinationBucket
}

func (c Config) Validate() error {
	var errs []error
	if c.Bucket == "" {
		errs = append(errs, errors.New("bucket is required"))
	}
	if c.MaxKeys <= 0 {
		errs = append(errs, fmt.Errorf("max keys must be positive, got %d", c.MaxKeys))
	}
	if c.MaxWidth <= 0 || c.MaxHeight <= 0 {
		errs = append(errs, fmt.Errorf("bounds must be positive, got %dx%d", c.MaxWidth, c.MaxHeight))
	}
	if c.Quality < 1 || c.Quality > 100 {
		errs = append(errs, fmt.Errorf("jpeg quality must be within 1..100, got %d", c.Quality))
	}
	if c.MaxSourcePixels < 0 {
		errs = append(errs, fmt.Errorf("max source pixels cannot be negative, got %d", c.MaxSourcePixels))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.SweepTimeout < 0 || c.ObjectTimeout < 0 {
		errs = append(errs, errors.New("timeouts cannot be negative"))
	}
	if !c.OverwriteInPlace && c.destinationBucket() == c.Bucket {
		if c.DestinationPrefix == "" {
			errs = append(errs, errors.New("destination prefix is required when writing to the source bucket without overwrite"))
		} else if strings.HasPrefix(c.DestinationPrefix, c.Prefix) {
			errs = append(errs, fmt.Errorf("destination prefix %q lies inside source prefix %q", c.DestinationPrefix, c.Prefix))
		}
	}
	return errors.Join(errs...)
}

func (c Config) encodeOptions() types.EncodeOptions {
	return types.EncodeOptions{
		CropMode:  types.CropModeFill,
		Gravity:   types.GravityCenter,
		Quality:   c.Quality,
		Interlace: c.Interlace,
		Format:    types.FormatJPEG,
	}
}

type Optimizer struct {
	store   ObjectStore
	codec   Codec
	config  Config
	metrics *metrics.Metrics
}

type Option func(*Optimizer)

// WithMetrics records sweep and object outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Optimizer) { o.metrics = m }
}

func New(store ObjectStore, codec Codec, config Config, opts ...Option) (*Optimizer, error) {
	if store == nil {
		return nil, errors.New("object store is required")
	}
	if codec == nil {
		return nil, errors.New("codec is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid optimizer config: %w", err)
	}
	if il, ok := codec.(Interlacer); ok && config.Interlace && !il.SupportsInterlace() {
		return nil, errors.New("interlace is enabled but the codec cannot write progressive jpeg")
	}
	o := &Optimizer{store: store, codec: codec, config: config}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

func (o *Optimizer) Config() Config {
	return o.config
}

// DestinationKey returns where the optimized copy of key is written.
func (o *Optimizer) DestinationKey(key string) (bucket string, dstKey string) {
	if o.config.OverwriteInPlace {
		return o.config.Bucket, key
	}
	return o.config.destinationBucket(), o.config.DestinationPrefix + key
}
