package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mahirjain10/image-optimizer/config"
	"github.com/mahirjain10/image-optimizer/internal/aws"
	"github.com/mahirjain10/image-optimizer/internal/metrics"
	"github.com/mahirjain10/image-optimizer/internal/optimizer"
	"github.com/mahirjain10/image-optimizer/internal/s3compat"
	"github.com/mahirjain10/image-optimizer/internal/transformation"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// NewOptimizer builds the storage backend and codec named in cfg and wires
// them into an optimizer.
func NewOptimizer(ctx context.Context, cfg *config.Config) (*optimizer.Optimizer, error) {
	store, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newOptimizer(store, cfg)
}

func newOptimizer(store optimizer.ObjectStore, cfg *config.Config) (*optimizer.Optimizer, error) {
	codec, err := NewCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}
	opts := cfg.Optimizer
	if il, ok := codec.(optimizer.Interlacer); ok && opts.Interlace && !il.SupportsInterlace() && cfg.Codec == config.CodecAuto {
		log.Warn().Msg("ImageMagick not found, falling back to the imaging codec; output jpeg will be baseline, not interlaced")
		opts.Interlace = false
	}
	opt, err := optimizer.New(store, codec, opts, optimizer.WithMetrics(metrics.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to create optimizer: %w", err)
	}
	return opt, nil
}

func NewStore(ctx context.Context, cfg *config.Config) (optimizer.ObjectStore, error) {
	switch cfg.StorageBackend {
	case config.BackendMinio:
		client, err := s3compat.NewClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
		log.Info().Str("endpoint", cfg.Minio.Endpoint).Msg("using minio storage backend")
		return s3compat.NewStore(client), nil
	case config.BackendS3, "":
		awsConfig, err := config.InitializeAws(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AWS config: %w", err)
		}
		s3Client := aws.NewS3Client(awsConfig, cfg.AwsEndpointURL, cfg.AwsUsePathStyle)
		log.Info().Str("region", awsConfig.Region).Msg("using s3 storage backend")
		return aws.NewS3Service(s3Client), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func NewCodec(name string) (optimizer.Codec, error) {
	switch name {
	case config.CodecMagick:
		codec, err := transformation.NewMagickCodec()
		if err != nil {
			return nil, fmt.Errorf("failed to create magick codec: %w", err)
		}
		return codec, nil
	case config.CodecAuto, "":
		codec, err := transformation.NewMagickCodec()
		if err != nil {
			log.Warn().Err(err).Msg("magick codec unavailable, using imaging codec")
			return transformation.NewImagingCodec(), nil
		}
		return codec, nil
	case config.CodecImaging:
		return transformation.NewImagingCodec(), nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// ServeMetrics exposes /metrics on addr until ctx is done. An empty addr
// disables the listener.
func ServeMetrics(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	go func() {
		log.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
}
