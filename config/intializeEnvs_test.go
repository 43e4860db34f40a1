package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("AWS_BUCKET_NAME", "photos")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, BackendS3, cfg.StorageBackend)
	assert.Equal(t, CodecAuto, cfg.Codec)
	assert.Equal(t, "photos", cfg.Optimizer.Bucket)
	assert.Equal(t, "folder/", cfg.Optimizer.Prefix)
	assert.Equal(t, 5000, cfg.Optimizer.MaxKeys)
	assert.Equal(t, 1440, cfg.Optimizer.MaxWidth)
	assert.Equal(t, 890, cfg.Optimizer.MaxHeight)
	assert.Equal(t, 80, cfg.Optimizer.Quality)
	assert.True(t, cfg.Optimizer.Interlace)
	assert.Equal(t, 50_000_000, cfg.Optimizer.MaxSourcePixels)
	assert.False(t, cfg.Optimizer.OverwriteInPlace)
	assert.Equal(t, "optimized/", cfg.Optimizer.DestinationPrefix)
	assert.Equal(t, "public-read", cfg.Optimizer.UploadACL)
	assert.Equal(t, 1, cfg.Optimizer.Concurrency)
	assert.Equal(t, 10*time.Minute, cfg.Optimizer.SweepTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Optimizer.ObjectTimeout)
	assert.Equal(t, "optimize_trigger", cfg.RabbitMqTriggerQueue)
	assert.Equal(t, "image_processing", cfg.RabbitMqExchange)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("AWS_BUCKET_NAME", "photos")
	t.Setenv("SOURCE_PREFIX", "uploads/")
	t.Setenv("MAX_KEYS", "100")
	t.Setenv("MAX_WIDTH", "800")
	t.Setenv("MAX_HEIGHT", "600")
	t.Setenv("JPEG_QUALITY", "65")
	t.Setenv("JPEG_INTERLACE", "false")
	t.Setenv("OVERWRITE_IN_PLACE", "true")
	t.Setenv("UPLOAD_ACL", "")
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("SWEEP_TIMEOUT", "14m")
	t.Setenv("OBJECT_TIMEOUT", "30s")
	t.Setenv("IMAGE_CODEC", "magick")
	t.Setenv("MAX_SOURCE_PIXELS", "1000000")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "uploads/", cfg.Optimizer.Prefix)
	assert.Equal(t, 100, cfg.Optimizer.MaxKeys)
	assert.Equal(t, 800, cfg.Optimizer.MaxWidth)
	assert.Equal(t, 600, cfg.Optimizer.MaxHeight)
	assert.Equal(t, 65, cfg.Optimizer.Quality)
	assert.False(t, cfg.Optimizer.Interlace)
	assert.True(t, cfg.Optimizer.OverwriteInPlace)
	assert.Empty(t, cfg.Optimizer.UploadACL)
	assert.Equal(t, 8, cfg.Optimizer.Concurrency)
	assert.Equal(t, 14*time.Minute, cfg.Optimizer.SweepTimeout)
	assert.Equal(t, 30*time.Second, cfg.Optimizer.ObjectTimeout)
	assert.Equal(t, CodecMagick, cfg.Codec)
	assert.Equal(t, 1_000_000, cfg.Optimizer.MaxSourcePixels)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestImagingCodecWithoutInterlace(t *testing.T) {
	t.Setenv("AWS_BUCKET_NAME", "photos")
	t.Setenv("IMAGE_CODEC", "imaging")
	t.Setenv("JPEG_INTERLACE", "false")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, CodecImaging, cfg.Codec)
	assert.False(t, cfg.Optimizer.Interlace)
}

func TestFromEnvInvalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "missing bucket", env: map[string]string{}, wantErr: "bucket is required"},
		{name: "unknown backend", env: map[string]string{"AWS_BUCKET_NAME": "b", "STORAGE_BACKEND": "gcs"}, wantErr: "STORAGE_BACKEND"},
		{name: "minio without credentials", env: map[string]string{"AWS_BUCKET_NAME": "b", "STORAGE_BACKEND": "minio"}, wantErr: "MINIO_ENDPOINT"},
		{name: "imaging codec with interlace", env: map[string]string{"AWS_BUCKET_NAME": "b", "IMAGE_CODEC": "imaging"}, wantErr: "interlaced"},
		{name: "unknown codec", env: map[string]string{"AWS_BUCKET_NAME": "b", "IMAGE_CODEC": "vips"}, wantErr: "IMAGE_CODEC"},
		{name: "bad quality", env: map[string]string{"AWS_BUCKET_NAME": "b", "JPEG_QUALITY": "0"}, wantErr: "quality"},
		{name: "unknown log format", env: map[string]string{"AWS_BUCKET_NAME": "b", "LOG_FORMAT": "xml"}, wantErr: "LOG_FORMAT"},
		{name: "output inside input", env: map[string]string{"AWS_BUCKET_NAME": "b", "DESTINATION_PREFIX": "folder/out/"}, wantErr: "lies inside"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("AWS_BUCKET_NAME", "")
			os.Unsetenv("AWS_BUCKET_NAME")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestMinioBackend(t *testing.T) {
	t.Setenv("AWS_BUCKET_NAME", "photos")
	t.Setenv("STORAGE_BACKEND", "minio")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_ACCESS_KEY", "minio")
	t.Setenv("MINIO_SECRET_KEY", "minio123")
	t.Setenv("MINIO_USE_SSL", "false")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", cfg.Minio.Endpoint)
	assert.False(t, cfg.Minio.UseSSL)
	assert.Equal(t, "us-east-1", cfg.Minio.Region)
}

func TestInitializeEnvsLoadsDotenv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.staging"), []byte("AWS_BUCKET_NAME=from-dotenv\nMAX_WIDTH=1024\n"), 0o644))

	t.Chdir(dir)

	t.Setenv("APP_ENV", "staging")
	// Register for restore; godotenv.Overload writes these with os.Setenv.
	t.Setenv("AWS_BUCKET_NAME", "")
	t.Setenv("MAX_WIDTH", "")

	cfg, err := InitializeEnvs()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Optimizer.Bucket)
	assert.Equal(t, 1024, cfg.Optimizer.MaxWidth)
}
