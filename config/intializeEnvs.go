package config

import (
	"errors"
	"fmt"
	"os"

	godotenv "github.com/joho/godotenv"
	"github.com/mahirjain10/image-optimizer/internal/optimizer"
	"github.com/mahirjain10/image-optimizer/internal/s3compat"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	BackendS3    = "s3"
	BackendMinio = "minio"

	// CodecAuto picks ImageMagick when a binary is installed.
	CodecAuto    = "auto"
	CodecImaging = "imaging"
	CodecMagick  = "magick"
)

type Config struct {
	AppEnv         string
	LogLevel       string
	LogFormat      string
	StorageBackend string
	Codec          string
	Optimizer      optimizer.Config

	AwsEndpointURL  string
	AwsUsePathStyle bool
	Minio           s3compat.Config

	RabbitMqURL          string
	RabbitMqTriggerQueue string
	RabbitMqStatusQueue  string
	RabbitMqExchange     string

	MetricsAddr string
}

// InitializeEnvs loads the dotenv file for APP_ENV, if any, and then reads
// the configuration from the environment.
func InitializeEnvs() (*Config, error) {
	loadDotenv(os.Getenv("APP_ENV"))
	return FromEnv()
}

func loadDotenv(appEnv string) {
	switch appEnv {
	case "docker":
		if err := godotenv.Overload(".env.docker"); err == nil {
			log.Info().Msg("Loaded .env.docker")
		} else {
			log.Info().Msg(".env.docker not found, using existing environment")
		}
	case "dev", "":
		if err := godotenv.Overload(".env.dev"); err == nil {
			log.Info().Msg("Loaded .env.dev")
		} else if err := godotenv.Overload(".env"); err == nil {
			log.Info().Msg("Loaded .env")
		} else {
			log.Info().Msg("No .env.dev or .env found, using system environment variables")
		}
	default:
		fname := ".env." + appEnv
		if err := godotenv.Overload(fname); err == nil {
			log.Info().Msgf("Loaded %s", fname)
		} else if err := godotenv.Overload(".env"); err == nil {
			log.Info().Msg("Loaded .env")
		} else {
			log.Info().Msgf("No %s or .env found, using system environment variables", fname)
		}
	}
}

func setDefaults(v *viper.Viper) {
	d := optimizer.DefaultConfig()

	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("STORAGE_BACKEND", BackendS3)
	v.SetDefault("IMAGE_CODEC", CodecAuto)

	v.SetDefault("AWS_BUCKET_NAME", "")
	v.SetDefault("SOURCE_PREFIX", d.Prefix)
	v.SetDefault("MAX_KEYS", d.MaxKeys)
	v.SetDefault("MAX_WIDTH", d.MaxWidth)
	v.SetDefault("MAX_HEIGHT", d.MaxHeight)
	v.SetDefault("JPEG_QUALITY", d.Quality)
	v.SetDefault("JPEG_INTERLACE", d.Interlace)
	v.SetDefault("MAX_SOURCE_PIXELS", d.MaxSourcePixels)
	v.SetDefault("OVERWRITE_IN_PLACE", d.OverwriteInPlace)
	v.SetDefault("DESTINATION_BUCKET", "")
	v.SetDefault("DESTINATION_PREFIX", d.DestinationPrefix)
	v.SetDefault("UPLOAD_ACL", d.UploadACL)
	v.SetDefault("WORKER_CONCURRENCY", d.Concurrency)
	v.SetDefault("SWEEP_TIMEOUT", d.SweepTimeout)
	v.SetDefault("OBJECT_TIMEOUT", d.ObjectTimeout)

	v.SetDefault("AWS_ENDPOINT_URL", "")
	v.SetDefault("AWS_S3_USE_PATH_STYLE", false)
	v.SetDefault("MINIO_ENDPOINT", "")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_REGION", "us-east-1")
	v.SetDefault("MINIO_USE_SSL", true)

	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_TRIGGER_QUEUE", "optimize_trigger")
	v.SetDefault("RABBITMQ_STATUS_QUEUE", "status_queue")
	v.SetDefault("RABBITMQ_EXCHANGE", "image_processing")
	v.SetDefault("METRICS_ADDR", "")
}

// FromEnv reads and validates the configuration from environment variables.
func FromEnv() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	// An explicitly empty SOURCE_PREFIX or UPLOAD_ACL is meaningful.
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	cfg := &Config{
		AppEnv:         v.GetString("APP_ENV"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFormat:      v.GetString("LOG_FORMAT"),
		StorageBackend: v.GetString("STORAGE_BACKEND"),
		Codec:          v.GetString("IMAGE_CODEC"),
		Optimizer: optimizer.Config{
			Bucket:            v.GetString("AWS_BUCKET_NAME"),
			Prefix:            v.GetString("SOURCE_PREFIX"),
			MaxKeys:           v.GetInt("MAX_KEYS"),
			MaxWidth:          v.GetInt("MAX_WIDTH"),
			MaxHeight:         v.GetInt("MAX_HEIGHT"),
			Quality:           v.GetInt("JPEG_QUALITY"),
			Interlace:         v.GetBool("JPEG_INTERLACE"),
			MaxSourcePixels:   v.GetInt("MAX_SOURCE_PIXELS"),
			OverwriteInPlace:  v.GetBool("OVERWRITE_IN_PLACE"),
			DestinationBucket: v.GetString("DESTINATION_BUCKET"),
			DestinationPrefix: v.GetString("DESTINATION_PREFIX"),
			UploadACL:         v.GetString("UPLOAD_ACL"),
			Concurrency:       v.GetInt("WORKER_CONCURRENCY"),
			SweepTimeout:      v.GetDuration("SWEEP_TIMEOUT"),
			ObjectTimeout:     v.GetDuration("OBJECT_TIMEOUT"),
		},
		AwsEndpointURL:  v.GetString("AWS_ENDPOINT_URL"),
		AwsUsePathStyle: v.GetBool("AWS_S3_USE_PATH_STYLE"),
		Minio: s3compat.Config{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			Region:    v.GetString("MINIO_REGION"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
		},
		RabbitMqURL:          v.GetString("RABBITMQ_URL"),
		RabbitMqTriggerQueue: v.GetString("RABBITMQ_TRIGGER_QUEUE"),
		RabbitMqStatusQueue:  v.GetString("RABBITMQ_STATUS_QUEUE"),
		RabbitMqExchange:     v.GetString("RABBITMQ_EXCHANGE"),
		MetricsAddr:          v.GetString("METRICS_ADDR"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.StorageBackend {
	case BackendS3:
	case BackendMinio:
		if c.Minio.Endpoint == "" || c.Minio.AccessKey == "" || c.Minio.SecretKey == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for the minio backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}
	switch c.Codec {
	case CodecImaging:
		if c.Optimizer.Interlace {
			errs = append(errs, errors.New("IMAGE_CODEC=imaging cannot write interlaced jpeg; set JPEG_INTERLACE=false or use magick"))
		}
	case CodecAuto, CodecMagick:
	default:
		errs = append(errs, fmt.Errorf("unknown IMAGE_CODEC %q", c.Codec))
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat))
	}
	if err := c.Optimizer.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
