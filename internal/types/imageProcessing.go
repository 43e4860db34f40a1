package types

import "time"

// ImageType is the format inferred from an object key suffix.
type ImageType string

const (
	ImageTypeUnknown     ImageType = "UNKNOWN"
	ImageTypeUnsupported ImageType = "UNSUPPORTED"
	ImageTypeJPEG        ImageType = "JPEG"
	ImageTypePNG         ImageType = "PNG"
)

// ObjectInfo is a raw listing entry as returned by the storage backend.
type ObjectInfo struct {
	Bucket       string    `json:"bucket"`
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ETag         string    `json:"eTag,omitempty"`
	LastModified time.Time `json:"lastModified,omitempty"`
}

// ObjectDescriptor identifies one listed object together with its inferred type.
type ObjectDescriptor struct {
	Bucket string    `json:"bucket"`
	Key    string    `json:"key"`
	Type   ImageType `json:"type"`
}

// ImageBuffer holds encoded image bytes and their declared content type.
type ImageBuffer struct {
	Data        []byte
	ContentType string
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ScalingDecision is the uniform scale factor and target box for one image.
type ScalingDecision struct {
	Factor float64    `json:"factor"`
	Source Dimensions `json:"source"`
	Target Dimensions `json:"target"`
}

const (
	CropModeFill  = "fill"
	GravityCenter = "center"
	FormatJPEG    = "jpeg"
)

// EncodeOptions controls how the codec renders the target image.
type EncodeOptions struct {
	CropMode  string
	Gravity   string
	Quality   int
	Interlace bool
	Format    string
}
