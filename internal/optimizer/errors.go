package optimizer

import (
	"errors"
	"fmt"

	"github.com/mahirjain10/image-optimizer/internal/types"
)

// Error kinds. Every kind except ErrListing is recovered per object.
var (
	ErrListing          = errors.New("listing error")
	ErrUnknownType      = errors.New("unknown image type")
	ErrUnsupportedType  = errors.New("unsupported image type")
	ErrDownload         = errors.New("download error")
	ErrUndecodableImage = errors.New("undecodable image")
	ErrImageTooSmall    = errors.New("image too small")
	ErrImageTooLarge    = errors.New("image too large")
	ErrEncode           = errors.New("encode error")
	ErrUpload           = errors.New("upload error")
	ErrAborted          = errors.New("processing aborted")
)

var kindNames = map[error]string{
	ErrListing:          "ListingError",
	ErrUnknownType:      "UnknownTypeError",
	ErrUnsupportedType:  "UnsupportedTypeError",
	ErrDownload:         "DownloadError",
	ErrUndecodableImage: "UndecodableImageError",
	ErrImageTooSmall:    "ImageTooSmallError",
	ErrImageTooLarge:    "ImageTooLargeError",
	ErrEncode:           "EncodeError",
	ErrUpload:           "UploadError",
	ErrAborted:          "AbortedError",
}

// KindName returns the taxonomy name of a kind sentinel, or "" if err is not one.
func KindName(kind error) string {
	return kindNames[kind]
}

// ProcessingError tags a failure with its kind, the object key and the last
// pipeline state reached.
type ProcessingError struct {
	Kind  error
	Key   string
	State types.ObjectState
	Err   error
}

func (p *ProcessingError) Error() string {
	if p.Err == nil {
		return fmt.Sprintf("%s: key %q", p.Kind, p.Key)
	}
	return fmt.Sprintf("%s: key %q: %v", p.Kind, p.Key, p.Err)
}

func (p *ProcessingError) Unwrap() []error {
	if p.Err == nil {
		return []error{p.Kind}
	}
	return []error{p.Kind, p.Err}
}

func newProcessingError(kind error, key string, state types.ObjectState, err error) *ProcessingError {
	return &ProcessingError{Kind: kind, Key: key, State: state, Err: err}
}
