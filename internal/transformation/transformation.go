package transformation

import (
	"bytes"
	"context"
	"fmt"
	"image"

	// Registers the decoders with the standard 'image' package so both
	// image.Decode and image.DecodeConfig understand these formats.
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/mahirjain10/image-optimizer/internal/types"
	"github.com/rs/zerolog/log"
)

// getFormat maps the requested output format to the imaging.Format enum
func getFormat(format string) (imaging.Format, error) {
	switch format {
	case "jpeg", "jpg", "":
		return imaging.JPEG, nil
	default:
		return -1, fmt.Errorf("unsupported output format: %s", format)
	}
}

func getAnchor(gravity string) (imaging.Anchor, error) {
	switch gravity {
	case types.GravityCenter, "":
		return imaging.Center, nil
	case "north":
		return imaging.Top, nil
	case "south":
		return imaging.Bottom, nil
	case "east":
		return imaging.Right, nil
	case "west":
		return imaging.Left, nil
	case "northwest":
		return imaging.TopLeft, nil
	case "northeast":
		return imaging.TopRight, nil
	case "southwest":
		return imaging.BottomLeft, nil
	case "southeast":
		return imaging.BottomRight, nil
	default:
		return imaging.Center, fmt.Errorf("unsupported gravity: %s", gravity)
	}
}

// DecodeDimensions reads only the image header to get its size.
func DecodeDimensions(buffer []byte) (types.Dimensions, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(buffer))
	if err != nil {
		return types.Dimensions{}, fmt.Errorf("failed to decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return types.Dimensions{}, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, cfg.Width, cfg.Height)
	}
	return types.Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

// ImagingCodec resizes and re-encodes in pure Go. The standard JPEG encoder
// writes baseline files only, so it cannot honour Interlace.
type ImagingCodec struct {
	filter imaging.ResampleFilter
}

func NewImagingCodec() *ImagingCodec {
	return &ImagingCodec{filter: imaging.Lanczos}
}

func (c *ImagingCodec) SupportsInterlace() bool {
	return false
}

func (c *ImagingCodec) DecodeDimensions(buffer []byte) (types.Dimensions, error) {
	return DecodeDimensions(buffer)
}

func (c *ImagingCodec) ResizeAndEncode(ctx context.Context, buffer []byte, target types.Dimensions, opts types.EncodeOptions) ([]byte, error) {
	if target.Width <= 0 || target.Height <= 0 {
		return nil, fmt.Errorf("%w: target %dx%d", ErrInvalidDimensions, target.Width, target.Height)
	}
	format, err := getFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	anchor, err := getAnchor(opts.Gravity)
	if err != nil {
		return nil, err
	}

	// 1. Decode the image
	img, _, err := image.Decode(bytes.NewReader(buffer))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 2. Transform
	var newImage image.Image
	switch opts.CropMode {
	case types.CropModeFill, "":
		newImage = imaging.Fill(img, target.Width, target.Height, anchor, c.filter)
	case "fit":
		newImage = imaging.Fit(img, target.Width, target.Height, c.filter)
	default:
		return nil, fmt.Errorf("unsupported crop mode: %s", opts.CropMode)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.Interlace {
		log.Warn().Msg("interlaced jpeg not supported by imaging codec, writing baseline")
	}

	// 3. Re-encode to a new buffer
	encodeOpts := []imaging.EncodeOption{}
	if opts.Quality > 0 {
		encodeOpts = append(encodeOpts, imaging.JPEGQuality(opts.Quality))
	}
	buf := new(bytes.Buffer)
	if err = imaging.Encode(buf, newImage, format, encodeOpts...); err != nil {
		return nil, fmt.Errorf("error while encoding: %w", err)
	}
	return buf.Bytes(), nil
}
