package transformation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/mahirjain10/image-optimizer/internal/types"
	"github.com/rs/zerolog/log"
)

var magickGravity = map[string]string{
	types.GravityCenter: "Center",
	"":                  "Center",
	"north":             "North",
	"south":             "South",
	"east":              "East",
	"west":              "West",
	"northwest":         "NorthWest",
	"northeast":         "NorthEast",
	"southwest":         "SouthWest",
	"southeast":         "SouthEast",
}

// MagickCodec shells out to ImageMagick, which supports progressive JPEG.
type MagickCodec struct {
	magickBinary []string
}

func NewMagickCodec() (*MagickCodec, error) {
	mc := &MagickCodec{}
	commands := [][]string{{"magick", "-version"}, {"convert", "-version"}}

	for _, command := range commands {
		_, err := exec.Command(command[0], command[1:]...).Output()
		if err != nil {
			log.Debug().Strs("commands", command).Msg("binary not found")
			continue
		}

		log.Debug().Strs("commands", command).Msg("binary found")
		mc.magickBinary = command[:len(command)-1]
		break
	}

	if len(mc.magickBinary) == 0 {
		return nil, errors.New("magick binary not available")
	}

	return mc, nil
}

func (m *MagickCodec) SupportsInterlace() bool {
	return true
}

func (m *MagickCodec) DecodeDimensions(buffer []byte) (types.Dimensions, error) {
	return DecodeDimensions(buffer)
}

func (m *MagickCodec) ResizeAndEncode(ctx context.Context, buffer []byte, target types.Dimensions, opts types.EncodeOptions) ([]byte, error) {
	args, err := magickArgs(m.magickBinary, target, opts)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = bytes.NewReader(buffer)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		log.Error().Str("magickStderr", stderr.String()).Msg("magick command failed")
		return nil, fmt.Errorf("magick resize failed: %w", err)
	}
	if stdout.Len() == 0 {
		return nil, errors.New("magick produced no output")
	}
	if opts.Interlace && !IsProgressiveJPEG(stdout.Bytes()) {
		return nil, errors.New("magick output is not a progressive jpeg")
	}

	log.Debug().Int("bytes", stdout.Len()).Msg("magick command finished")
	return stdout.Bytes(), nil
}

// magickArgs reads the image from stdin and writes the result to stdout.
// "^" makes the resize cover the box, -extent crops the overflow around the
// gravity point.
func magickArgs(binary []string, target types.Dimensions, opts types.EncodeOptions) ([]string, error) {
	if len(binary) == 0 {
		return nil, errors.New("magick binary not configured")
	}
	if target.Width <= 0 || target.Height <= 0 {
		return nil, fmt.Errorf("%w: target %dx%d", ErrInvalidDimensions, target.Width, target.Height)
	}
	if _, err := getFormat(opts.Format); err != nil {
		return nil, err
	}
	gravity, ok := magickGravity[opts.Gravity]
	if !ok {
		return nil, fmt.Errorf("unsupported gravity: %s", opts.Gravity)
	}
	geometry := fmt.Sprintf("%dx%d", target.Width, target.Height)

	args := append([]string{}, binary...)
	args = append(args, "-")
	switch opts.CropMode {
	case types.CropModeFill, "":
		args = append(args, "-resize", geometry+"^", "-gravity", gravity, "-extent", geometry)
	case "fit":
		args = append(args, "-resize", geometry)
	default:
		return nil, fmt.Errorf("unsupported crop mode: %s", opts.CropMode)
	}
	if opts.Quality > 0 {
		args = append(args, "-quality", strconv.Itoa(opts.Quality))
	}
	if opts.Interlace {
		args = append(args, "-interlace", "Plane")
	}
	return append(args, "jpeg:-"), nil
}
