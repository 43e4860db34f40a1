package optimizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mahirjain10/image-optimizer/internal/transformation"
	"github.com/mahirjain10/image-optimizer/internal/types"
	"github.com/rs/zerolog/log"
)

// InferType reads the image type from the text after the last '.' in key.
func InferType(key string) (types.ImageType, error) {
	dot := strings.LastIndex(key, ".")
	if dot == -1 {
		return types.ImageTypeUnknown, fmt.Errorf("%w: no suffix", ErrUnknownType)
	}
	switch suffix := strings.ToLower(key[dot+1:]); suffix {
	case "jpg", "jpeg":
		return types.ImageTypeJPEG, nil
	case "png":
		return types.ImageTypePNG, nil
	default:
		return types.ImageTypeUnsupported, fmt.Errorf("%w: suffix %q", ErrUnsupportedType, suffix)
	}
}

// Process runs the download, inspect, scale, encode and upload steps for one
// object. Failures are returned inside the result, never as a panic or an
// error that stops the batch.
func (o *Optimizer) Process(ctx context.Context, object types.ObjectInfo) types.ObjectResult {
	if o.config.ObjectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.ObjectTimeout)
		defer cancel()
	}

	result := types.ObjectResult{Key: object.Key, State: types.StateListed}
	if err := o.process(ctx, object, &result); err != nil {
		o.fail(&result, err)
		return result
	}

	result.Status = types.PROCCESSED
	log.Info().
		Str("key", object.Key).
		Str("destination", result.DestinationKey).
		Int("width", result.Scaling.Target.Width).
		Int("height", result.Scaling.Target.Height).
		Int("bytesIn", result.BytesIn).
		Int("bytesOut", result.BytesOut).
		Msg("image optimized")
	return result
}

// describe builds the descriptor for a listed object from its key suffix.
func (o *Optimizer) describe(object types.ObjectInfo) (types.ObjectDescriptor, error) {
	descriptor := types.ObjectDescriptor{Bucket: object.Bucket, Key: object.Key}
	if descriptor.Bucket == "" {
		descriptor.Bucket = o.config.Bucket
	}
	imageType, err := InferType(object.Key)
	descriptor.Type = imageType
	return descriptor, err
}

func (o *Optimizer) process(ctx context.Context, object types.ObjectInfo, result *types.ObjectResult) error {
	// 1. Type inference
	descriptor, err := o.describe(object)
	result.Type = descriptor.Type
	key, bucket := descriptor.Key, descriptor.Bucket
	if err != nil {
		kind := ErrUnsupportedType
		if errors.Is(err, ErrUnknownType) {
			kind = ErrUnknownType
		}
		return newProcessingError(kind, key, result.State, err)
	}
	result.State = types.StateTypeChecked

	// 2. Download
	source, err := o.store.GetObject(ctx, bucket, key)
	if err != nil {
		return newProcessingError(ErrDownload, key, result.State, err)
	}
	result.BytesIn = len(source.Data)
	result.State = types.StateDownloaded

	// 3. Inspect
	dim, err := o.codec.DecodeDimensions(source.Data)
	if err != nil {
		return newProcessingError(ErrUndecodableImage, key, result.State, err)
	}
	if limit := o.config.MaxSourcePixels; limit > 0 && dim.Width*dim.Height > limit {
		err := fmt.Errorf("%dx%d exceeds %d pixels", dim.Width, dim.Height, limit)
		return newProcessingError(ErrImageTooLarge, key, result.State, err)
	}
	result.State = types.StateInspected

	// 4. Scaling decision
	decision, err := transformation.ComputeScaling(dim, o.config.MaxWidth, o.config.MaxHeight)
	if err != nil {
		kind := ErrUndecodableImage
		if errors.Is(err, transformation.ErrBelowBounds) {
			kind = ErrImageTooSmall
		}
		return newProcessingError(kind, key, result.State, err)
	}
	result.Scaling = &decision
	result.State = types.StateScalingChecked

	// 5. Resize and re-encode
	encoded, err := o.codec.ResizeAndEncode(ctx, source.Data, decision.Target, o.config.encodeOptions())
	if err != nil {
		return newProcessingError(ErrEncode, key, result.State, err)
	}
	result.BytesOut = len(encoded)
	result.State = types.StateResized

	// 6. Upload, keeping the original content type. A cancelled object must
	// not write anything.
	if err := ctx.Err(); err != nil {
		return newProcessingError(ErrUpload, key, result.State, err)
	}
	dstBucket, dstKey := o.DestinationKey(key)
	result.DestinationBucket = dstBucket
	result.DestinationKey = dstKey
	output := &types.ImageBuffer{Data: encoded, ContentType: source.ContentType}
	if err := o.store.PutObject(ctx, dstBucket, dstKey, output, o.config.UploadACL); err != nil {
		return newProcessingError(ErrUpload, key, result.State, err)
	}
	result.State = types.StateUploaded
	return nil
}

func (o *Optimizer) fail(result *types.ObjectResult, err error) {
	result.Status = types.FAILED
	result.FailedAt = result.State
	result.State = types.StateFailed
	result.Err = err
	result.ErrorMsg = err.Error()

	var procErr *ProcessingError
	if errors.As(err, &procErr) {
		result.ErrorKind = KindName(procErr.Kind)
	}

	log.Warn().
		Err(err).
		Str("key", result.Key).
		Str("kind", result.ErrorKind).
		Str("state", string(result.FailedAt)).
		Msg("image skipped")
}
