package optimizer

import (
	"context"
	"fmt"

	"github.com/mahirjain10/image-optimizer/internal/types"
)

// List enumerates up to MaxKeys objects under the configured prefix. An empty
// listing is not an error.
func (o *Optimizer) List(ctx context.Context) ([]types.ObjectInfo, error) {
	objects, err := o.store.ListObjects(ctx, o.config.Bucket, o.config.Prefix, o.config.MaxKeys)
	if err != nil {
		return nil, fmt.Errorf("%w: bucket %s prefix %q: %w", ErrListing, o.config.Bucket, o.config.Prefix, err)
	}
	if len(objects) > o.config.MaxKeys {
		objects = objects[:o.config.MaxKeys]
	}
	for i := range objects {
		if objects[i].Bucket == "" {
			objects[i].Bucket = o.config.Bucket
		}
	}
	return objects, nil
}
