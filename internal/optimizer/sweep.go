package optimizer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mahirjain10/image-optimizer/internal/types"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Sweep runs one activation: list the prefix, run the pipeline for every
// object, then return exactly one summary. Only a listing failure is returned
// as an error; per-object failures are counted in the summary.
func (o *Optimizer) Sweep(ctx context.Context) (*types.BatchSummary, error) {
	if o.config.SweepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.SweepTimeout)
		defer cancel()
	}

	summary := &types.BatchSummary{
		ActivationID: uuid.NewString(),
		Bucket:       o.config.Bucket,
		Prefix:       o.config.Prefix,
		Status:       types.PROCESSING,
		StartedAt:    time.Now().UTC(),
		Results:      []types.ObjectResult{},
	}
	logger := log.With().Str("activationId", summary.ActivationID).Logger()
	logger.Info().
		Str("bucket", summary.Bucket).
		Str("prefix", summary.Prefix).
		Int("concurrency", o.config.Concurrency).
		Msg("sweep started")

	objects, err := o.List(ctx)
	if err != nil {
		summary.Status = types.FAILED
		summary.ErrorMsg = err.Error()
		summary.FinishedAt = time.Now().UTC()
		o.metrics.ObserveSweep(summary.Status, summary.FinishedAt.Sub(summary.StartedAt))
		logger.Error().Err(err).Msg("sweep aborted, listing failed")
		return summary, err
	}
	summary.Listed = len(objects)

	results := make([]types.ObjectResult, len(objects))
	var g errgroup.Group
	g.SetLimit(o.config.Concurrency)
	for i, object := range objects {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = o.abort(object, err)
				return nil
			}
			results[i] = o.Process(ctx, object)
			return nil
		})
	}
	_ = g.Wait()

	for _, result := range results {
		o.metrics.ObserveObject(result.Status, result.ErrorKind)
		if result.Status == types.PROCCESSED {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	summary.Results = results
	summary.Status = types.PROCCESSED
	summary.FinishedAt = time.Now().UTC()
	o.metrics.ObserveSweep(summary.Status, summary.FinishedAt.Sub(summary.StartedAt))

	logger.Info().
		Int("listed", summary.Listed).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Dur("took", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("sweep finished")
	return summary, nil
}

func (o *Optimizer) abort(object types.ObjectInfo, cause error) types.ObjectResult {
	result := types.ObjectResult{Key: object.Key, State: types.StateListed}
	o.fail(&result, newProcessingError(ErrAborted, object.Key, result.State, cause))
	return result
}
