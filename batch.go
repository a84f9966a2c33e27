package sortify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// BatchResult is the per-image outcome of ClassifyBatch.
type BatchResult struct {
	Ref   string
	Scale ClassResult
	// Material is populated only when MaterialRun is true: the scale pass
	// decided the image is not a scale shot (or shows a material device).
	Material    ClassResult
	MaterialRun bool
	Err         error
}

// ClassifyBatch classifies refs with bounded parallelism across images.
// Per-image failures (unreadable sources, exhausted retries, corrupt cache
// records) are isolated in BatchResult.Err and never abort other images;
// only cache-store unavailability stops the batch, since no caching
// guarantees can be made past that point.
func (cfg *Config) ClassifyBatch(ctx context.Context, refs []string) ([]BatchResult, error) {
	cfg.defaults()

	var images []string
	for _, ref := range refs {
		if IsImageRef(ref) {
			images = append(images, ref)
		}
	}

	results := make([]BatchResult, len(images))
	total := len(images)
	var done atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for i, ref := range images {
		i, ref := i, ref
		g.Go(func() error {
			res := cfg.classifyOne(ctx, ref)
			results[i] = res

			current := int(done.Add(1))
			if cfg.OnProgress != nil {
				cfg.OnProgress(current, total, fmt.Sprintf("Classifying %d/%d files...", current, total))
			}

			if res.Err != nil && isBatchFatal(res.Err) {
				return res.Err
			}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

// classifyOne runs the scale pass and, when applicable, the material pass.
func (cfg *Config) classifyOne(ctx context.Context, ref string) BatchResult {
	res := BatchResult{Ref: ref}

	scale, device, err := cfg.classifyScale(ctx, ref)
	if err != nil {
		slog.Warn("sortify: scale classification failed", "ref", ref, "error", err.Error())
		res.Err = err
		return res
	}
	res.Scale = scale

	// Material pass only when the image is not a scale shot, or shows a
	// device the material pass must account for.
	if scale.Class != cfg.Rules.Scale.nextStage() && device == "" {
		return res
	}

	material, err := cfg.classifyMaterial(ctx, ref, device)
	if err != nil {
		slog.Warn("sortify: material classification failed", "ref", ref, "error", err.Error())
		res.Err = err
		return res
	}
	res.Material = material
	res.MaterialRun = true
	return res
}

// isBatchFatal reports whether err means the cache store itself is unusable.
// Per-image failure kinds never stop the batch.
func isBatchFatal(err error) bool {
	var pe *PreprocessError
	var re *RemoteError
	if errors.As(err, &pe) || errors.As(err, &re) {
		return false
	}
	if errors.Is(err, ErrCacheCorrupt) || errors.Is(err, ErrWriteConflict) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
