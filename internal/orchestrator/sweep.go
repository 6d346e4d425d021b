package orchestrator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"kaizen/internal/arrival"
	"kaizen/internal/scanner"
	"kaizen/internal/watcher"
)

// Sweep organizes files already present in roots. It uses the same pipeline
// as live arrivals without the settle delay. Roots that cannot be listed are
// reported in the summary and the rest proceed. A nil roots uses the
// configured watch paths.
func (o *Orchestrator) Sweep(ctx context.Context, roots []string) (*RunSummary, error) {
	start := time.Now()
	cfg := o.holder.Load()
	if roots == nil {
		roots = cfg.WatchPaths
	}

	settings := *o.worker.Settings()
	settings.Settle = 0
	settings.StableSizeCheck = false
	sweeper := arrival.NewWorker(&settings, o.arrivalDeps)

	var (
		files    []scanner.FileEntry
		scanErrs []error
	)
	for _, root := range roots {
		entries, err := scanner.Scan(root)
		if err != nil {
			o.logger.Warn().Err(err).Str("root", root).Msg("skipping root")
			scanErrs = append(scanErrs, fmt.Errorf("failed to scan %s: %w", root, err))
			continue
		}
		files = append(files, entries...)
	}

	results := make([]outcomeResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Arrival.Workers, 1))
	for i, f := range files {
		g.Go(func() error {
			out, err := sweeper.Process(gctx, watcher.Event{Path: f.FullPath, DetectedAt: time.Now()})
			results[i] = outcomeResult{outcome: out, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	o.batcher.Flush()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	summary := generateSummary(results, scanErrs, time.Since(start))
	o.logger.Info().
		Int("moved", summary.Moved).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("sweep complete")
	return summary, nil
}
