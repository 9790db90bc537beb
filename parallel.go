package cindex

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParseJob describes one unit for ParseAll.
type ParseJob struct {
	Filename string
	Args     []string
	Overlays []UnsavedFile
	Options  ParseOptions
}

// ParseAll parses every job with at most limit parses in flight; limit
// <= 0 uses the number of CPUs. Results are returned in job order. On the
// first failure the units already built are disposed and the error is
// returned. Each unit is still used from one goroutine at a time; only
// distinct units are built concurrently.
func (ix *Index) ParseAll(ctx context.Context, jobs []ParseJob, limit int) ([]*TranslationUnit, error) {
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	units := make([]*TranslationUnit, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, job := range jobs {
		g.Go(func() error {
			tu, err := ix.Parse(gctx, job.Filename, job.Args, job.Overlays, job.Options)
			if err != nil {
				return fmt.Errorf("cindex: parse job %d: %w", i, err)
			}
			units[i] = tu
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, tu := range units {
			if tu != nil {
				tu.Dispose()
			}
		}
		return nil, err
	}
	return units, nil
}
