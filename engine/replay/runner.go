package replay

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/vksync/engine/core"
)

// Runner replays scenario files, each against its own layer.
type Runner struct {
	Options
	// Parallel bounds the scenarios replayed at once, 0 means GOMAXPROCS.
	Parallel int
}

// RunFiles loads and replays every path. Results keep the order of paths.
// The first load or replay error cancels the remaining scenarios.
func (rn *Runner) RunFiles(ctx context.Context, paths []string) ([]*Result, error) {
	results := make([]*Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(rn.limit())
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			s, err := Load(path)
			if err != nil {
				return err
			}
			res, err := Execute(ctx, s, rn.Options)
			if err != nil {
				return err
			}
			core.LogDebug("%s: %d messages in %s", s.Name, len(res.Records), res.Duration)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (rn *Runner) limit() int {
	if rn.Parallel > 0 {
		return rn.Parallel
	}
	return runtime.GOMAXPROCS(0)
}
