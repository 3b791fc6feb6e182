package resolver

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FetchMany fetches every related resource concurrently and annotates each
// result with typeTag. Results keep the order of urls. The fan-out is
// fail-fast: the first failed fetch cancels the in-flight siblings and the
// whole relation fails, no partial list is ever returned. Concurrency is
// bounded by the resolver's cap.
func (r *RootResolver) FetchMany(ctx context.Context, urls []string, typeTag string) ([]interface{}, error) {
	results := make([]interface{}, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	if r.maxConcurrency > 0 {
		g.SetLimit(r.maxConcurrency)
	}

	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			raw, err := r.client.Get(ctx, url)
			if err != nil {
				return err
			}
			results[i] = r.buildObject(typeTag, raw)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Debug("relation resolved",
		zap.String("type", typeTag),
		zap.Int("count", len(results)),
	)

	return results, nil
}
