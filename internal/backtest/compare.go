package backtest

import (
	"context"
	"sort"

	"derivsim/internal/performance"
)

// CompareStrategies runs each config concurrently and returns the
// results ranked by Sharpe ratio, best first. Failed runs sort last
// and stay in the output so a batch report can show what broke.
func (e *Engine) CompareStrategies(ctx context.Context, configs []Config) []*Result {
	results := make([]*Result, len(configs))

	pool := performance.NewWorkerPool(0)
	pool.Start()
	defer pool.Stop()

	done := make(chan int, len(configs))
	for i, cfg := range configs {
		i, cfg := i, cfg
		submitted := pool.Submit(func() {
			results[i] = e.Run(ctx, cfg)
			done <- i
		})
		if !submitted {
			results[i] = e.Run(ctx, cfg)
			done <- i
		}
	}
	for range configs {
		<-done
	}

	sort.SliceStable(results, func(a, b int) bool {
		if (results[a].Err == nil) != (results[b].Err == nil) {
			return results[a].Err == nil
		}
		return results[a].SharpeRatio > results[b].SharpeRatio
	})
	return results
}
