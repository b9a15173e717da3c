package backtest

import (
	"context"
	"sync"

	"derivsim/internal/errors"
	"derivsim/internal/performance"
)

// ParamRanges bounds the grid search per strategy. Empty slices fall
// back to the conventional sweep for that parameter.
type ParamRanges struct {
	FastMA    []int
	SlowMA    []int
	RSIPeriod []int
	Lookback  []int
}

// Optimization is the outcome of a grid search.
type Optimization struct {
	BestParams Params
	BestResult *Result
	BestSharpe float64
	Evaluated  int
}

const optimizeCapital = 100_000

// Optimize grid-searches strategy parameters on one symbol and keeps
// the parameter set with the highest Sharpe ratio. Invalid cells
// (fast MA at or above slow MA) are skipped, not counted. Runs execute
// concurrently; the context cancels the whole sweep.
func (e *Engine) Optimize(ctx context.Context, strategy StrategyName, symbol string, days int, ranges ParamRanges) (*Optimization, error) {
	grid := buildGrid(strategy, ranges)
	if len(grid) == 0 {
		return nil, errors.Wrapf(errors.ErrUnknownStrategy, "no parameter grid for %q", strategy)
	}

	results := make([]*Result, len(grid))

	pool := performance.NewWorkerPool(0)
	pool.Start()
	defer pool.Stop()

	var wg sync.WaitGroup
	for i, params := range grid {
		i, params := i, params
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i] = e.Run(ctx, Config{
				Strategy:       strategy,
				Symbol:         symbol,
				Days:           days,
				InitialCapital: optimizeCapital,
				Params:         params,
			})
		}
		if !pool.Submit(task) {
			task()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opt := &Optimization{BestSharpe: -999, Evaluated: len(grid)}
	for i, r := range results {
		if r.Err != nil {
			continue
		}
		if r.SharpeRatio > opt.BestSharpe {
			opt.BestSharpe = r.SharpeRatio
			opt.BestParams = grid[i]
			opt.BestResult = r
		}
	}
	return opt, nil
}

func buildGrid(strategy StrategyName, ranges ParamRanges) []Params {
	var grid []Params

	switch strategy {
	case StrategyMACrossover:
		fasts := ranges.FastMA
		if len(fasts) == 0 {
			fasts = []int{5, 10, 15, 20}
		}
		slows := ranges.SlowMA
		if len(slows) == 0 {
			slows = []int{30, 40, 50, 60}
		}
		for _, fast := range fasts {
			for _, slow := range slows {
				if fast >= slow {
					continue
				}
				grid = append(grid, Params{FastMA: fast, SlowMA: slow})
			}
		}
	case StrategyRSI:
		periods := ranges.RSIPeriod
		if len(periods) == 0 {
			periods = []int{7, 14, 21}
		}
		for _, period := range periods {
			grid = append(grid, Params{RSIPeriod: period})
		}
	case StrategyBreakout:
		lookbacks := ranges.Lookback
		if len(lookbacks) == 0 {
			lookbacks = []int{10, 20, 30}
		}
		for _, lookback := range lookbacks {
			grid = append(grid, Params{Lookback: lookback})
		}
	}
	return grid
}
