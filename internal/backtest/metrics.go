package backtest

import (
	"math"
	"sort"
)

// riskFreeRate is the annual rate used in the Sharpe ratio. The
// convention here divides (annual return % − 5%) by volatility %.
const riskFreeRate = 0.05

// computeMetrics derives all performance figures from the equity
// curve and trade list. A curve with fewer than two points leaves the
// result zeroed.
func computeMetrics(r *Result) {
	if len(r.PortfolioValues) < 2 {
		return
	}

	initial := r.PortfolioValues[0]
	final := r.PortfolioValues[len(r.PortfolioValues)-1]
	r.TotalReturn = (final - initial) / initial * 100

	days := int(r.EndDate.Sub(r.StartDate).Hours() / 24)
	if days > 0 && final > 0 {
		r.AnnualReturn = (math.Pow(final/initial, 365.0/float64(days)) - 1) * 100
	}

	returns := dailyReturns(r.PortfolioValues)
	if len(returns) > 1 {
		r.Volatility = stdev(returns) * math.Sqrt(252) * 100
	}
	if r.Volatility > 0 {
		r.SharpeRatio = (r.AnnualReturn - riskFreeRate) / r.Volatility
	}

	r.MaxDrawdown = maxDrawdown(r.PortfolioValues)
	tradeStats(r)

	// VaR at 95% confidence needs a minimum sample to be meaningful.
	if len(returns) > 10 {
		r.VaR95 = percentile(returns, 5) * initial * -1
	}
}

func dailyReturns(values []float64) []float64 {
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		returns = append(returns, (values[i]-values[i-1])/values[i-1])
	}
	return returns
}

// stdev is the sample standard deviation.
func stdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

func maxDrawdown(values []float64) float64 {
	peak := values[0]
	var maxDD float64
	for _, v := range values {
		if v > peak {
			peak = v
		}
		dd := (peak - v) / peak * 100
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

func tradeStats(r *Result) {
	if len(r.Trades) == 0 {
		return
	}
	r.TotalTrades = len(r.Trades)

	var winSum, lossSum float64
	for _, t := range r.Trades {
		switch {
		case t.PnL > 0:
			r.WinningTrades++
			winSum += t.PnL
		case t.PnL < 0:
			r.LosingTrades++
			lossSum += t.PnL
		}
	}
	r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades) * 100
	if r.WinningTrades > 0 {
		r.AvgWin = winSum / float64(r.WinningTrades)
	}
	if r.LosingTrades > 0 {
		r.AvgLoss = lossSum / float64(r.LosingTrades)
	}
}

// percentile interpolates linearly between closest ranks, matching
// the numpy default.
func percentile(xs []float64, p float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
