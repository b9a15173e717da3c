package backtest

import "derivsim/internal/models"

// rollingMean computes a simple moving average of closes. Entries
// before the window is full are NaN-free but flagged invalid via the
// companion ok slice.
func rollingMean(bars []models.Candle, period int) ([]float64, []bool) {
	out := make([]float64, len(bars))
	ok := make([]bool, len(bars))
	if period <= 0 || len(bars) < period {
		return out, ok
	}

	var sum float64
	for i, bar := range bars {
		sum += bar.Close
		if i >= period {
			sum -= bars[i-period].Close
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
			ok[i] = true
		}
	}
	return out, ok
}

// rsiSeries computes RSI from rolling average gain and loss over the
// period. When both averages are zero (a flat series) the RSI is
// defined as 50; when only losses are zero it saturates at 100.
func rsiSeries(bars []models.Candle, period int) ([]float64, []bool) {
	out := make([]float64, len(bars))
	ok := make([]bool, len(bars))
	if period <= 0 || len(bars) <= period {
		return out, ok
	}

	gains := make([]float64, len(bars))
	losses := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		delta := bars[i].Close - bars[i-1].Close
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	var gainSum, lossSum float64
	for i := 1; i < len(bars); i++ {
		gainSum += gains[i]
		lossSum += losses[i]
		if i > period {
			gainSum -= gains[i-period]
			lossSum -= losses[i-period]
		}
		if i < period {
			continue
		}

		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)
		switch {
		case avgLoss == 0 && avgGain == 0:
			out[i] = 50
		case avgLoss == 0:
			out[i] = 100
		default:
			rs := avgGain / avgLoss
			out[i] = 100 - 100/(1+rs)
		}
		ok[i] = true
	}
	return out, ok
}

// rollingExtremes returns the highest high and lowest low over the
// period ending just before index i.
func rollingExtremes(bars []models.Candle, i, period int) (resistance, support float64) {
	start := i - period
	if start < 0 {
		start = 0
	}
	resistance = bars[start].High
	support = bars[start].Low
	for _, bar := range bars[start:i] {
		if bar.High > resistance {
			resistance = bar.High
		}
		if bar.Low < support {
			support = bar.Low
		}
	}
	return resistance, support
}
