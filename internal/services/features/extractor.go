package features

import (
	"math"

	"InsightHub/internal/domain/models"
)

// ComputeLogReturns returns ln(C_t / C_{t-1}) per bar, or nil with fewer than two bars.
// A non-positive close yields a zero return.
func ComputeLogReturns(candles []models.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev, cur := candles[i-1].Close, candles[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility is the annualized sample standard deviation of the last window returns.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	tail := logReturns[len(logReturns)-window:]
	// shifting by the first return keeps a constant window at exactly zero
	shift := tail[0]
	var sum float64
	for _, r := range tail {
		sum += r - shift
	}
	n := float64(window)
	mean := sum / n

	var ss float64
	for _, r := range tail {
		d := r - shift - mean
		ss += d * d
	}
	return math.Sqrt(ss / (n - 1) * barsPerYear)
}

// RollingVolatility returns the realized volatility series over a sliding window;
// entries before the first full window are zero.
func RollingVolatility(logReturns []float64, window int, barsPerYear float64) []float64 {
	out := make([]float64, len(logReturns))
	for i := window; i <= len(logReturns); i++ {
		out[i-1] = RealizedVolatility(logReturns[:i], window, barsPerYear)
	}
	return out
}

// BarsPerYear returns the approximate number of bars per year for a resolution.
func BarsPerYear(res string) float64 {
	switch res {
	case "1s":
		return 365 * 24 * 60 * 60
	case "5m":
		return 365 * 24 * 12
	default:
		return 365 * 24 * 60
	}
}

// Summary builds the feature map sent to the forecasting services.
func Summary(logReturns []float64, window int, barsPerYear float64) map[string]float64 {
	f := map[string]float64{
		"rv":    RealizedVolatility(logReturns, window, barsPerYear),
		"n":     float64(len(logReturns)),
		"last":  0,
		"drift": 0,
	}
	if len(logReturns) == 0 {
		return f
	}
	var sum float64
	for _, r := range logReturns {
		sum += r
	}
	f["last"] = logReturns[len(logReturns)-1]
	f["drift"] = sum / float64(len(logReturns))
	return f
}
