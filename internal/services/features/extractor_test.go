package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"InsightHub/internal/domain/models"
)

func candles(closes ...float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{Close: c}
	}
	return out
}

func TestComputeLogReturns(t *testing.T) {
	assert.Nil(t, ComputeLogReturns(candles(100)))

	r := ComputeLogReturns(candles(100, 110, 0, 121))
	assert.Len(t, r, 3)
	assert.InDelta(t, math.Log(1.1), r[0], 1e-12)
	assert.Zero(t, r[1])
	assert.Zero(t, r[2])
}

func TestRealizedVolatility(t *testing.T) {
	assert.Zero(t, RealizedVolatility([]float64{0.1}, 5, 1))
	assert.Zero(t, RealizedVolatility([]float64{0.01, 0.01, 0.01}, 3, 1))

	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 0.0123
	}
	assert.Zero(t, RealizedVolatility(flat, 30, BarsPerYear("1m")))

	// sample std of {1,-1} is sqrt(2)
	assert.InDelta(t, math.Sqrt(2)*10, RealizedVolatility([]float64{5, 1, -1}, 2, 100), 1e-9)
}

func TestRollingVolatility(t *testing.T) {
	v := RollingVolatility([]float64{1, -1, 1, -1}, 2, 1)
	assert.Len(t, v, 4)
	assert.Zero(t, v[0])
	assert.InDelta(t, math.Sqrt(2), v[1], 1e-9)
	assert.InDelta(t, math.Sqrt(2), v[3], 1e-9)
}

func TestSummary(t *testing.T) {
	f := Summary([]float64{0.1, 0.3}, 2, 1)
	assert.InDelta(t, 0.2, f["drift"], 1e-12)
	assert.Equal(t, 0.3, f["last"])
	assert.Equal(t, 2.0, f["n"])

	assert.Zero(t, Summary(nil, 2, 1)["drift"])
}

func TestBarsPerYear(t *testing.T) {
	assert.Equal(t, float64(365*24*12), BarsPerYear("5m"))
	assert.Equal(t, float64(365*24*60), BarsPerYear("other"))
}
