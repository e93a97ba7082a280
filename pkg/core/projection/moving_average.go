package projection

import (
	"sme_health/pkg/core/calc"
)

const maWindow = 3

// MovingAverage extends the mean of the last three values by the mean of the
// last three month-on-month changes. It is the last resort of every chain
// and succeeds on any series of two or more points.
type MovingAverage struct{}

func (m *MovingAverage) Name() string { return MethodMovingAverage }

func (m *MovingAverage) Forecast(series []float64, horizon int) Result {
	if err := checkHistory(series); err != nil {
		return ModelFailed(MethodMovingAverage, "%v", err)
	}

	n := len(series)
	ma, _ := calc.Mean(series[n-min(maWindow, n):]).Get()
	diffs := calc.Diff(series)
	trend, _ := calc.Mean(diffs[len(diffs)-min(maWindow, len(diffs)):]).Get()
	half := z95 * calc.StdDev(series).Or(0)

	f := Forecast{
		Method: MethodMovingAverage,
		Point:  make([]float64, horizon),
		Lower:  make([]float64, horizon),
		Upper:  make([]float64, horizon),
	}
	for i := 0; i < horizon; i++ {
		p := ma + trend*float64(i)
		f.Point[i] = p
		f.Lower[i] = p - half
		f.Upper[i] = p + half
	}
	return Ok(f)
}
