package projection

import (
	"math"

	"gonum.org/v1/gonum/optimize"

	"sme_health/pkg/core/calc"
)

// =============================================================================
// EXPONENTIAL SMOOTHING
// =============================================================================

const (
	esMinPoints      = 4
	SeasonLength     = 12
	seasonalMinPoint = 2 * SeasonLength
)

// ExpSmoothing is Holt's additive trend method. With at least two full
// seasons of history it adds additive monthly seasonality (Holt-Winters).
// Smoothing parameters minimize the in-sample SSE; each is kept in (0,1)
// through a logistic transform.
type ExpSmoothing struct {
	MaxIterations int
}

func (s *ExpSmoothing) Name() string { return MethodExpSmoothing }

// SmoothingFit is a fitted smoothing model.
type SmoothingFit struct {
	Alpha, Beta, Gamma float64
	Seasonal           bool
	Level, Trend       float64
	Seasons            []float64 // last SeasonLength seasonal terms, oldest first
	Residuals          []float64
}

func (s *ExpSmoothing) Forecast(series []float64, horizon int) Result {
	if len(series) < esMinPoints {
		return ModelFailed(MethodExpSmoothing, "need at least %d points, have %d", esMinPoints, len(series))
	}
	fit, reason := s.Fit(series)
	if reason != "" {
		return ModelFailed(MethodExpSmoothing, "%s", reason)
	}

	half := z95 * calc.PopStdDev(fit.Residuals).Or(0)
	f := Forecast{
		Method: MethodExpSmoothing,
		Point:  make([]float64, horizon),
		Lower:  make([]float64, horizon),
		Upper:  make([]float64, horizon),
	}
	for k := 0; k < horizon; k++ {
		p := fit.Level + float64(k+1)*fit.Trend
		if fit.Seasonal {
			p += fit.Seasons[k%SeasonLength]
		}
		f.Point[k] = p
		f.Lower[k] = p - half
		f.Upper[k] = p + half
	}
	for _, v := range f.Point {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ModelFailed(MethodExpSmoothing, "non-finite forecast")
		}
	}
	return Ok(f)
}

// Fit estimates the smoothing parameters. A non-empty reason means the fit
// is unusable.
func (s *ExpSmoothing) Fit(series []float64) (SmoothingFit, string) {
	seasonal := len(series) >= seasonalMinPoint
	init := []float64{0, -1} // alpha ~0.5, beta ~0.27
	if seasonal {
		init = append(init, -1)
	}

	iters := s.MaxIterations
	if iters == 0 {
		iters = 1000
	}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			fit := runSmoothing(series, seasonal, params(x))
			return sumSquares(fit.Residuals)
		},
	}
	settings := &optimize.Settings{
		MajorIterations: iters,
		Converger: &optimize.FunctionConverge{
			Relative:   1e-10,
			Iterations: 100,
		},
	}

	x := init
	res, err := optimize.Minimize(problem, init, settings, &optimize.NelderMead{})
	if err == nil && res != nil {
		x = res.X
	}
	fit := runSmoothing(series, seasonal, params(x))
	if !finite(fit.Level) || !finite(fit.Trend) || !finite(sumSquares(fit.Residuals)) {
		return SmoothingFit{}, "non-finite fitted values"
	}
	return fit, ""
}

func params(x []float64) [3]float64 {
	var p [3]float64
	for i := range x {
		if i < 3 {
			p[i] = logistic(x[i])
		}
	}
	return p
}

func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func runSmoothing(y []float64, seasonal bool, p [3]float64) SmoothingFit {
	alpha, beta, gamma := p[0], p[1], p[2]
	fit := SmoothingFit{Alpha: alpha, Beta: beta, Seasonal: seasonal}

	// Residuals cover the whole series. Initialisation points are fitted by
	// the initial state itself.
	if !seasonal {
		level, trend := y[0], y[1]-y[0]
		fit.Residuals = append(fit.Residuals, 0)
		for t := 1; t < len(y); t++ {
			e := y[t] - (level + trend)
			fit.Residuals = append(fit.Residuals, e)
			prev := level
			level = alpha*y[t] + (1-alpha)*(level+trend)
			trend = beta*(level-prev) + (1-beta)*trend
		}
		fit.Level, fit.Trend = level, trend
		return fit
	}

	m := SeasonLength
	first, _ := calc.Mean(y[:m]).Get()
	second, _ := calc.Mean(y[m : 2*m]).Get()
	level, trend := first, (second-first)/float64(m)
	seasons := make([]float64, len(y))
	for i := 0; i < m; i++ {
		seasons[i] = y[i] - first
		// first is the mean of season one, centred at (m-1)/2.
		fitted := first + trend*(float64(i)-float64(m-1)/2) + seasons[i]
		fit.Residuals = append(fit.Residuals, y[i]-fitted)
	}
	for t := m; t < len(y); t++ {
		e := y[t] - (level + trend + seasons[t-m])
		fit.Residuals = append(fit.Residuals, e)
		prev := level
		level = alpha*(y[t]-seasons[t-m]) + (1-alpha)*(level+trend)
		trend = beta*(level-prev) + (1-beta)*trend
		seasons[t] = gamma*(y[t]-level) + (1-gamma)*seasons[t-m]
	}
	fit.Gamma = gamma
	fit.Level, fit.Trend = level, trend
	fit.Seasons = append([]float64(nil), seasons[len(y)-m:]...)
	return fit
}

func sumSquares(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x * x
	}
	if math.IsNaN(s) {
		return math.Inf(1)
	}
	return s
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
