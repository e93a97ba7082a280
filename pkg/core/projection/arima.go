package projection

import (
	"math"

	"gonum.org/v1/gonum/optimize"

	"sme_health/pkg/core/calc"
)

// =============================================================================
// ARIMA(1,1,1)
// =============================================================================

const (
	arimaMinPoints = 8
	z95            = 1.96
)

// ARIMA fits an ARIMA(1,1,1) with drift by conditional sum of squares.
//
// On the first difference d_t the model is
//
//	d_t - c = phi*(d_{t-1} - c) + e_t + theta*e_{t-1}
//
// The fit is done on the standardized differences so the optimizer works on
// unit-scale parameters whatever the revenue magnitude.
type ARIMA struct {
	// MaxIterations bounds the Nelder-Mead search. Zero means 1000.
	MaxIterations int
}

func (a *ARIMA) Name() string { return MethodARIMA }

// ARIMAFit holds the fitted parameters on the original scale.
type ARIMAFit struct {
	Drift     float64
	Phi       float64
	Theta     float64
	Sigma2    float64
	LastDiff  float64
	LastResid float64
}

func (a *ARIMA) Forecast(series []float64, horizon int) Result {
	if len(series) < arimaMinPoints {
		return ModelFailed(MethodARIMA, "need at least %d points, have %d", arimaMinPoints, len(series))
	}
	fit, reason := a.Fit(series)
	if reason != "" {
		return ModelFailed(MethodARIMA, "%s", reason)
	}

	f := Forecast{
		Method: MethodARIMA,
		Point:  make([]float64, horizon),
		Lower:  make([]float64, horizon),
		Upper:  make([]float64, horizon),
	}

	level := series[len(series)-1]
	prevDiff := fit.LastDiff
	for k := 0; k < horizon; k++ {
		d := fit.Drift + fit.Phi*(prevDiff-fit.Drift)
		if k == 0 {
			d += fit.Theta * fit.LastResid
		}
		level += d
		prevDiff = d
		f.Point[k] = level
	}

	sigma := math.Sqrt(fit.Sigma2)
	for k, w := range cumulativePsi(fit.Phi, fit.Theta, horizon) {
		half := z95 * sigma * math.Sqrt(w)
		f.Lower[k] = f.Point[k] - half
		f.Upper[k] = f.Point[k] + half
	}
	return Ok(f)
}

// Fit estimates the model. A non-empty reason means the fit is unusable.
func (a *ARIMA) Fit(series []float64) (ARIMAFit, string) {
	diffs := calc.Diff(series)
	mean, _ := calc.Mean(diffs).Get()
	scale := calc.StdDev(diffs).Or(0)
	if scale == 0 {
		scale = 1
	}
	z := make([]float64, len(diffs))
	for i, d := range diffs {
		z[i] = (d - mean) / scale
	}

	iters := a.MaxIterations
	if iters == 0 {
		iters = 1000
	}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			sse, _ := cssResiduals(z, x[0], x[1], x[2])
			return sse
		},
	}
	settings := &optimize.Settings{
		MajorIterations: iters,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 100,
		},
	}
	res, err := optimize.Minimize(problem, []float64{0, 0.1, 0.1}, settings, &optimize.NelderMead{})
	if err != nil {
		return ARIMAFit{}, "optimizer error: " + err.Error()
	}
	if !converged(res.Status) {
		return ARIMAFit{}, "did not converge: " + res.Status.String()
	}

	cz, phi, theta := res.X[0], res.X[1], res.X[2]
	if math.Abs(phi) >= 1 {
		return ARIMAFit{}, "non-stationary AR coefficient"
	}
	if math.Abs(theta) >= 1 {
		return ARIMAFit{}, "non-invertible MA coefficient"
	}

	sse, resid := cssResiduals(z, cz, phi, theta)
	if len(resid) == 0 {
		return ARIMAFit{}, "no residuals"
	}
	sigma2 := sse / float64(len(resid)) * scale * scale
	if math.IsNaN(sigma2) || math.IsInf(sigma2, 0) {
		return ARIMAFit{}, "non-finite residual variance"
	}

	return ARIMAFit{
		Drift:     mean + scale*cz,
		Phi:       phi,
		Theta:     theta,
		Sigma2:    sigma2,
		LastDiff:  diffs[len(diffs)-1],
		LastResid: resid[len(resid)-1] * scale,
	}, ""
}

// cssResiduals runs the ARMA(1,1) recursion with the pre-sample shock set to
// zero and returns the sum of squared residuals.
func cssResiduals(d []float64, c, phi, theta float64) (float64, []float64) {
	if len(d) < 2 {
		return math.Inf(1), nil
	}
	resid := make([]float64, 0, len(d)-1)
	var prevE, sse float64
	for t := 1; t < len(d); t++ {
		e := (d[t] - c) - phi*(d[t-1]-c) - theta*prevE
		resid = append(resid, e)
		sse += e * e
		prevE = e
	}
	if math.IsNaN(sse) {
		return math.Inf(1), resid
	}
	return sse, resid
}

// cumulativePsi returns, for each horizon step h, the sum over j<h of the
// squared psi-weights of the integrated model.
func cumulativePsi(phi, theta float64, horizon int) []float64 {
	out := make([]float64, horizon)
	var psiSum, acc float64
	for j := 0; j < horizon; j++ {
		psi := 1.0
		if j > 0 {
			psi = math.Pow(phi, float64(j-1)) * (phi + theta)
		}
		psiSum += psi
		acc += psiSum * psiSum
		out[j] = acc
	}
	return out
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.FunctionConvergence, optimize.MethodConverge,
		optimize.FunctionThreshold, optimize.StepConvergence, optimize.GradientThreshold:
		return true
	}
	return false
}
