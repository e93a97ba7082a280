package projection

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"sme_health/pkg/core/calc"
	"sme_health/pkg/core/logging"
)

// =============================================================================
// FORECAST TABLE
// =============================================================================

// Point is one future period of a forecast.
type Point struct {
	Period string  `json:"period"`
	Value  float64 `json:"forecast_revenue"`
	Lower  float64 `json:"lower_bound"`
	Upper  float64 `json:"upper_bound"`
	Method string  `json:"method"`

	// Set on ensemble rows only.
	ARIMA        calc.Value `json:"arima_forecast"`
	ExpSmoothing calc.Value `json:"es_forecast"`
}

// Table is a forecast over consecutive future months.
type Table struct {
	Method          string   `json:"method"`
	Points          []Point  `json:"points"`
	FallbackReasons []string `json:"fallback_reasons,omitempty"`
}

// Values returns the point forecasts.
func (t *Table) Values() []float64 {
	out := make([]float64, len(t.Points))
	for i, p := range t.Points {
		out[i] = p.Value
	}
	return out
}

// =============================================================================
// FORECASTER
// =============================================================================

// Forecaster holds the named strategy chains.
type Forecaster struct {
	arimaChain Chain
	esChain    Chain
	log        logrus.FieldLogger
}

// NewForecaster wires the default chains. A nil logger discards output.
func NewForecaster(log logrus.FieldLogger) *Forecaster {
	if log == nil {
		log = logging.Discard()
	}
	return &Forecaster{
		arimaChain: ARIMAChain(),
		esChain:    ExpSmoothingChain(),
		log:        log,
	}
}

// ARIMAChain is ARIMA, then exponential smoothing, then moving average.
func ARIMAChain() Chain {
	return Chain{&ARIMA{}, &ExpSmoothing{}, &MovingAverage{}}
}

// ExpSmoothingChain is exponential smoothing, then moving average.
func ExpSmoothingChain() Chain {
	return Chain{&ExpSmoothing{}, &MovingAverage{}}
}

// ARIMA forecasts with the ARIMA chain.
func (f *Forecaster) ARIMA(periods []string, values []float64, horizon int) (*Table, error) {
	return f.run(f.arimaChain, periods, values, horizon)
}

// ExpSmoothing forecasts with the smoothing chain.
func (f *Forecaster) ExpSmoothing(periods []string, values []float64, horizon int) (*Table, error) {
	return f.run(f.esChain, periods, values, horizon)
}

// Ensemble averages the ARIMA and smoothing chains. The band spans the
// lowest lower and highest upper bound of the two, so it contains both
// constituent points.
func (f *Forecaster) Ensemble(periods []string, values []float64, horizon int) (*Table, error) {
	a, err := f.ARIMA(periods, values, horizon)
	if err != nil {
		return nil, err
	}
	e, err := f.ExpSmoothing(periods, values, horizon)
	if err != nil {
		return nil, err
	}

	t := &Table{Method: MethodEnsemble}
	t.FallbackReasons = append(t.FallbackReasons, a.FallbackReasons...)
	t.FallbackReasons = append(t.FallbackReasons, e.FallbackReasons...)
	for i := range a.Points {
		ap, ep := a.Points[i], e.Points[i]
		t.Points = append(t.Points, Point{
			Period:       ap.Period,
			Value:        (ap.Value + ep.Value) / 2,
			Lower:        math.Min(ap.Lower, ep.Lower),
			Upper:        math.Max(ap.Upper, ep.Upper),
			Method:       MethodEnsemble,
			ARIMA:        calc.Defined(ap.Value),
			ExpSmoothing: calc.Defined(ep.Value),
		})
	}
	return t, nil
}

func (f *Forecaster) run(chain Chain, periods []string, values []float64, horizon int) (*Table, error) {
	if err := checkHistory(values); err != nil {
		return nil, err
	}
	if len(periods) != len(values) {
		return nil, fmt.Errorf("forecast input mismatch: %d periods, %d values", len(periods), len(values))
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("forecast horizon must be positive, got %d", horizon)
	}
	labels, err := NextPeriods(periods[len(periods)-1], horizon)
	if err != nil {
		return nil, err
	}

	fc, failures, err := chain.Run(values, horizon)
	if err != nil {
		return nil, err
	}
	t := &Table{Method: fc.Method}
	for _, r := range failures {
		t.FallbackReasons = append(t.FallbackReasons, r.String())
		f.log.WithFields(logrus.Fields{
			"method": r.Method,
			"reason": r.Reason,
		}).Warn("forecast model failed, falling back")
	}
	for i := 0; i < horizon; i++ {
		t.Points = append(t.Points, Point{
			Period: labels[i],
			Value:  fc.Point[i],
			Lower:  fc.Lower[i],
			Upper:  fc.Upper[i],
			Method: fc.Method,
		})
	}
	return t, nil
}

// NextPeriods returns the horizon months following last ("2006-01").
func NextPeriods(last string, horizon int) ([]string, error) {
	t, err := time.Parse("2006-01", last)
	if err != nil {
		return nil, fmt.Errorf("invalid period %q: %w", last, err)
	}
	out := make([]string, horizon)
	for i := range out {
		out[i] = t.AddDate(0, i+1, 0).Format("2006-01")
	}
	return out, nil
}

// Growth compares the mean forecast with the mean of the last six actuals,
// in percent.
func Growth(actual []float64, t *Table) calc.Value {
	if t == nil || len(t.Points) == 0 || len(actual) == 0 {
		return calc.Undefined
	}
	recent := actual[len(actual)-min(6, len(actual)):]
	base := calc.Mean(recent)
	ahead := calc.Mean(t.Values())
	if !base.Valid || !ahead.Valid {
		return calc.Undefined
	}
	return calc.PctChange(ahead.V, base.V)
}
