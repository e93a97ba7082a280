// Package projection forecasts a monthly revenue series.
//
// Every model is a Strategy that either produces a forecast or reports why it
// could not. Strategies are tried in order through a Chain, so a series too
// short or too irregular for ARIMA still gets a smoothing or moving-average
// forecast. Only a series with fewer than two points is rejected outright.
package projection

import (
	"fmt"
	"strings"
)

// =============================================================================
// STRATEGY INTERFACE
// =============================================================================

// Method names as they appear on forecast rows.
const (
	MethodARIMA         = "ARIMA"
	MethodExpSmoothing  = "Exponential Smoothing"
	MethodMovingAverage = "Moving Average"
	MethodEnsemble      = "Ensemble"
)

// MinHistory is the shortest series any entry point accepts.
const MinHistory = 2

// Strategy is one forecasting model.
type Strategy interface {
	// Name returns the method label written on forecast rows.
	Name() string

	// Forecast fits the series and projects horizon steps ahead.
	Forecast(series []float64, horizon int) Result
}

// Forecast is the raw output of a strategy, one entry per future step.
type Forecast struct {
	Method string
	Point  []float64
	Lower  []float64
	Upper  []float64
}

// Result is either a forecast or the reason a model could not produce one.
type Result struct {
	forecast *Forecast
	Method   string
	Reason   string
}

// Ok wraps a successful forecast.
func Ok(f Forecast) Result {
	return Result{forecast: &f, Method: f.Method}
}

// ModelFailed records why a strategy declined.
func ModelFailed(method, format string, args ...interface{}) Result {
	return Result{Method: method, Reason: fmt.Sprintf(format, args...)}
}

// Ok reports whether the strategy produced a forecast.
func (r Result) Ok() bool {
	return r.forecast != nil
}

// Forecast returns the forecast of a successful result.
func (r Result) Forecast() (Forecast, bool) {
	if r.forecast == nil {
		return Forecast{}, false
	}
	return *r.forecast, true
}

func (r Result) String() string {
	if r.Ok() {
		return r.Method + ": ok"
	}
	return fmt.Sprintf("%s: %s", r.Method, r.Reason)
}

// =============================================================================
// FALLBACK CHAIN
// =============================================================================

// Chain tries strategies in order and stops at the first success.
type Chain []Strategy

// Run returns the first successful forecast and the failures that preceded
// it. If every strategy fails the error lists each reason.
func (c Chain) Run(series []float64, horizon int) (Forecast, []Result, error) {
	var failures []Result
	for _, s := range c {
		res := s.Forecast(series, horizon)
		if f, ok := res.Forecast(); ok {
			return f, failures, nil
		}
		failures = append(failures, res)
	}
	reasons := make([]string, len(failures))
	for i, f := range failures {
		reasons[i] = f.String()
	}
	return Forecast{}, failures, fmt.Errorf("all forecast strategies failed: %s", strings.Join(reasons, "; "))
}

// Names lists the chain's methods in order.
func (c Chain) Names() []string {
	out := make([]string, len(c))
	for i, s := range c {
		out[i] = s.Name()
	}
	return out
}

// =============================================================================
// ERRORS
// =============================================================================

// InsufficientHistoryError rejects a series too short to forecast.
type InsufficientHistoryError struct {
	Points   int
	Required int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history: %d points, need at least %d", e.Points, e.Required)
}

func checkHistory(series []float64) error {
	if len(series) < MinHistory {
		return &InsufficientHistoryError{Points: len(series), Required: MinHistory}
	}
	return nil
}
