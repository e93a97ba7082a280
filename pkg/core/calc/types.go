// Package calc provides deterministic financial calculations shared by the
// statement, cash flow, ratio and scoring stages.
// This file defines the optional numeric type used for every derived ratio.
package calc

import (
	"encoding/json"
	"math"
)

// =============================================================================
// OPTIONAL VALUE
// =============================================================================

// Value is a derived figure that may be undefined for a period (zero
// denominator, missing input, first-period growth). An undefined Value is
// serialized as null and skipped by every averaging helper in this package.
type Value struct {
	V     float64
	Valid bool
}

// Undefined is the zero Value.
var Undefined = Value{}

// Defined wraps a finite float. NaN and ±Inf collapse to Undefined.
func Defined(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined
	}
	return Value{V: v, Valid: true}
}

// Get returns the float and whether it is defined.
func (v Value) Get() (float64, bool) {
	return v.V, v.Valid
}

// Or returns the float, or def when undefined.
func (v Value) Or(def float64) float64 {
	if !v.Valid {
		return def
	}
	return v.V
}

// Ptr returns nil for an undefined value.
func (v Value) Ptr() *float64 {
	if !v.Valid {
		return nil
	}
	f := v.V
	return &f
}

// Scale multiplies a defined value by k.
func (v Value) Scale(k float64) Value {
	if !v.Valid {
		return Undefined
	}
	return Defined(v.V * k)
}

// Add adds k to a defined value.
func (v Value) Add(k float64) Value {
	if !v.Valid {
		return Undefined
	}
	return Defined(v.V + k)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Undefined
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Defined(f)
	return nil
}

// FromPtr is the inverse of Ptr.
func FromPtr(p *float64) Value {
	if p == nil {
		return Undefined
	}
	return Defined(*p)
}
