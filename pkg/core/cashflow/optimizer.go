package cashflow

import (
	"fmt"
	"math"

	"sme_health/pkg/core/calc"
)

const (
	OptimalWCShare       = 0.15
	TargetDSO            = 30.0
	TargetInventoryTurns = 6.0
	wcTolerance          = 0.05
)

// Plan is the working capital optimization for the latest period.
type Plan struct {
	Period         string          `json:"period"`
	CurrentWC      float64         `json:"current_wc"`
	OptimalWC      float64         `json:"optimal_wc"`
	SurplusDeficit float64         `json:"wc_surplus_deficit"`
	Status         string          `json:"status"`
	Efficiency     calc.Value      `json:"wc_efficiency"`
	Receivables    ReceivablesPlan `json:"receivables"`
	Inventory      InventoryPlan   `json:"inventory"`
	TotalRelease   float64         `json:"total_cash_release"`
}

// ReceivablesPlan describes the cash freed by collecting faster.
type ReceivablesPlan struct {
	CurrentDSO     calc.Value `json:"current_dso"`
	TargetDSO      float64    `json:"target_dso"`
	CurrentAR      float64    `json:"current_ar"`
	TargetAR       float64    `json:"target_ar"`
	CashRelease    float64    `json:"potential_cash_release"`
	Recommendation string     `json:"recommendation"`
}

// InventoryPlan describes the cash freed by turning stock faster.
type InventoryPlan struct {
	CurrentTurnover  calc.Value `json:"current_turnover"`
	TargetTurnover   float64    `json:"target_turnover"`
	CurrentInventory float64    `json:"current_inventory"`
	OptimalInventory float64    `json:"optimal_inventory"`
	ExcessInventory  float64    `json:"excess_inventory"`
	Recommendation   string     `json:"recommendation"`
}

// Optimize compares the latest period against the working capital targets.
// It returns false when there is no period to plan for.
func Optimize(wc []WorkingCapital) (Plan, bool) {
	if len(wc) == 0 {
		return Plan{}, false
	}
	last := wc[len(wc)-1]

	p := Plan{
		Period:     last.Period,
		CurrentWC:  last.WorkingCapital,
		OptimalWC:  last.Revenue * OptimalWCShare,
		Efficiency: calc.Div(last.Revenue, last.WorkingCapital),
	}
	p.SurplusDeficit = p.CurrentWC - p.OptimalWC
	switch {
	case p.OptimalWC > 0 && math.Abs(p.SurplusDeficit) <= wcTolerance*p.OptimalWC:
		p.Status = "Optimal"
	case p.SurplusDeficit > 0:
		p.Status = "Surplus"
	default:
		p.Status = "Deficit"
	}

	targetAR := last.Revenue * TargetDSO / 365
	p.Receivables = ReceivablesPlan{
		CurrentDSO:  last.DSO,
		TargetDSO:   TargetDSO,
		CurrentAR:   last.AccountsReceivable,
		TargetAR:    targetAR,
		CashRelease: math.Max(0, last.AccountsReceivable-targetAR),
	}
	p.Receivables.Recommendation = fmt.Sprintf("Reduce DSO from %.0f to %.0f days to release $%.2f",
		last.DSO.Or(0), TargetDSO, p.Receivables.CashRelease)

	optimalInv := last.COGS / TargetInventoryTurns
	p.Inventory = InventoryPlan{
		CurrentTurnover:  calc.Div(last.COGS, last.Inventory),
		TargetTurnover:   TargetInventoryTurns,
		CurrentInventory: last.Inventory,
		OptimalInventory: optimalInv,
		ExcessInventory:  last.Inventory - optimalInv,
	}
	p.Inventory.Recommendation = fmt.Sprintf("Reduce inventory by $%.2f to improve turnover",
		math.Max(0, p.Inventory.ExcessInventory))

	p.TotalRelease = p.Receivables.CashRelease + math.Max(0, p.Inventory.ExcessInventory)
	return p, true
}
