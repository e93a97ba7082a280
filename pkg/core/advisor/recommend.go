package advisor

import (
	"fmt"
	"strings"

	"sme_health/pkg/core/calc"
	"sme_health/pkg/core/utils"
)

// Signals are the numeric inputs template conditions test against.
type Signals map[string]calc.Value

// SignalsFrom extracts condition signals. Margins are in percent.
func SignalsFrom(in Inputs) Signals {
	s := Signals{
		SignalCreditScore:    in.Credit.LatestScore,
		SignalNetMargin:      in.Statements.AvgNetProfitMargin.Scale(100),
		SignalGrossMargin:    in.Statements.AvgGrossMargin.Scale(100),
		SignalForecastGrowth: in.ForecastGrowth,
	}
	if in.Cash != nil {
		s[SignalRunwayMonths] = in.Cash.CashRunwayMonths
		s[SignalRunwayUnbounded] = calc.Defined(boolFloat(in.Cash.RunwayUnbounded))
	}
	if in.CashIssues != nil {
		s[SignalNegativeCashDays] = calc.Defined(float64(in.CashIssues.NegativeBalanceDays))
	}
	if in.Risk != nil {
		s[SignalRiskScore] = in.Risk.Score
		s[SignalHighRiskAreas] = calc.Defined(float64(len(in.Risk.HighRiskAreas)))
	}
	return s
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Recommendation is one rendered template.
type Recommendation struct {
	ID        string `json:"id"`
	FocusArea string `json:"focus_area"`
	Title     string `json:"title"`
	Detail    string `json:"detail"`
	Priority  int    `json:"priority"`
}

// Advisor renders template recommendations.
type Advisor struct {
	registry *Registry
}

// New wraps a registry; nil uses the built-in templates.
func New(r *Registry) *Advisor {
	if r == nil {
		r = DefaultRegistry()
	}
	return &Advisor{registry: r}
}

// Registry exposes the template registry.
func (a *Advisor) Registry() *Registry { return a.registry }

// Recommend renders every template of the focus area whose conditions hold.
// An empty focus means general.
func (a *Advisor) Recommend(in Inputs, focus string) ([]Recommendation, error) {
	if focus == "" {
		focus = FocusGeneral
	}
	templates := a.registry.ListByFocus(focus)
	if len(templates) == 0 {
		return nil, fmt.Errorf("unknown focus area %q (available: %s)", focus, strings.Join(a.registry.FocusAreas(), ", "))
	}

	ctx := BuildContext(in)
	signals := SignalsFrom(in)
	var out []Recommendation
	for _, t := range templates {
		if !t.Applies(signals) {
			continue
		}
		detail, err := Render(t, ctx)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", t.ID, err)
		}
		out = append(out, Recommendation{
			ID:        t.ID,
			FocusArea: t.FocusArea,
			Title:     t.Title,
			Detail:    detail,
			Priority:  t.Priority,
		})
	}
	return out, nil
}

var focusHeadings = map[string]string{
	FocusGeneral:       "Financial Health Recommendations",
	FocusCashFlow:      "Cash Flow Recommendations",
	FocusProfitability: "Profitability Recommendations",
	FocusGrowth:        "Revenue Growth Strategies",
	FocusRisk:          "Risk and Credit Recommendations",
}

// Markdown formats recommendations as a numbered Markdown document.
func Markdown(focus string, ctx map[string]string, recs []Recommendation) string {
	heading, ok := focusHeadings[focus]
	if !ok {
		heading = "Recommendations"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", heading)
	fmt.Fprintf(&sb, "- Credit Score: %s (%s)\n", ctx[KeyCreditScore], ctx[KeyCreditRating])
	fmt.Fprintf(&sb, "- Gross Margin: %s\n", ctx[KeyGrossMargin])
	fmt.Fprintf(&sb, "- Net Margin: %s\n\n", ctx[KeyNetMargin])
	for i, r := range recs {
		fmt.Fprintf(&sb, "**%d. %s**\n\n%s\n\n", i+1, r.Title, r.Detail)
	}
	return strings.TrimSpace(sb.String()) + "\n"
}

// HTML renders the Markdown form.
func HTML(focus string, ctx map[string]string, recs []Recommendation) (string, error) {
	return utils.RenderHTML(Markdown(focus, ctx, recs))
}
