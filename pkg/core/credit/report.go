package credit

import (
	"fmt"
	"strings"

	"sme_health/pkg/core/calc"
	"sme_health/pkg/core/utils"
)

// Assessment is the plain-language interpretation band of a score.
type Assessment struct {
	Band   string `json:"band"`
	Detail string `json:"detail"`
}

// Assess places a score in its interpretation band.
func Assess(score calc.Value) Assessment {
	v, ok := score.Get()
	switch {
	case !ok:
		return Assessment{"UNRATED", "Not enough data to assess credit risk."}
	case v >= 85:
		return Assessment{"EXCELLENT", "Very low credit risk. Highly creditworthy."}
	case v >= 70:
		return Assessment{"GOOD", "Low credit risk. Creditworthy with strong financials."}
	case v >= 55:
		return Assessment{"FAIR", "Moderate credit risk. Some areas need improvement."}
	case v >= 40:
		return Assessment{"WEAK", "High credit risk. Significant financial concerns."}
	default:
		return Assessment{"POOR", "Very high credit risk. Major financial distress."}
	}
}

// Report renders the credit summary as Markdown.
func Report(s Summary) string {
	var sb strings.Builder
	sb.WriteString("# Credit Assessment Report\n\n")
	if s.LatestPeriod != "" {
		sb.WriteString(fmt.Sprintf("Period: %s\n\n", s.LatestPeriod))
	}
	sb.WriteString(fmt.Sprintf("- **Overall Credit Score:** %s/100\n", formatScore(s.LatestScore)))
	sb.WriteString(fmt.Sprintf("- **Credit Rating:** %s\n", s.LatestRating))
	sb.WriteString(fmt.Sprintf("- **Trend:** %s\n\n", s.Trend))

	sb.WriteString("## Component Scores\n\n")
	sb.WriteString("| Component | Score |\n|---|---|\n")
	rows := []struct {
		name string
		v    calc.Value
	}{
		{"Profitability", s.Components.Profitability},
		{"Liquidity", s.Components.Liquidity},
		{"Leverage", s.Components.Leverage},
		{"Efficiency", s.Components.Efficiency},
		{"Growth", s.Components.Growth},
	}
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %s/100 |\n", r.name, formatScore(r.v)))
	}

	a := Assess(s.LatestScore)
	sb.WriteString("\n## Assessment\n\n")
	sb.WriteString(fmt.Sprintf("**%s** - %s\n", a.Band, a.Detail))
	return sb.String()
}

// ReportHTML renders the Markdown report to HTML.
func ReportHTML(s Summary) (string, error) {
	html, err := utils.RenderHTML(Report(s))
	if err != nil {
		return "", fmt.Errorf("credit report: %w", err)
	}
	return html, nil
}

func formatScore(v calc.Value) string {
	if f, ok := v.Get(); ok {
		return fmt.Sprintf("%.1f", f)
	}
	return "n/a"
}
