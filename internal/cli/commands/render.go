package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/klesify/klesify-backend/internal/cli/output"
	"github.com/klesify/klesify-backend/pkg/core"
)

// renderReport prints a fraud report in the renderer's mode.
func renderReport(r *output.Renderer, report *core.FraudReport) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(report)
	}

	r.Header("Fraud report")
	r.KeyValue("Caller", report.CallerPhone)
	r.KeyValue("Scam score", fmt.Sprintf("%d/100", report.OverallScamScore))
	r.KeyValue("Risk level", r.RiskLabel(report.RiskLevel))
	if report.ID != "" {
		r.KeyValue("Analysis ID", report.ID)
	}
	r.Println()

	w := report.ScoringWeights
	r.Table(table.Row{"Check", "Score", "Weight"}, []table.Row{
		{"Location", report.ComponentScores.Location, w.Location},
		{"Company", report.ComponentScores.Company, w.Company},
		{"KYC", report.ComponentScores.KYC, w.KYC},
	})

	if len(report.RiskFactors) > 0 {
		r.Println()
		r.Header("Risk factors")
		for _, f := range report.RiskFactors {
			r.Printf("  - %s\n", f)
		}
	}

	if claims := describeClaims(report.Extracted); claims != "" {
		r.Println()
		r.Println(r.Muted("Claims: " + claims))
	}
	return nil
}

func describeClaims(info core.CallerInfo) string {
	var parts []string
	if info.Name != "" {
		parts = append(parts, info.Name)
	}
	if c := info.Company(); c != "" {
		parts = append(parts, "from "+c)
	}
	if city := info.City(); city != "" {
		parts = append(parts, "in "+city)
	}
	return strings.Join(parts, " ")
}
