package commands

import (
	"encoding/json"
	"testing"

	"github.com/klesify/klesify-backend/internal/cli/testutil"
	"github.com/klesify/klesify-backend/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *core.FraudReport {
	return &core.FraudReport{
		ID:               "a1",
		CallerPhone:      "+40712345678",
		OverallScamScore: 64,
		RiskLevel:        core.RiskHigh,
		ComponentScores:  core.ComponentScores{Location: 75, Company: 90, KYC: 20},
		ScoringWeights:   core.ScoringWeights{Location: 0.3, Company: 0.4, KYC: 0.3},
		RiskFactors:      []string{"Company not found in directory"},
		Extracted:        core.CallerInfo{Name: "Ion", CompanyName: "Banca X", Locality: "Iasi"},
	}
}

func TestRenderReport_Markdown(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()
	require.NoError(t, renderReport(tr.Renderer, sampleReport()))

	out := tr.Output()
	assert.Contains(t, out, "## Fraud report")
	assert.Contains(t, out, "64/100")
	assert.Contains(t, out, "High")
	assert.Contains(t, out, "| Location |")
	assert.Contains(t, out, "## Risk factors")
	assert.Contains(t, out, "- Company not found in directory")
	assert.Contains(t, out, "Claims: Ion from Banca X in Iasi")
	testutil.AssertNoANSI(t, out)
}

func TestRenderReport_JSON(t *testing.T) {
	tr := testutil.NewTestRendererJSON()
	require.NoError(t, renderReport(tr.Renderer, sampleReport()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &got))
	assert.Equal(t, "a1", got["id"])
	assert.EqualValues(t, 64, got["overall_scam_score"])
	assert.Equal(t, "HIGH", got["risk_level"])
}

func TestDescribeClaims(t *testing.T) {
	assert.Equal(t, "", describeClaims(core.CallerInfo{}))
	assert.Equal(t, "Ion", describeClaims(core.CallerInfo{Name: "Ion"}))
	assert.Equal(t, "in Sibiu", describeClaims(core.CallerInfo{Locality: "Sibiu"}))
}
