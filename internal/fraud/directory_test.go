package fraud

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klesify/klesify-backend/internal/dataset"
	"github.com/klesify/klesify-backend/internal/network/mock"
	"github.com/klesify/klesify-backend/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"marcel.json": `{
		  "phoneNumber": "+40712345678",
		  "data": {
		    "kyc": {"name": "Marcel Barosanu", "address": "Strada Nicolae Iancu 12", "locality": "Sibiu", "country": "RO"},
		    "location": {"available": true, "latitude": 45.7983, "longitude": 24.1256, "radius": 500},
		    "simSwap": {"latestSimChange": "2020-01-01T00:00:00Z"}
		  }
		}`,
		"companies.json": `{"companies": [{"name": "Orange Romania", "company_phone": "+40210000000",
		  "employees": [{"name": "Marcel Barosanu", "phone": "+40712345678"}]}]}`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	d, err := dataset.Open(dir, nil)
	require.NoError(t, err)
	return d
}

func TestDatasetDirectory(t *testing.T) {
	dir := DatasetDirectory{Data: openDataset(t)}
	ctx := context.Background()

	c, err := dir.FindCompany(ctx, "orange")
	require.NoError(t, err)
	assert.Equal(t, "Orange Romania", c.Name)

	_, err = dir.FindCompany(ctx, "Acme")
	assert.ErrorIs(t, err, core.ErrNotFound)

	e, err := dir.FindEmployee(ctx, "+40712345678")
	require.NoError(t, err)
	assert.Equal(t, "Marcel Barosanu", e.Name)

	_, err = dir.FindEmployee(ctx, "+40700000000")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDetect_AgainstMockNetwork(t *testing.T) {
	data := openDataset(t)
	d := NewDetector(mock.New(data), DatasetDirectory{Data: data}, Config{}, nil)

	info := core.CallerInfo{
		Name:        "Marcel Barosanu",
		Locality:    "Sibiu",
		Country:     "RO",
		Address:     "strada nicolae iancu 12",
		CompanyName: "Orange Romania",
	}
	report, err := d.Detect(context.Background(), info, "+40712345678")
	require.NoError(t, err)
	assert.Equal(t, core.ComponentScores{Location: 10, Company: 10, KYC: 1}, report.ComponentScores)
	assert.Equal(t, 7, report.OverallScamScore)
	assert.Equal(t, core.RiskLow, report.RiskLevel)
	require.NotNil(t, report.Verification.SimSwap)
	assert.False(t, report.Verification.SimSwap.Swapped)

	unknown, err := d.Detect(context.Background(), core.CallerInfo{Locality: "Sibiu"}, "+40799999999")
	require.NoError(t, err)
	assert.Equal(t, 75, unknown.ComponentScores.Location)
	assert.Equal(t, 80, unknown.ComponentScores.KYC)
	assert.Nil(t, unknown.Verification.SimSwap)
}
