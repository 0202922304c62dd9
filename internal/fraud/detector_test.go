package fraud

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/klesify/klesify-backend/internal/network"
	"github.com/klesify/klesify-backend/internal/testutil"
	"github.com/klesify/klesify-backend/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const callerPhone = "+40712345678"

type fakeNetwork struct {
	location    core.LocationVerification
	locationErr error
	kyc         core.KYCMatchResult
	kycErr      error
	simSwap     core.SimSwapCheck
	simSwapErr  error

	mu      sync.Mutex
	cityReq network.CityRequest
	kycReq  core.KYCMatchRequest
	maxAge  *int
}

func (f *fakeNetwork) CheckSimSwap(_ context.Context, _ string, maxAge *int) (core.SimSwapCheck, error) {
	f.mu.Lock()
	f.maxAge = maxAge
	f.mu.Unlock()
	return f.simSwap, f.simSwapErr
}

func (f *fakeNetwork) RetrieveSimSwapDate(context.Context, string) (core.SimSwapDate, error) {
	return core.SimSwapDate{}, errors.New("not used")
}

func (f *fakeNetwork) MatchKYC(_ context.Context, req core.KYCMatchRequest) (core.KYCMatchResult, error) {
	f.mu.Lock()
	f.kycReq = req
	f.mu.Unlock()
	return f.kyc, f.kycErr
}

func (f *fakeNetwork) VerifyLocation(context.Context, string, core.Area, *int) (core.LocationVerification, error) {
	return core.LocationVerification{}, errors.New("not used")
}

func (f *fakeNetwork) VerifyLocationByCity(_ context.Context, req network.CityRequest) (core.LocationVerification, error) {
	f.mu.Lock()
	f.cityReq = req
	f.mu.Unlock()
	return f.location, f.locationErr
}

func (f *fakeNetwork) RetrieveLocation(context.Context, string, *int) (core.DeviceLocation, error) {
	return core.DeviceLocation{}, errors.New("not used")
}

type fakeDirectory struct {
	companies map[string]core.Company
	employees map[string]core.Employee
	err       error
}

func (d fakeDirectory) FindCompany(_ context.Context, name string) (*core.Company, error) {
	if d.err != nil {
		return nil, d.err
	}
	c, ok := d.companies[name]
	if !ok {
		return nil, fmt.Errorf("company %q: %w", name, core.ErrNotFound)
	}
	return &c, nil
}

func (d fakeDirectory) FindEmployee(_ context.Context, phone string) (*core.Employee, error) {
	e, ok := d.employees[phone]
	if !ok {
		return nil, fmt.Errorf("employee %s: %w", phone, core.ErrNotFound)
	}
	return &e, nil
}

var orangeDir = fakeDirectory{
	companies: map[string]core.Company{
		"Orange Romania": {Name: "Orange Romania", Phone: "+40213000000"},
	},
	employees: map[string]core.Employee{
		callerPhone: {Name: "Marcel Barosanu", Phone: callerPhone, Role: "Support"},
	},
}

func kycResult(fields map[string]core.MatchValue, scores map[string]int) core.KYCMatchResult {
	return core.KYCMatchResult{PhoneNumber: callerPhone, Fields: fields, Scores: scores}
}

func TestDetect(t *testing.T) {
	allMatch := kycResult(map[string]core.MatchValue{"name": core.MatchTrue, "address": core.MatchTrue}, nil)
	partialMatch := kycResult(map[string]core.MatchValue{"name": core.MatchTrue, "address": core.MatchFalse}, map[string]int{"address": 43})

	tests := []struct {
		name       string
		info       core.CallerInfo
		phone      string
		net        *fakeNetwork
		dir        Directory
		wantScore  int
		wantLevel  core.RiskLevel
		wantComp   core.ComponentScores
		wantFactor []string
	}{
		{
			name:      "legitimate employee",
			info:      core.CallerInfo{Name: "Marcel Barosanu", Locality: "Sibiu", Address: "Strada Nicolae Iancu", CompanyName: "Orange Romania"},
			phone:     callerPhone,
			net:       &fakeNetwork{location: core.LocationVerification{Result: core.VerificationTrue}, kyc: allMatch},
			dir:       orangeDir,
			wantScore: 7,
			wantLevel: core.RiskLow,
			wantComp:  core.ComponentScores{Location: 10, Company: 10, KYC: 1},
			wantFactor: []string{
				"Location verified: Sibiu",
				"Verified employee with name match",
				"Strong KYC data match - low fraud risk",
			},
		},
		{
			name:      "impostor claiming company",
			info:      core.CallerInfo{Name: "Ion Ionescu", Locality: "Cluj", CompanyName: "Orange Romania"},
			phone:     "+40799999999",
			net:       &fakeNetwork{location: core.LocationVerification{Result: core.VerificationFalse}, kyc: partialMatch},
			dir:       orangeDir,
			wantScore: 69,
			wantLevel: core.RiskHigh,
			wantComp:  core.ComponentScores{Location: 90, Company: 85, KYC: 29},
			wantFactor: []string{
				"Location mismatch: claimed Cluj",
				"Claims Orange Romania employment but not in employee database",
				"Partial KYC data match - moderate risk",
			},
		},
		{
			name:      "official company phone",
			info:      core.CallerInfo{Locality: "Bucharest", CompanyName: "Orange Romania"},
			phone:     "+40213000000",
			net:       &fakeNetwork{location: core.LocationVerification{Result: core.VerificationFalse}, kycErr: errors.New("boom")},
			dir:       orangeDir,
			wantScore: 87,
			wantLevel: core.RiskCritical,
			wantComp:  core.ComponentScores{Location: 90, Company: 95, KYC: 75},
			wantFactor: []string{
				"Location mismatch: claimed Bucharest",
				"Caller using company's official phone number",
				"KYC verification error: boom",
			},
		},
		{
			name:      "nothing claimed",
			info:      core.CallerInfo{},
			phone:     callerPhone,
			net:       &fakeNetwork{kyc: kycResult(map[string]core.MatchValue{}, nil)},
			dir:       orangeDir,
			wantScore: 45,
			wantLevel: core.RiskMedium,
			wantComp:  core.ComponentScores{Location: 75, Company: 20, KYC: 50},
			wantFactor: []string{
				"No location provided",
				"Partial KYC data match - moderate risk",
			},
		},
		{
			name:      "unknown company, partial location",
			info:      core.CallerInfo{Name: "Ana", Locality: "Sibiu", CompanyName: "Acme"},
			phone:     callerPhone,
			net:       &fakeNetwork{location: core.LocationVerification{Result: core.VerificationPartial}, kyc: partialMatch},
			dir:       orangeDir,
			wantScore: 44,
			wantLevel: core.RiskMedium,
			wantComp:  core.ComponentScores{Location: 40, Company: 60, KYC: 29},
			wantFactor: []string{
				"Claimed company 'Acme' not found in database",
				"Partial KYC data match - moderate risk",
			},
		},
		{
			name:      "unknown subscriber",
			info:      core.CallerInfo{Locality: "Sibiu"},
			phone:     callerPhone,
			net:       &fakeNetwork{locationErr: core.ErrNotFound, kycErr: fmt.Errorf("lookup: %w", core.ErrNotFound)},
			dir:       orangeDir,
			wantScore: 54,
			wantLevel: core.RiskHigh,
			wantComp:  core.ComponentScores{Location: 75, Company: 20, KYC: 80},
			wantFactor: []string{
				"Location verification failed: not found",
				"KYC verification failed or user not found",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(tt.net, tt.dir, Config{}, testutil.NewTestLogger(t))
			report, err := d.Detect(context.Background(), tt.info, tt.phone)
			require.NoError(t, err)

			assert.Equal(t, tt.wantScore, report.OverallScamScore)
			assert.Equal(t, tt.wantLevel, report.RiskLevel)
			assert.Equal(t, tt.wantComp, report.ComponentScores)
			assert.Equal(t, tt.wantFactor, report.RiskFactors)
			assert.Equal(t, core.DefaultWeights, report.ScoringWeights)
			assert.Equal(t, tt.phone, report.CallerPhone)
			assert.Equal(t, tt.info, report.Extracted)
		})
	}
}

func TestDetect_RequestsAndVerification(t *testing.T) {
	net := &fakeNetwork{
		location: core.LocationVerification{Result: core.VerificationTrue},
		kyc:      kycResult(map[string]core.MatchValue{"name": core.MatchTrue}, nil),
		simSwap:  core.SimSwapCheck{Swapped: true, PhoneNumber: callerPhone},
	}
	d := NewDetector(net, orangeDir, Config{SimSwapMaxAge: 48, CityRadius: 5000}, nil)

	info := core.CallerInfo{Name: "Marcel Barosanu", Locality: "Sibiu", Country: "RO", Address: "Strada Nicolae Iancu", Email: "m@example.com", CompanyName: "Orange Romania"}
	report, err := d.Detect(context.Background(), info, callerPhone)
	require.NoError(t, err)

	assert.Equal(t, network.CityRequest{Phone: callerPhone, City: "Sibiu", Country: "RO", Radius: 5000}, net.cityReq)
	assert.Equal(t, core.KYCMatchRequest{PhoneNumber: callerPhone, Name: "Marcel Barosanu", Address: "Strada Nicolae Iancu"}, net.kycReq)
	require.NotNil(t, net.maxAge)
	assert.Equal(t, 48, *net.maxAge)

	v := report.Verification
	require.NotNil(t, v.Location)
	require.NotNil(t, v.Company)
	assert.True(t, v.Company.CompanyFound)
	assert.InDelta(t, 1.0, v.Company.NameSimilarity, 1e-9)
	require.NotNil(t, v.KYC)
	assert.Equal(t, 100, v.KYC.OverallMatch)
	require.NotNil(t, v.SimSwap)
	assert.True(t, v.SimSwap.Swapped)

	// SIM swap only adds a factor, at the end.
	assert.Equal(t, "Recent SIM swap detected", report.RiskFactors[len(report.RiskFactors)-1])
	assert.Equal(t, 7, report.OverallScamScore)
}

func TestDetect_EmployeeNameSimilarity(t *testing.T) {
	tests := []struct {
		claimed   string
		wantScore int
		wantText  string
	}{
		{"Marcel Barosanu", 10, "Verified employee with name match"},
		{"marcel", 10, "Verified employee with name match"},
		{"Marcel Popescu", 80, "Employee phone found but name mismatch"},
		{"Marcel Ionut Barosanu", 30, "Employee found but name partially matches"},
		{"", 80, "Employee phone found but name mismatch"},
	}
	for _, tt := range tests {
		t.Run(tt.claimed, func(t *testing.T) {
			net := &fakeNetwork{kyc: kycResult(nil, nil)}
			d := NewDetector(net, orangeDir, Config{}, nil)
			report, err := d.Detect(context.Background(), core.CallerInfo{Name: tt.claimed, CompanyName: "Orange Romania"}, callerPhone)
			require.NoError(t, err)
			assert.Equal(t, tt.wantScore, report.ComponentScores.Company)
			assert.Contains(t, report.RiskFactors, tt.wantText)
		})
	}
}

func TestDetect_DirectoryFailure(t *testing.T) {
	net := &fakeNetwork{kyc: kycResult(nil, nil)}
	d := NewDetector(net, fakeDirectory{err: errors.New("disk on fire")}, Config{}, nil)

	report, err := d.Detect(context.Background(), core.CallerInfo{CompanyName: "Orange"}, callerPhone)
	require.NoError(t, err)
	assert.Equal(t, 70, report.ComponentScores.Company)
	assert.Contains(t, report.RiskFactors, "Company verification failed: disk on fire")
	assert.Nil(t, report.Verification.Company)
}

func TestDetect_InvalidPhone(t *testing.T) {
	d := NewDetector(&fakeNetwork{}, orangeDir, Config{}, nil)
	_, err := d.Detect(context.Background(), core.CallerInfo{}, "")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestQuickCheck(t *testing.T) {
	net := &fakeNetwork{kyc: kycResult(map[string]core.MatchValue{}, nil)}
	score, err := NewDetector(net, orangeDir, Config{}, nil).QuickCheck(context.Background(), core.CallerInfo{}, callerPhone)
	require.NoError(t, err)
	assert.Equal(t, 45, score)
}

func TestNameSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, NameSimilarity("Ștefan Pop", "stefan pop"), 1e-9)
	assert.InDelta(t, 0.8, NameSimilarity("Pop", "Stefan Pop"), 1e-9)
	assert.InDelta(t, 1.0/3.0, NameSimilarity("Ana Pop", "Ana Ionescu"), 1e-9)
	assert.Zero(t, NameSimilarity("", "Ana"))
}
