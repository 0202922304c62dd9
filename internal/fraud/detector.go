// Package fraud scores how likely a call is a scam by checking the
// caller's claims against the network and the company directory.
package fraud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/klesify/klesify-backend/internal/network"
	"github.com/klesify/klesify-backend/internal/textmatch"
	"github.com/klesify/klesify-backend/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Scores used when a check cannot run or fails.
const (
	defaultLocationScore = 75
	defaultCompanyScore  = 20
	defaultKYCScore      = 60

	unknownCompanyScore = 60
	companyFailureScore = 70
	officialPhoneScore  = 95
	notEmployeeScore    = 85
	kycNotFoundScore    = 80
	kycFailureScore     = 75

	// DefaultSimSwapMaxAge is the SIM swap window in hours.
	DefaultSimSwapMaxAge = 240
)

var locationScores = map[core.VerificationResult]int{
	core.VerificationTrue:    10,
	core.VerificationPartial: 40,
	core.VerificationFalse:   90,
	core.VerificationUnknown: 75,
}

// Config tunes the detector.
type Config struct {
	Weights       core.ScoringWeights
	SimSwapMaxAge int
	CityRadius    int
}

// Detector runs the location, company and KYC checks and combines them
// into one scam score.
type Detector struct {
	net    network.Network
	dir    Directory
	cfg    Config
	logger *slog.Logger
}

// NewDetector creates a detector. Zero config values take the defaults.
func NewDetector(net network.Network, dir Directory, cfg Config, logger *slog.Logger) *Detector {
	if cfg.Weights == (core.ScoringWeights{}) {
		cfg.Weights = core.DefaultWeights
	}
	if cfg.SimSwapMaxAge == 0 {
		cfg.SimSwapMaxAge = DefaultSimSwapMaxAge
	}
	if cfg.CityRadius == 0 {
		cfg.CityRadius = network.DefaultRadius
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Detector{net: net, dir: dir, cfg: cfg, logger: logger}
}

// NameSimilarity compares two person names in [0, 1].
func NameSimilarity(a, b string) float64 {
	return textmatch.Similarity(a, b)
}

// check is the outcome of one verification step.
type check struct {
	score   int
	factors []string
}

func (c *check) add(format string, args ...any) {
	c.factors = append(c.factors, fmt.Sprintf(format, args...))
}

// Detect scores a call from phone whose caller claimed info.
func (d *Detector) Detect(ctx context.Context, info core.CallerInfo, phone string) (core.FraudReport, error) {
	if err := network.ValidatePhone(phone); err != nil {
		return core.FraudReport{}, err
	}

	var (
		loc, comp, kyc, sim check
		verification        core.Verification
	)

	var g errgroup.Group
	g.Go(func() error {
		loc, verification.Location = d.checkLocation(ctx, info, phone)
		return nil
	})
	g.Go(func() error {
		comp, verification.Company = d.checkCompany(ctx, info, phone)
		return nil
	})
	g.Go(func() error {
		kyc, verification.KYC = d.checkKYC(ctx, info, phone)
		return nil
	})
	g.Go(func() error {
		sim, verification.SimSwap = d.checkSimSwap(ctx, phone)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return core.FraudReport{}, err
	}

	w := d.cfg.Weights
	weighted := float64(loc.score)*w.Location + float64(comp.score)*w.Company + float64(kyc.score)*w.KYC
	overall := min(100, max(1, int(weighted/(w.Location+w.Company+w.KYC))))

	factors := make([]string, 0, len(loc.factors)+len(comp.factors)+len(kyc.factors)+len(sim.factors))
	for _, c := range []check{loc, comp, kyc, sim} {
		factors = append(factors, c.factors...)
	}

	report := core.FraudReport{
		CallerPhone:      phone,
		OverallScamScore: overall,
		RiskLevel:        core.RiskLevelFor(overall),
		ComponentScores:  core.ComponentScores{Location: loc.score, Company: comp.score, KYC: kyc.score},
		ScoringWeights:   w,
		RiskFactors:      factors,
		Verification:     verification,
		Extracted:        info,
	}
	d.logger.Info("call scored",
		"phone", phone,
		"score", overall,
		"risk_level", report.RiskLevel,
		"location_score", loc.score,
		"company_score", comp.score,
		"kyc_score", kyc.score,
	)
	return report, nil
}

// QuickCheck returns only the overall scam score.
func (d *Detector) QuickCheck(ctx context.Context, info core.CallerInfo, phone string) (int, error) {
	report, err := d.Detect(ctx, info, phone)
	if err != nil {
		return 0, err
	}
	return report.OverallScamScore, nil
}

func (d *Detector) checkLocation(ctx context.Context, info core.CallerInfo, phone string) (check, *core.LocationVerification) {
	c := check{score: defaultLocationScore}
	city := info.City()
	if city == "" {
		c.add("No location provided")
		return c, nil
	}

	res, err := d.net.VerifyLocationByCity(ctx, network.CityRequest{
		Phone:   phone,
		City:    city,
		Country: info.Country,
		Radius:  d.cfg.CityRadius,
	})
	if err != nil {
		d.logger.Warn("location verification failed", "phone", phone, "city", city, "error", err)
		c.add("Location verification failed: %v", err)
		return c, nil
	}

	if s, ok := locationScores[res.Result]; ok {
		c.score = s
	}
	switch {
	case c.score > 70:
		c.add("Location mismatch: claimed %s", city)
	case c.score < 30:
		c.add("Location verified: %s", city)
	}
	return c, &res
}

func (d *Detector) checkCompany(ctx context.Context, info core.CallerInfo, phone string) (check, *core.CompanyVerification) {
	c := check{score: defaultCompanyScore}
	name := info.Company()
	if name == "" {
		return c, nil
	}

	company, err := d.dir.FindCompany(ctx, name)
	switch {
	case errors.Is(err, core.ErrNotFound):
		c.score = unknownCompanyScore
		c.add("Claimed company '%s' not found in database", name)
		return c, &core.CompanyVerification{CompanyFound: false}
	case err != nil:
		c.score = companyFailureScore
		c.add("Company verification failed: %v", err)
		return c, nil
	}

	v := &core.CompanyVerification{CompanyFound: true, Company: company}
	if phone == company.Phone {
		c.score = officialPhoneScore
		c.add("Caller using company's official phone number")
		return c, v
	}

	employee, err := d.dir.FindEmployee(ctx, phone)
	switch {
	case errors.Is(err, core.ErrNotFound):
		c.score = notEmployeeScore
		c.add("Claims %s employment but not in employee database", name)
		return c, v
	case err != nil:
		c.score = companyFailureScore
		c.add("Company verification failed: %v", err)
		return c, nil
	}

	v.Employee = employee
	v.NameSimilarity = NameSimilarity(info.Name, employee.Name)
	switch {
	case v.NameSimilarity >= 0.8:
		c.score = 10
		c.add("Verified employee with name match")
	case v.NameSimilarity >= 0.5:
		c.score = 30
		c.add("Employee found but name partially matches")
	default:
		c.score = 80
		c.add("Employee phone found but name mismatch")
	}
	return c, v
}

func (d *Detector) checkKYC(ctx context.Context, info core.CallerInfo, phone string) (check, *core.KYCVerification) {
	c := check{score: defaultKYCScore}

	res, err := d.net.MatchKYC(ctx, core.KYCMatchRequest{
		PhoneNumber: phone,
		Name:        info.Name,
		Address:     info.Address,
	})
	switch {
	case errors.Is(err, core.ErrNotFound):
		c.score = kycNotFoundScore
		c.add("KYC verification failed or user not found")
		return c, nil
	case err != nil:
		d.logger.Warn("KYC verification failed", "phone", phone, "error", err)
		c.score = kycFailureScore
		c.add("KYC verification error: %v", err)
		return c, nil
	}

	match := res.OverallScore()
	c.score = max(1, 100-match)
	switch {
	case match >= 80:
		c.add("Strong KYC data match - low fraud risk")
	case match >= 50:
		c.add("Partial KYC data match - moderate risk")
	default:
		c.add("Poor KYC data match - high fraud risk")
	}
	return c, &core.KYCVerification{Match: res, OverallMatch: match}
}

// checkSimSwap is informational: a recent swap is reported as a risk
// factor but never changes the score.
func (d *Detector) checkSimSwap(ctx context.Context, phone string) (check, *core.SimSwapCheck) {
	var c check
	maxAge := d.cfg.SimSwapMaxAge
	res, err := d.net.CheckSimSwap(ctx, phone, &maxAge)
	if err != nil {
		d.logger.Debug("SIM swap check skipped", "phone", phone, "error", err)
		return c, nil
	}
	if res.Swapped {
		c.add("Recent SIM swap detected")
	}
	return c, &res
}
