package core

import "time"

// Employee is a person registered as working for a company.
type Employee struct {
	Name  string `json:"name" yaml:"name"`
	Phone string `json:"phone" yaml:"phone"`
	Role  string `json:"role,omitempty" yaml:"role,omitempty"`
}

// Company is a known organisation callers may claim to represent.
type Company struct {
	Name      string     `json:"name" yaml:"name"`
	Phone     string     `json:"company_phone" yaml:"company_phone"`
	Domain    string     `json:"domain,omitempty" yaml:"domain,omitempty"`
	Employees []Employee `json:"employees,omitempty" yaml:"employees,omitempty"`
}

// RiskLevel buckets a scam score.
type RiskLevel string

// Risk levels, from least to most severe.
const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskLevelFor maps a 1..100 score to its risk level.
func RiskLevelFor(score int) RiskLevel {
	switch {
	case score <= 25:
		return RiskLow
	case score <= 50:
		return RiskMedium
	case score <= 75:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// ComponentScores are the per-check scam scores.
type ComponentScores struct {
	Location int `json:"location_score"`
	Company  int `json:"company_score"`
	KYC      int `json:"kyc_score"`
}

// ScoringWeights are the weights used to combine component scores.
type ScoringWeights struct {
	Location float64 `json:"location"`
	Company  float64 `json:"company"`
	KYC      float64 `json:"kyc"`
}

// DefaultWeights are the production scoring weights.
var DefaultWeights = ScoringWeights{Location: 0.3, Company: 0.4, KYC: 0.3}

// CompanyVerification records what the company directory said.
type CompanyVerification struct {
	CompanyFound   bool      `json:"company_found"`
	Company        *Company  `json:"company_data,omitempty"`
	Employee       *Employee `json:"employee_data,omitempty"`
	NameSimilarity float64   `json:"name_similarity"`
}

// KYCVerification records the KYC match and the derived overall score.
type KYCVerification struct {
	Match        KYCMatchResult `json:"match"`
	OverallMatch int            `json:"overall_match_score"`
}

// Verification collects the raw answers of every check that ran.
type Verification struct {
	Location *LocationVerification `json:"location,omitempty"`
	Company  *CompanyVerification  `json:"company,omitempty"`
	KYC      *KYCVerification      `json:"kyc,omitempty"`
	SimSwap  *SimSwapCheck         `json:"sim_swap,omitempty"`
}

// FraudReport is the full result of analysing one call.
type FraudReport struct {
	ID               string          `json:"id,omitempty"`
	CallerPhone      string          `json:"caller_phone"`
	OverallScamScore int             `json:"overall_scam_score"`
	RiskLevel        RiskLevel       `json:"risk_level"`
	ComponentScores  ComponentScores `json:"component_scores"`
	ScoringWeights   ScoringWeights  `json:"scoring_weights"`
	RiskFactors      []string        `json:"risk_factors"`
	Verification     Verification    `json:"verification_results"`
	Extracted        CallerInfo      `json:"extracted_data"`
	Transcript       string          `json:"transcript,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Summary returns the listing view of the report.
func (r *FraudReport) Summary() AnalysisSummary {
	return AnalysisSummary{
		ID:          r.ID,
		CallerPhone: r.CallerPhone,
		Score:       r.OverallScamScore,
		RiskLevel:   r.RiskLevel,
		CreatedAt:   r.CreatedAt,
	}
}

// AnalysisSummary is the compact view of a stored report.
type AnalysisSummary struct {
	ID          string    `json:"id"`
	CallerPhone string    `json:"caller_phone"`
	Score       int       `json:"overall_scam_score"`
	RiskLevel   RiskLevel `json:"risk_level"`
	CreatedAt   time.Time `json:"created_at"`
}
