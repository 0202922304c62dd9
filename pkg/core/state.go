package core

import "context"

// ListOptions filters report listings.
type ListOptions struct {
	// Phone restricts results to one caller number when non-empty.
	Phone string
	// Limit caps the number of results. Zero means the store default.
	Limit int
}

// Store defines the interface for analysis persistence.
type Store interface {
	SaveReport(ctx context.Context, report *FraudReport) error
	GetReport(ctx context.Context, id string) (*FraudReport, error)
	ListReports(ctx context.Context, opts ListOptions) ([]AnalysisSummary, error)
	Close() error
}
