// Package core defines the shared language of the Klesify backend.
//
// This package contains:
//   - Domain entities (CallerInfo, FraudReport, Company, etc.)
//   - Network API result types (SimSwapCheck, KYCMatchResult, LocationVerification)
//   - Service interfaces (Store)
//   - Sentinel errors shared by every layer
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
