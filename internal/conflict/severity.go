package conflict

import "github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"

// ClassifySeverity maps match confidence and qualitative factors to a
// severity tier. Applied by every strategy that does not compute severity
// inline.
func ClassifySeverity(confidence int, factors []string) domain.Severity {
	switch {
	case confidence >= 95 || len(factors) >= 3:
		return domain.SeverityCritical
	case confidence >= 85 || len(factors) >= 2:
		return domain.SeverityHigh
	case confidence >= 75:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}
