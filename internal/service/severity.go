package service

import "github.com/noah-isme/roadworks-api/internal/models"

// Severity classification thresholds over the raw report-intensity count.
const (
	highCountThreshold   = 30
	mediumCountThreshold = 10
)

// LabelFromCount maps a raw defect-intensity count to a severity label.
// Negative input is clamped to zero.
func LabelFromCount(count int) models.Severity {
	if count < 0 {
		count = 0
	}
	switch {
	case count >= highCountThreshold:
		return models.SeverityHigh
	case count >= mediumCountThreshold:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// ScoreFromLabel converts a label to a numeric score used only for
// averaging, never displayed.
func ScoreFromLabel(label models.Severity) float64 {
	switch label {
	case models.SeverityHigh:
		return 3
	case models.SeverityMedium:
		return 2
	case models.SeverityLow:
		return 1
	default:
		return 0
	}
}

// LabelFromScore re-buckets an averaged score into a label. A zero or
// negative average means no scorable members and reads as Unknown.
func LabelFromScore(avg float64) models.Severity {
	switch {
	case avg >= 2.5:
		return models.SeverityHigh
	case avg >= 1.5:
		return models.SeverityMedium
	case avg > 0:
		return models.SeverityLow
	default:
		return models.SeverityUnknown
	}
}
