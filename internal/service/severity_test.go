package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/roadworks-api/internal/models"
)

func TestLabelFromCountBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		count int
		want  models.Severity
	}{
		{"negative clamps to low", -5, models.SeverityLow},
		{"zero", 0, models.SeverityLow},
		{"just under medium", 9, models.SeverityLow},
		{"medium lower bound", 10, models.SeverityMedium},
		{"just under high", 29, models.SeverityMedium},
		{"high lower bound", 30, models.SeverityHigh},
		{"well above high", 120, models.SeverityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LabelFromCount(tt.count))
		})
	}
}

func TestScoreFromLabel(t *testing.T) {
	assert.Equal(t, 3.0, ScoreFromLabel(models.SeverityHigh))
	assert.Equal(t, 2.0, ScoreFromLabel(models.SeverityMedium))
	assert.Equal(t, 1.0, ScoreFromLabel(models.SeverityLow))
	assert.Equal(t, 0.0, ScoreFromLabel(models.Severity("bogus")))
}

func TestLabelFromScoreRebuckets(t *testing.T) {
	assert.Equal(t, models.SeverityHigh, LabelFromScore(2.5))
	assert.Equal(t, models.SeverityMedium, LabelFromScore(2.49))
	assert.Equal(t, models.SeverityMedium, LabelFromScore(1.5))
	assert.Equal(t, models.SeverityLow, LabelFromScore(1.49))
	assert.Equal(t, models.SeverityLow, LabelFromScore(0.01))
	assert.Equal(t, models.SeverityUnknown, LabelFromScore(0))
}

func TestOutlierDoesNotDominateAverage(t *testing.T) {
	// Two potholes with counts 5 and 35: scores 1 and 3 average to 2.0,
	// which re-buckets to Medium rather than High.
	avg := (ScoreFromLabel(LabelFromCount(5)) + ScoreFromLabel(LabelFromCount(35))) / 2
	assert.Equal(t, models.SeverityMedium, LabelFromScore(avg))
}
