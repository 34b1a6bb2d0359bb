package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/roadworks-api/internal/models"
	"github.com/noah-isme/roadworks-api/internal/repository"
	"github.com/noah-isme/roadworks-api/pkg/config"
)

func newDeadlineService(t *testing.T) *DeadlineService {
	t.Helper()
	repo := repository.NewDeadlineRepository(repository.NewMemoryStore(), zap.NewNop())
	return NewDeadlineService(repo, config.SLAConfig{}, zap.NewNop())
}

func TestAddBusinessDaysSkipsWeekends(t *testing.T) {
	// Friday, 14:30.
	friday := time.Date(2026, 3, 6, 14, 30, 0, 0, time.UTC)

	got := AddBusinessDays(friday, 3)
	// Mon, Tue, Wed.
	assert.Equal(t, time.Date(2026, 3, 11, 14, 30, 0, 0, time.UTC), got)
	assert.Equal(t, time.Wednesday, got.Weekday())
}

func TestAddBusinessDaysFromSaturday(t *testing.T) {
	saturday := time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)

	got := AddBusinessDays(saturday, 1)
	assert.Equal(t, time.Monday, got.Weekday())
	assert.Equal(t, 9, got.Hour())
}

func TestSLADaysDefaults(t *testing.T) {
	svc := newDeadlineService(t)

	assert.Equal(t, 3, svc.SLADays(models.SeverityHigh))
	assert.Equal(t, 5, svc.SLADays(models.SeverityMedium))
	assert.Equal(t, 7, svc.SLADays(models.SeverityLow))
	assert.Equal(t, 7, svc.SLADays(models.SeverityUnknown))
}

func TestSetDeadlineIfMissingIsSetOnce(t *testing.T) {
	svc := newDeadlineService(t)
	ctx := context.Background()
	first := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return first }

	members := []models.DefectItem{{ID: "PH-1", GridID: "", RawLocation: "13.0827, 80.2707"}}

	record, err := svc.SetDeadlineIfMissing(ctx, "Anna Salai", models.SeverityHigh, members)
	require.NoError(t, err)
	assert.Equal(t, AddBusinessDays(first, 3), record.DeadlineAt)

	// A later call with a different severity and clock must return the
	// original record untouched.
	svc.now = func() time.Time { return first.AddDate(0, 0, 10) }
	again, err := svc.SetDeadlineIfMissing(ctx, "Anna Salai", models.SeverityLow, members)
	require.NoError(t, err)
	assert.True(t, record.DeadlineAt.Equal(again.DeadlineAt))
	assert.Equal(t, models.SeverityHigh, again.Severity)
}

func TestSetDeadlineFoundViaMemberKey(t *testing.T) {
	svc := newDeadlineService(t)
	ctx := context.Background()
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }

	serverID := int64(42)
	members := []models.DefectItem{{ID: "PH-1", ServerID: &serverID}}
	record, err := svc.SetDeadlineIfMissing(ctx, "Anna Salai", models.SeverityMedium, members)
	require.NoError(t, err)

	// The road was renamed by enrichment but one member still carries
	// the same server id, so the record must be found.
	again, err := svc.SetDeadlineIfMissing(ctx, "Anna Salai Road", models.SeverityHigh, members)
	require.NoError(t, err)
	assert.True(t, record.DeadlineAt.Equal(again.DeadlineAt))
}

func TestResolveRecordPrefersExisting(t *testing.T) {
	existing := models.DeadlineRecord{Severity: models.SeverityHigh}
	candidate := models.DeadlineRecord{Severity: models.SeverityLow}

	assert.Equal(t, existing, ResolveRecord(&existing, candidate))
	assert.Equal(t, candidate, ResolveRecord(nil, candidate))
}

func TestDeadlineForPrecedence(t *testing.T) {
	svc := newDeadlineService(t)
	ctx := context.Background()
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }

	members := []models.DefectItem{{ID: "PH-1", RawLocation: "13.0827, 80.2707"}}
	assert.Equal(t, NoDeadline, svc.DeadlineFor(ctx, "Anna Salai", members))

	record, err := svc.SetDeadlineIfMissing(ctx, "Anna Salai", models.SeverityLow, members)
	require.NoError(t, err)
	assert.Equal(t, record.DeadlineAt.Format(models.ReportedTimeLayout), svc.DeadlineFor(ctx, "Anna Salai", members))

	// A server-supplied due date overrides the cached estimate.
	due := time.Date(2026, 4, 1, 17, 0, 0, 0, time.UTC)
	members[0].DueDate = &due
	assert.Equal(t, "Apr 01, 2026 17:00", svc.DeadlineFor(ctx, "Anna Salai", members))
}

func TestClearDeadline(t *testing.T) {
	svc := newDeadlineService(t)
	ctx := context.Background()
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }

	members := []models.DefectItem{{ID: "PH-1", RawLocation: "13.0827, 80.2707"}}
	_, err := svc.SetDeadlineIfMissing(ctx, "Anna Salai", models.SeverityHigh, members)
	require.NoError(t, err)

	require.NoError(t, svc.ClearDeadline(ctx, "Anna Salai", members))
	assert.Equal(t, NoDeadline, svc.DeadlineFor(ctx, "Anna Salai", members))
}
