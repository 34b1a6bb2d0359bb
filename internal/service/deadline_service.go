package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/roadworks-api/internal/identity"
	"github.com/noah-isme/roadworks-api/internal/models"
	"github.com/noah-isme/roadworks-api/pkg/config"
)

// NoDeadline is rendered when neither the server nor the cache knows a
// repair deadline for a road.
const NoDeadline = "--"

type deadlineRepository interface {
	Find(ctx context.Context, keys []string) (*models.DeadlineRecord, bool, error)
	Save(ctx context.Context, keys []string, record models.DeadlineRecord) error
	Delete(ctx context.Context, keys []string) error
}

// DeadlineService computes and durably remembers one repair deadline
// per road. Records are set-once: once written at first assignment they
// never shift, even when later reports change the road's average
// severity, until the road is fully verified and cleared.
type DeadlineService struct {
	repo   deadlineRepository
	sla    config.SLAConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewDeadlineService constructs the service with 3/5/7 business-day
// defaults for High/Medium/Low.
func NewDeadlineService(repo deadlineRepository, sla config.SLAConfig, logger *zap.Logger) *DeadlineService {
	if sla.HighDays <= 0 {
		sla.HighDays = 3
	}
	if sla.MediumDays <= 0 {
		sla.MediumDays = 5
	}
	if sla.LowDays <= 0 {
		sla.LowDays = 7
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeadlineService{repo: repo, sla: sla, logger: logger, now: time.Now}
}

// SLADays returns the allowed business days for a severity. Anything
// unrecognised falls back to the Low allowance.
func (s *DeadlineService) SLADays(severity models.Severity) int {
	switch severity {
	case models.SeverityHigh:
		return s.sla.HighDays
	case models.SeverityMedium:
		return s.sla.MediumDays
	default:
		return s.sla.LowDays
	}
}

// AddBusinessDays advances the date one calendar day at a time,
// counting only weekdays, until n weekday increments have been applied.
// Time-of-day is preserved.
func AddBusinessDays(start time.Time, n int) time.Time {
	current := start
	for added := 0; added < n; {
		current = current.AddDate(0, 0, 1)
		if wd := current.Weekday(); wd != time.Saturday && wd != time.Sunday {
			added++
		}
	}
	return current
}

// ResolveRecord decides between an existing persisted record and a
// fresh computation: the existing record always wins. Pulled out as a
// pure function so the set-once semantics are testable on their own.
func ResolveRecord(existing *models.DeadlineRecord, candidate models.DeadlineRecord) models.DeadlineRecord {
	if existing != nil {
		return *existing
	}
	return candidate
}

// RoadKey derives the cache key for a road name.
func RoadKey(roadName string) string {
	return "road:" + strings.ToLower(strings.TrimSpace(roadName))
}

// SetDeadlineIfMissing creates the road's DeadlineRecord unless one
// already exists under the road key or any member identity key. The
// record is written under the whole key set so later fetches that
// address the same location differently still find it.
func (s *DeadlineService) SetDeadlineIfMissing(ctx context.Context, roadName string, severity models.Severity, members []models.DefectItem) (*models.DeadlineRecord, error) {
	keys := s.writeSet(roadName, members)
	existing, hit, err := s.repo.Find(ctx, keys)
	if err != nil {
		return nil, err
	}

	assignedAt := s.now()
	candidate := models.DeadlineRecord{
		AssignedAt: assignedAt,
		DeadlineAt: AddBusinessDays(assignedAt, s.SLADays(severity)),
		Severity:   severity,
	}
	record := ResolveRecord(existing, candidate)
	if hit {
		return &record, nil
	}

	if err := s.repo.Save(ctx, keys, record); err != nil {
		return nil, err
	}
	s.logger.Info("deadline set",
		zap.String("road", roadName),
		zap.String("severity", string(severity)),
		zap.Time("deadline", record.DeadlineAt))
	return &record, nil
}

// ClearDeadline deletes the road's record under the road key and every
// member identity key. Called only when a road's member set empties
// after verification.
func (s *DeadlineService) ClearDeadline(ctx context.Context, roadName string, members []models.DefectItem) error {
	return s.repo.Delete(ctx, s.writeSet(roadName, members))
}

// DeadlineFor resolves the display deadline for a road: an
// authoritative server-supplied due date on any member always wins over
// the cached client-side estimate; with neither, NoDeadline.
func (s *DeadlineService) DeadlineFor(ctx context.Context, roadName string, members []models.DefectItem) string {
	for _, member := range members {
		if member.DueDate != nil {
			return member.DueDate.Format(models.ReportedTimeLayout)
		}
	}
	record, hit, err := s.repo.Find(ctx, s.writeSet(roadName, members))
	if err != nil {
		s.logger.Warn("deadline lookup failed", zap.String("road", roadName), zap.Error(err))
		return NoDeadline
	}
	if !hit {
		return NoDeadline
	}
	return record.DeadlineAt.Format(models.ReportedTimeLayout)
}

// writeSet is the multi-key identity of a road's deadline: the road key
// first, then every member identity key in priority order.
func (s *DeadlineService) writeSet(roadName string, members []models.DefectItem) []string {
	keys := []string{RoadKey(roadName)}
	for i := range members {
		for _, key := range identity.Keys(&members[i]) {
			keys = append(keys, key.String())
		}
	}
	return keys
}
