package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/roadworks-api/internal/client"
	"github.com/noah-isme/roadworks-api/internal/models"
	appErrors "github.com/noah-isme/roadworks-api/pkg/errors"
	"github.com/noah-isme/roadworks-api/pkg/jobs"
)

const roadsSnapshotKey = "dashboard:roads"

type reportingAPI interface {
	Fetch(ctx context.Context) ([]models.DefectItem, error)
	Assign(ctx context.Context, locationID, contractorID string) (*client.AssignmentResult, error)
	Verify(ctx context.Context, locationID string) error
	Reject(ctx context.Context, locationID, remarks string) error
}

type enricher interface {
	Cached(ctx context.Context, item *models.DefectItem) (bool, error)
	Lookup(ctx context.Context, item *models.DefectItem) error
}

type deadlineEngine interface {
	SetDeadlineIfMissing(ctx context.Context, roadName string, severity models.Severity, members []models.DefectItem) (*models.DeadlineRecord, error)
	ClearDeadline(ctx context.Context, roadName string, members []models.DefectItem) error
	DeadlineFor(ctx context.Context, roadName string, members []models.DefectItem) string
}

// AggregationService owns the in-memory defect set and derives the
// per-road work units the dashboard displays. All reads recompute from
// the item set; the only derived fact that survives recomputation is
// the persisted road deadline.
//
// The item set is guarded by a single mutex. Mutations (refresh,
// assign, verify, reject) take the lock briefly and never hold it
// across network calls.
type AggregationService struct {
	reporting  reportingAPI
	enrichment enricher
	deadlines  deadlineEngine
	cache      *CacheService
	metrics    *MetricsService
	validate   *validator.Validate
	logger     *zap.Logger
	now        func() time.Time

	queue *jobs.Queue

	mu       sync.Mutex
	items    []models.DefectItem
	verified []models.DefectItem
	offline  bool
	lastSync time.Time
}

// AggregationServiceParams groups constructor dependencies.
type AggregationServiceParams struct {
	Reporting    reportingAPI
	Enrichment   enricher
	Deadlines    deadlineEngine
	Cache        *CacheService
	Metrics      *MetricsService
	Logger       *zap.Logger
	GeocodeDelay time.Duration
}

// NewAggregationService constructs the service and its enrichment
// queue. Call Start before serving traffic and Stop on shutdown.
func NewAggregationService(params AggregationServiceParams) *AggregationService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AggregationService{
		reporting:  params.Reporting,
		enrichment: params.Enrichment,
		deadlines:  params.Deadlines,
		cache:      params.Cache,
		metrics:    params.Metrics,
		validate:   validator.New(),
		logger:     logger,
		now:        time.Now,
	}
	// The queue's inter-job delay throttles reverse geocode calls to
	// respect the provider's rate limit.
	s.queue = jobs.NewQueue("enrichment", s.enrichJob, jobs.QueueConfig{
		Delay:  params.GeocodeDelay,
		Logger: logger,
	})
	return s
}

// Start launches the enrichment worker.
func (s *AggregationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the enrichment worker.
func (s *AggregationService) Stop() {
	s.queue.Stop()
}

// Offline reports whether the last refresh failed and the service is
// serving the previous item set.
func (s *AggregationService) Offline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offline
}

// Refresh replaces the item set from the reporting API. A fetch failure
// is not an error: the service flags itself offline and keeps serving
// the last known set.
func (s *AggregationService) Refresh(ctx context.Context) error {
	start := s.now()
	fetched, err := s.reporting.Fetch(ctx)
	if err != nil {
		s.logger.Warn("refresh failed, keeping last known set", zap.Error(err))
		s.mu.Lock()
		s.offline = true
		s.mu.Unlock()
		return nil
	}

	active := make([]models.DefectItem, 0, len(fetched))
	verified := make([]models.DefectItem, 0)
	pending := make([]string, 0)
	for i := range fetched {
		item := &fetched[i]
		done, err := s.enrichment.Cached(ctx, item)
		if err != nil {
			s.logger.Warn("enrichment cache lookup failed", zap.String("item", item.ID), zap.Error(err))
		}
		if !done && item.Coordinates != nil {
			pending = append(pending, item.ID)
		}
		if item.Status == models.StatusVerified {
			verified = append(verified, *item)
		} else {
			active = append(active, *item)
		}
	}

	s.mu.Lock()
	s.items = active
	s.verified = verified
	s.offline = false
	s.lastSync = s.now()
	s.mu.Unlock()

	for _, id := range pending {
		if err := s.queue.Enqueue(jobs.Job{Type: "enrich", Payload: id}); err != nil {
			s.logger.Warn("enrichment enqueue failed", zap.String("item", id), zap.Error(err))
		}
	}

	s.invalidateSnapshot(ctx)
	if s.metrics != nil {
		s.metrics.ObserveRecompute(time.Since(start))
	}
	return nil
}

// enrichJob resolves one item's road name through the geocoder and
// writes the result back into the live set.
func (s *AggregationService) enrichJob(ctx context.Context, job jobs.Job) error {
	id, ok := job.Payload.(string)
	if !ok {
		return appErrors.Clone(appErrors.ErrInternal, "enrich job payload is not an item id")
	}

	s.mu.Lock()
	var copyItem *models.DefectItem
	for i := range s.items {
		if s.items[i].ID == id {
			item := s.items[i]
			copyItem = &item
			break
		}
	}
	s.mu.Unlock()

	if copyItem == nil || copyItem.Enriched() {
		return nil
	}

	err := s.enrichment.Lookup(ctx, copyItem)
	if s.metrics != nil {
		s.metrics.RecordGeocodeLookup(err == nil)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].RoadName = copyItem.RoadName
			s.items[i].District = copyItem.District
			break
		}
	}
	s.mu.Unlock()

	s.invalidateSnapshot(ctx)
	return nil
}

// Roads returns the per-road aggregates, reporting whether the response
// came from the snapshot cache.
func (s *AggregationService) Roads(ctx context.Context) ([]models.RoadAggregate, bool, error) {
	var cached []models.RoadAggregate
	if hit, err := s.cache.Get(ctx, roadsSnapshotKey, &cached); err == nil && hit {
		return cached, true, nil
	}

	s.mu.Lock()
	items := make([]models.DefectItem, len(s.items))
	copy(items, s.items)
	s.mu.Unlock()

	aggregates := s.aggregate(ctx, items)

	if err := s.cache.Set(ctx, roadsSnapshotKey, aggregates, 0); err != nil {
		s.logger.Warn("snapshot cache write failed", zap.Error(err))
	}
	return aggregates, false, nil
}

func (s *AggregationService) aggregate(ctx context.Context, items []models.DefectItem) []models.RoadAggregate {
	groups := make(map[string][]models.DefectItem)
	for _, item := range items {
		road := item.RoadName
		if road == "" {
			road = models.UnknownRoad
		}
		groups[road] = append(groups[road], item)
	}

	aggregates := make([]models.RoadAggregate, 0, len(groups))
	for road, members := range groups {
		if len(members) == 0 {
			continue
		}
		aggregates = append(aggregates, s.buildAggregate(ctx, road, members))
	}
	sort.Slice(aggregates, func(i, j int) bool {
		return aggregates[i].RoadName < aggregates[j].RoadName
	})
	return aggregates
}

func (s *AggregationService) buildAggregate(ctx context.Context, road string, members []models.DefectItem) models.RoadAggregate {
	agg := models.RoadAggregate{
		RoadName: road,
		District: models.UnknownDistrict,
	}

	var severitySum float64
	for _, member := range members {
		if member.Kind == models.KindPatch {
			agg.Patches = append(agg.Patches, member)
		} else {
			agg.Potholes = append(agg.Potholes, member)
			severitySum += ScoreFromLabel(LabelFromCount(member.ReportCount))
		}
	}
	agg.NumPotholes = len(agg.Potholes)
	agg.NumPatches = len(agg.Patches)

	// Road severity averages pothole severities; patch-only roads read
	// as Unknown.
	if agg.NumPotholes > 0 {
		agg.Severity = LabelFromScore(severitySum / float64(agg.NumPotholes))
	} else {
		agg.Severity = models.SeverityUnknown
	}

	for _, member := range members {
		if member.District != "" {
			agg.District = member.District
			break
		}
	}

	agg.Status = RoadStatus(members)
	agg.Action = RoadAction(members)
	agg.AvgReportedTime = averageReportedTime(members)
	agg.Deadline = s.deadlines.DeadlineFor(ctx, road, members)
	agg.Contractors = uniqueContractors(members)
	return agg
}

// averageReportedTime is the mean of every parseable reported
// timestamp, rendered in the display layout.
func averageReportedTime(members []models.DefectItem) string {
	var sum int64
	var n int64
	for _, member := range members {
		if member.ReportedAt == "" {
			continue
		}
		ts, err := time.Parse(models.ReportedTimeLayout, member.ReportedAt)
		if err != nil {
			continue
		}
		sum += ts.Unix()
		n++
	}
	if n == 0 {
		return NoDeadline
	}
	return time.Unix(sum/n, 0).UTC().Format(models.ReportedTimeLayout)
}

func uniqueContractors(members []models.DefectItem) []string {
	seen := make(map[string]struct{})
	contractors := make([]string, 0)
	for _, member := range members {
		if member.ContractorID == nil || *member.ContractorID == "" {
			continue
		}
		if _, ok := seen[*member.ContractorID]; ok {
			continue
		}
		seen[*member.ContractorID] = struct{}{}
		contractors = append(contractors, *member.ContractorID)
	}
	return contractors
}

// Summary counts items per lifecycle state for the dashboard cards.
func (s *AggregationService) Summary(ctx context.Context) (models.RepairSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var summary models.RepairSummary
	for _, item := range s.items {
		switch item.Status {
		case models.StatusReported:
			summary.Reported++
		case models.StatusAssigned:
			summary.Assigned++
		case models.StatusInProgress:
			summary.InProgress++
		case models.StatusPendingVerification:
			summary.Pending++
		}
	}
	summary.Verified = len(s.verified)
	return summary, nil
}

// History returns verified repairs grouped by road. Unlike the live
// board, severity here is the maximum over members, and the fix date is
// the latest one.
func (s *AggregationService) History(ctx context.Context) ([]models.VerifiedRoad, error) {
	s.mu.Lock()
	verified := make([]models.DefectItem, len(s.verified))
	copy(verified, s.verified)
	s.mu.Unlock()

	groups := make(map[string][]models.DefectItem)
	for _, item := range verified {
		road := item.RoadName
		if road == "" {
			road = models.UnknownRoad
		}
		groups[road] = append(groups[road], item)
	}

	rows := make([]models.VerifiedRoad, 0, len(groups))
	for road, members := range groups {
		row := models.VerifiedRoad{
			RoadName:    road,
			Severity:    models.SeverityUnknown,
			LastFixed:   NoDeadline,
			Contractors: uniqueContractors(members),
		}
		var maxScore float64
		var lastFixed time.Time
		for _, member := range members {
			if member.Kind == models.KindPatch {
				row.Patches++
			} else {
				row.Potholes++
			}
			row.IDs = append(row.IDs, member.ID)
			row.Locations = append(row.Locations, member.RawLocation)
			if score := ScoreFromLabel(LabelFromCount(member.ReportCount)); score > maxScore {
				maxScore = score
			}
			if member.FixedAt != "" {
				if ts, err := time.Parse(models.ReportedTimeLayout, member.FixedAt); err == nil && ts.After(lastFixed) {
					lastFixed = ts
					row.LastFixed = member.FixedAt
				}
			}
		}
		if maxScore > 0 {
			row.Severity = LabelFromScore(maxScore)
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].RoadName < rows[j].RoadName })
	return rows, nil
}

// AssignRoad assigns a contractor to every unassigned member of a road.
// Commands run sequentially without rollback: items that succeed stay
// assigned even when a later one fails, and the call errors only when
// nothing succeeded. The road's deadline is created on the first
// successful assignment.
func (s *AggregationService) AssignRoad(ctx context.Context, roadName, contractorID string) (int, error) {
	input := struct {
		RoadName     string `validate:"required"`
		ContractorID string `validate:"required"`
	}{roadName, contractorID}
	if err := s.validate.Struct(input); err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "roadName and contractorId are required")
	}

	members := s.roadMembers(roadName)
	if len(members) == 0 {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "road not found: "+roadName)
	}

	eligible := make([]models.DefectItem, 0, len(members))
	for _, member := range members {
		if member.Status == models.StatusReported || member.ContractorID == nil {
			eligible = append(eligible, member)
		}
	}
	if len(eligible) == 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "no unassigned reports on "+roadName)
	}

	assigned := 0
	var lastErr error
	for _, member := range eligible {
		result, err := s.reporting.Assign(ctx, member.ID, contractorID)
		if err != nil {
			lastErr = err
			s.logger.Warn("assign failed",
				zap.String("road", roadName),
				zap.String("item", member.ID),
				zap.Error(err))
			continue
		}
		assigned++
		s.applyAssignment(member.ID, contractorID, result)
	}

	if assigned == 0 {
		return 0, lastErr
	}

	// Deadline severity reflects the road as it stands after the
	// mutation, then never moves again.
	updated := s.roadMembers(roadName)
	severity := roadSeverity(updated)
	if _, err := s.deadlines.SetDeadlineIfMissing(ctx, roadName, severity, updated); err != nil {
		s.logger.Warn("deadline write failed", zap.String("road", roadName), zap.Error(err))
	}

	s.invalidateSnapshot(ctx)
	return assigned, nil
}

func (s *AggregationService) applyAssignment(id, contractorID string, result *client.AssignmentResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		s.items[i].Status = models.StatusAssigned
		s.items[i].ContractorID = &contractorID
		if result != nil {
			if result.AssignedAt != nil {
				s.items[i].AssignedAt = result.AssignedAt
			}
			if result.DueDate != nil {
				s.items[i].DueDate = result.DueDate
			}
		}
		return
	}
}

// VerifyRoad confirms every pending-verification member of a road as
// repaired. Partial failure keeps the successes; the road's deadline is
// cleared once no active members remain.
func (s *AggregationService) VerifyRoad(ctx context.Context, roadName string) (int, error) {
	members := s.roadMembers(roadName)
	if len(members) == 0 {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "road not found: "+roadName)
	}

	eligible := make([]models.DefectItem, 0, len(members))
	for _, member := range members {
		if member.Status == models.StatusPendingVerification {
			eligible = append(eligible, member)
		}
	}
	if len(eligible) == 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "no reports pending verification on "+roadName)
	}

	verifiedCount := 0
	var lastErr error
	fixedAt := s.now().Format(models.ReportedTimeLayout)
	for _, member := range eligible {
		if err := s.reporting.Verify(ctx, member.ID); err != nil {
			lastErr = err
			s.logger.Warn("verify failed",
				zap.String("road", roadName),
				zap.String("item", member.ID),
				zap.Error(err))
			continue
		}
		verifiedCount++
		s.moveToVerified(member.ID, fixedAt)
	}

	if verifiedCount == 0 {
		return 0, lastErr
	}

	if remaining := s.roadMembers(roadName); len(remaining) == 0 {
		if err := s.deadlines.ClearDeadline(ctx, roadName, eligible); err != nil {
			s.logger.Warn("deadline clear failed", zap.String("road", roadName), zap.Error(err))
		}
	}

	s.invalidateSnapshot(ctx)
	return verifiedCount, nil
}

func (s *AggregationService) moveToVerified(id, fixedAt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		item := s.items[i]
		item.Status = models.StatusVerified
		if item.FixedAt == "" {
			item.FixedAt = fixedAt
		}
		s.items = append(s.items[:i], s.items[i+1:]...)
		s.verified = append(s.verified, item)
		return
	}
}

// RejectItem sends a pending-verification report back to in-progress
// with operator remarks. The road's deadline is left untouched.
func (s *AggregationService) RejectItem(ctx context.Context, id, remarks string) error {
	s.mu.Lock()
	var found *models.DefectItem
	for i := range s.items {
		if s.items[i].ID == id {
			item := s.items[i]
			found = &item
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "report not found: "+id)
	}
	if found.Status != models.StatusPendingVerification {
		return appErrors.Clone(appErrors.ErrValidation, "report is not pending verification: "+id)
	}

	if err := s.reporting.Reject(ctx, id, remarks); err != nil {
		return err
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Status = models.StatusInProgress
			break
		}
	}
	s.mu.Unlock()

	s.invalidateSnapshot(ctx)
	return nil
}

// roadMembers snapshots the active members currently grouped under a
// road name. Unenriched items belong to the Unknown road bucket.
func (s *AggregationService) roadMembers(roadName string) []models.DefectItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := make([]models.DefectItem, 0)
	for _, item := range s.items {
		road := item.RoadName
		if road == "" {
			road = models.UnknownRoad
		}
		if strings.EqualFold(road, roadName) {
			members = append(members, item)
		}
	}
	return members
}

func roadSeverity(members []models.DefectItem) models.Severity {
	var sum float64
	var potholes int
	for _, member := range members {
		if member.Kind != models.KindPatch {
			sum += ScoreFromLabel(LabelFromCount(member.ReportCount))
			potholes++
		}
	}
	if potholes == 0 {
		return models.SeverityUnknown
	}
	return LabelFromScore(sum / float64(potholes))
}

func (s *AggregationService) invalidateSnapshot(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("snapshot invalidate failed", zap.Error(err))
	}
}
