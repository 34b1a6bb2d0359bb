package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/roadworks-api/internal/models"
	"github.com/noah-isme/roadworks-api/pkg/export"
)

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ParseExportFormat validates a format query value, defaulting to CSV.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "csv":
		return FormatCSV, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type for download headers.
func (f ExportFormat) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

type roadLister interface {
	Roads(ctx context.Context) ([]models.RoadAggregate, bool, error)
	History(ctx context.Context) ([]models.VerifiedRoad, error)
}

// ExportResult is a rendered document ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders the road board and the verified history as
// downloadable documents.
type ExportService struct {
	roads  roadLister
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(roads roadLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{roads: roads, logger: logger, now: time.Now}
}

// Roads renders the live road board.
func (s *ExportService) Roads(ctx context.Context, format ExportFormat) (*ExportResult, error) {
	aggregates, _, err := s.roads.Roads(ctx)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Road", "District", "Potholes", "Patches", "Severity", "Status", "Avg Reported", "Deadline", "Contractors"},
	}
	for _, road := range aggregates {
		dataset.Rows = append(dataset.Rows, []string{
			road.RoadName,
			road.District,
			strconv.Itoa(road.NumPotholes),
			strconv.Itoa(road.NumPatches),
			string(road.Severity),
			string(road.Status),
			road.AvgReportedTime,
			road.Deadline,
			strings.Join(road.Contractors, "; "),
		})
	}
	return s.render(dataset, "Road Repairs", "road-repairs", format)
}

// History renders the verified repairs history.
func (s *ExportService) History(ctx context.Context, format ExportFormat) (*ExportResult, error) {
	rows, err := s.roads.History(ctx)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Road", "Potholes", "Patches", "Severity", "Last Fixed", "Contractors"},
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, []string{
			row.RoadName,
			strconv.Itoa(row.Potholes),
			strconv.Itoa(row.Patches),
			string(row.Severity),
			row.LastFixed,
			strings.Join(row.Contractors, "; "),
		})
	}
	return s.render(dataset, "Verified Repairs", "verified-repairs", format)
}

func (s *ExportService) render(dataset export.Dataset, title, slug string, format ExportFormat) (*ExportResult, error) {
	var payload []byte
	var err error
	switch format {
	case FormatPDF:
		payload, err = export.RenderPDF(dataset, title)
	default:
		payload, err = export.RenderCSV(dataset)
	}
	if err != nil {
		s.logger.Error("export render failed", zap.String("title", title), zap.Error(err))
		return nil, err
	}
	filename := fmt.Sprintf("%s-%s.%s", slug, s.now().Format("2006-01-02"), format)
	return &ExportResult{
		Filename:    filename,
		ContentType: format.ContentType(),
		Payload:     payload,
	}, nil
}
