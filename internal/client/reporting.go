package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/roadworks-api/internal/models"
	"github.com/noah-isme/roadworks-api/pkg/config"
	appErrors "github.com/noah-isme/roadworks-api/pkg/errors"
)

// ReportingClient talks to the upstream defect-reporting API, which is
// the source of truth for the defect item set. Every failure is wrapped
// as ErrUpstream so callers can degrade instead of crashing.
type ReportingClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewReportingClient constructs the client.
func NewReportingClient(cfg config.ReportingConfig, logger *zap.Logger) *ReportingClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportingClient{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// reportRecord is the upstream wire shape for one aggregated location
// record. Road, district and due date are optional: their absence
// triggers enrichment and the deadline-cache fallback respectively.
type reportRecord struct {
	ID           string  `json:"id"`
	DBID         *int64  `json:"dbId,omitempty"`
	CellID       string  `json:"cellId,omitempty"`
	Location     string  `json:"location"`
	Count        int     `json:"count"`
	Status       string  `json:"status"`
	ContractorID *string `json:"contractorId,omitempty"`
	AssignedAt   string  `json:"assignedAt,omitempty"`
	DueDate      string  `json:"dueDate,omitempty"`
	RoadName     string  `json:"roadName,omitempty"`
	District     string  `json:"district,omitempty"`
	ReportedTime string  `json:"reportedTime,omitempty"`
	FixedDate    string  `json:"fixedDate,omitempty"`
}

// AssignmentResult is the server's response to an assign command,
// carrying the authoritative due date the engine must prefer over its
// local estimate.
type AssignmentResult struct {
	AssignedAt *time.Time
	DueDate    *time.Time
}

// Fetch returns the current defect item set.
func (c *ReportingClient) Fetch(ctx context.Context) ([]models.DefectItem, error) {
	var payload struct {
		Reports []reportRecord `json:"reports"`
	}
	if err := c.do(ctx, http.MethodGet, "/reports", nil, &payload); err != nil {
		return nil, err
	}

	items := make([]models.DefectItem, 0, len(payload.Reports))
	for _, record := range payload.Reports {
		items = append(items, record.toItem())
	}
	return items, nil
}

// Assign submits a contractor assignment for one location record.
func (c *ReportingClient) Assign(ctx context.Context, locationID, contractorID string) (*AssignmentResult, error) {
	body := map[string]string{"contractorId": contractorID}
	var payload struct {
		AssignedAt string `json:"assignedAt"`
		DueDate    string `json:"dueDate"`
	}
	path := fmt.Sprintf("/reports/%s/assign", url.PathEscape(locationID))
	if err := c.do(ctx, http.MethodPost, path, body, &payload); err != nil {
		return nil, err
	}
	return &AssignmentResult{
		AssignedAt: parseTimestamp(payload.AssignedAt),
		DueDate:    parseTimestamp(payload.DueDate),
	}, nil
}

// Verify transitions a location record out of the visible set.
func (c *ReportingClient) Verify(ctx context.Context, locationID string) error {
	path := fmt.Sprintf("/reports/%s/verify", url.PathEscape(locationID))
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// Reject returns a pending record to in-progress with operator remarks.
func (c *ReportingClient) Reject(ctx context.Context, locationID, remarks string) error {
	body := map[string]string{"remarks": remarks}
	path := fmt.Sprintf("/reports/%s/reject", url.PathEscape(locationID))
	return c.do(ctx, http.MethodPost, path, body, nil)
}

func (c *ReportingClient) do(ctx context.Context, method, path string, body, dest interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode reporting request")
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "build reporting request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "reporting API unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return appErrors.Wrap(fmt.Errorf("status %d", resp.StatusCode),
			appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "reporting API error")
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "decode reporting response")
	}
	return nil
}

func (r reportRecord) toItem() models.DefectItem {
	item := models.DefectItem{
		ID:           r.ID,
		ServerID:     r.DBID,
		GridID:       r.CellID,
		RawLocation:  r.Location,
		Kind:         models.KindFromID(r.ID),
		ReportCount:  r.Count,
		Status:       models.ParseStatus(r.Status),
		ContractorID: r.ContractorID,
		AssignedAt:   parseTimestamp(r.AssignedAt),
		DueDate:      parseTimestamp(r.DueDate),
		RoadName:     r.RoadName,
		District:     r.District,
		ReportedAt:   r.ReportedTime,
		FixedAt:      r.FixedDate,
	}
	if coords, err := models.ParseCoordinates(r.Location); err == nil {
		item.Coordinates = &coords
	}
	return item
}

// parseTimestamp accepts RFC3339 and the dashboard display layout;
// anything else is treated as absent.
func parseTimestamp(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts
	}
	if ts, err := time.Parse(models.ReportedTimeLayout, raw); err == nil {
		return &ts
	}
	return nil
}
