package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roadworks-api/internal/middleware"
	"github.com/noah-isme/roadworks-api/internal/models"
	"github.com/noah-isme/roadworks-api/internal/service"
	appErrors "github.com/noah-isme/roadworks-api/pkg/errors"
)

type fakeRoadSrv struct {
	roads      []models.RoadAggregate
	roadsHit   bool
	roadsErr   error
	summary    models.RepairSummary
	history    []models.VerifiedRoad
	assignErr  error
	assigned   int
	verifyErr  error
	verified   int
	rejectErr  error
	refreshErr error
	offline    bool

	lastAssign struct {
		road       string
		contractor string
	}
	lastReject struct {
		id      string
		remarks string
	}
}

func (f *fakeRoadSrv) Refresh(context.Context) error { return f.refreshErr }

func (f *fakeRoadSrv) Roads(context.Context) ([]models.RoadAggregate, bool, error) {
	return f.roads, f.roadsHit, f.roadsErr
}

func (f *fakeRoadSrv) Summary(context.Context) (models.RepairSummary, error) {
	return f.summary, nil
}

func (f *fakeRoadSrv) History(context.Context) ([]models.VerifiedRoad, error) {
	return f.history, nil
}

func (f *fakeRoadSrv) AssignRoad(_ context.Context, roadName, contractorID string) (int, error) {
	f.lastAssign.road = roadName
	f.lastAssign.contractor = contractorID
	return f.assigned, f.assignErr
}

func (f *fakeRoadSrv) VerifyRoad(_ context.Context, roadName string) (int, error) {
	return f.verified, f.verifyErr
}

func (f *fakeRoadSrv) RejectItem(_ context.Context, id, remarks string) error {
	f.lastReject.id = id
	f.lastReject.remarks = remarks
	return f.rejectErr
}

func (f *fakeRoadSrv) Offline() bool { return f.offline }

type fakeExportSrv struct{}

func (fakeExportSrv) Roads(context.Context, service.ExportFormat) (*service.ExportResult, error) {
	return &service.ExportResult{Filename: "road-repairs.csv", ContentType: "text/csv", Payload: []byte("Road\n")}, nil
}

func (fakeExportSrv) History(context.Context, service.ExportFormat) (*service.ExportResult, error) {
	return &service.ExportResult{Filename: "verified.pdf", ContentType: "application/pdf", Payload: []byte("%PDF")}, nil
}

type envelope struct {
	Data  map[string]interface{} `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func newTestContext(t *testing.T, method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, rec
}

func TestRoadHandlerList(t *testing.T) {
	srv := &fakeRoadSrv{
		roads:    []models.RoadAggregate{{RoadName: "Anna Salai", Severity: models.SeverityHigh}},
		roadsHit: true,
	}
	h := NewRoadHandler(srv, fakeExportSrv{})

	c, rec := newTestContext(t, http.MethodGet, "/roads", nil)
	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	roads := env.Data["roads"].([]interface{})
	assert.Len(t, roads, 1)
}

func newTestRouter(h *RoadHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.WithResponseMeta())
	r.GET("/roads", h.List)
	r.POST("/reports/:id/reject", h.Reject)
	return r
}

func TestRoadHandlerListProcessingTime(t *testing.T) {
	srv := &fakeRoadSrv{
		roads: []models.RoadAggregate{{RoadName: "Anna Salai", Severity: models.SeverityHigh}},
	}
	r := newTestRouter(NewRoadHandler(srv, fakeExportSrv{}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/roads", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	_, ok := env.Meta["processing_time_ms"]
	assert.True(t, ok)
}

func TestRoadHandlerListOfflineMeta(t *testing.T) {
	srv := &fakeRoadSrv{offline: true}
	h := NewRoadHandler(srv, fakeExportSrv{})

	c, rec := newTestContext(t, http.MethodGet, "/roads", nil)
	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, true, env.Meta["offline"])
}

func TestFilterRoads(t *testing.T) {
	roads := []models.RoadAggregate{
		{RoadName: "Anna Salai", District: "Chennai", Severity: models.SeverityHigh, Status: models.StatusReported},
		{RoadName: "Mount Road", District: "Chennai", Severity: models.SeverityLow, Status: models.StatusAssigned},
		{RoadName: "Unknown road", District: "Unknown", Severity: models.SeverityMedium, Status: models.StatusReported},
	}

	assert.Len(t, filterRoads(roads, "", "", ""), 3)
	assert.Len(t, filterRoads(roads, "chennai", "", ""), 2)
	assert.Len(t, filterRoads(roads, "anna", "", ""), 1)
	assert.Len(t, filterRoads(roads, "", "high", ""), 1)
	assert.Len(t, filterRoads(roads, "", "", "Reported"), 2)
	assert.Len(t, filterRoads(roads, "chennai", "low", "assigned"), 1)
	assert.Empty(t, filterRoads(roads, "nowhere", "", ""))
}

func TestRoadHandlerAssignValidation(t *testing.T) {
	h := NewRoadHandler(&fakeRoadSrv{}, fakeExportSrv{})

	c, rec := newTestContext(t, http.MethodPost, "/roads/assign",
		map[string]string{"roadName": "Anna Salai"})
	h.Assign(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoadHandlerAssignSuccess(t *testing.T) {
	srv := &fakeRoadSrv{assigned: 3}
	h := NewRoadHandler(srv, fakeExportSrv{})

	c, rec := newTestContext(t, http.MethodPost, "/roads/assign",
		map[string]string{"roadName": "Anna Salai", "contractorId": "CON-7"})
	h.Assign(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Anna Salai", srv.lastAssign.road)
	assert.Equal(t, "CON-7", srv.lastAssign.contractor)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, float64(3), env.Data["affected"])
}

func TestRoadHandlerAssignUpstreamError(t *testing.T) {
	srv := &fakeRoadSrv{assignErr: appErrors.ErrUpstream}
	h := NewRoadHandler(srv, fakeExportSrv{})

	c, rec := newTestContext(t, http.MethodPost, "/roads/assign",
		map[string]string{"roadName": "Anna Salai", "contractorId": "CON-7"})
	h.Assign(c)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRoadHandlerReject(t *testing.T) {
	srv := &fakeRoadSrv{}
	r := newTestRouter(NewRoadHandler(srv, fakeExportSrv{}))

	payload, err := json.Marshal(map[string]string{"remarks": "patch failed inspection"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/reports/PH-1/reject", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "PH-1", srv.lastReject.id)
	assert.Equal(t, "patch failed inspection", srv.lastReject.remarks)
}

func TestRoadHandlerRejectRequiresRemarks(t *testing.T) {
	h := NewRoadHandler(&fakeRoadSrv{}, fakeExportSrv{})

	c, rec := newTestContext(t, http.MethodPost, "/reports/PH-1/reject", map[string]string{})
	c.Params = gin.Params{{Key: "id", Value: "PH-1"}}
	h.Reject(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoadHandlerExportRoads(t *testing.T) {
	h := NewRoadHandler(&fakeRoadSrv{}, fakeExportSrv{})

	c, rec := newTestContext(t, http.MethodGet, "/roads/export?format=csv", nil)
	h.ExportRoads(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "road-repairs.csv")
}

func TestRoadHandlerExportBadFormat(t *testing.T) {
	h := NewRoadHandler(&fakeRoadSrv{}, fakeExportSrv{})

	c, rec := newTestContext(t, http.MethodGet, "/roads/export?format=xlsx", nil)
	h.ExportRoads(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
