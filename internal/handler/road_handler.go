package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roadworks-api/internal/dto"
	"github.com/noah-isme/roadworks-api/internal/middleware"
	"github.com/noah-isme/roadworks-api/internal/models"
	"github.com/noah-isme/roadworks-api/internal/service"
	appErrors "github.com/noah-isme/roadworks-api/pkg/errors"
	"github.com/noah-isme/roadworks-api/pkg/response"
)

type roadService interface {
	Refresh(ctx context.Context) error
	Roads(ctx context.Context) ([]models.RoadAggregate, bool, error)
	Summary(ctx context.Context) (models.RepairSummary, error)
	History(ctx context.Context) ([]models.VerifiedRoad, error)
	AssignRoad(ctx context.Context, roadName, contractorID string) (int, error)
	VerifyRoad(ctx context.Context, roadName string) (int, error)
	RejectItem(ctx context.Context, id, remarks string) error
	Offline() bool
}

type exportService interface {
	Roads(ctx context.Context, format service.ExportFormat) (*service.ExportResult, error)
	History(ctx context.Context, format service.ExportFormat) (*service.ExportResult, error)
}

// RoadHandler wires the road aggregation service to HTTP endpoints.
type RoadHandler struct {
	roads   roadService
	exports exportService
}

// NewRoadHandler constructs the handler.
func NewRoadHandler(roads roadService, exports exportService) *RoadHandler {
	return &RoadHandler{roads: roads, exports: exports}
}

// List godoc
// @Summary Per-road repair aggregates
// @Tags Roads
// @Produce json
// @Param q query string false "Road or district substring"
// @Param severity query string false "Severity filter"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /roads [get]
func (h *RoadHandler) List(c *gin.Context) {
	roads, cacheHit, err := h.roads.Roads(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	roads = filterRoads(roads, c.Query("q"), c.Query("severity"), c.Query("status"))
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetOffline(c, h.roads.Offline())
	response.JSON(c, http.StatusOK, dto.RoadsResponse{Roads: roads}, middleware.ExtractMeta(c))
}

// filterRoads narrows the board by a search term and exact
// severity/status matches. Empty parameters pass everything through.
func filterRoads(roads []models.RoadAggregate, q, severity, status string) []models.RoadAggregate {
	q = strings.ToLower(strings.TrimSpace(q))
	severity = strings.TrimSpace(severity)
	status = strings.TrimSpace(status)
	if q == "" && severity == "" && status == "" {
		return roads
	}
	filtered := make([]models.RoadAggregate, 0, len(roads))
	for _, road := range roads {
		if q != "" &&
			!strings.Contains(strings.ToLower(road.RoadName), q) &&
			!strings.Contains(strings.ToLower(road.District), q) {
			continue
		}
		if severity != "" && !strings.EqualFold(string(road.Severity), severity) {
			continue
		}
		if status != "" && !strings.EqualFold(string(road.Status), status) {
			continue
		}
		filtered = append(filtered, road)
	}
	return filtered
}

// Summary godoc
// @Summary Lifecycle counters for the dashboard cards
// @Tags Roads
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /summary [get]
func (h *RoadHandler) Summary(c *gin.Context) {
	summary, err := h.roads.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetOffline(c, h.roads.Offline())
	response.JSON(c, http.StatusOK, summary, middleware.ExtractMeta(c))
}

// History godoc
// @Summary Verified repairs grouped by road
// @Tags Roads
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /history [get]
func (h *RoadHandler) History(c *gin.Context) {
	rows, err := h.roads.History(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.HistoryResponse{Roads: rows}, middleware.ExtractMeta(c))
}

// Refresh godoc
// @Summary Re-sync the defect set from the reporting API
// @Tags Roads
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /refresh [post]
func (h *RoadHandler) Refresh(c *gin.Context) {
	if err := h.roads.Refresh(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetOffline(c, h.roads.Offline())
	response.JSON(c, http.StatusOK, gin.H{"refreshed": true}, middleware.ExtractMeta(c))
}

// Assign godoc
// @Summary Assign a contractor to a road's unassigned reports
// @Tags Roads
// @Accept json
// @Produce json
// @Param payload body dto.AssignRoadRequest true "Assignment"
// @Success 200 {object} response.Envelope
// @Router /roads/assign [post]
func (h *RoadHandler) Assign(c *gin.Context) {
	var req dto.AssignRoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "roadName and contractorId are required"))
		return
	}
	affected, err := h.roads.AssignRoad(c.Request.Context(), req.RoadName, req.ContractorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.BatchResult{RoadName: req.RoadName, Affected: affected}, middleware.ExtractMeta(c))
}

// Verify godoc
// @Summary Confirm a road's pending reports as repaired
// @Tags Roads
// @Accept json
// @Produce json
// @Param payload body dto.VerifyRoadRequest true "Verification"
// @Success 200 {object} response.Envelope
// @Router /roads/verify [post]
func (h *RoadHandler) Verify(c *gin.Context) {
	var req dto.VerifyRoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "roadName is required"))
		return
	}
	affected, err := h.roads.VerifyRoad(c.Request.Context(), req.RoadName)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.BatchResult{RoadName: req.RoadName, Affected: affected}, middleware.ExtractMeta(c))
}

// Reject godoc
// @Summary Send one pending report back to in-progress
// @Tags Roads
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body dto.RejectReportRequest true "Remarks"
// @Success 204
// @Router /reports/{id}/reject [post]
func (h *RoadHandler) Reject(c *gin.Context) {
	id := c.Param("id")
	var req dto.RejectReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "remarks are required"))
		return
	}
	if err := h.roads.RejectItem(c.Request.Context(), id, req.Remarks); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportRoads godoc
// @Summary Download the road board as CSV or PDF
// @Tags Exports
// @Produce text/csv
// @Param format query string false "csv or pdf"
// @Success 200
// @Router /roads/export [get]
func (h *RoadHandler) ExportRoads(c *gin.Context) {
	h.export(c, h.exports.Roads)
}

// ExportHistory godoc
// @Summary Download the verified history as CSV or PDF
// @Tags Exports
// @Produce text/csv
// @Param format query string false "csv or pdf"
// @Success 200
// @Router /history/export [get]
func (h *RoadHandler) ExportHistory(c *gin.Context) {
	h.export(c, h.exports.History)
}

func (h *RoadHandler) export(c *gin.Context, render func(context.Context, service.ExportFormat) (*service.ExportResult, error)) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	result, err := render(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
