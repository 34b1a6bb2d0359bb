package dto

import "github.com/noah-isme/roadworks-api/internal/models"

// AssignRoadRequest asks for every unassigned report on a road to be
// handed to one contractor.
type AssignRoadRequest struct {
	RoadName     string `json:"roadName" binding:"required"`
	ContractorID string `json:"contractorId" binding:"required"`
}

// VerifyRoadRequest confirms every pending report on a road as repaired.
type VerifyRoadRequest struct {
	RoadName string `json:"roadName" binding:"required"`
}

// RejectReportRequest sends one pending report back to in-progress.
type RejectReportRequest struct {
	Remarks string `json:"remarks" binding:"required"`
}

// BatchResult reports how many reports a bulk road command touched.
type BatchResult struct {
	RoadName string `json:"roadName"`
	Affected int    `json:"affected"`
}

// RoadsResponse is the live board payload.
type RoadsResponse struct {
	Roads []models.RoadAggregate `json:"roads"`
}

// HistoryResponse lists verified repairs grouped by road.
type HistoryResponse struct {
	Roads []models.VerifiedRoad `json:"roads"`
}
