package service

import "github.com/noah-isme/roadworks-api/internal/models"

// statusPriority imposes a total order over lifecycle statuses for
// picking a road's representative status. Pending verification is the
// most urgent to act on; verified items are excluded from the visible
// set and rank last. In Progress shares the Assigned band because both
// mean "work is with a contractor".
func statusPriority(status models.Status) int {
	switch status {
	case models.StatusPendingVerification:
		return 3
	case models.StatusAssigned, models.StatusInProgress:
		return 2
	case models.StatusReported:
		return 1
	default:
		return 0
	}
}

// RoadStatus returns the status of the member with the highest
// priority; ties are broken by first occurrence.
func RoadStatus(members []models.DefectItem) models.Status {
	best := models.StatusReported
	bestPriority := -1
	for _, member := range members {
		if p := statusPriority(member.Status); p > bestPriority {
			best = member.Status
			bestPriority = p
		}
	}
	return best
}

// RoadAction derives the bulk action the dashboard offers for a road:
// verify when any member awaits verification, assign when any member
// still lacks a contractor, view otherwise.
func RoadAction(members []models.DefectItem) models.RoadAction {
	anyUnassigned := false
	for _, member := range members {
		if member.Status == models.StatusPendingVerification {
			return models.ActionVerify
		}
		if member.Status == models.StatusReported ||
			(member.ContractorID == nil && member.Status != models.StatusVerified) {
			anyUnassigned = true
		}
	}
	if anyUnassigned {
		return models.ActionAssign
	}
	return models.ActionView
}
