package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Severity is the ordinal classification of a defect or a road.
type Severity string

const (
	SeverityLow     Severity = "Low"
	SeverityMedium  Severity = "Medium"
	SeverityHigh    Severity = "High"
	SeverityUnknown Severity = "Unknown"
)

// Status is the repair lifecycle state of a defect item. The wire
// values match what the reporting API and the dashboard exchange.
type Status string

const (
	StatusReported            Status = "Reported"
	StatusAssigned            Status = "Assigned"
	StatusInProgress          Status = "In Progress"
	StatusPendingVerification Status = "Pending Verification"
	StatusVerified            Status = "Verified"
)

// ParseStatus normalises an upstream status string. Unrecognised values
// degrade to Reported so a malformed row never drops out of the board.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "assigned":
		return StatusAssigned
	case "in progress", "in-progress", "inprogress":
		return StatusInProgress
	case "pending verification", "pending-verification", "pending":
		return StatusPendingVerification
	case "verified":
		return StatusVerified
	default:
		return StatusReported
	}
}

// DefectKind distinguishes potholes from surface patches.
type DefectKind string

const (
	KindPothole DefectKind = "pothole"
	KindPatch   DefectKind = "patch"
)

// KindFromID derives the defect kind from the report id prefix.
// Pothole ids look like PH-2024-001, patches like PA-2024-007.
func KindFromID(id string) DefectKind {
	if strings.HasPrefix(strings.ToUpper(id), "PA-") {
		return KindPatch
	}
	return KindPothole
}

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ParseCoordinates parses a "lat, lon" location string.
func ParseCoordinates(raw string) (Coordinates, error) {
	parts := strings.SplitN(raw, ",", 2)
	if len(parts) != 2 {
		return Coordinates{}, fmt.Errorf("location %q: expected \"lat, lon\"", raw)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("location %q: bad latitude: %w", raw, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("location %q: bad longitude: %w", raw, err)
	}
	return Coordinates{Lat: lat, Lon: lon}, nil
}

// Sentinel values used when enrichment has not completed or failed.
const (
	UnknownRoad     = "Unknown road"
	UnknownDistrict = "Unknown"
)

// ReportedTimeLayout is the display timestamp format used by the
// reporting API, e.g. "Jan 15, 2024 09:30".
const ReportedTimeLayout = "Jan 02, 2006 15:04"

// DefectItem is one reported pothole or patch with its own coordinates
// and lifecycle. Location is immutable once created; status moves
// forward through the lifecycle except for the explicit reject
// transition back to In Progress.
type DefectItem struct {
	ID           string       `json:"id"`
	ServerID     *int64       `json:"serverId,omitempty"`
	GridID       string       `json:"gridId,omitempty"`
	RawLocation  string       `json:"location"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
	Kind         DefectKind   `json:"kind"`
	ReportCount  int          `json:"reportCount"`
	Status       Status       `json:"status"`
	ContractorID *string      `json:"contractorId,omitempty"`
	AssignedAt   *time.Time   `json:"assignedAt,omitempty"`
	DueDate      *time.Time   `json:"dueDate,omitempty"`
	RoadName     string       `json:"roadName,omitempty"`
	District     string       `json:"district,omitempty"`
	ReportedAt   string       `json:"reportedTime,omitempty"`
	FixedAt      string       `json:"fixedDate,omitempty"`
}

// Enriched reports whether the item already carries a resolved road name.
func (d *DefectItem) Enriched() bool {
	return d.RoadName != ""
}

// RoadAction is the bulk action the dashboard offers for a road row.
type RoadAction string

const (
	ActionVerify RoadAction = "verify"
	ActionAssign RoadAction = "assign"
	ActionView   RoadAction = "view"
)

// RoadAggregate is the derived per-road unit of work. It is recomputed
// from scratch on every change to the underlying defect set; only the
// deadline survives recomputation as a persisted fact.
type RoadAggregate struct {
	RoadName        string       `json:"roadName"`
	District        string       `json:"district"`
	Potholes        []DefectItem `json:"potholes"`
	Patches         []DefectItem `json:"patches"`
	NumPotholes     int          `json:"numPotholes"`
	NumPatches      int          `json:"numPatches"`
	Severity        Severity     `json:"severity"`
	Status          Status       `json:"status"`
	Action          RoadAction   `json:"action"`
	AvgReportedTime string       `json:"avgReportedTime"`
	Deadline        string       `json:"deadline"`
	Contractors     []string     `json:"contractors,omitempty"`
}

// Members returns every defect item in the aggregate, potholes first.
func (r *RoadAggregate) Members() []DefectItem {
	members := make([]DefectItem, 0, len(r.Potholes)+len(r.Patches))
	members = append(members, r.Potholes...)
	members = append(members, r.Patches...)
	return members
}

// DeadlineRecord is the persisted per-road repair deadline, created
// the first time a road is assigned. Set-once: later computations never
// overwrite it until the road is fully verified and the record cleared.
type DeadlineRecord struct {
	AssignedAt time.Time `json:"assignedAt"`
	DeadlineAt time.Time `json:"deadlineAt"`
	Severity   Severity  `json:"severity"`
}

// RepairSummary aggregates lifecycle counters for the summary cards.
type RepairSummary struct {
	Reported   int `json:"reported"`
	Assigned   int `json:"assigned"`
	InProgress int `json:"inProgress"`
	Pending    int `json:"pending"`
	Verified   int `json:"verified"`
}

// VerifiedRoad is one row of the verified-repairs history, grouped by
// road. Severity is the maximum over members, unlike the live board
// which averages.
type VerifiedRoad struct {
	RoadName    string   `json:"roadName"`
	Potholes    int      `json:"potholes"`
	Patches     int      `json:"patches"`
	IDs         []string `json:"ids"`
	Locations   []string `json:"locations"`
	Severity    Severity `json:"severity"`
	LastFixed   string   `json:"lastFixedDate"`
	Contractors []string `json:"contractors"`
}
