package cluster

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fortytworoma/monitor/core"
)

// Machine statuses, in display precedence order.
// A machine reported both offline and in maintenance shows as offline.
const (
	StatusAvailable   = "available"
	StatusMaintenance = "maintenance"
	StatusOffline     = "offline"
)

type Machine struct {
	ID       string `json:"id"` // hostname, e.g. e3r2p5
	Cluster  string `json:"cluster"`
	Row      int    `json:"row"`
	Position int    `json:"position"`
	Status   string `json:"status"`
	Occupied bool   `json:"occupied"` // someone is logged in; only set when available
}

type StatusCounts struct {
	Available   int `json:"available"`
	Occupied    int `json:"occupied"`
	Maintenance int `json:"maintenance"`
	Offline     int `json:"offline"`
	Total       int `json:"total"`
}

// ClusterStatus groups a cluster's machines in roster order.
type ClusterStatus struct {
	Name      string       `json:"name"`
	Rows      int          `json:"rows"`
	Positions int          `json:"positions"` // per row
	Machines  []Machine    `json:"machines"`
	Counts    StatusCounts `json:"counts"`
}

// Snapshot is the full cluster state at a point in time. It is replaced
// wholesale on refresh, never patched.
type Snapshot struct {
	Clusters  []ClusterStatus `json:"clusters"`
	UpdatedAt time.Time       `json:"updated_at"` // UTC, zero = never refreshed
	Stale     bool            `json:"stale"`
}

// Feed is the raw state reported by the upstream status source.
type Feed struct {
	Offline []string
	Used    []string
}

// MaintenanceRequest toggles a machine in or out of the maintenance set.
type MaintenanceRequest struct {
	MachineID string `json:"machine_id" validate:"required,machineid"`
	Action    string `json:"action" validate:"omitempty,oneof=add remove"`
}

func (mr *MaintenanceRequest) Validate(validate *validator.Validate) error {
	mr.MachineID = core.CleanString(mr.MachineID, true /* lower */)
	mr.Action = core.CleanString(mr.Action, true /* lower */)
	return validate.Struct(mr)
}

func (mr *MaintenanceRequest) Flagged() bool { return mr.Action != "remove" }
