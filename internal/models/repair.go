package models

import "time"

// Repair run modes
const (
	RepairModeDetect = "detect"
	RepairModeRepair = "repair"
	RepairModeEnsure = "ensure"
)

// RepairRun records one invocation of the relation repair tooling
type RepairRun struct {
	ID                int64     `json:"id"`
	Mode              string    `json:"mode"`
	TotalChecked      int       `json:"totalChecked"`
	OrphanedFound     int       `json:"orphanedFound"`
	RepairsSuccessful int       `json:"repairsSuccessful"`
	RepairsFailed     int       `json:"repairsFailed"`
	StartedAt         time.Time `json:"startedAt"`
	FinishedAt        time.Time `json:"finishedAt"`
}
