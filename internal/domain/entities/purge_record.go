package entities

import "time"

// PurgeRecord is the audit trail entry written whenever an administrator
// physically removes a parent problem. Lifecycle operations never delete, so
// every row in this table corresponds to an explicit human decision.
type PurgeRecord struct {
	ID              string        `json:"id" db:"id"`
	ParentID        string        `json:"parent_id" db:"parent_id"`
	SummarySnapshot string        `json:"summary_snapshot" db:"summary_snapshot"`
	StatusSnapshot  ProblemStatus `json:"status_snapshot" db:"status_snapshot"`
	PurgedBy        string        `json:"purged_by" db:"purged_by"`
	Reason          string        `json:"reason,omitempty" db:"reason"`
	PurgedAt        time.Time     `json:"purged_at" db:"purged_at"`
}
