package entities

import "time"

// ProblemStatus is the lifecycle state of a parent problem. Only the two
// declared constants are valid; the type is never populated from free text
// without going through ParseProblemStatus.
type ProblemStatus string

const (
	// StatusActive marks a problem believed to still be causing impact.
	StatusActive ProblemStatus = "Active"

	// StatusResolved marks a problem believed to no longer be causing impact.
	StatusResolved ProblemStatus = "Resolved"
)

// ParseProblemStatus maps a stored or user-supplied string onto a valid
// status. The second return value is false for anything other than the two
// known literals.
func ParseProblemStatus(s string) (ProblemStatus, bool) {
	switch ProblemStatus(s) {
	case StatusActive:
		return StatusActive, true
	case StatusResolved:
		return StatusResolved, true
	}
	return "", false
}

// ParentProblem is a single root-cause record to which individual incident
// reports are attributed by an external correlation process.
type ParentProblem struct {
	ParentID         string        `json:"parent_id" db:"parent_id"`
	CoreIssueSummary string        `json:"core_issue_summary" db:"core_issue_summary"`
	Status           ProblemStatus `json:"status" db:"status"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// NewParentProblem constructs a fresh record. The creation instant is
// captured here, once, so behavior is identical across storage backends:
// status starts Active and both timestamps carry the same UTC value.
func NewParentProblem(parentID, coreIssueSummary string) *ParentProblem {
	now := time.Now().UTC()
	return &ParentProblem{
		ParentID:         parentID,
		CoreIssueSummary: coreIssueSummary,
		Status:           StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Touch refreshes UpdatedAt. The value never regresses, even if the wall
// clock does: a stale now is clamped to the current UpdatedAt.
func (p *ParentProblem) Touch(now time.Time) {
	now = now.UTC()
	if now.Before(p.UpdatedAt) {
		now = p.UpdatedAt
	}
	p.UpdatedAt = now
}

// SetSummary replaces the root-cause description and refreshes UpdatedAt.
func (p *ParentProblem) SetSummary(summary string, now time.Time) {
	p.CoreIssueSummary = summary
	p.Touch(now)
}

// Resolve transitions Active -> Resolved. Resolving an already-resolved
// record is a no-op; the return value reports whether a transition happened.
func (p *ParentProblem) Resolve(now time.Time) bool {
	if p.Status == StatusResolved {
		return false
	}
	p.Status = StatusResolved
	p.Touch(now)
	return true
}

// Reopen transitions Resolved -> Active, with the same no-op rule as Resolve.
func (p *ParentProblem) Reopen(now time.Time) bool {
	if p.Status == StatusActive {
		return false
	}
	p.Status = StatusActive
	p.Touch(now)
	return true
}

// Clone returns an independent copy. Adapters hand out clones so callers can
// never mutate stored state behind the repository's back.
func (p *ParentProblem) Clone() *ParentProblem {
	c := *p
	return &c
}
