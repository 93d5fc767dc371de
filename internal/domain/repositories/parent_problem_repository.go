package repositories

import (
	"context"

	"github.com/zatekoja/problem-register/internal/domain/entities"
)

// ParentProblemRepository defines the storage contract for parent problems.
//
// Implementations must make Create atomic with respect to the uniqueness
// check: of N concurrent Creates for the same parent_id exactly one succeeds
// and the rest fail with a conflict error. Mutations on the same parent_id
// are serialized by the implementation; mutations on different ids do not
// contend.
type ParentProblemRepository interface {
	// Create inserts a new record. Fails with a conflict error if the
	// parent_id already exists; never overwrites.
	Create(ctx context.Context, problem *entities.ParentProblem) error

	// GetByID returns the current record or a not-found error.
	GetByID(ctx context.Context, parentID string) (*entities.ParentProblem, error)

	// ListByStatus returns all records in the given status ordered by
	// created_at ascending (parent_id as tiebreak). Each call re-queries
	// storage; the result is a snapshot, not a cursor.
	ListByStatus(ctx context.Context, status entities.ProblemStatus) ([]*entities.ParentProblem, error)

	// UpdateSummary replaces core_issue_summary and refreshes updated_at.
	UpdateSummary(ctx context.Context, parentID, summary string) error

	// Resolve transitions Active -> Resolved. Resolving an already-resolved
	// record succeeds without effect.
	Resolve(ctx context.Context, parentID string) error

	// Reopen transitions Resolved -> Active, with the same idempotence rule
	// as Resolve.
	Reopen(ctx context.Context, parentID string) error

	// Purge physically deletes the record. Administrative path only; the
	// lifecycle operations above never remove rows.
	Purge(ctx context.Context, parentID string) error
}

// PurgeAuditRepository persists the audit trail of administrative purges.
type PurgeAuditRepository interface {
	Record(ctx context.Context, record *entities.PurgeRecord) error
	List(ctx context.Context) ([]*entities.PurgeRecord, error)
}
