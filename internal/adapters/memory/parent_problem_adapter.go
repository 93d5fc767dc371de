// Package memory provides in-process implementations of the domain
// repositories for local development and tests, the same role the vendor
// mock adapters play for external providers.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zatekoja/problem-register/internal/domain/entities"
	"github.com/zatekoja/problem-register/internal/domain/repositories"
	apperrors "github.com/zatekoja/problem-register/pkg/errors"
)

// ParentProblemAdapter is a mutex-guarded map with the same contract as the
// Postgres adapter: Create's existence check and insert happen under one
// lock, so racing Creates for the same parent_id see exactly one winner.
type ParentProblemAdapter struct {
	mu       sync.RWMutex
	problems map[string]*entities.ParentProblem
}

// NewParentProblemAdapter creates an empty in-memory problem repository.
func NewParentProblemAdapter() *ParentProblemAdapter {
	return &ParentProblemAdapter{
		problems: make(map[string]*entities.ParentProblem),
	}
}

// Create inserts a new record, failing on a duplicate parent_id.
func (a *ParentProblemAdapter) Create(ctx context.Context, problem *entities.ParentProblem) error {
	if problem == nil {
		return apperrors.NewInternalError("problem is nil", fmt.Errorf("problem is nil"))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.problems[problem.ParentID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("parent problem %s already exists", problem.ParentID))
	}
	a.problems[problem.ParentID] = problem.Clone()
	return nil
}

// GetByID returns a copy of the current record.
func (a *ParentProblemAdapter) GetByID(ctx context.Context, parentID string) (*entities.ParentProblem, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	problem, exists := a.problems[parentID]
	if !exists {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("parent problem %s not found", parentID))
	}
	return problem.Clone(), nil
}

// ListByStatus returns matching records ordered by created_at ascending,
// parent_id as tiebreak. The result is recomputed on every call.
func (a *ParentProblemAdapter) ListByStatus(ctx context.Context, status entities.ProblemStatus) ([]*entities.ParentProblem, error) {
	a.mu.RLock()
	problems := make([]*entities.ParentProblem, 0)
	for _, problem := range a.problems {
		if problem.Status == status {
			problems = append(problems, problem.Clone())
		}
	}
	a.mu.RUnlock()

	sort.Slice(problems, func(i, j int) bool {
		if !problems[i].CreatedAt.Equal(problems[j].CreatedAt) {
			return problems[i].CreatedAt.Before(problems[j].CreatedAt)
		}
		return problems[i].ParentID < problems[j].ParentID
	})
	return problems, nil
}

// UpdateSummary replaces the summary and refreshes updated_at.
func (a *ParentProblemAdapter) UpdateSummary(ctx context.Context, parentID, summary string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	problem, exists := a.problems[parentID]
	if !exists {
		return apperrors.NewNotFoundError(fmt.Sprintf("parent problem %s not found", parentID))
	}
	problem.SetSummary(summary, time.Now())
	return nil
}

// Resolve transitions Active -> Resolved; a no-op when already Resolved.
func (a *ParentProblemAdapter) Resolve(ctx context.Context, parentID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	problem, exists := a.problems[parentID]
	if !exists {
		return apperrors.NewNotFoundError(fmt.Sprintf("parent problem %s not found", parentID))
	}
	problem.Resolve(time.Now())
	return nil
}

// Reopen transitions Resolved -> Active; a no-op when already Active.
func (a *ParentProblemAdapter) Reopen(ctx context.Context, parentID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	problem, exists := a.problems[parentID]
	if !exists {
		return apperrors.NewNotFoundError(fmt.Sprintf("parent problem %s not found", parentID))
	}
	problem.Reopen(time.Now())
	return nil
}

// Purge removes the record.
func (a *ParentProblemAdapter) Purge(ctx context.Context, parentID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.problems[parentID]; !exists {
		return apperrors.NewNotFoundError(fmt.Sprintf("parent problem %s not found", parentID))
	}
	delete(a.problems, parentID)
	return nil
}

var _ repositories.ParentProblemRepository = (*ParentProblemAdapter)(nil)

// PurgeAuditAdapter is an in-memory purge audit trail.
type PurgeAuditAdapter struct {
	mu      sync.Mutex
	records []*entities.PurgeRecord
}

// NewPurgeAuditAdapter creates an empty in-memory purge audit repository.
func NewPurgeAuditAdapter() *PurgeAuditAdapter {
	return &PurgeAuditAdapter{}
}

// Record appends a purge audit entry.
func (a *PurgeAuditAdapter) Record(ctx context.Context, record *entities.PurgeRecord) error {
	if record == nil {
		return apperrors.NewInternalError("purge record is nil", fmt.Errorf("purge record is nil"))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	copied := *record
	a.records = append(a.records, &copied)
	return nil
}

// List returns recorded entries in insertion order.
func (a *PurgeAuditAdapter) List(ctx context.Context) ([]*entities.PurgeRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*entities.PurgeRecord, 0, len(a.records))
	for _, record := range a.records {
		copied := *record
		out = append(out, &copied)
	}
	return out, nil
}

var _ repositories.PurgeAuditRepository = (*PurgeAuditAdapter)(nil)
