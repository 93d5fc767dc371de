package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"
	"github.com/zatekoja/problem-register/internal/domain/entities"
	"github.com/zatekoja/problem-register/internal/domain/repositories"
	"github.com/zatekoja/problem-register/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/problem-register/pkg/errors"
)

// Postgres SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

const problemsTable = "Active_Problems"

// ParentProblemAdapter implements ParentProblemRepository in Postgres.
//
// Create relies on the primary key on parent_id: concurrent inserts for the
// same id resolve inside the engine, so exactly one caller succeeds and the
// rest observe a unique violation, never a silent overwrite.
type ParentProblemAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewParentProblemAdapter creates a new parent problem adapter
func NewParentProblemAdapter(client *postgres.Client) repositories.ParentProblemRepository {
	return &ParentProblemAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts a new parent problem record.
func (a *ParentProblemAdapter) Create(ctx context.Context, problem *entities.ParentProblem) error {
	if problem == nil {
		return apperrors.NewInternalError("problem is nil", fmt.Errorf("problem is nil"))
	}

	record := goqu.Record{
		"parent_id":          problem.ParentID,
		"core_issue_summary": problem.CoreIssueSummary,
		"status":             string(problem.Status),
		"created_at":         problem.CreatedAt,
		"updated_at":         problem.UpdatedAt,
	}

	query, args, err := a.db.Insert(problemsTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build problem insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return apperrors.NewConflictError(fmt.Sprintf("parent problem %s already exists", problem.ParentID))
		}
		return apperrors.NewInternalError("failed to create parent problem", err)
	}

	return nil
}

// GetByID retrieves a parent problem by its external incident identifier.
func (a *ParentProblemAdapter) GetByID(ctx context.Context, parentID string) (*entities.ParentProblem, error) {
	query := `
		SELECT parent_id, core_issue_summary, status, created_at, updated_at
		FROM "Active_Problems"
		WHERE parent_id = $1
	`

	problem := &entities.ParentProblem{}
	var status string
	err := a.client.DB().QueryRowContext(ctx, query, parentID).Scan(
		&problem.ParentID,
		&problem.CoreIssueSummary,
		&status,
		&problem.CreatedAt,
		&problem.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("parent problem %s not found", parentID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get parent problem", err)
	}

	parsed, ok := entities.ParseProblemStatus(status)
	if !ok {
		return nil, apperrors.NewInternalError("stored status is not a valid problem status", fmt.Errorf("status %q", status))
	}
	problem.Status = parsed

	return problem, nil
}

// ListByStatus returns all problems in the given status ordered by creation
// time ascending, parent_id breaking ties so the order is total.
func (a *ParentProblemAdapter) ListByStatus(ctx context.Context, status entities.ProblemStatus) ([]*entities.ParentProblem, error) {
	query, args, err := a.db.From(problemsTable).
		Select("parent_id", "core_issue_summary", "status", "created_at", "updated_at").
		Where(goqu.Ex{"status": string(status)}).
		Order(goqu.I("created_at").Asc(), goqu.I("parent_id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build problem list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list parent problems", err)
	}
	defer rows.Close()

	problems := make([]*entities.ParentProblem, 0)
	for rows.Next() {
		problem := &entities.ParentProblem{}
		var raw string
		if err := rows.Scan(
			&problem.ParentID,
			&problem.CoreIssueSummary,
			&raw,
			&problem.CreatedAt,
			&problem.UpdatedAt,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan parent problem", err)
		}
		parsed, ok := entities.ParseProblemStatus(raw)
		if !ok {
			return nil, apperrors.NewInternalError("stored status is not a valid problem status", fmt.Errorf("status %q", raw))
		}
		problem.Status = parsed
		problems = append(problems, problem)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate parent problems", err)
	}

	return problems, nil
}

// UpdateSummary replaces core_issue_summary and refreshes updated_at.
// GREATEST keeps updated_at from regressing under clock skew between
// writers.
func (a *ParentProblemAdapter) UpdateSummary(ctx context.Context, parentID, summary string) error {
	query := `
		UPDATE "Active_Problems"
		SET core_issue_summary = $2, updated_at = GREATEST($3, updated_at)
		WHERE parent_id = $1
	`

	result, err := a.client.DB().ExecContext(ctx, query, parentID, summary, time.Now().UTC())
	if err != nil {
		return apperrors.NewInternalError("failed to update problem summary", err)
	}

	return a.requireRow(ctx, result, parentID)
}

// Resolve transitions Active -> Resolved. The status filter makes the
// transition and the timestamp refresh one atomic statement; resolving an
// already-resolved record matches no row and is treated as a benign no-op.
func (a *ParentProblemAdapter) Resolve(ctx context.Context, parentID string) error {
	return a.transition(ctx, parentID, entities.StatusActive, entities.StatusResolved)
}

// Reopen transitions Resolved -> Active with the same idempotence rule as
// Resolve.
func (a *ParentProblemAdapter) Reopen(ctx context.Context, parentID string) error {
	return a.transition(ctx, parentID, entities.StatusResolved, entities.StatusActive)
}

func (a *ParentProblemAdapter) transition(ctx context.Context, parentID string, from, to entities.ProblemStatus) error {
	query := `
		UPDATE "Active_Problems"
		SET status = $2, updated_at = GREATEST($3, updated_at)
		WHERE parent_id = $1 AND status = $4
	`

	result, err := a.client.DB().ExecContext(ctx, query, parentID, string(to), time.Now().UTC(), string(from))
	if err != nil {
		return apperrors.NewInternalError("failed to transition problem status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	// No row matched: either the record is absent or it is already in the
	// target status.
	if _, err := a.GetByID(ctx, parentID); err != nil {
		return err
	}
	return nil
}

// Purge physically deletes a record. Administrative operation; the lifecycle
// methods never call this.
func (a *ParentProblemAdapter) Purge(ctx context.Context, parentID string) error {
	query := `DELETE FROM "Active_Problems" WHERE parent_id = $1`

	result, err := a.client.DB().ExecContext(ctx, query, parentID)
	if err != nil {
		return apperrors.NewInternalError("failed to purge parent problem", err)
	}

	return a.requireRow(ctx, result, parentID)
}

func (a *ParentProblemAdapter) requireRow(_ context.Context, result sql.Result, parentID string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("parent problem %s not found", parentID))
	}
	return nil
}
