package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/problem-register/internal/domain/entities"
	"github.com/zatekoja/problem-register/internal/domain/repositories"
	"github.com/zatekoja/problem-register/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/problem-register/pkg/errors"
	"go.opentelemetry.io/otel/trace"
)

// ProblemService is the operation surface of the problem store. It owns
// input validation and the creation-time clock capture; everything below it
// assumes validated input. Collaborators never see the storage handles, only
// this service and the repository interfaces behind it.
type ProblemService struct {
	repo    repositories.ParentProblemRepository
	audit   repositories.PurgeAuditRepository
	metrics *observability.Metrics
}

// NewProblemService creates a new problem service. metrics may be nil.
func NewProblemService(repo repositories.ParentProblemRepository, audit repositories.PurgeAuditRepository, metrics *observability.Metrics) *ProblemService {
	return &ProblemService{
		repo:    repo,
		audit:   audit,
		metrics: metrics,
	}
}

// Create registers a new parent problem with status Active and both
// timestamps set to the same instant.
func (s *ProblemService) Create(ctx context.Context, parentID, summary string) (*entities.ParentProblem, error) {
	ctx, span := observability.StartSpan(ctx, "ProblemService.Create")
	defer span.End()
	start := time.Now()

	if err := validateParentID(parentID); err != nil {
		return nil, err
	}
	if err := validateSummary(summary); err != nil {
		return nil, err
	}

	problem := entities.NewParentProblem(parentID, summary)
	err := s.repo.Create(ctx, problem)
	s.finish(ctx, span, "create", start, err)
	if err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("parent_id", parentID).
		Msg("Parent problem created")
	return problem, nil
}

// Get returns the current record for the given identifier.
func (s *ProblemService) Get(ctx context.Context, parentID string) (*entities.ParentProblem, error) {
	ctx, span := observability.StartSpan(ctx, "ProblemService.Get")
	defer span.End()
	start := time.Now()

	if err := validateParentID(parentID); err != nil {
		return nil, err
	}

	problem, err := s.repo.GetByID(ctx, parentID)
	s.finish(ctx, span, "get", start, err)
	return problem, err
}

// ListByStatus returns all records in the given status, oldest first.
func (s *ProblemService) ListByStatus(ctx context.Context, status entities.ProblemStatus) ([]*entities.ParentProblem, error) {
	ctx, span := observability.StartSpan(ctx, "ProblemService.ListByStatus")
	defer span.End()
	start := time.Now()

	if _, ok := entities.ParseProblemStatus(string(status)); !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid problem status %q", string(status)))
	}

	problems, err := s.repo.ListByStatus(ctx, status)
	s.finish(ctx, span, "list_by_status", start, err)
	return problems, err
}

// UpdateSummary replaces the root-cause description of an existing record.
func (s *ProblemService) UpdateSummary(ctx context.Context, parentID, summary string) error {
	ctx, span := observability.StartSpan(ctx, "ProblemService.UpdateSummary")
	defer span.End()
	start := time.Now()

	if err := validateParentID(parentID); err != nil {
		return err
	}
	if err := validateSummary(summary); err != nil {
		return err
	}

	err := s.repo.UpdateSummary(ctx, parentID, summary)
	s.finish(ctx, span, "update_summary", start, err)
	if err != nil {
		return err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("parent_id", parentID).
		Msg("Parent problem summary updated")
	return nil
}

// Resolve marks a problem as no longer causing impact. Resolving an
// already-resolved problem succeeds without effect.
func (s *ProblemService) Resolve(ctx context.Context, parentID string) error {
	return s.transition(ctx, parentID, "resolve")
}

// Reopen marks a resolved problem as causing impact again, with the same
// idempotence rule as Resolve.
func (s *ProblemService) Reopen(ctx context.Context, parentID string) error {
	return s.transition(ctx, parentID, "reopen")
}

func (s *ProblemService) transition(ctx context.Context, parentID, op string) error {
	ctx, span := observability.StartSpan(ctx, "ProblemService."+op)
	defer span.End()
	start := time.Now()

	if err := validateParentID(parentID); err != nil {
		return err
	}

	var err error
	if op == "resolve" {
		err = s.repo.Resolve(ctx, parentID)
	} else {
		err = s.repo.Reopen(ctx, parentID)
	}
	s.finish(ctx, span, op, start, err)
	if err != nil {
		return err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("parent_id", parentID).
		Str("operation", op).
		Msg("Parent problem status transition applied")
	return nil
}

// Purge physically removes a record. Administrative operation: it requires
// an operator identity, writes the audit trail entry first, and is the only
// path in the system that deletes rows.
func (s *ProblemService) Purge(ctx context.Context, parentID, purgedBy, reason string) (*entities.PurgeRecord, error) {
	ctx, span := observability.StartSpan(ctx, "ProblemService.Purge")
	defer span.End()
	start := time.Now()

	if err := validateParentID(parentID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(purgedBy) == "" {
		return nil, apperrors.NewValidationError("purge operator must not be empty")
	}

	problem, err := s.repo.GetByID(ctx, parentID)
	if err != nil {
		s.finish(ctx, span, "purge", start, err)
		return nil, err
	}

	record := &entities.PurgeRecord{
		ID:              uuid.New().String(),
		ParentID:        problem.ParentID,
		SummarySnapshot: problem.CoreIssueSummary,
		StatusSnapshot:  problem.Status,
		PurgedBy:        purgedBy,
		Reason:          reason,
		PurgedAt:        time.Now().UTC(),
	}
	if err := s.audit.Record(ctx, record); err != nil {
		s.finish(ctx, span, "purge", start, err)
		return nil, err
	}

	err = s.repo.Purge(ctx, parentID)
	s.finish(ctx, span, "purge", start, err)
	if err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("parent_id", parentID).
		Str("purged_by", purgedBy).
		Msg("Parent problem purged")
	return record, nil
}

// PurgeHistory returns the audit trail of administrative purges.
func (s *ProblemService) PurgeHistory(ctx context.Context) ([]*entities.PurgeRecord, error) {
	return s.audit.List(ctx)
}

func (s *ProblemService) finish(ctx context.Context, span trace.Span, op string, start time.Time, err error) {
	observability.RecordStoreMetric(ctx, s.metrics, op, err == nil, time.Since(start))
	observability.RecordError(span, err)
	if err != nil {
		observability.LoggerFromContext(ctx).Error().
			Str("operation", op).
			Err(err).
			Msg("Problem store operation failed")
	}
}

func validateParentID(parentID string) error {
	if strings.TrimSpace(parentID) == "" {
		return apperrors.NewValidationError("parent_id must not be empty")
	}
	return nil
}

func validateSummary(summary string) error {
	if strings.TrimSpace(summary) == "" {
		return apperrors.NewValidationError("core_issue_summary must not be empty")
	}
	return nil
}
