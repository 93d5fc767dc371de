package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/zatekoja/problem-register/internal/domain/entities"
	"github.com/zatekoja/problem-register/internal/domain/repositories"
	"github.com/zatekoja/problem-register/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/problem-register/pkg/errors"
)

const purgesTable = "problem_purges"

// PurgeAuditAdapter implements purge audit persistence in Postgres.
type PurgeAuditAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPurgeAuditAdapter creates a new purge audit adapter.
func NewPurgeAuditAdapter(client *postgres.Client) repositories.PurgeAuditRepository {
	return &PurgeAuditAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Record inserts a purge audit row.
func (a *PurgeAuditAdapter) Record(ctx context.Context, record *entities.PurgeRecord) error {
	if record == nil {
		return apperrors.NewInternalError("purge record is nil", fmt.Errorf("purge record is nil"))
	}

	row := goqu.Record{
		"id":               record.ID,
		"parent_id":        record.ParentID,
		"summary_snapshot": record.SummarySnapshot,
		"status_snapshot":  string(record.StatusSnapshot),
		"purged_by":        record.PurgedBy,
		"reason":           sql.NullString{String: record.Reason, Valid: record.Reason != ""},
		"purged_at":        record.PurgedAt,
	}

	query, args, err := a.db.Insert(purgesTable).Rows(row).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build purge audit insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to record purge", err)
	}

	return nil
}

// List returns all purge audit rows, oldest first.
func (a *PurgeAuditAdapter) List(ctx context.Context) ([]*entities.PurgeRecord, error) {
	query, args, err := a.db.From(purgesTable).
		Select("id", "parent_id", "summary_snapshot", "status_snapshot", "purged_by", "reason", "purged_at").
		Order(goqu.I("purged_at").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build purge audit list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list purge records", err)
	}
	defer rows.Close()

	records := make([]*entities.PurgeRecord, 0)
	for rows.Next() {
		record := &entities.PurgeRecord{}
		var status string
		var reason sql.NullString
		if err := rows.Scan(
			&record.ID,
			&record.ParentID,
			&record.SummarySnapshot,
			&status,
			&record.PurgedBy,
			&reason,
			&record.PurgedAt,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan purge record", err)
		}
		record.StatusSnapshot = entities.ProblemStatus(status)
		record.Reason = reason.String
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate purge records", err)
	}

	return records, nil
}
