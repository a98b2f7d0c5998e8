// Package repository persists submission verdicts to the relational
// store with idempotent single-row updates.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"grader/internal/common/db"
	"grader/internal/judge/model"
	appErr "grader/pkg/errors"
)

// SubmissionRepository moves a submission row through its verdict
// lifecycle: Pending → Judging → terminal status.
type SubmissionRepository struct {
	db *db.Postgres
}

// NewSubmissionRepository creates a repository over the shared pool.
func NewSubmissionRepository(pg *db.Postgres) *SubmissionRepository {
	return &SubmissionRepository{db: pg}
}

// FetchSubmission reports whether the submission row exists. A
// missing row means the submission was withdrawn before judging.
func (r *SubmissionRepository) FetchSubmission(ctx context.Context, id uint64) (bool, error) {
	var got int64
	err := r.db.QueryRow(ctx, "SELECT id FROM submission WHERE id = $1", int64(id)).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, appErr.Wrapf(err, appErr.DatabaseError, "fetch submission %d failed", id)
	}
	return true, nil
}

// SetStatus updates only the lifecycle status of the row.
func (r *SubmissionRepository) SetStatus(ctx context.Context, id uint64, status string) error {
	_, err := r.db.Exec(ctx, "UPDATE submission SET status = $1 WHERE id = $2", status, int64(id))
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "update submission %d status failed", id)
	}
	return nil
}

// SetVerdict writes the terminal verdict in one row update. The
// per-test breakdown is serialized as JSON into the result column.
func (r *SubmissionRepository) SetVerdict(ctx context.Context, id uint64, result model.JudgeResult) error {
	breakdown, err := json.Marshal(result.Result)
	if err != nil {
		return appErr.Wrapf(err, appErr.InternalServerError, "marshal run results failed")
	}
	_, err = r.db.Exec(ctx,
		"UPDATE submission SET status = $1, score = $2, time = $3, memory = $4, result = $5 WHERE id = $6",
		result.Status,
		int64(result.Score),
		int64(result.TimeMs),
		int64(result.MemoryKB),
		string(breakdown),
		int64(id),
	)
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "update submission %d verdict failed", id)
	}
	return nil
}
