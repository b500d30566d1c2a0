package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/auto-apply/internal/types"
)

// RecordPatch is a partial update applied to an application record. Nil
// fields are left untouched. Writes are scoped to one record by primary
// key, so concurrent runs never conflict.
type RecordPatch struct {
	Status      *types.Status
	Method      *string
	Error       *types.RecordError
	Evidence    *types.Evidence
	StartedAt   *time.Time
	SubmittedAt *time.Time
	CompletedAt *time.Time
}

// CreateRecord inserts a new application record in PENDING and returns its ID.
func (db *DB) CreateRecord(ctx context.Context, req types.ApplicationRequest) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO application_records (user_id, job_id, job_url, company, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		req.UserID, req.Job.JobID, req.Job.URL, req.Job.Company, types.StatusPending,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create application record: %w", err)
	}
	return id, nil
}

// UpdateRecord applies a patch to an application record.
func (db *DB) UpdateRecord(ctx context.Context, id uuid.UUID, patch RecordPatch) error {
	query, args, err := buildRecordUpdate(id, patch)
	if err != nil {
		return err
	}

	result, err := db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	if result.RowsAffected() == 0 {
		if patch.Status != nil {
			return fmt.Errorf("record not found or already terminal: %s", id)
		}
		return fmt.Errorf("record not found: %s", id)
	}
	return nil
}

// buildRecordUpdate assembles the UPDATE statement for a patch. The leading
// no-op assignment keeps the statement valid when only one field is set.
// Status writes carry a guard so a terminal record is never moved again,
// even when two workers race on the same ID.
func buildRecordUpdate(id uuid.UUID, patch RecordPatch) (string, []any, error) {
	query := `UPDATE application_records SET id = id`
	args := []any{}
	argNum := 1

	if patch.Status != nil {
		query += fmt.Sprintf(", status = $%d", argNum)
		args = append(args, *patch.Status)
		argNum++
	}
	if patch.Method != nil {
		query += fmt.Sprintf(", method = $%d", argNum)
		args = append(args, *patch.Method)
		argNum++
	}
	if patch.Error != nil {
		query += fmt.Sprintf(", error_kind = $%d, error_message = $%d", argNum, argNum+1)
		args = append(args, patch.Error.Kind, patch.Error.Message)
		argNum += 2
	}
	if patch.Evidence != nil {
		evidenceJSON, err := json.Marshal(patch.Evidence)
		if err != nil {
			return "", nil, fmt.Errorf("failed to marshal evidence: %w", err)
		}
		query += fmt.Sprintf(", evidence = $%d", argNum)
		args = append(args, evidenceJSON)
		argNum++
	}
	if patch.StartedAt != nil {
		query += fmt.Sprintf(", started_at = $%d", argNum)
		args = append(args, *patch.StartedAt)
		argNum++
	}
	if patch.SubmittedAt != nil {
		query += fmt.Sprintf(", submitted_at = $%d", argNum)
		args = append(args, *patch.SubmittedAt)
		argNum++
	}
	if patch.CompletedAt != nil {
		query += fmt.Sprintf(", completed_at = $%d", argNum)
		args = append(args, *patch.CompletedAt)
		argNum++
	}

	query += fmt.Sprintf(" WHERE id = $%d", argNum)
	args = append(args, id)
	argNum++

	if patch.Status != nil {
		query += fmt.Sprintf(" AND status NOT IN ($%d, $%d, $%d)", argNum, argNum+1, argNum+2)
		args = append(args, types.StatusSubmitted, types.StatusManualRequired, types.StatusFailed)
	}

	return query, args, nil
}

// GetRecord retrieves an application record by ID. Returns nil if not found.
func (db *DB) GetRecord(ctx context.Context, id uuid.UUID) (*types.ApplicationRecord, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, user_id, job_id, job_url, company, status, method,
		        error_kind, error_message, evidence,
		        created_at, started_at, submitted_at, completed_at
		 FROM application_records WHERE id = $1`,
		id,
	)
	record, err := scanRecord(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return record, nil
}

// RecordFilters holds optional filters for listing application records.
type RecordFilters struct {
	UserID uuid.UUID
	Status types.Status
	Limit  int
}

// ListRecords retrieves application records with optional filters, newest first.
func (db *DB) ListRecords(ctx context.Context, filters RecordFilters) ([]types.ApplicationRecord, error) {
	if filters.Limit == 0 {
		filters.Limit = 50
	}

	query := `SELECT id, user_id, job_id, job_url, company, status, method,
		       error_kind, error_message, evidence,
		       created_at, started_at, submitted_at, completed_at
		FROM application_records WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.UserID != uuid.Nil {
		query += fmt.Sprintf(" AND user_id = $%d", argNum)
		args = append(args, filters.UserID)
		argNum++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filters.Status)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []types.ApplicationRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, *record)
	}
	return records, nil
}

// rowScanner covers both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*types.ApplicationRecord, error) {
	var record types.ApplicationRecord
	var method, errorKind, errorMessage *string
	var evidenceJSON []byte

	err := row.Scan(&record.ID, &record.UserID, &record.JobID, &record.JobURL,
		&record.Company, &record.Status, &method,
		&errorKind, &errorMessage, &evidenceJSON,
		&record.CreatedAt, &record.StartedAt, &record.SubmittedAt, &record.CompletedAt)
	if err != nil {
		return nil, err
	}

	if method != nil {
		record.Method = *method
	}
	if errorKind != nil {
		record.Error = &types.RecordError{Kind: types.ErrorKind(*errorKind)}
		if errorMessage != nil {
			record.Error.Message = *errorMessage
		}
	}
	if len(evidenceJSON) > 0 {
		var evidence types.Evidence
		if err := json.Unmarshal(evidenceJSON, &evidence); err == nil {
			record.Evidence = &evidence
		}
	}
	return &record, nil
}
