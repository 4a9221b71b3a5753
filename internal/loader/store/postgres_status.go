package store

import (
	"context"
	"database/sql"
	"errors"

	"sstload/internal/loader/models"
	"sstload/pkg/domain"
	"sstload/pkg/platform/sentinel"
)

const attemptColumns = `attempt_id, state_code, document_kind, version_label,
	fingerprint, status, error_message, accepted_count, rejected_count,
	started_at, finished_at`

func (s *PostgresStore) FindAttempt(ctx context.Context, key models.AttemptKey) (*models.LoadAttempt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+attemptColumns+`
		FROM load_attempts
		WHERE state_code = $1 AND document_kind = $2
		  AND version_label = $3 AND fingerprint = $4
		ORDER BY started_at DESC
		LIMIT 1`,
		key.State.String(), key.Kind.String(), key.Label.String(), key.Fingerprint)

	attempt, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, classify("find attempt", err)
	}
	return attempt, nil
}

func (s *PostgresStore) CreateAttempt(ctx context.Context, attempt *models.LoadAttempt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO load_attempts
			(attempt_id, state_code, document_kind, version_label, fingerprint,
			 status, error_message, accepted_count, rejected_count, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		attempt.ID, attempt.Key.State.String(), attempt.Key.Kind.String(),
		attempt.Key.Label.String(), attempt.Key.Fingerprint,
		string(attempt.Status), attempt.Error, attempt.Accepted, attempt.Rejected,
		attempt.StartedAt, attempt.FinishedAt)
	if err != nil {
		return classify("create attempt", err)
	}
	return nil
}

func (s *PostgresStore) UpdateAttempt(ctx context.Context, attempt *models.LoadAttempt) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE load_attempts
		SET status = $1, error_message = $2, accepted_count = $3,
		    rejected_count = $4, finished_at = $5
		WHERE attempt_id = $6`,
		string(attempt.Status), attempt.Error, attempt.Accepted,
		attempt.Rejected, attempt.FinishedAt, attempt.ID)
	if err != nil {
		return classify("update attempt", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return classify("update attempt", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RecentAttempts(ctx context.Context, limit int) ([]*models.LoadAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+attemptColumns+`
		FROM load_attempts
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, classify("list attempts", err)
	}
	defer rows.Close()

	var attempts []*models.LoadAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, classify("list attempts", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list attempts", err)
	}
	return attempts, nil
}

func scanAttempt(row rowScanner) (*models.LoadAttempt, error) {
	var (
		a        models.LoadAttempt
		state    string
		kind     string
		label    string
		status   string
		finished sql.NullTime
	)
	err := row.Scan(&a.ID, &state, &kind, &label, &a.Key.Fingerprint,
		&status, &a.Error, &a.Accepted, &a.Rejected, &a.StartedAt, &finished)
	if err != nil {
		return nil, err
	}
	a.Key.State = domain.StateCode(state)
	a.Key.Kind = domain.DocumentKind(kind)
	a.Key.Label = domain.VersionLabel(label)
	a.Status = models.AttemptStatus(status)
	if finished.Valid {
		t := finished.Time
		a.FinishedAt = &t
	}
	return &a, nil
}
