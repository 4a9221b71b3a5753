package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sstload/internal/loader/models"
	"sstload/pkg/domain"
	"sstload/pkg/fieldmap"
	"sstload/pkg/platform/sentinel"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore persists versions, items, and load attempts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed store.
func NewPostgres(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	return &PostgresStore{db: db}, nil
}

// ApplySchema creates the store's tables, constraints, and views.
func (s *PostgresStore) ApplySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const versionColumns = `document_version_id, state_code, document_kind, version_label,
	effective_date, valid_to, metadata, loaded_at, loaded_by`

func (s *PostgresStore) CurrentVersion(ctx context.Context, state domain.StateCode, kind domain.DocumentKind) (*models.DocumentVersion, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+`
		FROM document_versions
		WHERE state_code = $1 AND document_kind = $2 AND valid_to IS NULL`,
		state.String(), kind.String())

	version, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, classify("read current version", err)
	}
	return version, nil
}

func (s *PostgresStore) ListVersions(ctx context.Context, state domain.StateCode, kind domain.DocumentKind) ([]*models.DocumentVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+versionColumns+`
		FROM document_versions
		WHERE state_code = $1 AND document_kind = $2
		ORDER BY effective_date`,
		state.String(), kind.String())
	if err != nil {
		return nil, classify("list versions", err)
	}
	defer rows.Close()

	var versions []*models.DocumentVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, classify("list versions", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list versions", err)
	}
	return versions, nil
}

func (s *PostgresStore) FirstVersionAfter(ctx context.Context, state domain.StateCode, kind domain.DocumentKind, after time.Time) (*models.DocumentVersion, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+`
		FROM document_versions
		WHERE state_code = $1 AND document_kind = $2 AND effective_date > $3
		ORDER BY effective_date
		LIMIT 1`,
		state.String(), kind.String(), after)

	version, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, classify("read next version", err)
	}
	return version, nil
}

func (s *PostgresStore) ItemsForVersion(ctx context.Context, versionID uuid.UUID) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_code, item_subtype, taxable, exempt, rate, threshold,
		       answer, question_text, group_name, sst_definition,
		       state_definition, citation, notes, extra, state_code, effective_date
		FROM document_items
		WHERE document_version_id = $1
		ORDER BY item_id`,
		versionID)
	if err != nil {
		return nil, classify("read items", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, classify("read items", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("read items", err)
	}
	return items, nil
}

func (s *PostgresStore) CommitFresh(ctx context.Context, version *models.DocumentVersion, items []models.Item) error {
	return s.commit(ctx, version, items, func(tx *sql.Tx) error { return nil })
}

func (s *PostgresStore) CommitSupersede(ctx context.Context, closeID uuid.UUID, closeAt time.Time, version *models.DocumentVersion, items []models.Item) error {
	return s.commit(ctx, version, items, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE document_versions
			SET valid_to = $1
			WHERE document_version_id = $2 AND valid_to IS NULL`,
			closeAt, closeID)
		if err != nil {
			return classify("close prior version", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return classify("close prior version", err)
		}
		if affected == 0 {
			// Lost a supersession race: someone else already closed it.
			return &models.TemporalConflictError{
				State: version.State, Kind: version.Kind, Label: version.Label,
				Reason: "version to supersede is no longer current",
			}
		}
		return nil
	})
}

// commit runs the write plan in a single transaction: prepare (close the
// prior version for supersessions), insert the version row, then COPY the
// items. Any failure rolls back everything.
func (s *PostgresStore) commit(ctx context.Context, version *models.DocumentVersion, items []models.Item, prepare func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin commit", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := prepare(tx); err != nil {
		return err
	}
	if err := s.insertVersion(ctx, tx, version); err != nil {
		return err
	}
	if err := s.copyItems(ctx, tx, version, items); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return temporalContext(version, classify("commit version", err))
	}
	return nil
}

func (s *PostgresStore) insertVersion(ctx context.Context, tx *sql.Tx, version *models.DocumentVersion) error {
	metadata, err := json.Marshal(metadataOrEmpty(version.Metadata))
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO document_versions
			(document_version_id, state_code, document_kind, version_label,
			 effective_date, valid_to, metadata, loaded_at, loaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		version.ID, version.State.String(), version.Kind.String(),
		version.Label.String(), version.EffectiveDate, version.ValidTo,
		metadata, version.LoadedAt, version.LoadedBy)
	if err != nil {
		return temporalContext(version, classify("insert version", err))
	}
	return nil
}

// copyItems streams item rows through the COPY protocol, stamping the
// denormalized state code and effective date from the owning version so the
// invariant cannot drift.
func (s *PostgresStore) copyItems(ctx context.Context, tx *sql.Tx, version *models.DocumentVersion, items []models.Item) error {
	if len(items) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("document_items",
		"document_version_id", "item_code", "item_subtype",
		"taxable", "exempt", "rate", "threshold",
		"answer", "question_text", "group_name",
		"sst_definition", "state_definition", "citation", "notes",
		"extra", "state_code", "effective_date"))
	if err != nil {
		return classify("prepare item copy", err)
	}

	for _, item := range items {
		extra, err := json.Marshal(extraOrEmpty(item.Extra))
		if err != nil {
			stmt.Close()
			return fmt.Errorf("encode item %s extra: %w", item.NaturalKey(), err)
		}
		_, err = stmt.ExecContext(ctx,
			version.ID, item.Code, item.Subtype.String(),
			nullBool(item.Taxable), nullBool(item.Exempt),
			nullFloat(item.Rate), nullFloat(item.Threshold),
			item.Answer, item.QuestionText, item.GroupName,
			item.SSTDefinition, item.StateDefinition, item.Citation, item.Notes,
			string(extra), version.State.String(), version.EffectiveDate)
		if err != nil {
			stmt.Close()
			return classify("copy items", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return classify("flush item copy", err)
	}
	if err := stmt.Close(); err != nil {
		return classify("finish item copy", err)
	}
	return nil
}

// temporalContext upgrades constraint conflicts into the loader's temporal
// conflict error so callers see which document was racing.
func temporalContext(version *models.DocumentVersion, err error) error {
	if err == nil || !errors.Is(err, sentinel.ErrConflict) {
		return err
	}
	return &models.TemporalConflictError{
		State: version.State, Kind: version.Kind, Label: version.Label,
		Reason: err.Error(),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (*models.DocumentVersion, error) {
	var (
		v        models.DocumentVersion
		state    string
		kind     string
		label    string
		validTo  sql.NullTime
		metadata []byte
	)
	err := row.Scan(&v.ID, &state, &kind, &label,
		&v.EffectiveDate, &validTo, &metadata, &v.LoadedAt, &v.LoadedBy)
	if err != nil {
		return nil, err
	}
	v.State = domain.StateCode(state)
	v.Kind = domain.DocumentKind(kind)
	v.Label = domain.VersionLabel(label)
	if validTo.Valid {
		t := validTo.Time
		v.ValidTo = &t
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &v.Metadata); err != nil {
			return nil, fmt.Errorf("decode version metadata: %w", err)
		}
	}
	return &v, nil
}

func scanItem(row rowScanner) (models.Item, error) {
	var (
		item      models.Item
		subtype   string
		state     string
		taxable   sql.NullBool
		exempt    sql.NullBool
		rate      sql.NullFloat64
		threshold sql.NullFloat64
		extra     []byte
	)
	err := row.Scan(&item.Code, &subtype, &taxable, &exempt, &rate, &threshold,
		&item.Answer, &item.QuestionText, &item.GroupName,
		&item.SSTDefinition, &item.StateDefinition, &item.Citation, &item.Notes,
		&extra, &state, &item.EffectiveDate)
	if err != nil {
		return item, err
	}
	item.Subtype = domain.ItemSubtype(subtype)
	item.State = domain.StateCode(state)
	if taxable.Valid {
		item.Taxable = &taxable.Bool
	}
	if exempt.Valid {
		item.Exempt = &exempt.Bool
	}
	if rate.Valid {
		item.Rate = &rate.Float64
	}
	if threshold.Valid {
		item.Threshold = &threshold.Float64
	}
	item.Extra = fieldmap.New()
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, item.Extra); err != nil {
			return item, fmt.Errorf("decode item extra: %w", err)
		}
	}
	return item, nil
}

func metadataOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func extraOrEmpty(m *fieldmap.Map) *fieldmap.Map {
	if m == nil {
		return fieldmap.New()
	}
	return m
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
