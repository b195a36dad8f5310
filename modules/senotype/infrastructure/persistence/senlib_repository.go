package persistence

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jmoiron/sqlx"

	"github.com/sennetconsortium/senotype-editor/modules/senotype/domain/aggregates/submission"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/domain/entities/valueset"
	"github.com/sennetconsortium/senotype-editor/pkg/composables"
)

const (
	selectSenotypesQuery = `SELECT senotypeid, senotypejson FROM senotype ORDER BY senotypeid`
	selectSenotypeQuery  = `SELECT senotypeid, senotypejson FROM senotype WHERE senotypeid = ?`
	upsertSenotypeQuery  = `INSERT INTO senotype (senotypeid, senotypejson) VALUES (?, ?)
ON CONFLICT (senotypeid) DO UPDATE SET senotypejson = excluded.senotypejson`
	selectValuesetsQuery = `SELECT predicate_iri, predicate_term, valueset_code, valueset_term
FROM senotype_editor_valuesets ORDER BY predicate_term, valueset_term`
	upsertValuesetQuery = `INSERT INTO senotype_editor_valuesets (predicate_iri, predicate_term, valueset_code, valueset_term)
VALUES (?, ?, ?, ?)
ON CONFLICT (predicate_term, valueset_code) DO UPDATE SET valueset_term = excluded.valueset_term, predicate_iri = excluded.predicate_iri`
)

type senotypeRow struct {
	ID   string `db:"senotypeid"`
	JSON string `db:"senotypejson"`
}

// SenlibRepository stores senotype documents as JSON text keyed by id.
// Queries run on the transaction in ctx when one is present.
type SenlibRepository struct {
	db *sqlx.DB
}

func NewSenlibRepository(db *sqlx.DB) *SenlibRepository {
	return &SenlibRepository{db: db}
}

func (r *SenlibRepository) querier(ctx context.Context) composables.Querier {
	if q, err := composables.UseTx(ctx); err == nil {
		return q
	}
	return r.db
}

func (r *SenlibRepository) All(ctx context.Context) ([]submission.Submission, error) {
	var rows []senotypeRow
	if err := sqlx.SelectContext(ctx, r.querier(ctx), &rows, r.db.Rebind(selectSenotypesQuery)); err != nil {
		return nil, errors.Wrap(err, "select senotypes")
	}
	out := make([]submission.Submission, 0, len(rows))
	for _, row := range rows {
		s, err := decodeSubmission(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *SenlibRepository) Get(ctx context.Context, id string) (submission.Submission, error) {
	var row senotypeRow
	err := sqlx.GetContext(ctx, r.querier(ctx), &row, r.db.Rebind(selectSenotypeQuery), id)
	if errors.Is(err, sql.ErrNoRows) {
		return submission.Submission{}, submission.ErrNotFound
	}
	if err != nil {
		return submission.Submission{}, errors.Wrapf(err, "select senotype %s", id)
	}
	return decodeSubmission(row)
}

func (r *SenlibRepository) Save(ctx context.Context, s submission.Submission) error {
	return r.upsert(ctx, r.querier(ctx), s)
}

func (r *SenlibRepository) SaveVersion(ctx context.Context, predecessor, successor submission.Submission) error {
	if tx, err := composables.UseTx(ctx); err == nil {
		if _, inTx := tx.(*sqlx.Tx); inTx {
			return r.saveBoth(ctx, tx, predecessor, successor)
		}
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	if err := r.saveBoth(ctx, tx, predecessor, successor); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "commit")
}

func (r *SenlibRepository) saveBoth(ctx context.Context, q sqlx.ExecerContext, predecessor, successor submission.Submission) error {
	if err := r.upsert(ctx, q, successor); err != nil {
		return err
	}
	return r.upsert(ctx, q, predecessor)
}

func (r *SenlibRepository) upsert(ctx context.Context, q sqlx.ExecerContext, s submission.Submission) error {
	if s.ID() == "" {
		return submission.ErrInvalidID
	}
	body, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode senotype")
	}
	if _, err := q.ExecContext(ctx, r.db.Rebind(upsertSenotypeQuery), s.ID(), string(body)); err != nil {
		return errors.Wrapf(err, "upsert senotype %s", s.ID())
	}
	return nil
}

func decodeSubmission(row senotypeRow) (submission.Submission, error) {
	var s submission.Submission
	if err := json.Unmarshal([]byte(row.JSON), &s); err != nil {
		return submission.Submission{}, errors.Wrapf(err, "decode senotype %s", row.ID)
	}
	if s.Senotype.ID == "" {
		s.Senotype.ID = row.ID
	}
	return s, nil
}

// ValuesetRepository reads the closed vocabularies.
type ValuesetRepository struct {
	db *sqlx.DB
}

func NewValuesetRepository(db *sqlx.DB) *ValuesetRepository {
	return &ValuesetRepository{db: db}
}

func (r *ValuesetRepository) All(ctx context.Context) ([]valueset.Term, error) {
	var terms []valueset.Term
	if err := r.db.SelectContext(ctx, &terms, r.db.Rebind(selectValuesetsQuery)); err != nil {
		return nil, errors.Wrap(err, "select valuesets")
	}
	return terms, nil
}

// Upsert loads terms, replacing labels of existing codes.
func (r *ValuesetRepository) Upsert(ctx context.Context, terms []valueset.Term) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	query := r.db.Rebind(upsertValuesetQuery)
	for _, t := range terms {
		if _, err := tx.ExecContext(ctx, query, t.PredicateIRI, t.PredicateTerm, t.Code, t.Term); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "upsert valueset %s/%s", t.PredicateTerm, t.Code)
		}
	}
	return errors.Wrap(tx.Commit(), "commit")
}
