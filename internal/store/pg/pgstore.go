package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"csfcompass.org/internal/assessment"
	"csfcompass.org/internal/scoring"
)

// Store is the Postgres persistence layer. One Store backs every domain
// store interface so a single pool and transaction scope serves them all.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ assessment.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db, now: time.Now}, nil
}

// NewStore wraps an existing handle; used by tests with sqlmock.
func NewStore(db *sql.DB) *Store { return &Store{db: db, now: time.Now} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// itemInsertChunk bounds the multi-row insert size so the statement stays
// well under the Postgres parameter limit even for large catalogs.
const itemInsertChunk = 50

func (s *Store) CreateAssessment(ctx context.Context, a assessment.Assessment, items []assessment.Item, progress []assessment.ProgressRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertAssessment(ctx, tx, a); err != nil {
		return err
	}
	if err := insertItems(ctx, tx, items); err != nil {
		return err
	}
	if err := insertProgress(ctx, tx, progress); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) CreateClone(ctx context.Context, clone assessment.Assessment, items []assessment.Item, progress []assessment.ProgressRecord, sourceID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Linking the source first doubles as the existence check.
	res, err := tx.ExecContext(ctx, `
		update assessments set linked_assessment_id=$2, updated_at=$3 where id=$1
	`, sourceID, clone.ID, clone.CreatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assessment.ErrNotFound
	}

	if err := insertAssessment(ctx, tx, clone); err != nil {
		return err
	}
	if err := insertItems(ctx, tx, items); err != nil {
		return err
	}
	if err := insertProgress(ctx, tx, progress); err != nil {
		return err
	}
	return tx.Commit()
}

func insertAssessment(ctx context.Context, tx *sql.Tx, a assessment.Assessment) error {
	_, err := tx.ExecContext(ctx, `
		insert into assessments(id, organization_id, name, type, vendor_id, status, score, linked_assessment_id, created_at, updated_at, completed_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, a.ID, a.OrganizationID, a.Name, string(a.Type), a.VendorID, string(a.Status), a.Score, a.LinkedAssessmentID, a.CreatedAt, a.UpdatedAt, nullTime(a.CompletedAt))
	return err
}

func insertItems(ctx context.Context, tx *sql.Tx, items []assessment.Item) error {
	for start := 0; start < len(items); start += itemInsertChunk {
		end := start + itemInsertChunk
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		var sb strings.Builder
		sb.WriteString(`insert into assessment_items(id, assessment_id, control_id, status, notes, evidence, updated_at) values `)
		args := make([]any, 0, len(chunk)*7)
		for i, it := range chunk {
			if i > 0 {
				sb.WriteString(",")
			}
			base := i * 7
			fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4, base+5, base+6, base+7)
			args = append(args, it.ID, it.AssessmentID, it.ControlID, string(it.Status), it.Notes, it.Evidence, it.UpdatedAt)
		}
		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return err
		}
	}
	return nil
}

func insertProgress(ctx context.Context, tx *sql.Tx, progress []assessment.ProgressRecord) error {
	for _, p := range progress {
		if _, err := tx.ExecContext(ctx, `
			insert into assessment_progress(id, assessment_id, step, completed, completed_at)
			values ($1,$2,$3,$4,$5)
		`, p.ID, p.AssessmentID, p.Step, p.Completed, nullTime(p.CompletedAt)); err != nil {
			return err
		}
	}
	return nil
}

const assessmentColumns = `id, organization_id, name, type, vendor_id, status, score, linked_assessment_id, created_at, updated_at, completed_at`

func (s *Store) GetAssessment(ctx context.Context, id string) (assessment.Assessment, error) {
	row := s.db.QueryRowContext(ctx, `select `+assessmentColumns+` from assessments where id=$1`, id)
	a, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return assessment.Assessment{}, assessment.ErrNotFound
	}
	return a, err
}

func (s *Store) ListAssessments(ctx context.Context, organizationID string) ([]assessment.Assessment, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+assessmentColumns+` from assessments
		where organization_id=$1
		order by created_at desc, id desc
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []assessment.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) SetAssessmentStatus(ctx context.Context, id string, status assessment.Status, completedAt *time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update assessments set status=$2, completed_at=$3, updated_at=$4 where id=$1
	`, id, string(status), nullTime(completedAt), s.now().UTC())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assessment.ErrNotFound
	}
	return nil
}

func (s *Store) SetScore(ctx context.Context, id string, score float64) error {
	res, err := s.db.ExecContext(ctx, `
		update assessments set score=$2, updated_at=$3 where id=$1
	`, id, score, s.now().UTC())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assessment.ErrNotFound
	}
	return nil
}

const itemColumns = `id, assessment_id, control_id, status, notes, evidence, updated_at`

func (s *Store) ListItems(ctx context.Context, assessmentID string) ([]assessment.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+itemColumns+` from assessment_items
		where assessment_id=$1
		order by control_id asc
	`, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []assessment.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) GetItem(ctx context.Context, itemID string) (assessment.Item, error) {
	row := s.db.QueryRowContext(ctx, `select `+itemColumns+` from assessment_items where id=$1`, itemID)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return assessment.Item{}, assessment.ErrItemNotFound
	}
	return it, err
}

func (s *Store) UpdateItem(ctx context.Context, itemID string, upd assessment.ItemUpdate) (assessment.Item, error) {
	row := s.db.QueryRowContext(ctx, `
		update assessment_items set
			status   = coalesce($2, status),
			notes    = coalesce($3, notes),
			evidence = coalesce($4, evidence),
			updated_at = $5
		where id=$1
		returning `+itemColumns+`
	`, itemID, nullStatus(upd.Status), nullString(upd.Notes), nullString(upd.Evidence), s.now().UTC())
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return assessment.Item{}, assessment.ErrItemNotFound
	}
	return it, err
}

func (s *Store) ListProgress(ctx context.Context, assessmentID string) ([]assessment.ProgressRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, assessment_id, step, completed, completed_at
		from assessment_progress
		where assessment_id=$1
		order by id asc
	`, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []assessment.ProgressRecord
	for rows.Next() {
		var p assessment.ProgressRecord
		var completedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.AssessmentID, &p.Step, &p.Completed, &completedAt); err != nil {
			return nil, err
		}
		p.CompletedAt = timePtr(completedAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- scan and null helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row rowScanner) (assessment.Assessment, error) {
	var a assessment.Assessment
	var typ, status string
	var completedAt sql.NullTime
	err := row.Scan(&a.ID, &a.OrganizationID, &a.Name, &typ, &a.VendorID, &status, &a.Score, &a.LinkedAssessmentID, &a.CreatedAt, &a.UpdatedAt, &completedAt)
	if err != nil {
		return assessment.Assessment{}, err
	}
	a.Type = assessment.Type(typ)
	a.Status = assessment.Status(status)
	a.CompletedAt = timePtr(completedAt)
	return a, nil
}

func scanItem(row rowScanner) (assessment.Item, error) {
	var it assessment.Item
	var status string
	err := row.Scan(&it.ID, &it.AssessmentID, &it.ControlID, &status, &it.Notes, &it.Evidence, &it.UpdatedAt)
	if err != nil {
		return assessment.Item{}, err
	}
	it.Status = scoring.Status(status)
	return it, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullStatus(s *scoring.Status) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*s), Valid: true}
}
