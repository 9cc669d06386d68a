// Package postgres stores reports in PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zhouzirui/sirius-report/backend/internal/model/report"
)

const reportColumns = `id, title, content, raw_text, location, incident_at, officer, tags, created_at`

// ReportRepository implements report.Store on a reports table.
type ReportRepository struct {
	pool *pgxpool.Pool
}

var _ report.Store = (*ReportRepository)(nil)

// NewReportRepository constructs a repository.
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// saveLockKey 串行化插入的 advisory lock，保证 created_at 单调递增。
const saveLockKey int64 = 0x5e7a11

// Save inserts a new report. created_at never goes backwards relative to
// already stored rows so newest-first ordering stays stable; concurrent
// inserts are serialized on a transaction-scoped advisory lock.
func (r *ReportRepository) Save(ctx context.Context, rec report.Report) (report.Report, error) {
	rec = rec.Clone()
	rec.ID = uuid.NewString()
	rec.Tags = report.NormalizeTags(rec.Tags)

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, saveLockKey); err != nil {
			return fmt.Errorf("lock reports: %w", err)
		}
		now := time.Now().UTC()
		row := tx.QueryRow(ctx, `
			INSERT INTO reports (`+reportColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,
				GREATEST($9::timestamptz, COALESCE((SELECT MAX(created_at) FROM reports) + interval '1 microsecond', $9::timestamptz)))
			RETURNING created_at
		`, rec.ID, rec.Title, rec.Content, rec.RawText, rec.Location, rec.Date, rec.Officer, rec.Tags, now)
		if err := row.Scan(&rec.CreatedAt); err != nil {
			return fmt.Errorf("insert report: %w", err)
		}
		return nil
	})
	if err != nil {
		return report.Report{}, err
	}
	return rec, nil
}

// Get returns a report by id.
func (r *ReportRepository) Get(ctx context.Context, id string) (report.Report, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id=$1`, id)
	rec, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return report.Report{}, report.ErrNotFound
		}
		return report.Report{}, fmt.Errorf("select report: %w", err)
	}
	return rec, nil
}

// Delete removes a report permanently.
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reports WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return report.ErrNotFound
	}
	return nil
}

// List returns every report, newest first; ties order like report.SortNewestFirst.
func (r *ReportRepository) List(ctx context.Context) ([]report.Report, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+reportColumns+` FROM reports ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	out := make([]report.Report, 0)
	for rows.Next() {
		rec, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}

func scanReport(row pgx.Row) (report.Report, error) {
	var (
		rec        report.Report
		incidentAt *time.Time
		tags       []string
	)
	if err := row.Scan(&rec.ID, &rec.Title, &rec.Content, &rec.RawText, &rec.Location, &incidentAt, &rec.Officer, &tags, &rec.CreatedAt); err != nil {
		return report.Report{}, err
	}
	rec.Date = incidentAt
	if tags == nil {
		tags = []string{}
	}
	rec.Tags = tags
	return rec, nil
}
