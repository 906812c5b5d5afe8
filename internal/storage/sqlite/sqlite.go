package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/FranksOps/dogbook/internal/storage"
	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS query_records (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	region TEXT NOT NULL,
	category TEXT NOT NULL,
	query TEXT NOT NULL,
	outcome TEXT NOT NULL,
	slug TEXT,
	source TEXT,
	duration_ms INTEGER NOT NULL,
	error TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS query_records_run_id ON query_records (run_id);
`

var columns = []string{
	"id", "run_id", "region", "category", "query", "outcome",
	"slug", "source", "duration_ms", "error", "created_at",
}

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, r *storage.QueryRecord) error {
	_, err := sq.Insert("query_records").
		Columns(columns...).
		Values(
			r.ID, r.RunID, r.Region, r.Category, r.Query, string(r.Outcome),
			r.Slug, r.Source, r.Duration.Milliseconds(), r.Error, r.CreatedAt.UTC(),
		).
		RunWith(b.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert query record: %w", err)
	}
	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.QueryRecord, error) {
	q := sq.Select(columns...).From("query_records")
	if filter.RunID != "" {
		q = q.Where(sq.Eq{"run_id": filter.RunID})
	}
	if filter.Region != "" {
		q = q.Where(sq.Eq{"region": filter.Region})
	}
	if filter.Outcome != "" {
		q = q.Where(sq.Eq{"outcome": string(filter.Outcome)})
	}
	if filter.Since != nil {
		q = q.Where(sq.GtOrEq{"created_at": filter.Since.UTC()})
	}
	q = q.OrderBy("created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	} else if filter.Offset > 0 {
		// SQLite only accepts OFFSET after a LIMIT.
		q = q.Limit(uint64(1<<63 - 1))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	results := []*storage.QueryRecord{}
	for rows.Next() {
		var r storage.QueryRecord
		var outcome string
		var slug, source, errText sql.NullString
		var durationMs int64

		if err := rows.Scan(
			&r.ID, &r.RunID, &r.Region, &r.Category, &r.Query, &outcome,
			&slug, &source, &durationMs, &errText, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		r.Outcome = storage.Outcome(outcome)
		r.Slug = slug.String
		r.Source = source.String
		r.Error = errText.String
		r.Duration = time.Duration(durationMs) * time.Millisecond
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
