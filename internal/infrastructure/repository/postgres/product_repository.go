package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/domain"
)

const maxAnswerRows = 50

// ProductRepository reads the product catalog. It serves both the
// candidate pre-filter for hybrid retrieval and the raw read-only
// queries produced by the SQL pipeline.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ProductRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent api startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082201)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS products (
	asin VARCHAR(20) PRIMARY KEY,
	parent_asin VARCHAR(20),
	title TEXT,
	price DECIMAL(10, 2),
	average_rating DECIMAL(3, 2),
	rating_number INTEGER,
	main_category VARCHAR(100),
	store VARCHAR(255),
	description TEXT,
	features JSONB,
	created_at TIMESTAMP DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_products_parent_asin ON products(parent_asin);
CREATE INDEX IF NOT EXISTS idx_products_price ON products(price);
CREATE INDEX IF NOT EXISTS idx_products_average_rating ON products(average_rating);
CREATE INDEX IF NOT EXISTS idx_products_rating_number ON products(rating_number);
CREATE INDEX IF NOT EXISTS idx_products_main_category ON products(main_category);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// SelectCandidateIDs returns the distinct parent ASINs of products matching
// every filter that is present. Absent fields add no condition.
func (r *ProductRepository) SelectCandidateIDs(
	ctx context.Context,
	filters domain.QueryFilters,
	limit int,
) ([]string, error) {
	conditions := []string{"parent_asin IS NOT NULL"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.MinPrice != nil {
		conditions = append(conditions, "price >= "+arg(*filters.MinPrice))
	}
	if filters.MaxPrice != nil {
		conditions = append(conditions, "price <= "+arg(*filters.MaxPrice))
	}
	if filters.MinRating != nil {
		conditions = append(conditions, "average_rating >= "+arg(*filters.MinRating))
	}
	if filters.Category != nil {
		conditions = append(conditions, "main_category ILIKE "+arg("%"+*filters.Category+"%"))
	}

	query := fmt.Sprintf(
		"SELECT DISTINCT parent_asin FROM products WHERE %s LIMIT %s",
		strings.Join(conditions, " AND "),
		arg(limit),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select candidates: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan candidate id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return ids, nil
}

// QueryRows executes an arbitrary read query and returns its rows as
// column-keyed maps. Output is capped at maxAnswerRows since the rows only
// feed an LLM answer, never pagination.
func (r *ProductRepository) QueryRows(ctx context.Context, query string) ([]map[string]any, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	out := make([]map[string]any, 0, 8)
	for rows.Next() {
		if len(out) >= maxAnswerRows {
			break
		}
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
