package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ginjaninja78/wfc-ingest/internal/canonical"
	"github.com/ginjaninja78/wfc-ingest/internal/config"
	"github.com/ginjaninja78/wfc-ingest/internal/types"
)

// recordColumns is the column order used by Query and CopyFrom.
var recordColumns = []string{
	"source", "quarter", "department", "classification",
	"permanent_fte", "temporary_fte", "vacancy_rate", "ingested_at",
}

// PostgresStore appends records to a single PostgreSQL table.
type PostgresStore struct {
	pool   *pgxpool.Pool
	table  string
	logger *zap.Logger
}

// NewPostgres connects to the database named by cfg.DSN.
func NewPostgres(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("store dsn is empty")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "parse dsn")
	}
	poolCfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping")
	}

	logger.Info("connected to postgres", zap.String("table", cfg.Table))
	return &PostgresStore{pool: pool, table: cfg.Table, logger: logger}, nil
}

// Close releases pool resources.
func (s *PostgresStore) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the record table and its uniqueness index.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.table) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "ensure schema")
		}
	}
	return nil
}

func schemaStatements(table string) []string {
	ident := pgx.Identifier{table}.Sanitize()
	return []string{
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            id             BIGSERIAL PRIMARY KEY,
            source         TEXT        NOT NULL,
            quarter        TEXT        NOT NULL,
            department     TEXT        NOT NULL,
            classification TEXT        NOT NULL,
            permanent_fte  NUMERIC,
            temporary_fte  NUMERIC,
            vacancy_rate   NUMERIC(4,1),
            ingested_at    TIMESTAMPTZ NOT NULL
        )`, ident),
		fmt.Sprintf(`
        CREATE UNIQUE INDEX IF NOT EXISTS %s
            ON %s (source, quarter, department)`,
			pgx.Identifier{table + "_source_quarter_department_key"}.Sanitize(), ident),
	}
}

// Query returns every record stored under source.
func (s *PostgresStore) Query(ctx context.Context, source string) ([]types.IngestedRecord, error) {
	query := fmt.Sprintf(`
        SELECT source, quarter, department, classification,
               permanent_fte, temporary_fte, vacancy_rate, ingested_at
        FROM %s WHERE source = $1
        ORDER BY quarter, department`, pgx.Identifier{s.table}.Sanitize())

	rows, err := s.pool.Query(ctx, query, source)
	if err != nil {
		return nil, errors.Wrap(err, "query records")
	}
	defer rows.Close()

	var result []types.IngestedRecord
	for rows.Next() {
		var (
			r    types.IngestedRecord
			dept string
		)
		if err := rows.Scan(
			&r.Source,
			&r.Quarter,
			&dept,
			&r.Classification,
			&r.Permanent,
			&r.Temporary,
			&r.VacancyRate,
			&r.IngestedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan record")
		}
		d, ok := canonical.ParseDepartment(dept)
		if !ok {
			s.logger.Warn("stored record has unknown department", zap.String("department", dept),
				zap.String("quarter", r.Quarter))
		}
		r.Department = d
		result = append(result, r)
	}
	return result, rows.Err()
}

// Append stores records in one transaction. Either every record is stored
// or none is.
func (s *PostgresStore) Append(ctx context.Context, records []types.IngestedRecord) error {
	if len(records) == 0 {
		return nil
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{s.table}, recordColumns, pgx.CopyFromRows(copyRows(records)))
		if err != nil {
			return errors.Wrap(err, "copy records")
		}
		if int(n) != len(records) {
			return errors.Errorf("copied %d of %d records", n, len(records))
		}
		s.logger.Debug("appended records", zap.Int64("rows", n))
		return nil
	})
}

// copyRows converts records into CopyFrom rows in recordColumns order.
func copyRows(records []types.IngestedRecord) [][]any {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{
			r.Source,
			r.Quarter,
			r.Department.String(),
			r.Classification,
			nullNumeric(r.Permanent),
			nullNumeric(r.Temporary),
			nullNumeric(r.VacancyRate),
			r.IngestedAt.UTC().Truncate(time.Second),
		})
	}
	return rows
}

// nullNumeric renders a metric as NUMERIC text, or SQL NULL.
func nullNumeric(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}
