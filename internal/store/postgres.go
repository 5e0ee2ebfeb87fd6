package store

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/edgar-recon/internal/db"
	"github.com/sells-group/edgar-recon/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wires an existing connection, used in tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	cik        BIGINT NOT NULL,
	ticker     TEXT,
	status     TEXT NOT NULL DEFAULT 'queued',
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS facts (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id          TEXT NOT NULL REFERENCES runs(id),
	cik             BIGINT NOT NULL,
	metric          TEXT NOT NULL,
	fy              INTEGER NOT NULL,
	value           DOUBLE PRECISION,
	concept         TEXT NOT NULL,
	unit            TEXT NOT NULL,
	form            TEXT,
	filed           TEXT,
	source          TEXT NOT NULL,
	carried_from_fy INTEGER,
	inputs          JSONB,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (run_id, metric, fy)
);

CREATE TABLE IF NOT EXISTS resolutions (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	target     TEXT NOT NULL,
	concept    TEXT NOT NULL,
	rank       INTEGER NOT NULL,
	score      DOUBLE PRECISION NOT NULL,
	scorer     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_cik ON runs(cik);
CREATE INDEX IF NOT EXISTS idx_facts_run_id ON facts(run_id);
CREATE INDEX IF NOT EXISTS idx_facts_cik_metric ON facts(cik, metric);
CREATE INDEX IF NOT EXISTS idx_resolutions_run_id ON resolutions(run_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, cik int64, ticker string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, cik, ticker, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, cik, ticker, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		CIK:       cik,
		Ticker:    ticker,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus, runErr string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(status), nullIfEmpty(runErr), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, cik, ticker, status, error, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	return scanRun(row)
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, cik, ticker, status, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.CIK != 0 {
		args = append(args, filter.CIK)
		query += ` AND cik = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

var factColumns = []string{
	"id", "run_id", "cik", "metric", "fy", "value", "concept", "unit",
	"form", "filed", "source", "carried_from_fy", "inputs",
}

func (s *PostgresStore) SaveFacts(ctx context.Context, runID string, cik int64, metric string, table model.FactTable) error {
	rows := make([][]any, 0, len(table))
	for _, fy := range table.Years() {
		fact := table[fy]
		var value any
		if fact.HasValue {
			value = fact.Value
		}
		inputsJSON, err := marshalInputs(fact.Inputs)
		if err != nil {
			return err
		}
		rows = append(rows, []any{
			uuid.New().String(), runID, cik, metric, fy, value,
			fact.Concept.String(), fact.Unit, nullIfEmpty(string(fact.Form)), nullIfEmpty(fact.Filed),
			string(fact.Source), nullIfZero(fact.CarriedFromFY), inputsJSON,
		})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "facts",
		Columns:      factColumns,
		ConflictKeys: []string{"run_id", "metric", "fy"},
	}, rows)
	return eris.Wrapf(err, "postgres: save facts %s", metric)
}

func (s *PostgresStore) FactsForRun(ctx context.Context, runID string) (map[string]model.FactTable, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT metric, fy, value, concept, unit, form, filed, source, carried_from_fy, inputs
		 FROM facts WHERE run_id = $1 ORDER BY metric, fy`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: facts for run %s", runID)
	}
	defer rows.Close()
	return collectFactsPgx(rows)
}

func (s *PostgresStore) LatestFacts(ctx context.Context, cik int64, metric string) (model.FactTable, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT metric, fy, value, concept, unit, form, filed, source, carried_from_fy, inputs
		 FROM facts
		 WHERE cik = $1 AND metric = $2
		   AND run_id = (SELECT r.id FROM runs r
		                 JOIN facts f ON f.run_id = r.id AND f.cik = $1 AND f.metric = $2
		                 ORDER BY r.created_at DESC LIMIT 1)
		 ORDER BY fy`,
		cik, metric,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest facts %s for CIK %d", metric, cik)
	}
	defer rows.Close()

	tables, err := collectFactsPgx(rows)
	if err != nil {
		return nil, err
	}
	return tables[metric], nil
}

func (s *PostgresStore) SaveResolutions(ctx context.Context, runID string, candidates []ResolvedCandidate) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save resolutions")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, c := range candidates {
		_, err := tx.Exec(ctx,
			`INSERT INTO resolutions (id, run_id, target, concept, rank, score, scorer) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New().String(), runID, c.Target.String(), c.Concept.String(), c.Rank, c.Score, c.Scorer,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert resolution %s", c.Concept)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit save resolutions")
}

func (s *PostgresStore) ResolutionsForRun(ctx context.Context, runID string) ([]ResolvedCandidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT target, concept, rank, score, scorer FROM resolutions WHERE run_id = $1 ORDER BY target, rank`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: resolutions for run %s", runID)
	}
	defer rows.Close()

	var out []ResolvedCandidate
	for rows.Next() {
		c, err := scanResolution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: resolutions iterate")
}

func collectFactsPgx(rows pgx.Rows) (map[string]model.FactTable, error) {
	tables := make(map[string]model.FactTable)
	for rows.Next() {
		metric, fact, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		if tables[metric] == nil {
			tables[metric] = make(model.FactTable)
		}
		tables[metric][fact.FY] = fact
	}
	return tables, eris.Wrap(rows.Err(), "facts iterate")
}
