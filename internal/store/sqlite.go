package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/edgar-recon/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	cik        INTEGER NOT NULL,
	ticker     TEXT,
	status     TEXT NOT NULL DEFAULT 'queued',
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS facts (
	id              TEXT PRIMARY KEY,
	run_id          TEXT NOT NULL REFERENCES runs(id),
	cik             INTEGER NOT NULL,
	metric          TEXT NOT NULL,
	fy              INTEGER NOT NULL,
	value           REAL,
	concept         TEXT NOT NULL,
	unit            TEXT NOT NULL,
	form            TEXT,
	filed           TEXT,
	source          TEXT NOT NULL,
	carried_from_fy INTEGER,
	inputs          TEXT,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (run_id, metric, fy)
);

CREATE TABLE IF NOT EXISTS resolutions (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	target     TEXT NOT NULL,
	concept    TEXT NOT NULL,
	rank       INTEGER NOT NULL,
	score      REAL NOT NULL,
	scorer     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_cik ON runs(cik);
CREATE INDEX IF NOT EXISTS idx_facts_run_id ON facts(run_id);
CREATE INDEX IF NOT EXISTS idx_facts_cik_metric ON facts(cik, metric);
CREATE INDEX IF NOT EXISTS idx_resolutions_run_id ON resolutions(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, cik int64, ticker string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, cik, ticker, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, cik, ticker, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus, runErr string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), nullIfEmpty(runErr), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, cik, ticker, status, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, cik, ticker, status, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.CIK != 0 {
		query += ` AND cik = ?`
		args = append(args, filter.CIK)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
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
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveFacts(ctx context.Context, runID string, cik int64, metric string, table model.FactTable) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save facts")
	}
	defer tx.Rollback() //nolint:errcheck

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
		_, err = tx.ExecContext(ctx,
			`INSERT INTO facts (id, run_id, cik, metric, fy, value, concept, unit, form, filed, source, carried_from_fy, inputs)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (run_id, metric, fy) DO UPDATE SET
			   value = excluded.value, concept = excluded.concept, unit = excluded.unit,
			   form = excluded.form, filed = excluded.filed, source = excluded.source,
			   carried_from_fy = excluded.carried_from_fy, inputs = excluded.inputs`,
			uuid.New().String(), runID, cik, metric, fy, value,
			fact.Concept.String(), fact.Unit, nullIfEmpty(string(fact.Form)), nullIfEmpty(fact.Filed),
			string(fact.Source), nullIfZero(fact.CarriedFromFY), inputsJSON,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert fact %s FY%d", metric, fy)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save facts")
}

func (s *SQLiteStore) FactsForRun(ctx context.Context, runID string) (map[string]model.FactTable, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT metric, fy, value, concept, unit, form, filed, source, carried_from_fy, inputs
		 FROM facts WHERE run_id = ? ORDER BY metric, fy`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: facts for run %s", runID)
	}
	defer rows.Close()
	return collectFacts(rows)
}

func (s *SQLiteStore) LatestFacts(ctx context.Context, cik int64, metric string) (model.FactTable, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT metric, fy, value, concept, unit, form, filed, source, carried_from_fy, inputs
		 FROM facts
		 WHERE cik = ? AND metric = ?
		   AND run_id = (SELECT r.id FROM runs r
		                 JOIN facts f ON f.run_id = r.id AND f.cik = ? AND f.metric = ?
		                 ORDER BY r.created_at DESC LIMIT 1)
		 ORDER BY fy`,
		cik, metric, cik, metric,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest facts %s for CIK %d", metric, cik)
	}
	defer rows.Close()

	tables, err := collectFacts(rows)
	if err != nil {
		return nil, err
	}
	return tables[metric], nil
}

func (s *SQLiteStore) SaveResolutions(ctx context.Context, runID string, candidates []ResolvedCandidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save resolutions")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, c := range candidates {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO resolutions (id, run_id, target, concept, rank, score, scorer) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), runID, c.Target.String(), c.Concept.String(), c.Rank, c.Score, c.Scorer,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert resolution %s", c.Concept)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save resolutions")
}

func (s *SQLiteStore) ResolutionsForRun(ctx context.Context, runID string) ([]ResolvedCandidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT target, concept, rank, score, scorer FROM resolutions WHERE run_id = ? ORDER BY target, rank`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: resolutions for run %s", runID)
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
	return out, eris.Wrap(rows.Err(), "sqlite: resolutions iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func marshalInputs(inputs []string) (any, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(inputs)
	if err != nil {
		return nil, eris.Wrap(err, "marshal inputs")
	}
	return string(b), nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var ticker, runErr sql.NullString

	err := row.Scan(&r.ID, &r.CIK, &ticker, &r.Status, &runErr, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Ticker = ticker.String
	r.Error = runErr.String
	return &r, nil
}

func scanFact(row scannable) (string, model.CanonicalFact, error) {
	var (
		metric, conceptStr, source string
		form, filed, inputsJSON    sql.NullString
		value                      sql.NullFloat64
		carriedFrom                sql.NullInt64
		fact                       model.CanonicalFact
	)
	err := row.Scan(&metric, &fact.FY, &value, &conceptStr, &fact.Unit, &form, &filed, &source, &carriedFrom, &inputsJSON)
	if err != nil {
		return "", fact, eris.Wrap(err, "scan fact")
	}

	fact.Concept = model.ParseConcept(conceptStr)
	fact.Value = value.Float64
	fact.HasValue = value.Valid
	fact.Form = model.Form(form.String)
	fact.Filed = filed.String
	fact.Source = model.SourceClass(source)
	fact.CarriedFromFY = int(carriedFrom.Int64)
	if inputsJSON.Valid {
		if err := json.Unmarshal([]byte(inputsJSON.String), &fact.Inputs); err != nil {
			return "", fact, eris.Wrap(err, "unmarshal inputs")
		}
	}
	return metric, fact, nil
}

func scanResolution(row scannable) (ResolvedCandidate, error) {
	var (
		c                     ResolvedCandidate
		targetStr, conceptStr string
	)
	if err := row.Scan(&targetStr, &conceptStr, &c.Rank, &c.Score, &c.Scorer); err != nil {
		return c, eris.Wrap(err, "scan resolution")
	}
	c.Target = model.ParseConcept(targetStr)
	c.Concept = model.ParseConcept(conceptStr)
	return c, nil
}

func collectFacts(rows *sql.Rows) (map[string]model.FactTable, error) {
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
