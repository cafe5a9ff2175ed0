package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/wagelevels/internal/db"
	"github.com/sells-group/wagelevels/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot lookup paths.
var preparedStatements = map[string]string{
	"distinct_states":   `SELECT DISTINCT state FROM geography ORDER BY state ASC`,
	"counties_by_state": `SELECT DISTINCT county FROM geography WHERE state = $1 ORDER BY county ASC`,
	"all_occupations":   `SELECT soc_code, job_title FROM occupations ORDER BY job_title ASC`,
	"wage_tiers": `SELECT wl.l1_wage, wl.l2_wage, wl.l3_wage, wl.l4_wage
		FROM wage_levels wl JOIN geography g ON wl.area_code = g.area_code
		WHERE g.state = $1 AND g.county = $2 AND wl.soc_code = $3 LIMIT 1`,
}

// NewPostgres creates a PostgresStore with a connection pool. Construction
// pings the database and fails rather than deferring the error to the first
// lookup.
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

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS geography (
	area_code  TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	county     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(state, county)
);

CREATE TABLE IF NOT EXISTS occupations (
	soc_code    TEXT PRIMARY KEY,
	job_title   TEXT NOT NULL,
	description TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS wage_levels (
	id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	area_code  TEXT NOT NULL REFERENCES geography(area_code),
	soc_code   TEXT NOT NULL REFERENCES occupations(soc_code),
	l1_wage    DOUBLE PRECISION NOT NULL,
	l2_wage    DOUBLE PRECISION NOT NULL,
	l3_wage    DOUBLE PRECISION NOT NULL,
	l4_wage    DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(area_code, soc_code)
);

CREATE TABLE IF NOT EXISTS metadata (
	key        TEXT PRIMARY KEY,
	value      TEXT,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_geography_state ON geography(state);
CREATE INDEX IF NOT EXISTS idx_geography_state_county ON geography(state, county);
CREATE INDEX IF NOT EXISTS idx_occupations_title ON occupations(job_title);
CREATE INDEX IF NOT EXISTS idx_wage_levels_soc ON wage_levels(soc_code);
CREATE INDEX IF NOT EXISTS idx_wage_levels_area ON wage_levels(area_code);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) DistinctStates(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx,
		`SELECT DISTINCT state FROM geography ORDER BY state ASC`,
		"postgres: distinct states")
}

func (s *PostgresStore) CountiesForState(ctx context.Context, state string) ([]string, error) {
	return s.stringColumn(ctx,
		`SELECT DISTINCT county FROM geography WHERE state = $1 ORDER BY county ASC`,
		"postgres: counties for state", state)
}

func (s *PostgresStore) AllOccupations(ctx context.Context) ([]model.OccupationRef, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT soc_code, job_title FROM occupations ORDER BY job_title ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: all occupations")
	}
	return scanRefs(rows, "postgres: all occupations")
}

func (s *PostgresStore) SearchOccupations(ctx context.Context, term string, limit int) ([]model.OccupationRef, error) {
	pattern := "%" + term + "%"
	rows, err := s.pool.Query(ctx,
		`SELECT soc_code, job_title FROM occupations
		 WHERE soc_code ILIKE $1 OR job_title ILIKE $1
		 ORDER BY job_title ASC LIMIT $2`,
		pattern, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search occupations")
	}
	return scanRefs(rows, "postgres: search occupations")
}

func (s *PostgresStore) GetOccupation(ctx context.Context, socCode string) (*model.Occupation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT soc_code, job_title, COALESCE(description, '') FROM occupations WHERE soc_code = $1`,
		socCode)

	var occ model.Occupation
	err := row.Scan(&occ.SOCCode, &occ.JobTitle, &occ.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get occupation")
	}
	return &occ, nil
}

func (s *PostgresStore) WageTiers(ctx context.Context, state, county, socCode string) (*model.WageTiers, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT wl.l1_wage, wl.l2_wage, wl.l3_wage, wl.l4_wage
		 FROM wage_levels wl JOIN geography g ON wl.area_code = g.area_code
		 WHERE g.state = $1 AND g.county = $2 AND wl.soc_code = $3 LIMIT 1`,
		state, county, socCode)

	var t model.WageTiers
	err := row.Scan(&t.L1, &t.L2, &t.L3, &t.L4)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: wage tiers")
	}
	return &t, nil
}

func (s *PostgresStore) WageTiersForOccupation(ctx context.Context, socCode string) ([]model.CountyTiers, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT g.state, g.county, wl.l1_wage, wl.l2_wage, wl.l3_wage, wl.l4_wage
		 FROM wage_levels wl JOIN geography g ON wl.area_code = g.area_code
		 WHERE wl.soc_code = $1
		 ORDER BY g.state, g.county`,
		socCode)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: wage tiers for occupation")
	}
	defer rows.Close()

	var out []model.CountyTiers
	for rows.Next() {
		var ct model.CountyTiers
		if err := rows.Scan(&ct.State, &ct.County, &ct.Tiers.L1, &ct.Tiers.L2, &ct.Tiers.L3, &ct.Tiers.L4); err != nil {
			return nil, eris.Wrap(err, "postgres: scan county tiers")
		}
		out = append(out, ct)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate county tiers")
}

func (s *PostgresStore) ReplaceLocations(ctx context.Context, locs []model.Location) (int64, error) {
	rows := make([][]any, len(locs))
	for i, l := range locs {
		rows[i] = []any{l.AreaCode, l.State, l.County}
	}
	return s.replaceAll(ctx, "geography", []string{"area_code", "state", "county"}, rows)
}

func (s *PostgresStore) ReplaceOccupations(ctx context.Context, occs []model.Occupation) (int64, error) {
	rows := make([][]any, len(occs))
	for i, o := range occs {
		rows[i] = []any{o.SOCCode, o.JobTitle, nullable(o.Description)}
	}
	return s.replaceAll(ctx, "occupations", []string{"soc_code", "job_title", "description"}, rows)
}

func (s *PostgresStore) ReplaceWageRecords(ctx context.Context, recs []model.WageRecord) (int64, error) {
	rows := make([][]any, len(recs))
	for i, r := range recs {
		rows[i] = []any{r.AreaCode, r.SOCCode, r.Tiers.L1, r.Tiers.L2, r.Tiers.L3, r.Tiers.L4}
	}
	return s.replaceAll(ctx, "wage_levels",
		[]string{"area_code", "soc_code", "l1_wage", "l2_wage", "l3_wage", "l4_wage"}, rows)
}

// replaceAll truncates the table and reloads it via COPY in one transaction.
func (s *PostgresStore) replaceAll(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: begin replace %s", table)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `TRUNCATE `+table+` CASCADE`); err != nil {
		return 0, eris.Wrapf(err, "postgres: truncate %s", table)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: COPY into %s", table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "postgres: commit replace %s", table)
	}
	return n, nil
}

func (s *PostgresStore) SetMetadata(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO metadata (key, value, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value, time.Now().UTC())
	return eris.Wrapf(err, "postgres: set metadata %s", key)
}

func (s *PostgresStore) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(value, '') FROM metadata WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "postgres: get metadata %s", key)
	}
	return value, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	for _, c := range []struct {
		table string
		dst   *int64
	}{
		{"geography", &st.Locations},
		{"occupations", &st.Occupations},
		{"wage_levels", &st.WageRecords},
	} {
		if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+c.table).Scan(c.dst); err != nil {
			return nil, eris.Wrapf(err, "postgres: count %s", c.table)
		}
	}
	return &st, nil
}

func (s *PostgresStore) Integrity(ctx context.Context) (*IntegrityReport, error) {
	var r IntegrityReport
	for _, c := range []struct {
		query string
		dst   *int64
	}{
		{`SELECT COUNT(*) FROM geography WHERE state IS NULL OR state = ''`, &r.NullStates},
		{`SELECT COUNT(*) FROM geography WHERE county IS NULL OR county = ''`, &r.NullCounties},
		{`SELECT COUNT(*) FROM occupations WHERE job_title IS NULL OR job_title = ''`, &r.NullTitles},
		{`SELECT COUNT(*) FROM (SELECT 1 FROM geography GROUP BY state, county HAVING COUNT(*) > 1) d`, &r.DuplicateLocations},
		{`SELECT COUNT(*) FROM (SELECT 1 FROM occupations GROUP BY soc_code HAVING COUNT(*) > 1) d`, &r.DuplicateSOCCodes},
		{`SELECT COUNT(*) FROM (SELECT 1 FROM wage_levels GROUP BY area_code, soc_code HAVING COUNT(*) > 1) d`, &r.DuplicateWageKeys},
		{`SELECT COUNT(*) FROM wage_levels wl
		  LEFT JOIN geography g ON wl.area_code = g.area_code
		  LEFT JOIN occupations o ON wl.soc_code = o.soc_code
		  WHERE g.area_code IS NULL OR o.soc_code IS NULL`, &r.OrphanedWageRecords},
	} {
		if err := s.pool.QueryRow(ctx, c.query).Scan(c.dst); err != nil {
			return nil, eris.Wrap(err, "postgres: integrity count")
		}
	}

	rows, err := s.pool.Query(ctx,
		`SELECT area_code, soc_code, l1_wage, l2_wage, l3_wage, l4_wage
		 FROM wage_levels
		 WHERE l1_wage > l2_wage OR l2_wage > l3_wage OR l3_wage > l4_wage
		 ORDER BY area_code, soc_code`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: tier order scan")
	}
	defer rows.Close()

	for rows.Next() {
		var rec model.WageRecord
		if err := rows.Scan(&rec.AreaCode, &rec.SOCCode, &rec.Tiers.L1, &rec.Tiers.L2, &rec.Tiers.L3, &rec.Tiers.L4); err != nil {
			return nil, eris.Wrap(err, "postgres: scan tier violation")
		}
		r.TierOrderViolations = append(r.TierOrderViolations, rec)
	}
	return &r, eris.Wrap(rows.Err(), "postgres: iterate tier violations")
}

// helpers

func (s *PostgresStore) stringColumn(ctx context.Context, query, wrap string, args ...any) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, wrap)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, eris.Wrap(err, wrap)
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), wrap)
}

func scanRefs(rows pgx.Rows, wrap string) ([]model.OccupationRef, error) {
	defer rows.Close()

	var out []model.OccupationRef
	for rows.Next() {
		var ref model.OccupationRef
		if err := rows.Scan(&ref.SOCCode, &ref.JobTitle); err != nil {
			return nil, eris.Wrap(err, wrap)
		}
		out = append(out, ref)
	}
	return out, eris.Wrap(rows.Err(), wrap)
}
