package store

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/wagelevels/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if necessary) a SQLite database at the given
// path and configures WAL mode. Used by the load command.
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

// OpenSQLite opens an existing SQLite database for read serving. It refuses
// to start when the database file is missing or unreadable, so a serving
// process never comes up against an empty store.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	if _, err := os.Stat(dsn); err != nil {
		return nil, eris.Wrapf(err, "sqlite: database not found at %s (run 'wagelevels load' first)", dsn)
	}
	s, err := NewSQLite(dsn)
	if err != nil {
		return nil, err
	}
	if err := s.db.QueryRow("SELECT 1").Err(); err != nil {
		s.db.Close()
		return nil, eris.Wrap(err, "sqlite: connection test")
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS geography (
	area_code  TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	county     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE(state, county)
);

CREATE TABLE IF NOT EXISTS occupations (
	soc_code    TEXT PRIMARY KEY,
	job_title   TEXT NOT NULL,
	description TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS wage_levels (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	area_code  TEXT NOT NULL REFERENCES geography(area_code),
	soc_code   TEXT NOT NULL REFERENCES occupations(soc_code),
	l1_wage    REAL NOT NULL,
	l2_wage    REAL NOT NULL,
	l3_wage    REAL NOT NULL,
	l4_wage    REAL NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE(area_code, soc_code)
);

CREATE TABLE IF NOT EXISTS metadata (
	key        TEXT PRIMARY KEY,
	value      TEXT,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_geography_state ON geography(state);
CREATE INDEX IF NOT EXISTS idx_geography_state_county ON geography(state, county);
CREATE INDEX IF NOT EXISTS idx_occupations_title ON occupations(job_title);
CREATE INDEX IF NOT EXISTS idx_wage_levels_soc ON wage_levels(soc_code);
CREATE INDEX IF NOT EXISTS idx_wage_levels_area ON wage_levels(area_code);
CREATE INDEX IF NOT EXISTS idx_wage_levels_area_soc ON wage_levels(area_code, soc_code);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) DistinctStates(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx,
		`SELECT DISTINCT state FROM geography ORDER BY state ASC`,
		"sqlite: distinct states")
}

func (s *SQLiteStore) CountiesForState(ctx context.Context, state string) ([]string, error) {
	return s.stringColumn(ctx,
		`SELECT DISTINCT county FROM geography WHERE state = ? ORDER BY county ASC`,
		"sqlite: counties for state", state)
}

func (s *SQLiteStore) AllOccupations(ctx context.Context) ([]model.OccupationRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT soc_code, job_title FROM occupations ORDER BY job_title ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: all occupations")
	}
	return scanOccupationRefs(rows, "sqlite: all occupations")
}

func (s *SQLiteStore) SearchOccupations(ctx context.Context, term string, limit int) ([]model.OccupationRef, error) {
	// SQLite LIKE is case-insensitive for ASCII, matching the search contract.
	pattern := "%" + term + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT soc_code, job_title FROM occupations
		 WHERE soc_code LIKE ? OR job_title LIKE ?
		 ORDER BY job_title ASC LIMIT ?`,
		pattern, pattern, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search occupations")
	}
	return scanOccupationRefs(rows, "sqlite: search occupations")
}

func (s *SQLiteStore) GetOccupation(ctx context.Context, socCode string) (*model.Occupation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT soc_code, job_title, description FROM occupations WHERE soc_code = ?`,
		socCode)

	var occ model.Occupation
	var desc sql.NullString
	err := row.Scan(&occ.SOCCode, &occ.JobTitle, &desc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get occupation")
	}
	occ.Description = desc.String
	return &occ, nil
}

func (s *SQLiteStore) WageTiers(ctx context.Context, state, county, socCode string) (*model.WageTiers, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT wl.l1_wage, wl.l2_wage, wl.l3_wage, wl.l4_wage
		 FROM wage_levels wl
		 JOIN geography g ON wl.area_code = g.area_code
		 WHERE g.state = ? AND g.county = ? AND wl.soc_code = ?
		 LIMIT 1`,
		state, county, socCode)

	var t model.WageTiers
	err := row.Scan(&t.L1, &t.L2, &t.L3, &t.L4)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: wage tiers")
	}
	return &t, nil
}

func (s *SQLiteStore) WageTiersForOccupation(ctx context.Context, socCode string) ([]model.CountyTiers, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.state, g.county, wl.l1_wage, wl.l2_wage, wl.l3_wage, wl.l4_wage
		 FROM wage_levels wl
		 JOIN geography g ON wl.area_code = g.area_code
		 WHERE wl.soc_code = ?
		 ORDER BY g.state, g.county`,
		socCode)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: wage tiers for occupation")
	}
	defer rows.Close()

	var out []model.CountyTiers
	for rows.Next() {
		var ct model.CountyTiers
		if err := rows.Scan(&ct.State, &ct.County, &ct.Tiers.L1, &ct.Tiers.L2, &ct.Tiers.L3, &ct.Tiers.L4); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan county tiers")
		}
		out = append(out, ct)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate county tiers")
}

func (s *SQLiteStore) ReplaceLocations(ctx context.Context, locs []model.Location) (int64, error) {
	return s.replaceAll(ctx, "geography",
		`INSERT INTO geography (area_code, state, county) VALUES (?, ?, ?)`,
		len(locs), func(i int) []any {
			return []any{locs[i].AreaCode, locs[i].State, locs[i].County}
		})
}

func (s *SQLiteStore) ReplaceOccupations(ctx context.Context, occs []model.Occupation) (int64, error) {
	return s.replaceAll(ctx, "occupations",
		`INSERT INTO occupations (soc_code, job_title, description) VALUES (?, ?, ?)`,
		len(occs), func(i int) []any {
			return []any{occs[i].SOCCode, occs[i].JobTitle, nullable(occs[i].Description)}
		})
}

func (s *SQLiteStore) ReplaceWageRecords(ctx context.Context, recs []model.WageRecord) (int64, error) {
	return s.replaceAll(ctx, "wage_levels",
		`INSERT INTO wage_levels (area_code, soc_code, l1_wage, l2_wage, l3_wage, l4_wage) VALUES (?, ?, ?, ?, ?, ?)`,
		len(recs), func(i int) []any {
			r := recs[i]
			return []any{r.AreaCode, r.SOCCode, r.Tiers.L1, r.Tiers.L2, r.Tiers.L3, r.Tiers.L4}
		})
}

// replaceAll deletes every row in table and bulk-inserts the replacement set
// inside one transaction, so readers never observe a partially loaded table.
func (s *SQLiteStore) replaceAll(ctx context.Context, table, insertSQL string, n int, argsAt func(int) []any) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: begin replace %s", table)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return 0, eris.Wrapf(err, "sqlite: clear %s", table)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: prepare insert %s", table)
	}
	defer stmt.Close() //nolint:errcheck

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, argsAt(i)...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert into %s", table)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "sqlite: commit replace %s", table)
	}
	return int64(n), nil
}

func (s *SQLiteStore) SetMetadata(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	return eris.Wrapf(err, "sqlite: set metadata %s", key)
}

func (s *SQLiteStore) GetMetadata(ctx context.Context, key string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: get metadata %s", key)
	}
	return value.String, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	for _, c := range []struct {
		table string
		dst   *int64
	}{
		{"geography", &st.Locations},
		{"occupations", &st.Occupations},
		{"wage_levels", &st.WageRecords},
	} {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+c.table).Scan(c.dst); err != nil {
			return nil, eris.Wrapf(err, "sqlite: count %s", c.table)
		}
	}
	return &st, nil
}

func (s *SQLiteStore) Integrity(ctx context.Context) (*IntegrityReport, error) {
	var r IntegrityReport
	for _, c := range []struct {
		query string
		dst   *int64
	}{
		{`SELECT COUNT(*) FROM geography WHERE state IS NULL OR state = ''`, &r.NullStates},
		{`SELECT COUNT(*) FROM geography WHERE county IS NULL OR county = ''`, &r.NullCounties},
		{`SELECT COUNT(*) FROM occupations WHERE job_title IS NULL OR job_title = ''`, &r.NullTitles},
		{`SELECT COUNT(*) FROM (SELECT 1 FROM geography GROUP BY state, county HAVING COUNT(*) > 1)`, &r.DuplicateLocations},
		{`SELECT COUNT(*) FROM (SELECT 1 FROM occupations GROUP BY soc_code HAVING COUNT(*) > 1)`, &r.DuplicateSOCCodes},
		{`SELECT COUNT(*) FROM (SELECT 1 FROM wage_levels GROUP BY area_code, soc_code HAVING COUNT(*) > 1)`, &r.DuplicateWageKeys},
		{`SELECT COUNT(*) FROM wage_levels wl
		  LEFT JOIN geography g ON wl.area_code = g.area_code
		  LEFT JOIN occupations o ON wl.soc_code = o.soc_code
		  WHERE g.area_code IS NULL OR o.soc_code IS NULL`, &r.OrphanedWageRecords},
	} {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return nil, eris.Wrap(err, "sqlite: integrity count")
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT area_code, soc_code, l1_wage, l2_wage, l3_wage, l4_wage
		 FROM wage_levels
		 WHERE l1_wage > l2_wage OR l2_wage > l3_wage OR l3_wage > l4_wage
		 ORDER BY area_code, soc_code`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: tier order scan")
	}
	defer rows.Close()

	for rows.Next() {
		var rec model.WageRecord
		if err := rows.Scan(&rec.AreaCode, &rec.SOCCode, &rec.Tiers.L1, &rec.Tiers.L2, &rec.Tiers.L3, &rec.Tiers.L4); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan tier violation")
		}
		r.TierOrderViolations = append(r.TierOrderViolations, rec)
	}
	return &r, eris.Wrap(rows.Err(), "sqlite: iterate tier violations")
}

// helpers

func (s *SQLiteStore) stringColumn(ctx context.Context, query, wrap string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

func scanOccupationRefs(rows rowScanner, wrap string) ([]model.OccupationRef, error) {
	defer rows.Close() //nolint:errcheck

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

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
