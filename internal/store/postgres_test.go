package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/wagelevels/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_DistinctStates(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"state"}).
		AddRow("Alabama (AL)").
		AddRow("California (CA)")
	mock.ExpectQuery(`SELECT DISTINCT state FROM geography ORDER BY state ASC`).
		WillReturnRows(rows)

	states, err := s.DistinctStates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Alabama (AL)", "California (CA)"}, states)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountiesForState(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"county"}).
		AddRow("Alameda County").
		AddRow("Alpine County")
	mock.ExpectQuery(`SELECT DISTINCT county FROM geography WHERE state = \$1 ORDER BY county ASC`).
		WithArgs("California (CA)").
		WillReturnRows(rows)

	counties, err := s.CountiesForState(context.Background(), "California (CA)")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alameda County", "Alpine County"}, counties)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SearchOccupations(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"soc_code", "job_title"}).
		AddRow("15-1252", "Software Developers")
	mock.ExpectQuery(`WHERE soc_code ILIKE \$1 OR job_title ILIKE \$1`).
		WithArgs("%software%", 20).
		WillReturnRows(rows)

	refs, err := s.SearchOccupations(context.Background(), "software", 20)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "15-1252", refs[0].SOCCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetOccupation_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT soc_code, job_title, COALESCE\(description, ''\) FROM occupations WHERE soc_code = \$1`).
		WithArgs("99-9999").
		WillReturnRows(pgxmock.NewRows([]string{"soc_code", "job_title", "description"}))

	occ, err := s.GetOccupation(context.Background(), "99-9999")
	require.NoError(t, err)
	assert.Nil(t, occ, "unknown code must be a no-result, not an error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WageTiers(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"l1_wage", "l2_wage", "l3_wage", "l4_wage"}).
		AddRow(89000.0, 107000.0, 125000.0, 143000.0)
	mock.ExpectQuery(`SELECT wl.l1_wage, wl.l2_wage, wl.l3_wage, wl.l4_wage`).
		WithArgs("California (CA)", "Alameda County", "15-1252").
		WillReturnRows(rows)

	tiers, err := s.WageTiers(context.Background(), "California (CA)", "Alameda County", "15-1252")
	require.NoError(t, err)
	require.NotNil(t, tiers)
	assert.Equal(t, 89000.0, tiers.L1)
	assert.Equal(t, 143000.0, tiers.L4)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WageTiers_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT wl.l1_wage, wl.l2_wage, wl.l3_wage, wl.l4_wage`).
		WithArgs("Nowhere", "No County", "15-1252").
		WillReturnRows(pgxmock.NewRows([]string{"l1_wage", "l2_wage", "l3_wage", "l4_wage"}))

	tiers, err := s.WageTiers(context.Background(), "Nowhere", "No County", "15-1252")
	require.NoError(t, err)
	assert.Nil(t, tiers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WageTiersForOccupation(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"state", "county", "l1_wage", "l2_wage", "l3_wage", "l4_wage"}).
		AddRow("California (CA)", "Alameda County", 89000.0, 107000.0, 125000.0, 143000.0).
		AddRow("California (CA)", "Alpine County", 91000.0, 109000.0, 127000.0, 145000.0)
	mock.ExpectQuery(`SELECT g.state, g.county, wl.l1_wage`).
		WithArgs("15-1252").
		WillReturnRows(rows)

	tiers, err := s.WageTiersForOccupation(context.Background(), "15-1252")
	require.NoError(t, err)
	require.Len(t, tiers, 2)
	assert.Equal(t, "Alameda County", tiers[0].County)
	assert.Equal(t, 91000.0, tiers[1].Tiers.L1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMetadata_Absent(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COALESCE\(value, ''\) FROM metadata WHERE key = \$1`).
		WithArgs("missing_key").
		WillReturnRows(pgxmock.NewRows([]string{"value"}))

	v, err := s.GetMetadata(context.Background(), "missing_key")
	require.NoError(t, err)
	assert.Empty(t, v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceLocations(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`TRUNCATE geography CASCADE`).
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"geography"}, []string{"area_code", "state", "county"}).
		WillReturnResult(2)
	mock.ExpectCommit()

	n, err := s.ReplaceLocations(context.Background(), []model.Location{
		{AreaCode: "0600001", State: "California (CA)", County: "Alameda County"},
		{AreaCode: "0600002", State: "California (CA)", County: "Alpine County"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceLocations_RollsBackOnCopyError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`TRUNCATE geography CASCADE`).
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"geography"}, []string{"area_code", "state", "county"}).
		WillReturnError(errors.New("copy failed"))
	mock.ExpectRollback()

	_, err := s.ReplaceLocations(context.Background(), []model.Location{
		{AreaCode: "0600001", State: "California (CA)", County: "Alameda County"},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetMetadata(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO metadata`).
		WithArgs("data_version", "2025-Q1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SetMetadata(context.Background(), "data_version", "2025-Q1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Stats(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM geography`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3144)))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM occupations`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(832)))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM wage_levels`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(530000)))

	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3144), st.Locations)
	assert.Equal(t, int64(832), st.Occupations)
	assert.Equal(t, int64(530000), st.WageRecords)
	assert.NoError(t, mock.ExpectationsWereMet())
}
