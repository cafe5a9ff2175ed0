package validate

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/wagelevels/internal/model"
	"github.com/sells-group/wagelevels/internal/store"
)

func newLoadedStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "wages.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	_, err = st.ReplaceLocations(ctx, []model.Location{
		{AreaCode: "001", State: "Alabama (AL)", County: "Calhoun County"},
		{AreaCode: "002", State: "California (CA)", County: "Alameda County"},
	})
	require.NoError(t, err)

	_, err = st.ReplaceOccupations(ctx, []model.Occupation{
		{SOCCode: "15-1252", JobTitle: "Software Developers"},
	})
	require.NoError(t, err)

	_, err = st.ReplaceWageRecords(ctx, []model.WageRecord{
		{AreaCode: "001", SOCCode: "15-1252", Tiers: model.WageTiers{L1: 70000, L2: 80000, L3: 90000, L4: 100000}},
		{AreaCode: "002", SOCCode: "15-1252", Tiers: model.WageTiers{L1: 89000, L2: 107000, L3: 125000, L4: 143000}},
	})
	require.NoError(t, err)

	for key, n := range map[string]int{
		"total_locations":    2,
		"total_occupations":  1,
		"total_wage_records": 2,
	} {
		require.NoError(t, st.SetMetadata(ctx, key, fmt.Sprintf("%d", n)))
	}
	return st
}

func TestRun_CleanStore(t *testing.T) {
	st := newLoadedStore(t)

	report, err := Run(context.Background(), st)
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Equal(t, int64(2), report.Stats.Locations)
	assert.Empty(t, report.MetadataMismatches)
}

func TestRun_TierOrderViolation(t *testing.T) {
	st := newLoadedStore(t)
	ctx := context.Background()

	_, err := st.ReplaceWageRecords(ctx, []model.WageRecord{
		{AreaCode: "001", SOCCode: "15-1252", Tiers: model.WageTiers{L1: 100000, L2: 90000, L3: 110000, L4: 120000}},
	})
	require.NoError(t, err)
	require.NoError(t, st.SetMetadata(ctx, "total_wage_records", "1"))

	report, err := Run(ctx, st)
	require.NoError(t, err)
	assert.False(t, report.Clean())
	require.Len(t, report.Integrity.TierOrderViolations, 1)
	assert.Equal(t, "001", report.Integrity.TierOrderViolations[0].AreaCode)
}

func TestRun_MetadataMismatch(t *testing.T) {
	st := newLoadedStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetMetadata(ctx, "total_locations", "999"))

	report, err := Run(ctx, st)
	require.NoError(t, err)
	assert.False(t, report.Clean())
	require.Len(t, report.MetadataMismatches, 1)
	assert.Contains(t, report.MetadataMismatches[0], "total_locations")
}

func TestFormat(t *testing.T) {
	st := newLoadedStore(t)

	report, err := Run(context.Background(), st)
	require.NoError(t, err)

	var buf bytes.Buffer
	Format(&buf, report)

	out := buf.String()
	assert.Contains(t, out, "geography")
	assert.Contains(t, out, "tier ordering")
}
