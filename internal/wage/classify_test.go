package wage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/wagelevels/internal/model"
)

var referenceTiers = model.WageTiers{L1: 89000, L2: 107000, L3: 125000, L4: 143000}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		salary   float64
		expected Band
	}{
		{
			name:     "below first tier",
			salary:   88999,
			expected: BandBelowL1,
		},
		{
			name:     "exactly L1 lands in Level I, not Below L1",
			salary:   89000,
			expected: BandLevelI,
		},
		{
			name:     "between L1 and L2",
			salary:   100000,
			expected: BandLevelI,
		},
		{
			name:     "exactly L2 lands in Level II",
			salary:   107000,
			expected: BandLevelII,
		},
		{
			name:     "between L3 and L4",
			salary:   130000,
			expected: BandLevelIII,
		},
		{
			name:     "exactly L4 lands in Level IV",
			salary:   143000,
			expected: BandLevelIV,
		},
		{
			name:     "far above all tiers",
			salary:   200000,
			expected: BandLevelIV,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.salary, referenceTiers))
		})
	}
}

func TestClassify_Idempotent(t *testing.T) {
	for _, salary := range []float64{50000, 89000, 95000, 143000, 500000} {
		first := Classify(salary, referenceTiers)
		second := Classify(salary, referenceTiers)
		assert.Equal(t, first, second)
	}
}

func TestClassify_OutOfOrderTiersStillClassify(t *testing.T) {
	// L2 < L1 is a data-quality problem, not a crash. The ladder simply
	// applies its comparisons in order, even when that skips a band.
	tests := []struct {
		name     string
		tiers    model.WageTiers
		salary   float64
		expected Band
	}{
		{
			name:     "salary under inflated L1 is Below L1",
			tiers:    model.WageTiers{L1: 100000, L2: 90000, L3: 125000, L4: 143000},
			salary:   95000,
			expected: BandBelowL1,
		},
		{
			name:     "deflated L2 makes Level I unreachable",
			tiers:    model.WageTiers{L1: 90000, L2: 80000, L3: 125000, L4: 143000},
			salary:   95000,
			expected: BandLevelII,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.salary, tt.tiers))
		})
	}
}

func TestClassifyAll_GroupsAndOmitsEmptyBands(t *testing.T) {
	tiers := []model.CountyTiers{
		{CountyKey: model.CountyKey{State: "California", County: "Alameda County"},
			Tiers: model.WageTiers{L1: 89000, L2: 107000, L3: 125000, L4: 143000}},
		{CountyKey: model.CountyKey{State: "California", County: "Marin County"},
			Tiers: model.WageTiers{L1: 120000, L2: 140000, L3: 160000, L4: 180000}},
		{CountyKey: model.CountyKey{State: "Alabama", County: "Autauga County"},
			Tiers: model.WageTiers{L1: 115000, L2: 130000, L3: 150000, L4: 170000}},
	}

	groups, ok := ClassifyAll(model.SalaryOf(110000), tiers)
	require.True(t, ok)

	// 110000 is Level II for Alameda, Below L1 for the other two.
	require.Len(t, groups, 2)
	assert.Equal(t, []model.CountyKey{{State: "California", County: "Alameda County"}}, groups[BandLevelII])
	assert.Equal(t, []model.CountyKey{
		{State: "California", County: "Marin County"},
		{State: "Alabama", County: "Autauga County"},
	}, groups[BandBelowL1])

	_, hasLevelI := groups[BandLevelI]
	assert.False(t, hasLevelI)
	_, hasLevelIII := groups[BandLevelIII]
	assert.False(t, hasLevelIII)
	_, hasLevelIV := groups[BandLevelIV]
	assert.False(t, hasLevelIV)
}

func TestClassifyAll_PreservesInputOrderWithinBand(t *testing.T) {
	low := model.WageTiers{L1: 200000, L2: 210000, L3: 220000, L4: 230000}
	var tiers []model.CountyTiers
	for _, county := range []string{"C county", "A county", "B county"} {
		tiers = append(tiers, model.CountyTiers{
			CountyKey: model.CountyKey{State: "Texas", County: county},
			Tiers:     low,
		})
	}

	groups, ok := ClassifyAll(model.SalaryOf(100000), tiers)
	require.True(t, ok)
	require.Len(t, groups[BandBelowL1], 3)
	assert.Equal(t, "C county", groups[BandBelowL1][0].County)
	assert.Equal(t, "A county", groups[BandBelowL1][1].County)
	assert.Equal(t, "B county", groups[BandBelowL1][2].County)
}

func TestClassifyAll_NotApplicable(t *testing.T) {
	tiers := []model.CountyTiers{
		{CountyKey: model.CountyKey{State: "Ohio", County: "Stark County"}, Tiers: referenceTiers},
	}

	tests := []struct {
		name   string
		salary model.Salary
	}{
		{name: "absent salary", salary: model.Salary{}},
		{name: "zero salary", salary: model.SalaryOf(0)},
		{name: "negative salary", salary: model.SalaryOf(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, ok := ClassifyAll(tt.salary, tiers)
			assert.False(t, ok, "must be distinct from a Below L1 classification")
			assert.Nil(t, groups)
		})
	}
}

func TestBand_String(t *testing.T) {
	assert.Equal(t, "Below L1", BandBelowL1.String())
	assert.Equal(t, "Level I", BandLevelI.String())
	assert.Equal(t, "Level IV", BandLevelIV.String())
	assert.Equal(t, "unknown", Band(99).String())
}
