package wage

import (
	"github.com/sells-group/wagelevels/internal/model"
)

// Band is one of the five ordered salary-classification categories.
type Band int

// Bands, ascending.
const (
	BandBelowL1 Band = iota
	BandLevelI
	BandLevelII
	BandLevelIII
	BandLevelIV
)

var bandNames = [...]string{"Below L1", "Level I", "Level II", "Level III", "Level IV"}

func (b Band) String() string {
	if b < BandBelowL1 || int(b) >= len(bandNames) {
		return "unknown"
	}
	return bandNames[b]
}

// MarshalText renders the band under its display name, which is what the
// dashboard legend shows.
func (b Band) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// Classify places a salary into exactly one band for a county's tiers.
// The ladder is strict-less-than: a salary exactly equal to a tier threshold
// lands in the lower band (salary == L1 is Level I because the first failing
// comparison is salary < L2). Out-of-order tiers still classify mechanically.
func Classify(salary float64, t model.WageTiers) Band {
	switch {
	case salary < t.L1:
		return BandBelowL1
	case salary < t.L2:
		return BandLevelI
	case salary < t.L3:
		return BandLevelII
	case salary < t.L4:
		return BandLevelIII
	default:
		return BandLevelIV
	}
}

// ClassifyAll groups every supplied county by the band its tiers place the
// salary in, preserving the input order within each band. Bands with no
// members are omitted. The second return is false when the salary is absent
// or non-positive: no comparison was performed, which is a different outcome
// from Below L1.
func ClassifyAll(salary model.Salary, tiers []model.CountyTiers) (map[Band][]model.CountyKey, bool) {
	if !salary.Applicable() {
		return nil, false
	}

	out := make(map[Band][]model.CountyKey)
	for _, ct := range tiers {
		b := Classify(salary.Amount, ct.Tiers)
		out[b] = append(out[b], ct.CountyKey)
	}
	return out, true
}
