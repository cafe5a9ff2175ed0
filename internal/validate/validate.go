// Package validate runs the offline data-quality pass over a loaded store.
// Violations are reported for the operator to fix upstream; nothing here
// mutates the data.
package validate

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/wagelevels/internal/store"
)

// Report is the outcome of one validation pass.
type Report struct {
	Stats     *store.Stats
	Integrity *store.IntegrityReport

	// MetadataMismatches records disagreements between the metadata table's
	// load counts and the actual table counts.
	MetadataMismatches []string
}

// Clean reports whether the pass found nothing wrong.
func (r *Report) Clean() bool {
	return r.Integrity.Clean() && len(r.MetadataMismatches) == 0
}

// Run executes every check against the store.
func Run(ctx context.Context, st store.Store) (*Report, error) {
	stats, err := st.Stats(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "validate: stats")
	}

	integrity, err := st.Integrity(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "validate: integrity")
	}

	r := &Report{Stats: stats, Integrity: integrity}

	for _, c := range []struct {
		key    string
		actual int64
	}{
		{"total_locations", stats.Locations},
		{"total_occupations", stats.Occupations},
		{"total_wage_records", stats.WageRecords},
	} {
		value, err := st.GetMetadata(ctx, c.key)
		if err != nil {
			return nil, eris.Wrap(err, "validate: metadata")
		}
		if value == "" {
			r.MetadataMismatches = append(r.MetadataMismatches,
				fmt.Sprintf("%s: missing from metadata", c.key))
			continue
		}
		recorded, err := strconv.ParseInt(value, 10, 64)
		if err != nil || recorded != c.actual {
			r.MetadataMismatches = append(r.MetadataMismatches,
				fmt.Sprintf("%s: metadata says %s, table has %d", c.key, value, c.actual))
		}
	}

	return r, nil
}

// Format writes a tabular summary of the report.
func Format(w io.Writer, r *Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush() //nolint:errcheck

	fmt.Fprintf(tw, "TABLE\tRECORDS\n")
	fmt.Fprintf(tw, "geography\t%d\n", r.Stats.Locations)
	fmt.Fprintf(tw, "occupations\t%d\n", r.Stats.Occupations)
	fmt.Fprintf(tw, "wage_levels\t%d\n", r.Stats.WageRecords)
	fmt.Fprintf(tw, "\n")

	i := r.Integrity
	fmt.Fprintf(tw, "CHECK\tVIOLATIONS\n")
	fmt.Fprintf(tw, "null/empty states\t%d\n", i.NullStates)
	fmt.Fprintf(tw, "null/empty counties\t%d\n", i.NullCounties)
	fmt.Fprintf(tw, "null/empty job titles\t%d\n", i.NullTitles)
	fmt.Fprintf(tw, "duplicate (state, county)\t%d\n", i.DuplicateLocations)
	fmt.Fprintf(tw, "duplicate soc codes\t%d\n", i.DuplicateSOCCodes)
	fmt.Fprintf(tw, "duplicate (area, soc)\t%d\n", i.DuplicateWageKeys)
	fmt.Fprintf(tw, "orphaned wage records\t%d\n", i.OrphanedWageRecords)
	fmt.Fprintf(tw, "tier ordering (L1<=L2<=L3<=L4)\t%d\n", len(i.TierOrderViolations))

	for _, v := range i.TierOrderViolations {
		fmt.Fprintf(tw, "  out of order\t%s / %s: %.0f %.0f %.0f %.0f\n",
			v.AreaCode, v.SOCCode, v.Tiers.L1, v.Tiers.L2, v.Tiers.L3, v.Tiers.L4)
	}

	for _, m := range r.MetadataMismatches {
		fmt.Fprintf(tw, "  metadata\t%s\n", m)
	}
}
