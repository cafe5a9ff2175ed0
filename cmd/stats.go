package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/wagelevels/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show record counts and load metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := st.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "stats")
		}

		meta := map[string]string{}
		for _, key := range []string{"last_import", "data_version"} {
			v, err := st.GetMetadata(ctx, key)
			if err != nil {
				return eris.Wrap(err, "stats metadata")
			}
			meta[key] = v
		}

		formatStats(os.Stdout, stats, meta)
		return nil
	},
}

func formatStats(w io.Writer, stats *store.Stats, meta map[string]string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush() //nolint:errcheck

	fmt.Fprintf(tw, "TABLE\tRECORDS\n")
	fmt.Fprintf(tw, "geography\t%d\n", stats.Locations)
	fmt.Fprintf(tw, "occupations\t%d\n", stats.Occupations)
	fmt.Fprintf(tw, "wage_levels\t%d\n", stats.WageRecords)
	if meta["last_import"] != "" {
		fmt.Fprintf(tw, "last import\t%s\n", meta["last_import"])
	}
	if meta["data_version"] != "" {
		fmt.Fprintf(tw, "data version\t%s\n", meta["data_version"])
	}
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
