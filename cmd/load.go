package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/wagelevels/internal/ingest"
)

var (
	loadGeographyCSV   string
	loadOccupationsCSV string
	loadWageFile       string
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the reference CSVs into the store",
	Long:  "Parses Geography.csv, oes_soc_occs.csv, and the ALC export (CSV or XLSX), replaces the store contents, and records load metadata.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStoreForLoad(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		dataCfg := cfg.Data
		if loadGeographyCSV != "" {
			dataCfg.GeographyCSV = loadGeographyCSV
		}
		if loadOccupationsCSV != "" {
			dataCfg.OccupationsCSV = loadOccupationsCSV
		}
		if loadWageFile != "" {
			dataCfg.WageFile = loadWageFile
		}

		res, err := ingest.NewLoader(st, dataCfg).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "load")
		}

		zap.L().Info("reference data loaded",
			zap.Int64("locations", res.Locations),
			zap.Int64("occupations", res.Occupations),
			zap.Int64("wage_records", res.WageRecords),
			zap.Int("skipped_wage_rows", res.SkippedWages),
		)
		return nil
	},
}

func init() {
	loadCmd.Flags().StringVar(&loadGeographyCSV, "geography", "", "path to Geography.csv (default from config)")
	loadCmd.Flags().StringVar(&loadOccupationsCSV, "occupations", "", "path to oes_soc_occs.csv (default from config)")
	loadCmd.Flags().StringVar(&loadWageFile, "wages", "", "path to the ALC export, .csv or .xlsx (default from config)")
	rootCmd.AddCommand(loadCmd)
}
