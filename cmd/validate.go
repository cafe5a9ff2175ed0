package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/wagelevels/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the data-quality pass over the loaded store",
	Long:  "Checks for null critical columns, duplicate keys, orphaned wage records, out-of-order wage tiers, and metadata drift. Exits non-zero when violations exist.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		report, err := validate.Run(ctx, st)
		if err != nil {
			return eris.Wrap(err, "validate")
		}

		validate.Format(os.Stdout, report)

		if !report.Clean() {
			return eris.New("validation found data-quality violations")
		}
		zap.L().Info("validation passed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
