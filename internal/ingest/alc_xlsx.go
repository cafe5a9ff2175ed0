package ingest

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/wagelevels/internal/model"
)

// parseWageLevelsXLSX reads the ALC export in the Excel form DOL also
// distributes. Rows are converted to string records so the CSV path's
// accumulator logic applies unchanged.
func parseWageLevelsXLSX(ctx context.Context, path string) ([]model.WageRecord, int, error) {
	xlFile, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, 0, eris.Wrap(err, "ingest: open ALC xlsx")
	}
	if len(xlFile.Sheets) == 0 {
		return nil, 0, eris.New("ingest: ALC xlsx has no sheets")
	}
	sheet := xlFile.Sheets[0]
	if len(sheet.Rows) < 2 {
		return nil, 0, eris.New("ingest: ALC xlsx sheet is empty")
	}

	headerRow := sheet.Rows[0]
	header := make([]string, len(headerRow.Cells))
	for i, cell := range headerRow.Cells {
		header[i] = strings.TrimSpace(cell.String())
	}
	colIdx := mapColumns(header)

	acc := newWageAccumulator()
	for rowIdx := 1; rowIdx < len(sheet.Rows); rowIdx++ {
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		default:
		}

		row := sheet.Rows[rowIdx]
		record := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			record[i] = strings.TrimSpace(cell.String())
		}
		acc.add(record, colIdx)
	}
	return acc.finish()
}
