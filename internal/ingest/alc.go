package ingest

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/wagelevels/internal/model"
)

// Labels that mark rows without four leveled wages; those rows are excluded
// at ingestion so every stored record has four populated annual tiers.
var excludedWageLabels = map[string]bool{
	"High Wage":       true,
	"No Leveled Wage": true,
}

// parseWageLevels reads the ALC export, in CSV or XLSX form depending on the
// file extension. Rows without a label carry hourly figures and are
// converted to annual; duplicate (area, soc) keys keep the last row seen.
func parseWageLevels(ctx context.Context, path string) ([]model.WageRecord, int, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return parseWageLevelsXLSX(ctx, path)
	}

	r, closeFn, err := openDecoded(path)
	if err != nil {
		return nil, 0, eris.Wrap(err, "ingest: open ALC export")
	}
	defer closeFn()

	reader := newCSVReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, 0, eris.Wrap(err, "ingest: read ALC header")
	}
	colIdx := mapColumns(header)

	acc := newWageAccumulator()
	for {
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		default:
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			acc.skipped++
			zap.L().Warn("skipping malformed ALC row", zap.Error(err))
			continue
		}
		acc.add(record, colIdx)
	}
	return acc.finish()
}

// wageAccumulator folds raw ALC records into deduplicated wage records.
type wageAccumulator struct {
	rows    []model.WageRecord
	seen    map[string]int // (area|soc) -> rows index, last row wins
	skipped int
}

func newWageAccumulator() *wageAccumulator {
	return &wageAccumulator{seen: make(map[string]int)}
}

func (a *wageAccumulator) add(record []string, colIdx map[string]int) {
	label := strings.TrimSpace(getCol(record, colIdx, "label"))
	if excludedWageLabels[label] {
		a.skipped++
		return
	}

	area := trimQuotes(getCol(record, colIdx, "area"))
	soc := trimQuotes(getCol(record, colIdx, "soccode"))
	if area == "" || soc == "" {
		a.skipped++
		return
	}

	tiers := [4]float64{}
	ok := true
	for i, col := range []string{"level1", "level2", "level3", "level4"} {
		v, parsed := parseFloat(trimQuotes(getCol(record, colIdx, col)))
		if !parsed || v <= 0 {
			ok = false
			break
		}
		tiers[i] = v
	}
	if !ok {
		a.skipped++
		return
	}

	// Unlabeled rows are hourly figures.
	if label == "" {
		for i := range tiers {
			tiers[i] *= model.WorkYearHours
		}
	}

	rec := model.WageRecord{
		AreaCode: area,
		SOCCode:  soc,
		Tiers:    model.WageTiers{L1: tiers[0], L2: tiers[1], L3: tiers[2], L4: tiers[3]},
	}

	key := area + "|" + soc
	if idx, exists := a.seen[key]; exists {
		a.rows[idx] = rec
		return
	}
	a.seen[key] = len(a.rows)
	a.rows = append(a.rows, rec)
}

func (a *wageAccumulator) finish() ([]model.WageRecord, int, error) {
	for _, r := range a.rows {
		if !r.Tiers.Ordered() {
			zap.L().Warn("ingested wage tiers out of order",
				zap.String("area_code", r.AreaCode),
				zap.String("soc_code", r.SOCCode),
			)
		}
	}
	return a.rows, a.skipped, nil
}
