// Package ingest loads the three flat reference files (geography, SOC
// occupations, ALC wage levels) into the store. It runs once per data
// release; the serving path never writes.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/wagelevels/internal/model"
	"github.com/sells-group/wagelevels/internal/store"
)

// Config locates the source files for one load.
type Config struct {
	GeographyCSV   string `yaml:"geography_csv" mapstructure:"geography_csv"`
	OccupationsCSV string `yaml:"occupations_csv" mapstructure:"occupations_csv"`
	WageFile       string `yaml:"wage_file" mapstructure:"wage_file"`
	DataVersion    string `yaml:"data_version" mapstructure:"data_version"`
}

// Result summarizes one load.
type Result struct {
	Locations    int64
	Occupations  int64
	WageRecords  int64
	SkippedWages int
}

// Loader parses the source files and replaces the store contents.
type Loader struct {
	store store.Store
	cfg   Config
}

// NewLoader builds a Loader over a migrated store.
func NewLoader(st store.Store, cfg Config) *Loader {
	return &Loader{store: st, cfg: cfg}
}

// Run parses all three source files concurrently, then loads the tables in
// foreign-key order and records load metadata.
func (l *Loader) Run(ctx context.Context) (*Result, error) {
	log := zap.L().With(zap.String("component", "ingest"))

	var (
		locations   []model.Location
		occupations []model.Occupation
		wages       []model.WageRecord
		skipped     int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		locations, err = parseGeography(gctx, l.cfg.GeographyCSV)
		return err
	})
	g.Go(func() error {
		var err error
		occupations, err = parseOccupations(gctx, l.cfg.OccupationsCSV)
		return err
	})
	g.Go(func() error {
		var err error
		wages, skipped, err = parseWageLevels(gctx, l.cfg.WageFile)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("parsed source files",
		zap.Int("locations", len(locations)),
		zap.Int("occupations", len(occupations)),
		zap.Int("wage_records", len(wages)),
		zap.Int("skipped_wage_rows", skipped),
	)

	res := &Result{SkippedWages: skipped}
	var err error

	if res.Locations, err = l.store.ReplaceLocations(ctx, locations); err != nil {
		return nil, eris.Wrap(err, "ingest: load geography")
	}
	if res.Occupations, err = l.store.ReplaceOccupations(ctx, occupations); err != nil {
		return nil, eris.Wrap(err, "ingest: load occupations")
	}
	if res.WageRecords, err = l.store.ReplaceWageRecords(ctx, wages); err != nil {
		return nil, eris.Wrap(err, "ingest: load wage levels")
	}

	meta := map[string]string{
		"last_import":        time.Now().UTC().Format(time.RFC3339),
		"data_version":       l.cfg.DataVersion,
		"total_locations":    fmt.Sprintf("%d", res.Locations),
		"total_occupations":  fmt.Sprintf("%d", res.Occupations),
		"total_wage_records": fmt.Sprintf("%d", res.WageRecords),
	}
	for k, v := range meta {
		if err := l.store.SetMetadata(ctx, k, v); err != nil {
			return nil, eris.Wrap(err, "ingest: write metadata")
		}
	}

	log.Info("load complete",
		zap.Int64("locations", res.Locations),
		zap.Int64("occupations", res.Occupations),
		zap.Int64("wage_records", res.WageRecords),
	)
	return res, nil
}
