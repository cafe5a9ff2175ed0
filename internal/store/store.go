// Package store provides persistence for the prevailing-wage reference data:
// geography, occupations, and per-county wage levels. The data is written
// once by the load command and is read-only for the lifetime of a serving
// process.
package store

import (
	"context"

	"github.com/sells-group/wagelevels/internal/model"
)

// Store defines the persistence interface for the wage reference data.
type Store interface {
	// Reference reads
	DistinctStates(ctx context.Context) ([]string, error)
	CountiesForState(ctx context.Context, state string) ([]string, error)
	AllOccupations(ctx context.Context) ([]model.OccupationRef, error)
	SearchOccupations(ctx context.Context, term string, limit int) ([]model.OccupationRef, error)
	// GetOccupation returns (nil, nil) when the code is unknown.
	GetOccupation(ctx context.Context, socCode string) (*model.Occupation, error)
	// WageTiers returns (nil, nil) when no record matches all three keys.
	WageTiers(ctx context.Context, state, county, socCode string) (*model.WageTiers, error)
	WageTiersForOccupation(ctx context.Context, socCode string) ([]model.CountyTiers, error)

	// Load path (replace-all; the serving lifetime has no write path)
	ReplaceLocations(ctx context.Context, locs []model.Location) (int64, error)
	ReplaceOccupations(ctx context.Context, occs []model.Occupation) (int64, error)
	ReplaceWageRecords(ctx context.Context, recs []model.WageRecord) (int64, error)
	SetMetadata(ctx context.Context, key, value string) error
	// GetMetadata returns "" when the key is absent.
	GetMetadata(ctx context.Context, key string) (string, error)

	// Maintenance
	Stats(ctx context.Context) (*Stats, error)
	Integrity(ctx context.Context) (*IntegrityReport, error)
	Migrate(ctx context.Context) error
	Close() error
}

// Stats holds per-table record counts.
type Stats struct {
	Locations   int64 `json:"locations"`
	Occupations int64 `json:"occupations"`
	WageRecords int64 `json:"wage_records"`
}

// IntegrityReport summarizes the offline data-quality pass over the
// reference tables. Violations are reported, never repaired.
type IntegrityReport struct {
	NullStates          int64              `json:"null_states"`
	NullCounties        int64              `json:"null_counties"`
	NullTitles          int64              `json:"null_titles"`
	DuplicateLocations  int64              `json:"duplicate_locations"`
	DuplicateSOCCodes   int64              `json:"duplicate_soc_codes"`
	DuplicateWageKeys   int64              `json:"duplicate_wage_keys"`
	OrphanedWageRecords int64              `json:"orphaned_wage_records"`
	TierOrderViolations []model.WageRecord `json:"tier_order_violations,omitempty"`
}

// Clean reports whether the pass found no violations.
func (r *IntegrityReport) Clean() bool {
	return r.NullStates == 0 &&
		r.NullCounties == 0 &&
		r.NullTitles == 0 &&
		r.DuplicateLocations == 0 &&
		r.DuplicateSOCCodes == 0 &&
		r.DuplicateWageKeys == 0 &&
		r.OrphanedWageRecords == 0 &&
		len(r.TierOrderViolations) == 0
}
