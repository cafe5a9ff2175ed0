// Package model defines the domain types shared across the store, lookup,
// classification, and ingestion layers.
package model

// WorkYearHours converts an hourly prevailing wage to an annual figure
// (40 hours/week * 52 weeks).
const WorkYearHours = 2080

// Location is a county-level geographic unit keyed by its OFLC area code.
// The (State, County) pair is unique across the dataset.
type Location struct {
	AreaCode string `json:"area_code" csv:"area_code"`
	State    string `json:"state" csv:"state"`
	County   string `json:"county" csv:"county"`
}

// Occupation is a standard occupational classification entry.
type Occupation struct {
	SOCCode     string `json:"soc_code"`
	JobTitle    string `json:"job_title"`
	Description string `json:"description,omitempty"`
}

// OccupationRef is the (code, title) projection used by list and search
// results, ordered by title.
type OccupationRef struct {
	SOCCode  string `json:"soc_code"`
	JobTitle string `json:"job_title"`
}

// WageTiers holds the four annual prevailing-wage levels for one
// (location, occupation) pair.
type WageTiers struct {
	L1 float64 `json:"L1"`
	L2 float64 `json:"L2"`
	L3 float64 `json:"L3"`
	L4 float64 `json:"L4"`
}

// Ordered reports whether the tiers satisfy L1 <= L2 <= L3 <= L4.
// Source feeds occasionally violate this; callers flag it rather than fail.
func (t WageTiers) Ordered() bool {
	return t.L1 <= t.L2 && t.L2 <= t.L3 && t.L3 <= t.L4
}

// WageRecord associates one location with one occupation's wage tiers.
// At most one record exists per (AreaCode, SOCCode).
type WageRecord struct {
	AreaCode string    `json:"area_code"`
	SOCCode  string    `json:"soc_code"`
	Tiers    WageTiers `json:"tiers"`
}

// CountyKey identifies a county within a state by name.
type CountyKey struct {
	State  string `json:"state"`
	County string `json:"county"`
}

// CountyTiers pairs a county with its wage tiers for one occupation.
type CountyTiers struct {
	CountyKey
	Tiers WageTiers `json:"tiers"`
}
