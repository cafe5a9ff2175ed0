// Package wage provides the typed lookup layer over the reference store and
// the salary-band classification engine consumed by the dashboard.
package wage

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sells-group/wagelevels/internal/model"
	"github.com/sells-group/wagelevels/internal/store"
)

// searchResultCap bounds occupation search results for autocomplete.
const searchResultCap = 20

// Service answers dashboard lookups against the reference store. The store
// never mutates after load, so the two constant-key lists (states,
// occupations) are computed once and shared across callers. Everything
// parameterized by user input goes to the store every time.
type Service struct {
	store store.Store

	// fill serializes cache population; the pointers themselves are
	// swapped atomically so readers never see a half-built list.
	fill   sync.Mutex
	states atomic.Pointer[[]string]
	occs   atomic.Pointer[[]model.OccupationRef]
}

// NewService wraps a read-ready store.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// States returns the distinct state names, sorted ascending. The result is
// cached after the first call.
func (s *Service) States(ctx context.Context) ([]string, error) {
	if p := s.states.Load(); p != nil {
		return *p, nil
	}

	s.fill.Lock()
	defer s.fill.Unlock()
	if p := s.states.Load(); p != nil {
		return *p, nil
	}

	list, err := s.store.DistinctStates(ctx)
	if err != nil {
		return nil, err
	}
	s.states.Store(&list)
	zap.L().Debug("cached state list", zap.Int("states", len(list)))
	return list, nil
}

// Counties returns the county names for a state, sorted ascending. An
// unknown or empty state yields an empty result, not an error.
func (s *Service) Counties(ctx context.Context, state string) ([]string, error) {
	if state == "" {
		return nil, nil
	}
	return s.store.CountiesForState(ctx, state)
}

// Occupations returns every occupation as (code, title), ordered by title.
// The result is cached after the first call.
func (s *Service) Occupations(ctx context.Context) ([]model.OccupationRef, error) {
	if p := s.occs.Load(); p != nil {
		return *p, nil
	}

	s.fill.Lock()
	defer s.fill.Unlock()
	if p := s.occs.Load(); p != nil {
		return *p, nil
	}

	list, err := s.store.AllOccupations(ctx)
	if err != nil {
		return nil, err
	}
	s.occs.Store(&list)
	zap.L().Debug("cached occupation list", zap.Int("occupations", len(list)))
	return list, nil
}

// SearchOccupations matches term case-insensitively against SOC code or job
// title, ordered by title, capped at 20 results. An empty or whitespace term
// returns nothing rather than the whole table.
func (s *Service) SearchOccupations(ctx context.Context, term string) ([]model.OccupationRef, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	return s.store.SearchOccupations(ctx, term, searchResultCap)
}

// Occupation returns the full occupation record, or nil when the code is
// unknown. Unknown codes are an expected outcome, not a fault.
func (s *Service) Occupation(ctx context.Context, socCode string) (*model.Occupation, error) {
	if socCode == "" {
		return nil, nil
	}
	return s.store.GetOccupation(ctx, socCode)
}

// Tiers returns the four wage tiers for an exact (state, county, soc) match,
// or nil when no record exists. Out-of-order tiers are flagged in the log
// but still returned; classification proceeds mechanically either way.
func (s *Service) Tiers(ctx context.Context, state, county, socCode string) (*model.WageTiers, error) {
	if state == "" || county == "" || socCode == "" {
		return nil, nil
	}
	tiers, err := s.store.WageTiers(ctx, state, county, socCode)
	if err != nil {
		return nil, err
	}
	if tiers != nil && !tiers.Ordered() {
		zap.L().Warn("wage tiers out of order",
			zap.String("state", state),
			zap.String("county", county),
			zap.String("soc_code", socCode),
		)
	}
	return tiers, nil
}

// TiersByCounty returns wage tiers for every county that has a record for
// the occupation, ordered by (state, county). Counties without a record are
// simply absent. The result can cover tens of thousands of counties and is
// deliberately not cached.
func (s *Service) TiersByCounty(ctx context.Context, socCode string) ([]model.CountyTiers, error) {
	if socCode == "" {
		return nil, nil
	}
	return s.store.WageTiersForOccupation(ctx, socCode)
}

// Reload drops the memoized lists so the next call recomputes them. Only
// needed if the store is reloaded under a live process; each pointer swap is
// atomic, so concurrent readers see either the old list or none.
func (s *Service) Reload() {
	s.fill.Lock()
	defer s.fill.Unlock()
	s.states.Store(nil)
	s.occs.Store(nil)
}
