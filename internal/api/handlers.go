package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/wagelevels/internal/model"
	"github.com/sells-group/wagelevels/internal/wage"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	states, err := s.svc.States(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"states": emptyIfNil(states)})
}

func (s *Server) handleCounties(w http.ResponseWriter, r *http.Request) {
	state := chi.URLParam(r, "state")
	counties, err := s.svc.Counties(r.Context(), state)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":    state,
		"counties": emptyIfNil(counties),
	})
}

func (s *Server) handleOccupations(w http.ResponseWriter, r *http.Request) {
	occs, err := s.svc.Occupations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"occupations": emptyIfNil(occs)})
}

func (s *Server) handleSearchOccupations(w http.ResponseWriter, r *http.Request) {
	results, err := s.svc.SearchOccupations(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"occupations": emptyIfNil(results)})
}

func (s *Server) handleOccupation(w http.ResponseWriter, r *http.Request) {
	occ, err := s.svc.Occupation(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if occ == nil {
		writeError(w, http.StatusNotFound, "no such occupation")
		return
	}
	writeJSON(w, http.StatusOK, occ)
}

// wageLevelRow is one row of the wage details table: a tier, its hourly
// equivalent, and how the candidate salary compares to it.
type wageLevelRow struct {
	Level  string  `json:"level"`
	Annual float64 `json:"annual"`
	Hourly float64 `json:"hourly"`
	Ratio  float64 `json:"ratio,omitempty"`
	Status string  `json:"status,omitempty"`
}

func (s *Server) handleWages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := q.Get("state")
	county := q.Get("county")
	soc := q.Get("soc")

	if state == "" || county == "" || soc == "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"found":   false,
			"message": "Select state, county, and occupation to view wage levels.",
		})
		return
	}

	summary := fmt.Sprintf("%s / %s | SOC %s", state, county, soc)
	occ, err := s.svc.Occupation(r.Context(), soc)
	switch {
	case err != nil:
		zap.L().Warn("occupation lookup for wage summary failed",
			zap.String("soc_code", soc), zap.Error(err))
	case occ != nil:
		summary = fmt.Sprintf("%s / %s | %s (%s)", state, county, occ.JobTitle, occ.SOCCode)
	}

	tiers, err := s.svc.Tiers(r.Context(), state, county, soc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if tiers == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"found":   false,
			"summary": summary,
			"message": "No wage records found for this state, county, and occupation combination.",
		})
		return
	}

	salary := parseSalary(q.Get("salary"))
	levels := make([]wageLevelRow, 0, 4)
	for _, lv := range []struct {
		name   string
		annual float64
	}{
		{"L1", tiers.L1}, {"L2", tiers.L2}, {"L3", tiers.L3}, {"L4", tiers.L4},
	} {
		row := wageLevelRow{
			Level:  lv.name,
			Annual: lv.annual,
			Hourly: lv.annual / model.WorkYearHours,
		}
		if salary.Applicable() && lv.annual > 0 {
			row.Ratio = salary.Amount / lv.annual * 100
			switch {
			case row.Ratio >= 100:
				row.Status = "meets"
			case row.Ratio >= 95:
				row.Status = "near"
			default:
				row.Status = "below"
			}
		}
		levels = append(levels, row)
	}

	resp := map[string]any{
		"found":   true,
		"summary": summary,
		"tiers":   tiers,
		"levels":  levels,
	}
	if !tiers.Ordered() {
		resp["flagged"] = "wage tiers out of order"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWageMap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	soc := q.Get("soc")
	if soc == "" {
		writeError(w, http.StatusBadRequest, "soc is required")
		return
	}

	salary := parseSalary(q.Get("salary"))
	if !salary.Applicable() {
		// Not the same as Below L1: no comparison was performed.
		writeJSON(w, http.StatusOK, map[string]any{"applicable": false})
		return
	}

	tiers, err := s.svc.TiersByCounty(r.Context(), soc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	buckets, _ := wage.ClassifyAll(salary, tiers)
	writeJSON(w, http.StatusOK, map[string]any{
		"applicable": true,
		"soc":        soc,
		"counties":   len(tiers),
		"buckets":    buckets,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stats failed")
		return
	}

	resp := map[string]any{"tables": stats}
	for _, key := range []string{"last_import", "data_version"} {
		if v, err := s.store.GetMetadata(r.Context(), key); err == nil && v != "" {
			resp[key] = v
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseSalary reads an optional salary query parameter. Absent and
// malformed values both mean "not provided".
func parseSalary(raw string) model.Salary {
	if raw == "" {
		return model.Salary{}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return model.Salary{}
	}
	return model.SalaryOf(v)
}

// emptyIfNil keeps JSON arrays as [] instead of null for empty results.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
