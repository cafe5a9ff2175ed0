package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/wagelevels/internal/model"
)

// geographyRow mirrors the Geography.csv header.
type geographyRow struct {
	Area           string `csv:"Area"`
	AreaName       string `csv:"AreaName"`
	State          string `csv:"State"`
	StateAb        string `csv:"StateAb"`
	CountyTownName string `csv:"CountyTownName"`
}

// occupationRow mirrors the oes_soc_occs.csv header.
type occupationRow struct {
	SocCode     string `csv:"soccode"`
	Title       string `csv:"Title"`
	Description string `csv:"Description"`
}

// parseGeography reads Geography.csv. The state name is composed with its
// abbreviation ("California (CA)") so dropdown labels are unambiguous for
// territories sharing names with states.
func parseGeography(ctx context.Context, path string) ([]model.Location, error) {
	r, closeFn, err := openDecoded(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open geography csv")
	}
	defer closeFn()

	dec, err := csvutil.NewDecoder(newCSVReader(r))
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read geography header")
	}

	var out []model.Location
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var row geographyRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "ingest: decode geography row")
		}

		area := strings.TrimSpace(row.Area)
		county := strings.TrimSpace(row.CountyTownName)
		if area == "" || county == "" {
			continue
		}

		out = append(out, model.Location{
			AreaCode: area,
			State:    fmt.Sprintf("%s (%s)", strings.TrimSpace(row.State), strings.TrimSpace(row.StateAb)),
			County:   county,
		})
	}
	return out, nil
}

// parseOccupations reads oes_soc_occs.csv.
func parseOccupations(ctx context.Context, path string) ([]model.Occupation, error) {
	r, closeFn, err := openDecoded(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open occupations csv")
	}
	defer closeFn()

	dec, err := csvutil.NewDecoder(newCSVReader(r))
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read occupations header")
	}

	var out []model.Occupation
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var row occupationRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "ingest: decode occupation row")
		}

		code := strings.TrimSpace(row.SocCode)
		title := strings.TrimSpace(row.Title)
		if code == "" || title == "" {
			continue
		}

		out = append(out, model.Occupation{
			SOCCode:     code,
			JobTitle:    title,
			Description: strings.TrimSpace(row.Description),
		})
	}
	return out, nil
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr
}
