package ingest

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
)

// openDecoded opens a source file, transparently re-decoding Latin-1 content.
// DOL exports ship county names like "Doña Ana County" in ISO 8859-1, which
// would otherwise land in the store as invalid UTF-8.
func openDecoded(path string) (io.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = f.Close() }

	data, err := io.ReadAll(f)
	if err != nil {
		closeFn()
		return nil, nil, eris.Wrapf(err, "ingest: read %s", path)
	}

	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			closeFn()
			return nil, nil, eris.Wrapf(err, "ingest: decode latin-1 %s", path)
		}
		data = decoded
	}

	return bytes.NewReader(data), closeFn, nil
}

// mapColumns builds a lowercase header name -> index map.
func mapColumns(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return idx
}

// getCol returns the named column from a record, or "" when absent.
func getCol(record []string, colIdx map[string]int, name string) string {
	i, ok := colIdx[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

// trimQuotes removes surrounding double quotes from a CSV field.
func trimQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

// parseFloat parses a wage figure, tolerating thousands separators and
// suppression flags ("*", "#") in the source data.
func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || s == "*" || s == "**" || s == "#" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
