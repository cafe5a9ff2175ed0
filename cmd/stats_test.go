package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/wagelevels/internal/store"
)

func TestFormatStats(t *testing.T) {
	var buf bytes.Buffer
	formatStats(&buf, &store.Stats{Locations: 3144, Occupations: 832, WageRecords: 530000},
		map[string]string{"data_version": "2025-Q1"})

	out := buf.String()
	assert.Contains(t, out, "geography")
	assert.Contains(t, out, "3144")
	assert.Contains(t, out, "530000")
	assert.Contains(t, out, "data version")
	assert.Contains(t, out, "2025-Q1")
	assert.NotContains(t, out, "last import", "empty metadata keys are omitted")
}
