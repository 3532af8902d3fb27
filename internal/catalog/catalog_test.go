package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remedy/internal/errors"
)

func TestLoad_SampleCatalog(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "catalog.yaml"))
	require.NoError(t, err)

	assert.Len(t, c.Observations, 3)
	assert.Equal(t, "G02", c.Observations[1].Code)
	assert.Len(t, c.Items, 2)
	require.Len(t, c.Rules, 3)

	assert.Equal(t, []string{"O01", "O02"}, c.Rules[1].Categories)
	assert.Equal(t, []string{"O02", "O03"}, c.Rules[2].Categories)
}

func TestCanonicalCode(t *testing.T) {
	assert.Equal(t, "G01", CanonicalCode(" g01 "))
	assert.Equal(t, "G01", CanonicalCode("ｇ０１"))
	assert.Equal(t, "", CanonicalCode("   "))
}

func TestCanonicalCodes(t *testing.T) {
	assert.Equal(t, []string{"O01", "O07"}, CanonicalCodes([]string{"o07", " O01", "O07", ""}))
	assert.Nil(t, CanonicalCodes([]string{" ", ""}))
	assert.Nil(t, CanonicalCodes(nil))
}

func TestRule_Evidence(t *testing.T) {
	r := Rule{Observation: "G02", Categories: []string{"O02", "O01"}, Confidence: 0.8}
	er, err := r.Evidence()
	require.NoError(t, err)
	assert.Equal(t, "O01,O02", er.Label.String())
	assert.Equal(t, 0.8, er.Confidence)

	_, err = Rule{Observation: "G02"}.Evidence()
	assert.Error(t, err)
}

func TestParse_RejectsConfidenceOutOfRange(t *testing.T) {
	_, err := Parse([]byte(`
observations: [{code: G01, name: Fever}]
categories: [{code: O01, name: Analgesic}]
rules:
  - observation: G01
    categories: [O01]
    confidence: 1.4
`))
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestParse_RejectsEmptyCategories(t *testing.T) {
	_, err := Parse([]byte(`
observations: [{code: G01, name: Fever}]
categories: [{code: O01, name: Analgesic}]
rules:
  - observation: G01
    categories: ["  "]
    confidence: 0.4
`))
	assert.Error(t, err)
}

func TestParse_RejectsUnknownReferences(t *testing.T) {
	_, err := Parse([]byte(`
observations: [{code: G01, name: Fever}]
categories: [{code: O01, name: Analgesic}]
rules:
  - observation: G01
    categories: [O09]
    confidence: 0.4
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category O09")

	_, err = Parse([]byte(`
categories: [{code: O01, name: Analgesic}]
items: [{code: B01, name: Pill, category: O02}]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category O02")
}

func TestParse_RejectsDuplicates(t *testing.T) {
	_, err := Parse([]byte(`
observations: [{code: G01, name: Fever}, {code: g01, name: Fever again}]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate observation G01")
}

func TestValidateRule_SkipsNilReferenceSets(t *testing.T) {
	r := Rule{Observation: "G05", Categories: []string{"O05"}, Confidence: 1}
	assert.NoError(t, ValidateRule(r, nil, nil))
	assert.Error(t, ValidateRule(r, map[string]bool{"G01": true}, nil))
}
