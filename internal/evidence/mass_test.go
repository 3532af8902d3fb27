package evidence

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func assertMass(t *testing.T, want map[string]float64, got Mass) {
	t.Helper()
	if diff := cmp.Diff(want, got.Map(), approx); diff != "" {
		t.Fatalf("mass mismatch (-want +got):\n%s", diff)
	}
}

func TestFromRule(t *testing.T) {
	m := FromRule(Rule{Observation: "G01", Label: MustParseLabel("O02,O01"), Confidence: 0.8})
	assertMass(t, map[string]float64{"O01,O02": 0.8, ThetaKey: 0.2}, m)

	certain := FromRule(Rule{Observation: "G02", Label: MustParseLabel("O03"), Confidence: 1})
	assertMass(t, map[string]float64{"O03": 1}, certain)
	assert.False(t, certain.Has(Universal))
}

func TestFromRule_ZeroConfidence(t *testing.T) {
	m := FromRule(Rule{Observation: "G01", Label: MustParseLabel("O01"), Confidence: 0})
	assertMass(t, map[string]float64{"O01": 0, ThetaKey: 1}, m)
}

func TestFromRule_PanicsOnInvalidRule(t *testing.T) {
	assert.Panics(t, func() {
		FromRule(Rule{Observation: "G01", Label: MustParseLabel("O01"), Confidence: 1.2})
	})
	assert.Panics(t, func() {
		FromRule(Rule{Observation: "G01", Label: MustParseLabel("O01"), Confidence: -0.1})
	})
	assert.Panics(t, func() {
		FromRule(Rule{Observation: "G01", Confidence: 0.5})
	})
}

func TestFromRules_GroupsCategories(t *testing.T) {
	m, ok := FromRules([]Rule{
		{Observation: "G04", Label: MustParseLabel("O01"), Confidence: 0.7},
		{Observation: "G04", Label: MustParseLabel("O03,O02"), Confidence: 0.4},
	})
	require.True(t, ok)
	assertMass(t, map[string]float64{"O01,O02,O03": 0.7, ThetaKey: 0.3}, m)

	_, ok = FromRules(nil)
	assert.False(t, ok)
}

func TestMass_WithoutDoesNotRenormalise(t *testing.T) {
	m := MustMass(map[string]float64{"O01": 0.6, ThetaKey: 0.4})
	stripped := m.Without(Universal)

	assertMass(t, map[string]float64{"O01": 0.6}, stripped)
	assert.True(t, m.Has(Universal), "receiver must be left untouched")
}

func TestNewMass_MergesEquivalentKeys(t *testing.T) {
	m, err := NewMass(map[string]float64{"O02,O01": 0.25, "O01,O02": 0.25, ThetaKey: 0.5})
	require.NoError(t, err)
	assertMass(t, map[string]float64{"O01,O02": 0.5, ThetaKey: 0.5}, m)

	_, err = NewMass(map[string]float64{"O01": -0.1})
	assert.Error(t, err)
}

func TestMass_JSON(t *testing.T) {
	m := MustMass(map[string]float64{"O01,O02": 0.75, ThetaKey: 0.25})
	data, err := json.Marshal(m)
	require.NoError(t, err)

	var back Mass
	require.NoError(t, json.Unmarshal(data, &back))
	assertMass(t, m.Map(), back)
}
