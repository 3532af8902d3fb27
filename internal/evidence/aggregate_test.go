package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFold_Empty(t *testing.T) {
	got, err := Fold(nil, nil)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestFold_SingleIsUnchanged(t *testing.T) {
	// Deliberately not summing to one: a normalisation would show.
	m := MustMass(map[string]float64{"O01,O02": 0.4, ThetaKey: 0.4})
	trace := &Trace{}

	got, err := Fold([]Mass{m}, trace)
	require.NoError(t, err)
	assert.Equal(t, m.Map(), got.Map())
	assert.Empty(t, trace.Steps)
}

func TestAggregate_StripsUniversal(t *testing.T) {
	m := MustMass(map[string]float64{"O01": 0.7, ThetaKey: 0.3})

	got, err := Aggregate([]Mass{m}, nil)
	require.NoError(t, err)
	assertMass(t, map[string]float64{"O01": 0.7}, got)
}

func TestAggregate_FoldsInInputOrder(t *testing.T) {
	a, b, c := sampleMasses()
	trace := &Trace{}

	got, err := Aggregate([]Mass{a, b, c}, trace)
	require.NoError(t, err)

	ab, _, err := Combine(a, b)
	require.NoError(t, err)
	abc, _, err := Combine(ab, c)
	require.NoError(t, err)

	assertMass(t, abc.Without(Universal).Map(), got)
	require.Len(t, trace.Steps, 2)
	require.NotNil(t, trace.Raw)
	assertMass(t, abc.Map(), *trace.Raw)
}

func TestAggregate_TotalConflictHalts(t *testing.T) {
	trace := &Trace{}
	_, err := Aggregate([]Mass{
		MustMass(map[string]float64{"O01": 1}),
		MustMass(map[string]float64{"O02": 1}),
		MustMass(map[string]float64{"O02": 0.5, ThetaKey: 0.5}),
	}, trace)

	assert.ErrorIs(t, err, ErrTotalConflict)
	require.Len(t, trace.Steps, 1, "fold must stop at the first conflict")
	assert.Nil(t, trace.Steps[0].Result)
	assert.Nil(t, trace.Final)
}
