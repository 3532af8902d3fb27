package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabel_Canonical(t *testing.T) {
	for _, in := range []string{"O03,O07", "O07,O03", " O07 , O03,O07"} {
		l, err := ParseLabel(in)
		require.NoError(t, err)
		assert.Equal(t, "O03,O07", l.String(), "input %q", in)
	}
}

func TestParseLabel_RoundTrip(t *testing.T) {
	for _, key := range []string{"O01", "O01,O02", "O03,O07,O28", ThetaKey} {
		l, err := ParseLabel(key)
		require.NoError(t, err)
		assert.Equal(t, key, l.String())
	}
}

func TestParseLabel_RejectsEmpty(t *testing.T) {
	for _, in := range []string{"", ",", " , "} {
		_, err := ParseLabel(in)
		assert.Error(t, err, "input %q", in)
	}
	assert.Panics(t, func() { NewLabel() })
	assert.False(t, Label{}.Valid())
}

func TestLabel_Intersect(t *testing.T) {
	a := MustParseLabel("O01,O02,O05")
	b := MustParseLabel("O02,O05,O09")

	got, ok := a.Intersect(b)
	require.True(t, ok)
	assert.Equal(t, "O02,O05", got.String())

	_, ok = MustParseLabel("O01").Intersect(MustParseLabel("O02"))
	assert.False(t, ok)
}

func TestLabel_IntersectUniversal(t *testing.T) {
	a := MustParseLabel("O01,O02")

	got, ok := Universal.Intersect(a)
	require.True(t, ok)
	assert.True(t, got.Equal(a))

	got, ok = a.Intersect(Universal)
	require.True(t, ok)
	assert.True(t, got.Equal(a))

	got, ok = Universal.Intersect(Universal)
	require.True(t, ok)
	assert.True(t, got.IsUniversal())
}

func TestLabel_UnionAndContains(t *testing.T) {
	u := MustParseLabel("O03").Union(MustParseLabel("O01,O03"))
	assert.Equal(t, "O01,O03", u.String())
	assert.True(t, u.Contains("O01"))
	assert.False(t, u.Contains("O02"))
	assert.True(t, u.Union(Universal).IsUniversal())
	assert.True(t, Universal.Contains("anything"))
}
