package evidence

import (
	"slices"
	"strings"

	"remedy/internal/errors"
)

// ThetaKey is the canonical key of the universal set.
const ThetaKey = "Θ"

// Separator joins category codes in a canonical label key.
const Separator = ","

// Label is a focal set: either the universal set Θ or a non-empty set of
// category codes kept sorted and de-duplicated. The zero value is invalid.
type Label struct {
	universal bool
	codes     []string
}

// Universal is the "don't know" hypothesis covering every category.
var Universal = Label{universal: true}

// NewLabel builds a concrete label from category codes. Blank codes are
// dropped; it panics when nothing remains because the empty set is never a
// valid focal set.
func NewLabel(codes ...string) Label {
	l, ok := labelOf(codes)
	if !ok {
		panic("evidence: empty category label")
	}
	return l
}

func labelOf(codes []string) (Label, bool) {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return Label{}, false
	}
	slices.Sort(out)
	return Label{codes: slices.Compact(out)}, true
}

// ParseLabel reads a label key such as "O03,O07" or "Θ". Codes may arrive in
// any order; the result is canonical.
func ParseLabel(s string) (Label, error) {
	s = strings.TrimSpace(s)
	if s == ThetaKey {
		return Universal, nil
	}
	l, ok := labelOf(strings.Split(s, Separator))
	if !ok {
		return Label{}, errors.Newf("invalid category label %q: no category codes", s)
	}
	return l, nil
}

// MustParseLabel is ParseLabel for literals known to be valid.
func MustParseLabel(s string) Label {
	l, err := ParseLabel(s)
	if err != nil {
		panic(err)
	}
	return l
}

func (l Label) IsUniversal() bool { return l.universal }

// Valid reports whether l is Θ or holds at least one code.
func (l Label) Valid() bool { return l.universal || len(l.codes) > 0 }

// Codes returns the sorted category codes. Θ has none.
func (l Label) Codes() []string {
	return slices.Clone(l.codes)
}

func (l Label) Contains(code string) bool {
	if l.universal {
		return true
	}
	_, found := slices.BinarySearch(l.codes, code)
	return found
}

// String returns the canonical key.
func (l Label) String() string {
	if l.universal {
		return ThetaKey
	}
	return strings.Join(l.codes, Separator)
}

func (l Label) Equal(o Label) bool {
	return l.universal == o.universal && slices.Equal(l.codes, o.codes)
}

// Intersect returns l ∩ o with Θ acting as the universal set. ok is false
// when the intersection is empty.
func (l Label) Intersect(o Label) (Label, bool) {
	switch {
	case l.universal && o.universal:
		return Universal, true
	case l.universal:
		return o, true
	case o.universal:
		return l, true
	}

	var common []string
	i, j := 0, 0
	for i < len(l.codes) && j < len(o.codes) {
		switch strings.Compare(l.codes[i], o.codes[j]) {
		case 0:
			common = append(common, l.codes[i])
			i++
			j++
		case -1:
			i++
		default:
			j++
		}
	}
	if len(common) == 0 {
		return Label{}, false
	}
	return Label{codes: common}, true
}

// Union merges the codes of two concrete labels. Θ absorbs everything.
func (l Label) Union(o Label) Label {
	if l.universal || o.universal {
		return Universal
	}
	merged, _ := labelOf(append(slices.Clone(l.codes), o.codes...))
	return merged
}
