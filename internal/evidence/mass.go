package evidence

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/goccy/go-json"

	"remedy/internal/errors"
)

// Focal is one entry of a mass function.
type Focal struct {
	Label Label
	Mass  float64
}

// Mass is a basic belief assignment over focal sets. Values are immutable:
// every operation returns a fresh Mass. The zero value is the empty
// assignment, which stands for "no evidence".
type Mass struct {
	focal map[string]Focal
}

// Rule maps one observation to a category label with a confidence in [0,1].
type Rule struct {
	Observation string
	Label       Label
	Confidence  float64
}

// NewMass builds a mass function from canonical or non-canonical label keys.
// Keys that canonicalise to the same set are summed.
func NewMass(weights map[string]float64) (Mass, error) {
	var b massBuilder
	for key, w := range weights {
		l, err := ParseLabel(key)
		if err != nil {
			return Mass{}, err
		}
		if w < 0 || math.IsNaN(w) {
			return Mass{}, errors.Newf("negative mass %v for label %q", w, key)
		}
		b.add(l, w)
	}
	return b.build(), nil
}

// MustMass is NewMass for literals.
func MustMass(weights map[string]float64) Mass {
	m, err := NewMass(weights)
	if err != nil {
		panic(err)
	}
	return m
}

// FromRule returns {L: c, Θ: 1-c}, or {L: 1} when the rule is certain.
// Rules are validated where they are authored; an out-of-range confidence or
// an invalid label here is a programming error.
func FromRule(r Rule) Mass {
	mustValidRule(r)

	var b massBuilder
	if r.Confidence >= 1 {
		b.add(r.Label, 1)
		return b.build()
	}
	b.add(r.Label, r.Confidence)
	b.add(Universal, 1-r.Confidence)
	return b.build()
}

// FromRules folds several rules recorded for the same observation into one
// mass function: their categories form a single compound label and the first
// rule's confidence is used. ok is false when there are no rules.
func FromRules(rules []Rule) (m Mass, ok bool) {
	if len(rules) == 0 {
		return Mass{}, false
	}
	label := rules[0].Label
	for _, r := range rules[1:] {
		mustValidRule(r)
		label = label.Union(r.Label)
	}
	return FromRule(Rule{
		Observation: rules[0].Observation,
		Label:       label,
		Confidence:  rules[0].Confidence,
	}), true
}

func mustValidRule(r Rule) {
	if !r.Label.Valid() {
		panic(fmt.Sprintf("evidence: rule for %q has an empty category label", r.Observation))
	}
	if r.Confidence < 0 || r.Confidence > 1 || math.IsNaN(r.Confidence) {
		panic(fmt.Sprintf("evidence: rule for %q has confidence %v outside [0,1]", r.Observation, r.Confidence))
	}
}

func (m Mass) Len() int { return len(m.focal) }

func (m Mass) IsEmpty() bool { return len(m.focal) == 0 }

// Get returns the mass assigned to l, zero when l is not focal.
func (m Mass) Get(l Label) float64 {
	return m.focal[l.String()].Mass
}

func (m Mass) Has(l Label) bool {
	_, ok := m.focal[l.String()]
	return ok
}

// Focals lists the entries ordered by canonical key.
func (m Mass) Focals() []Focal {
	out := make([]Focal, 0, len(m.focal))
	for _, f := range m.focal {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b Focal) int {
		return strings.Compare(a.Label.String(), b.Label.String())
	})
	return out
}

// Sum is the total mass.
func (m Mass) Sum() float64 {
	var s float64
	for _, f := range m.Focals() {
		s += f.Mass
	}
	return s
}

// Without returns a copy of m with l removed. The remaining masses are not
// renormalised.
func (m Mass) Without(l Label) Mass {
	if !m.Has(l) {
		return m
	}
	key := l.String()
	out := make(map[string]Focal, len(m.focal)-1)
	for k, f := range m.focal {
		if k != key {
			out[k] = f
		}
	}
	return Mass{focal: out}
}

// Map returns the assignment keyed by canonical label.
func (m Mass) Map() map[string]float64 {
	out := make(map[string]float64, len(m.focal))
	for k, f := range m.focal {
		out[k] = f.Mass
	}
	return out
}

func (m Mass) String() string {
	parts := make([]string, 0, len(m.focal))
	for _, f := range m.Focals() {
		parts = append(parts, fmt.Sprintf("%s:%.4f", f.Label, f.Mass))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func (m Mass) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Map())
}

func (m *Mass) UnmarshalJSON(data []byte) error {
	var weights map[string]float64
	if err := json.Unmarshal(data, &weights); err != nil {
		return err
	}
	decoded, err := NewMass(weights)
	if err != nil {
		return err
	}
	*m = decoded
	return nil
}

type massBuilder struct {
	focal map[string]Focal
}

func (b *massBuilder) add(l Label, w float64) {
	if b.focal == nil {
		b.focal = make(map[string]Focal)
	}
	key := l.String()
	f := b.focal[key]
	f.Label = l
	f.Mass += w
	b.focal[key] = f
}

func (b *massBuilder) scale(factor float64) {
	for k, f := range b.focal {
		f.Mass *= factor
		b.focal[k] = f
	}
}

func (b *massBuilder) build() Mass {
	m := Mass{focal: b.focal}
	b.focal = nil
	return m
}
