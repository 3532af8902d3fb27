package evidence

import (
	"math"
)

// DefaultThreshold is the minimum item score a category needs to be chosen.
const DefaultThreshold = 0.5

// Outcome is the terminal state of a resolution.
type Outcome int

const (
	NoRecommendation Outcome = iota
	Chosen
	WeakEvidence
	TotalConflict
)

var outcomeNames = map[Outcome]string{
	NoRecommendation: "no_recommendation",
	Chosen:           "chosen",
	WeakEvidence:     "weak_evidence",
	TotalConflict:    "total_conflict",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return "unknown"
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Reasons attached to non-chosen outcomes.
const (
	ReasonNoObservations = "no observations selected"
	ReasonNoRule         = "no matching rule(s)"
	ReasonWeakEvidence   = "symptoms too generic/unrelated"
	ReasonConflict       = "contradictory evidence"
)

// Score is the accumulated mass of one category code.
type Score struct {
	Code  string  `json:"code"`
	Value float64 `json:"value"`
}

// Decision is the outcome of scoring one aggregated distribution.
type Decision struct {
	Outcome  Outcome
	Category string
	Reason   string
	Scores   []Score
	Total    float64
	Max      Score
}

// Resolver collapses a distribution over compound labels into one category.
type Resolver struct {
	Threshold float64
	Epsilon   float64
}

func NewResolver(threshold float64) Resolver {
	return Resolver{Threshold: threshold, Epsilon: DefaultEpsilon}
}

// Scores credits every code of every label with that label's mass. A code
// appearing in several labels collects from all of them. Scores are returned
// in first-encountered order: labels by canonical key, codes within a label
// sorted.
func Scores(m Mass) []Score {
	var out []Score
	index := make(map[string]int)
	for _, f := range m.Focals() {
		if f.Label.IsUniversal() {
			continue
		}
		for _, code := range f.Label.codes {
			i, ok := index[code]
			if !ok {
				i = len(out)
				index[code] = i
				out = append(out, Score{Code: code})
			}
			out[i].Value += f.Mass
		}
	}
	return out
}

// Decide picks the highest scoring category of m. Ties go to the code met
// first in Scores order.
func (r Resolver) Decide(m Mass) Decision {
	m = m.Without(Universal)
	if m.IsEmpty() {
		return Decision{Outcome: NoRecommendation, Reason: ReasonNoRule}
	}

	scores := Scores(m)
	d := Decision{Scores: scores}
	for i, s := range scores {
		d.Total += s.Value
		if i == 0 || s.Value > d.Max.Value {
			d.Max = s
		}
	}

	if math.Abs(d.Total) <= r.Epsilon || d.Max.Value+r.Epsilon < r.Threshold {
		d.Outcome = WeakEvidence
		d.Reason = ReasonWeakEvidence
		return d
	}

	d.Outcome = Chosen
	d.Category = d.Max.Code
	return d
}
