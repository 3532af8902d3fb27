package evidence

// Trace records the intermediate values of one resolution for diagnostics.
// A nil *Trace is valid and records nothing.
type Trace struct {
	Observations []ObservationTrace `json:"observations"`
	Steps        []CombineStep      `json:"steps,omitempty"`
	Raw          *Mass              `json:"raw,omitempty"`
	Final        *Mass              `json:"final,omitempty"`
	Scores       []Score            `json:"scores,omitempty"`
	Total        float64            `json:"total_score"`
	Max          *Score             `json:"max_score,omitempty"`
}

// ObservationTrace is the evidence contributed by one selected observation.
type ObservationTrace struct {
	Code       string  `json:"code"`
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Mass       *Mass   `json:"mass,omitempty"`
	NoRule     bool    `json:"no_rule,omitempty"`
}

// CombineStep is one pairwise combination of the sequential fold.
type CombineStep struct {
	Left     Mass    `json:"left"`
	Right    Mass    `json:"right"`
	Conflict float64 `json:"conflict"`
	Result   *Mass   `json:"result,omitempty"`
}

func (t *Trace) observation(o ObservationTrace) {
	if t != nil {
		t.Observations = append(t.Observations, o)
	}
}

func (t *Trace) step(s CombineStep) {
	if t != nil {
		t.Steps = append(t.Steps, s)
	}
}

func (t *Trace) distributions(raw, final Mass) {
	if t != nil {
		t.Raw = &raw
		t.Final = &final
	}
}

func (t *Trace) decision(d Decision) {
	if t == nil || len(d.Scores) == 0 {
		return
	}
	t.Scores = d.Scores
	t.Total = d.Total
	best := d.Max
	t.Max = &best
}
