package evidence

import (
	"remedy/internal/errors"
)

// RuleLookup returns the rule recorded for an observation code.
type RuleLookup func(observation string) (Rule, bool)

// Options tunes an Engine.
type Options struct {
	// Threshold is the minimum item score of the chosen category.
	Threshold float64
	// Epsilon is the tolerance for K == 1 and total_score == 0.
	Epsilon float64
	// CollapseSingle sends a lone observation through combination and
	// scoring. When false the whole label of its rule is recommended.
	CollapseSingle bool
}

func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, Epsilon: DefaultEpsilon}
}

// Result is the outcome of Engine.Resolve.
type Result struct {
	Outcome Outcome
	// Categories holds the recommended codes when Outcome is Chosen: one
	// code after scoring, or every code of the rule label on the single
	// observation path.
	Categories []string
	Reason     string
	// Decision is set whenever scoring ran.
	Decision *Decision
}

// Engine runs observations through mass construction, Dempster combination
// and the decision rule. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	opts     Options
	resolver Resolver
}

func NewEngine(opts Options) *Engine {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = DefaultEpsilon
	}
	return &Engine{
		opts:     opts,
		resolver: Resolver{Threshold: opts.Threshold, Epsilon: opts.Epsilon},
	}
}

func (e *Engine) Options() Options { return e.opts }

// Resolve recommends a category for the selected observations. Duplicate
// codes are considered once. trace may be nil.
func (e *Engine) Resolve(observations []string, lookup RuleLookup, trace *Trace) Result {
	observations = dedupe(observations)
	if len(observations) == 0 {
		return Result{Outcome: NoRecommendation, Reason: ReasonNoObservations}
	}

	if len(observations) == 1 && !e.opts.CollapseSingle {
		return e.resolveSingle(observations[0], lookup, trace)
	}

	var masses []Mass
	for _, code := range observations {
		rule, ok := lookup(code)
		if !ok {
			trace.observation(ObservationTrace{Code: code, NoRule: true})
			continue
		}
		m := FromRule(rule)
		trace.observation(ObservationTrace{
			Code:       code,
			Label:      rule.Label.String(),
			Confidence: rule.Confidence,
			Mass:       &m,
		})
		masses = append(masses, m)
	}
	if len(masses) == 0 {
		return Result{Outcome: NoRecommendation, Reason: ReasonNoRule}
	}

	final, err := aggregate(masses, e.opts.Epsilon, trace)
	if err != nil {
		if errors.Is(err, ErrTotalConflict) {
			return Result{Outcome: TotalConflict, Reason: ReasonConflict}
		}
		// combine fails only with ErrTotalConflict.
		panic(err)
	}

	d := e.resolver.Decide(final)
	trace.decision(d)
	res := Result{Outcome: d.Outcome, Reason: d.Reason, Decision: &d}
	if d.Outcome == Chosen {
		res.Categories = []string{d.Category}
	}
	return res
}

// resolveSingle recommends every category of the observation's rule label
// without combination or thresholds.
func (e *Engine) resolveSingle(code string, lookup RuleLookup, trace *Trace) Result {
	rule, ok := lookup(code)
	if !ok {
		trace.observation(ObservationTrace{Code: code, NoRule: true})
		return Result{Outcome: NoRecommendation, Reason: ReasonNoRule}
	}
	m := FromRule(rule)
	trace.observation(ObservationTrace{
		Code:       code,
		Label:      rule.Label.String(),
		Confidence: rule.Confidence,
		Mass:       &m,
	})
	trace.distributions(m, m.Without(Universal))

	if rule.Label.IsUniversal() {
		return Result{Outcome: NoRecommendation, Reason: ReasonNoRule}
	}
	return Result{Outcome: Chosen, Categories: rule.Label.Codes()}
}

func dedupe(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
