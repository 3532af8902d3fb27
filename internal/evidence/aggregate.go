package evidence

// Fold combines the mass functions left to right, starting from the first.
// Zero inputs give the empty mass; a single input is returned as is, without
// normalisation. The first total conflict stops the fold.
func Fold(masses []Mass, trace *Trace) (Mass, error) {
	return fold(masses, DefaultEpsilon, trace)
}

func fold(masses []Mass, eps float64, trace *Trace) (Mass, error) {
	if len(masses) == 0 {
		return Mass{}, nil
	}
	result := masses[0]
	for _, next := range masses[1:] {
		combined, k, err := combine(result, next, eps)
		step := CombineStep{Left: result, Right: next, Conflict: k}
		if err != nil {
			trace.step(step)
			return Mass{}, err
		}
		step.Result = &combined
		trace.step(step)
		result = combined
	}
	return result, nil
}

// Aggregate folds the per-observation mass functions and strips Θ from the
// outcome. The remaining masses are left as they are; uncommitted belief is
// simply not available to any category.
func Aggregate(masses []Mass, trace *Trace) (Mass, error) {
	return aggregate(masses, DefaultEpsilon, trace)
}

func aggregate(masses []Mass, eps float64, trace *Trace) (Mass, error) {
	raw, err := fold(masses, eps, trace)
	if err != nil {
		return Mass{}, err
	}
	final := raw.Without(Universal)
	trace.distributions(raw, final)
	return final, nil
}
