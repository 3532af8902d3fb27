// Package evidence implements the Dempster-Shafer evidence engine used to
// recommend a product category from observations.
//
// Each observation with a rule becomes a mass function {L: c, Θ: 1-c}. The
// mass functions are combined pairwise with Dempster's rule, Θ is stripped
// from the result and the remaining mass is redistributed onto single
// category codes. The best code wins unless its score stays under the
// threshold.
//
//	eng := evidence.NewEngine(evidence.DefaultOptions())
//	res := eng.Resolve([]string{"G01", "G02"}, lookup, nil)
//	if res.Outcome == evidence.Chosen {
//	    items, _ := store.ItemsByCategory(ctx, res.Categories...)
//	}
package evidence
