package recommend

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"remedy/internal/catalog"
	"remedy/internal/errors"
	"remedy/internal/evidence"
	"remedy/internal/storage"
)

// User-facing messages for outcomes that carry no items.
const (
	MessageNoSelection  = "No observations were selected."
	MessageNoRule       = "No recommendation for the selected observations."
	MessageConflict     = "The selected observations contradict each other."
	MessageWeakEvidence = "Observations are too generic or unrelated to recommend a category."
	MessageNoItems      = "No products are listed for the recommended category."
)

// Recommendation is what the calling layer renders.
type Recommendation struct {
	ID           string                `json:"id"`
	Outcome      evidence.Outcome      `json:"outcome"`
	Observations []catalog.Observation `json:"observations"`
	Categories   []string              `json:"categories,omitempty"`
	Items        []catalog.Item        `json:"items"`
	Message      string                `json:"message,omitempty"`
	Reason       string                `json:"reason,omitempty"`
	Trace        *evidence.Trace       `json:"trace,omitempty"`
}

// Service answers recommendation requests from a rule and catalog store.
type Service struct {
	store  storage.Store
	engine *evidence.Engine
	logger *zap.SugaredLogger
}

func NewService(store storage.Store, engine *evidence.Engine, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{store: store, engine: engine, logger: logger}
}

// Recommend resolves the selected observations and expands the chosen
// categories into catalog items. Decision outcomes are reported in the
// Recommendation; an error means storage failed.
func (s *Service) Recommend(ctx context.Context, observations []string, withTrace bool) (*Recommendation, error) {
	start := time.Now()
	codes := selection(observations)

	rec := &Recommendation{ID: uuid.NewString(), Items: []catalog.Item{}}

	lookup, missing, err := s.snapshot(ctx, codes)
	if err != nil {
		return nil, err
	}

	rec.Observations, err = s.store.ObservationsByCode(ctx, codes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load observation names")
	}

	var trace *evidence.Trace
	if withTrace {
		trace = &evidence.Trace{}
		rec.Trace = trace
	}

	res := s.engine.Resolve(codes, lookup, trace)
	rec.Outcome = res.Outcome
	rec.Reason = res.Reason
	rec.Categories = res.Categories

	switch res.Outcome {
	case evidence.Chosen:
		items, err := s.store.ItemsByCategory(ctx, res.Categories...)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load items")
		}
		if len(items) > 0 {
			rec.Items = items
		} else {
			rec.Message = MessageNoItems
		}
	case evidence.NoRecommendation:
		if len(codes) == 0 {
			rec.Message = MessageNoSelection
		} else {
			rec.Message = MessageNoRule
		}
	case evidence.TotalConflict:
		rec.Message = MessageConflict
	case evidence.WeakEvidence:
		rec.Message = MessageWeakEvidence
	}

	RecordResolution(res.Outcome, len(codes), missing, time.Since(start))
	s.logger.Infow("Recommendation resolved",
		"id", rec.ID,
		"observations", codes,
		"outcome", res.Outcome.String(),
		"categories", res.Categories,
		"items", len(rec.Items),
		"no_rule", missing)
	if res.Decision != nil {
		s.logger.Debugw("Item scores",
			"id", rec.ID,
			"total", res.Decision.Total,
			"max", res.Decision.Max.Code,
			"max_score", res.Decision.Max.Value)
	}

	return rec, nil
}

// snapshot loads the rules of the selected observations once, so the engine
// works on a stable copy for the whole call.
func (s *Service) snapshot(ctx context.Context, codes []string) (evidence.RuleLookup, int, error) {
	stored, err := s.store.RulesFor(ctx, codes)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to load rules")
	}

	rules := make(map[string]evidence.Rule, len(stored))
	for code, r := range stored {
		er, err := r.Evidence()
		if err != nil {
			// Stored rules passed validation on the way in.
			s.logger.Warnw("Skipping malformed rule", "id", r.ID, "observation", code, "error", err)
			continue
		}
		rules[code] = er
	}

	missing := 0
	for _, c := range codes {
		if _, ok := rules[c]; !ok {
			missing++
		}
	}

	return func(code string) (evidence.Rule, bool) {
		r, ok := rules[code]
		return r, ok
	}, missing, nil
}

// selection canonicalises the selected codes, dropping blanks and repeats
// but keeping the order in which they were selected.
func selection(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		c := catalog.CanonicalCode(r)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
