// Package recurrence scores how likely a transaction pattern is part of a
// recurring payment series. Scoring is pure: same inputs, same score, no I/O.
package recurrence

import (
	"math"
	"strings"

	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/domain"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/stats"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/txdate"
)

// Cycle is one canonical billing cadence candidate. Matching is against this
// fixed set only, never against arbitrary multiples of a base interval.
type Cycle struct {
	Name          string
	Days          int
	ToleranceDays int
}

// DefaultCycles are the billing cadences observed in real subscription data.
func DefaultCycles() []Cycle {
	return []Cycle{
		{Name: "weekly", Days: 7, ToleranceDays: 2},
		{Name: "biweekly", Days: 14, ToleranceDays: 3},
		{Name: "monthly", Days: 30, ToleranceDays: 5},
		{Name: "quarterly", Days: 90, ToleranceDays: 7},
		{Name: "semiannual", Days: 180, ToleranceDays: 10},
		{Name: "annual", Days: 365, ToleranceDays: 15},
	}
}

// Weights controls how the confidence blend combines its components.
type Weights struct {
	CycleCloseness    float64 // closeness of the mean interval to the matched cycle
	IntervalStability float64 // inverse of the interval coefficient of variation
	AmountStability   float64 // inverse of the amount coefficient of variation
}

// DefaultWeights favors cadence over amount stability, matching what the
// labeled data rewards.
func DefaultWeights() Weights {
	return Weights{CycleCloseness: 0.4, IntervalStability: 0.35, AmountStability: 0.25}
}

// Scorer computes recurrence confidence scores. Construct once and share; it
// is safe for concurrent use (the date parser cache is thread-safe and all
// other state is read-only after construction).
type Scorer struct {
	cycles    []Cycle
	weights   Weights
	allowlist []string // lowercased vendor substrings that are recurring by construction
	parser    *txdate.Parser
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithCycles replaces the default cycle set.
func WithCycles(cycles []Cycle) Option {
	return func(s *Scorer) { s.cycles = cycles }
}

// WithWeights replaces the default blend weights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) { s.weights = w }
}

// WithAllowlist sets the known-recurring vendor substrings (streaming
// services, telecoms, insurers, utilities). Matching is case-insensitive
// substring containment against the raw vendor name.
func WithAllowlist(vendors []string) Option {
	return func(s *Scorer) {
		s.allowlist = make([]string, 0, len(vendors))
		for _, v := range vendors {
			v = strings.ToLower(strings.TrimSpace(v))
			if v != "" {
				s.allowlist = append(s.allowlist, v)
			}
		}
	}
}

// WithParser injects a shared date parser so batch workers reuse one
// memoization cache.
func WithParser(p *txdate.Parser) Option {
	return func(s *Scorer) { s.parser = p }
}

// NewScorer returns a Scorer with the default cycles and weights.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		cycles:  DefaultCycles(),
		weights: DefaultWeights(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.parser == nil {
		s.parser = txdate.NewParser()
	}
	return s
}

// IsAllowlisted reports whether the vendor name matches a known-recurring
// vendor substring.
func (s *Scorer) IsAllowlisted(vendor string) bool {
	lowered := strings.ToLower(vendor)
	for _, known := range s.allowlist {
		if strings.Contains(lowered, known) {
			return true
		}
	}
	return false
}

// Confidence scores how recurring the pattern formed by tx and its group
// looks, in [0,1]. The target transaction is merged into the group
// (deduplicated by ID) before intervals are computed. Fewer than two
// intervals means there is not enough history to assert recurrence and the
// score is 0, unless the vendor is allowlisted, in which case the score is
// 1.0 regardless of history: some vendors are recurring by construction.
func (s *Scorer) Confidence(tx domain.Transaction, group []domain.Transaction) float64 {
	if s.IsAllowlisted(tx.Name) {
		return 1.0
	}

	merged := mergeTarget(tx, group)
	gaps := stats.Intervals(merged, s.parser)
	if len(gaps) < 2 {
		return 0.0
	}

	gapSummary := stats.Summarize(gaps)

	cycle, deviation := s.bestCycle(gapSummary.Mean, gapSummary.Median)
	if cycle == nil {
		return 0.0
	}

	// Excess is how far past the cycle's tolerance window the cadence sits;
	// zero for anything in band. Closeness decays smoothly on the excess
	// rather than cliffing at the window edge: a cadence just outside
	// tolerance still carries signal for the classifier.
	excess := math.Max(0, deviation-1.0)
	closeness := 1.0 / (1.0 + excess)

	// Tighter intervals score higher; CV of 1 or more is treated as no
	// regularity signal at all.
	intervalStability := clamp01(1.0 - gapSummary.CV)

	amounts := make([]float64, len(merged))
	for i, m := range merged {
		amounts[i] = m.Amount
	}
	amountStability := clamp01(1.0 - stats.SummarizeAmounts(amounts).CV)

	w := s.weights
	total := w.CycleCloseness + w.IntervalStability + w.AmountStability
	if total <= 0 {
		return 0.0
	}
	blended := (w.CycleCloseness*closeness +
		w.IntervalStability*intervalStability +
		w.AmountStability*amountStability) / total

	// The stability terms only mean "recurring" when the cadence lands near
	// a canonical cycle: perfectly regular 50-day gaps are stable but match
	// no billing cadence. Damp the whole blend on the excess, quadratically
	// so near-band cadences keep most of their score while far-off ones
	// trend to zero instead of flooring at the stability weights.
	blended /= 1.0 + excess*excess

	return clamp01(blended)
}

// BestCycle exposes the matched cycle name for feature assembly, or "" when
// no canonical cycle matches within tolerance.
func (s *Scorer) BestCycle(gaps []int) string {
	if len(gaps) == 0 {
		return ""
	}
	summary := stats.Summarize(gaps)
	cycle, deviation := s.bestCycle(summary.Mean, summary.Median)
	if cycle == nil || deviation > 1.0 {
		return ""
	}
	return cycle.Name
}

// bestCycle picks the cycle with the smallest normalized deviation from the
// observed cadence, using whichever of mean/median lands closer. A deviation
// of 1.0 means the cadence sits exactly at the edge of the cycle's tolerance
// window. Returns nil only when no cycles are configured.
func (s *Scorer) bestCycle(mean, median float64) (*Cycle, float64) {
	var best *Cycle
	bestDeviation := math.MaxFloat64

	for i := range s.cycles {
		c := s.cycles[i]
		if c.ToleranceDays <= 0 {
			continue
		}
		dev := math.Min(
			math.Abs(mean-float64(c.Days)),
			math.Abs(median-float64(c.Days)),
		) / float64(c.ToleranceDays)
		if dev < bestDeviation {
			best = &s.cycles[i]
			bestDeviation = dev
		}
	}
	if best == nil {
		return nil, 0
	}
	return best, bestDeviation
}

// mergeTarget returns group plus the target transaction, without duplicating
// the target when the group already contains it.
func mergeTarget(tx domain.Transaction, group []domain.Transaction) []domain.Transaction {
	merged := make([]domain.Transaction, 0, len(group)+1)
	found := false
	for _, g := range group {
		if g.ID == tx.ID {
			found = true
		}
		merged = append(merged, g)
	}
	if !found {
		merged = append(merged, tx)
	}
	return merged
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
