// Package features assembles the per-transaction feature vector consumed by
// the recurring-payment classifier. Features are declared as struct fields
// rather than merged maps so that two features can never silently collide on
// a name; Map renders the flat name-to-scalar view the trainer vectorizes.
package features

import (
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/domain"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/recurrence"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/stats"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/txdate"
)

// Vector is the typed feature record for one transaction. Every field is a
// finite float64: insufficient data degrades to 0.0 (or the documented -1.0
// sentinel), never to NaN or an error, because the training and inference
// pipelines require fully numeric rows.
type Vector struct {
	// Group shape.
	NTransactions float64 `json:"n_transactions"`

	// Interval statistics over the user+vendor group including the target.
	MeanIntervalDays   float64 `json:"mean_interval_days"`
	MedianIntervalDays float64 `json:"median_interval_days"`
	StdevIntervalDays  float64 `json:"stdev_interval_days"`
	IQRIntervalDays    float64 `json:"iqr_interval_days"`
	ModeIntervalDays   float64 `json:"mode_interval_days"`
	IntervalCV         float64 `json:"interval_cv"`

	// DaysSincePrevious is the gap to the most recent earlier transaction in
	// the group, or -1.0 when no prior similar transaction exists.
	DaysSincePrevious float64 `json:"days_since_previous"`

	// Amount statistics.
	MeanAmount     float64 `json:"mean_amount"`
	MedianAmount   float64 `json:"median_amount"`
	StdevAmount    float64 `json:"stdev_amount"`
	IQRAmount      float64 `json:"iqr_amount"`
	AmountCV       float64 `json:"amount_cv"`
	SameAmountPct1 float64 `json:"same_amount_ratio_1pct"`
	SameAmountPct5 float64 `json:"same_amount_ratio_5pct"`

	// Calendar features.
	DayOfMonth     float64 `json:"day_of_month"`
	SameDayOfMonth float64 `json:"same_day_of_month_ratio"`

	// Flags.
	IsRefund float64 `json:"is_refund"`

	// Recurrence scoring.
	CycleMatched         float64 `json:"cycle_matched"`
	RecurrenceConfidence float64 `json:"recurrence_confidence"`
}

// Map returns the flat feature-name view of the vector. Keys match the json
// tags above; the trainer's vectorizer keys columns off these names.
func (v Vector) Map() map[string]float64 {
	return map[string]float64{
		"n_transactions":          v.NTransactions,
		"mean_interval_days":      v.MeanIntervalDays,
		"median_interval_days":    v.MedianIntervalDays,
		"stdev_interval_days":     v.StdevIntervalDays,
		"iqr_interval_days":       v.IQRIntervalDays,
		"mode_interval_days":      v.ModeIntervalDays,
		"interval_cv":             v.IntervalCV,
		"days_since_previous":     v.DaysSincePrevious,
		"mean_amount":             v.MeanAmount,
		"median_amount":           v.MedianAmount,
		"stdev_amount":            v.StdevAmount,
		"iqr_amount":              v.IQRAmount,
		"amount_cv":               v.AmountCV,
		"same_amount_ratio_1pct":  v.SameAmountPct1,
		"same_amount_ratio_5pct":  v.SameAmountPct5,
		"day_of_month":            v.DayOfMonth,
		"same_day_of_month_ratio": v.SameDayOfMonth,
		"is_refund":               v.IsRefund,
		"cycle_matched":           v.CycleMatched,
		"recurrence_confidence":   v.RecurrenceConfidence,
	}
}

// Assembler computes feature vectors. It is safe for concurrent use: the
// batch workers call Extract independently per transaction and nothing here
// mutates shared state beyond the thread-safe date cache.
type Assembler struct {
	parser *txdate.Parser
	scorer *recurrence.Scorer
}

// NewAssembler builds an Assembler sharing one date parser with the scorer.
func NewAssembler(scorer *recurrence.Scorer) *Assembler {
	return &Assembler{
		parser: txdate.NewParser(),
		scorer: scorer,
	}
}

// Extract computes the feature vector for tx given the other transactions in
// its user+vendor group. The target is merged into the group (deduplicated by
// ID) before group statistics are computed, matching how the scorer sees the
// history. Extract is total: malformed dates inside the group degrade the
// affected features to their defaults instead of failing the transaction.
func (a *Assembler) Extract(tx domain.Transaction, group []domain.Transaction) Vector {
	merged := mergeTarget(tx, group)

	gaps := stats.Intervals(merged, a.parser)
	gapSummary := stats.Summarize(gaps)

	amounts := make([]float64, len(merged))
	for i, m := range merged {
		amounts[i] = m.Amount
	}
	amountSummary := stats.SummarizeAmounts(amounts)

	v := Vector{
		NTransactions: float64(len(merged)),

		MeanIntervalDays:   gapSummary.Mean,
		MedianIntervalDays: gapSummary.Median,
		StdevIntervalDays:  gapSummary.Stdev,
		IQRIntervalDays:    gapSummary.IQR,
		ModeIntervalDays:   gapSummary.Mode,
		IntervalCV:         gapSummary.CV,

		DaysSincePrevious: a.daysSincePrevious(tx, merged),

		MeanAmount:     amountSummary.Mean,
		MedianAmount:   amountSummary.Median,
		StdevAmount:    amountSummary.Stdev,
		IQRAmount:      amountSummary.IQR,
		AmountCV:       amountSummary.CV,
		SameAmountPct1: stats.SimilarityRatio(tx.Amount, amounts, 0.01),
		SameAmountPct5: stats.SimilarityRatio(tx.Amount, amounts, 0.05),

		RecurrenceConfidence: a.scorer.Confidence(tx, group),
	}

	if tx.IsRefund() {
		v.IsRefund = 1
	}
	if a.scorer.BestCycle(gaps) != "" {
		v.CycleMatched = 1
	}

	if day, err := a.parser.DayOfMonth(tx.Date); err == nil {
		v.DayOfMonth = float64(day)
		v.SameDayOfMonth = a.sameDayOfMonthRatio(day, merged)
	}

	return v
}

// daysSincePrevious returns the day gap between tx and the latest earlier
// transaction in the group, or -1 when there is none (including when the
// target's own date does not parse).
func (a *Assembler) daysSincePrevious(tx domain.Transaction, group []domain.Transaction) float64 {
	target, err := a.parser.Parse(tx.Date)
	if err != nil {
		return -1
	}

	best := -1.0
	for _, g := range group {
		if g.ID == tx.ID {
			continue
		}
		d, err := a.parser.Parse(g.Date)
		if err != nil || d.After(target) {
			continue
		}
		gap := target.Sub(d).Hours() / 24
		if best < 0 || gap < best {
			best = gap
		}
	}
	return best
}

// sameDayOfMonthRatio is the fraction of the group billed on the same
// day-of-month as the target, a strong monthly-cadence signal that survives
// slightly irregular gap sequences.
func (a *Assembler) sameDayOfMonthRatio(day int, group []domain.Transaction) float64 {
	if len(group) == 0 {
		return 0
	}
	same := 0
	counted := 0
	for _, g := range group {
		d, err := a.parser.DayOfMonth(g.Date)
		if err != nil {
			continue
		}
		counted++
		if d == day {
			same++
		}
	}
	if counted == 0 {
		return 0
	}
	return float64(same) / float64(counted)
}

// mergeTarget returns group plus tx, without duplicating tx when the group
// already contains it.
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
