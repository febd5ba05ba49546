// Package stats consolidates the interval and amount statistics that the
// recurrence features are built from. Edge cases follow one convention
// throughout: fewer than two data points means no signal, reported as 0.0,
// never as an error or NaN. Features feed a classifier and must always be
// finite numbers.
package stats

import (
	"math"
	"sort"

	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/domain"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/txdate"
)

// Summary holds the scalar summaries of a sequence of values.
type Summary struct {
	Mean   float64
	Median float64
	Stdev  float64 // sample standard deviation (n-1 denominator)
	IQR    float64 // 75th minus 25th percentile, linear interpolation
	Mode   float64 // most frequent value, ties broken by smallest
	CV     float64 // Stdev / Mean when Mean > 0, else 0
}

// Intervals sorts the transactions by date ascending and returns the day gaps
// between chronologically consecutive transactions: n-1 gaps for n parseable
// transactions, empty for fewer than two. Records whose dates do not parse
// are skipped rather than aborting the batch. Duplicate dates yield a gap of
// zero.
func Intervals(txs []domain.Transaction, p *txdate.Parser) []int {
	dates := make([]int64, 0, len(txs))
	for _, tx := range txs {
		d, err := p.Parse(tx.Date)
		if err != nil {
			continue
		}
		dates = append(dates, d.Unix())
	}
	if len(dates) < 2 {
		return nil
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })

	const daySeconds = 24 * 60 * 60
	gaps := make([]int, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		gaps = append(gaps, int((dates[i]-dates[i-1])/daySeconds))
	}
	return gaps
}

// Summarize computes the summary of a gap sequence.
func Summarize(gaps []int) Summary {
	values := make([]float64, len(gaps))
	for i, g := range gaps {
		values[i] = float64(g)
	}
	return SummarizeAmounts(values)
}

// SummarizeAmounts computes the summary of a value sequence. Empty input
// yields the zero Summary; a single value yields Mean = Median = Mode = value
// with Stdev = IQR = CV = 0.
func SummarizeAmounts(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	s := Summary{
		Mean:   mean(sorted),
		Median: percentile(sorted, 0.5),
		Mode:   mode(sorted),
	}
	if len(sorted) >= 2 {
		s.Stdev = sampleStdev(sorted, s.Mean)
		s.IQR = percentile(sorted, 0.75) - percentile(sorted, 0.25)
	}
	if s.Mean > 0 {
		s.CV = s.Stdev / s.Mean
	}
	return s
}

// SimilarityRatio returns the fraction of amounts within the relative
// tolerance band around reference: |a - reference| <= tolerance * |reference|.
// tolerance is a fraction (0.05 means within five percent). When reference is
// zero the band degrades to an absolute one, |a| <= tolerance, so a zero
// reference never divides by zero. Empty amounts yield 0.
func SimilarityRatio(reference float64, amounts []float64, tolerance float64) float64 {
	if len(amounts) == 0 {
		return 0
	}

	band := tolerance * math.Abs(reference)
	if reference == 0 {
		band = tolerance
	}

	matched := 0
	for _, a := range amounts {
		if math.Abs(a-reference) <= band {
			matched++
		}
	}
	return float64(matched) / float64(len(amounts))
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sampleStdev(values []float64, mean float64) float64 {
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

// percentile computes the q-th percentile of sorted values using linear
// interpolation between closest ranks.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// mode returns the most frequent value; ties break toward the smallest value
// so the result is deterministic. Input must be sorted.
func mode(sorted []float64) float64 {
	best := sorted[0]
	bestCount := 0
	current := sorted[0]
	count := 0
	for _, v := range sorted {
		if v == current {
			count++
		} else {
			current = v
			count = 1
		}
		if count > bestCount {
			bestCount = count
			best = current
		}
	}
	return best
}
