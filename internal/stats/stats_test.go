package stats

import (
	"math"
	"reflect"
	"testing"

	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/domain"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/txdate"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= epsilon
}

func tx(id int64, date string) domain.Transaction {
	return domain.Transaction{ID: id, UserID: "u1", Name: "VendorA", Date: date, Amount: 100}
}

func TestIntervals(t *testing.T) {
	p := txdate.NewParser()

	tests := []struct {
		name string
		txs  []domain.Transaction
		want []int
	}{
		{
			name: "empty input",
			txs:  nil,
			want: nil,
		},
		{
			name: "single transaction",
			txs:  []domain.Transaction{tx(1, "2024-01-01")},
			want: nil,
		},
		{
			name: "unsorted input is sorted by date",
			txs: []domain.Transaction{
				tx(1, "2024-01-20"),
				tx(2, "2024-01-01"),
				tx(3, "2024-01-10"),
			},
			want: []int{9, 10},
		},
		{
			name: "duplicate dates yield zero gap",
			txs: []domain.Transaction{
				tx(1, "2024-01-01"),
				tx(2, "2024-01-01"),
				tx(3, "2024-01-08"),
			},
			want: []int{0, 7},
		},
		{
			name: "malformed date is skipped, not fatal",
			txs: []domain.Transaction{
				tx(1, "2024-01-01"),
				tx(2, "not-a-date"),
				tx(3, "2024-01-31"),
			},
			want: []int{30},
		},
		{
			name: "gap across month boundary",
			txs: []domain.Transaction{
				tx(1, "2024-01-31"),
				tx(2, "2024-02-29"),
			},
			want: []int{29},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Intervals(tt.txs, p)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Intervals() = %v, want %v", got, tt.want)
			}
			for _, g := range got {
				if g < 0 {
					t.Errorf("Intervals() produced negative gap %d", g)
				}
			}
			if n := len(tt.txs); n >= 2 && tt.name != "malformed date is skipped, not fatal" {
				if len(got) != n-1 {
					t.Errorf("Intervals() returned %d gaps for %d transactions, want %d", len(got), n, n-1)
				}
			}
		})
	}
}

func TestSummarize_Degenerate(t *testing.T) {
	empty := Summarize(nil)
	if empty != (Summary{}) {
		t.Errorf("Summarize(nil) = %+v, want zero Summary", empty)
	}

	single := Summarize([]int{30})
	if !almostEqual(single.Mean, 30) || !almostEqual(single.Median, 30) || !almostEqual(single.Mode, 30) {
		t.Errorf("Summarize([30]) mean/median/mode = %v/%v/%v, want all 30", single.Mean, single.Median, single.Mode)
	}
	if single.Stdev != 0 || single.IQR != 0 || single.CV != 0 {
		t.Errorf("Summarize([30]) stdev/iqr/cv = %v/%v/%v, want all 0", single.Stdev, single.IQR, single.CV)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]int{9, 10, 10})

	if !almostEqual(s.Mean, 29.0/3.0) {
		t.Errorf("Mean = %v, want %v", s.Mean, 29.0/3.0)
	}
	if !almostEqual(s.Median, 10) {
		t.Errorf("Median = %v, want 10", s.Median)
	}
	if !almostEqual(s.Mode, 10) {
		t.Errorf("Mode = %v, want 10", s.Mode)
	}
	// Sample stdev of {9,10,10}.
	wantStdev := math.Sqrt(((9-29.0/3.0)*(9-29.0/3.0) + 2*(10-29.0/3.0)*(10-29.0/3.0)) / 2)
	if !almostEqual(s.Stdev, wantStdev) {
		t.Errorf("Stdev = %v, want %v", s.Stdev, wantStdev)
	}
	if !almostEqual(s.CV, wantStdev/(29.0/3.0)) {
		t.Errorf("CV = %v, want %v", s.CV, wantStdev/(29.0/3.0))
	}
}

func TestSummarize_ModeTieBreak(t *testing.T) {
	// 7 and 30 both appear twice; the smaller value wins.
	s := Summarize([]int{30, 7, 30, 7, 14})
	if !almostEqual(s.Mode, 7) {
		t.Errorf("Mode = %v, want 7 (ties break toward smallest)", s.Mode)
	}
}

func TestSummarize_IQR(t *testing.T) {
	// Sorted: 1 2 3 4. q25 at pos 0.75 -> 1.75; q75 at pos 2.25 -> 3.25.
	s := Summarize([]int{4, 1, 3, 2})
	if !almostEqual(s.IQR, 1.5) {
		t.Errorf("IQR = %v, want 1.5", s.IQR)
	}
}

func TestSummarizeAmounts_IdenticalValues(t *testing.T) {
	s := SummarizeAmounts([]float64{100, 100, 100})
	if s.Stdev != 0 {
		t.Errorf("Stdev of identical values = %v, want 0", s.Stdev)
	}
	if s.CV != 0 {
		t.Errorf("CV of identical values = %v, want 0", s.CV)
	}
	if !almostEqual(s.Mean, 100) || !almostEqual(s.Median, 100) {
		t.Errorf("Mean/Median = %v/%v, want 100/100", s.Mean, s.Median)
	}
}

func TestSimilarityRatio(t *testing.T) {
	tests := []struct {
		name      string
		reference float64
		amounts   []float64
		tolerance float64
		want      float64
	}{
		{
			name:      "boundary case from three of four within five percent",
			reference: 100.0,
			amounts:   []float64{95, 100, 105, 120},
			tolerance: 0.05,
			want:      0.75,
		},
		{
			name:      "empty amounts",
			reference: 100.0,
			amounts:   nil,
			tolerance: 0.05,
			want:      0,
		},
		{
			name:      "zero reference uses absolute band",
			reference: 0,
			amounts:   []float64{0.01, -0.03, 1.0},
			tolerance: 0.05,
			want:      2.0 / 3.0,
		},
		{
			name:      "negative reference uses magnitude",
			reference: -100,
			amounts:   []float64{-95, -105, -120},
			tolerance: 0.05,
			want:      2.0 / 3.0,
		},
		{
			name:      "all match",
			reference: 10,
			amounts:   []float64{10, 10},
			tolerance: 0,
			want:      1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SimilarityRatio(tt.reference, tt.amounts, tt.tolerance)
			if !almostEqual(got, tt.want) {
				t.Errorf("SimilarityRatio(%v, %v, %v) = %v, want %v",
					tt.reference, tt.amounts, tt.tolerance, got, tt.want)
			}
		})
	}
}

func TestIdempotence(t *testing.T) {
	p := txdate.NewParser()
	txs := []domain.Transaction{
		tx(1, "2024-01-01"), tx(2, "2024-01-10"), tx(3, "2024-01-20"),
	}

	first := Intervals(txs, p)
	second := Intervals(txs, p)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Intervals not idempotent: %v then %v", first, second)
	}

	s1 := Summarize(first)
	s2 := Summarize(second)
	if s1 != s2 {
		t.Errorf("Summarize not idempotent: %+v then %+v", s1, s2)
	}
}
