package featurestore

import (
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/domain"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/features"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/grouping"
)

// NewFeatureRow flattens one transaction and its feature vector into a
// storable row. The transaction date must already be valid; ingestion skips
// rows with unparseable dates before they reach scoring.
func NewFeatureRow(scoreRunID, batchID string, tx domain.Transaction, v features.Vector, label bigquery.NullBool, now time.Time) (*FeatureRow, error) {
	txDate, err := civil.ParseDate(tx.Date)
	if err != nil {
		return nil, fmt.Errorf("NewFeatureRow: transaction %d: parsing date %q: %w", tx.ID, tx.Date, err)
	}

	return &FeatureRow{
		ScoreRunID:    scoreRunID,
		BatchID:       batchID,
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		VendorName:    tx.Name,
		VendorKey:     grouping.NormalizeVendor(tx.Name),
		TxDate:        txDate,
		Amount:        tx.Amount,

		NTransactions:        v.NTransactions,
		MeanIntervalDays:     v.MeanIntervalDays,
		MedianIntervalDays:   v.MedianIntervalDays,
		StdevIntervalDays:    v.StdevIntervalDays,
		IQRIntervalDays:      v.IQRIntervalDays,
		ModeIntervalDays:     v.ModeIntervalDays,
		IntervalCV:           v.IntervalCV,
		DaysSincePrevious:    v.DaysSincePrevious,
		MeanAmount:           v.MeanAmount,
		MedianAmount:         v.MedianAmount,
		StdevAmount:          v.StdevAmount,
		IQRAmount:            v.IQRAmount,
		AmountCV:             v.AmountCV,
		SameAmountPct1:       v.SameAmountPct1,
		SameAmountPct5:       v.SameAmountPct5,
		DayOfMonth:           v.DayOfMonth,
		SameDayOfMonth:       v.SameDayOfMonth,
		IsRefund:             v.IsRefund,
		CycleMatched:         v.CycleMatched,
		RecurrenceConfidence: v.RecurrenceConfidence,

		Label:     label,
		CreatedTS: now,
	}, nil
}
