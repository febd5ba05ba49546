package featurestore

import (
	"testing"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/domain"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/features"
)

func TestNewFeatureRow(t *testing.T) {
	tx := domain.Transaction{
		ID:     42,
		UserID: "user-1",
		Name:   "Netflix, Inc.",
		Date:   "2024-03-15",
		Amount: 15.99,
	}
	v := features.Vector{
		NTransactions:        3,
		MeanIntervalDays:     30,
		RecurrenceConfidence: 0.91,
	}
	now := time.Date(2024, 3, 16, 8, 0, 0, 0, time.UTC)

	row, err := NewFeatureRow("run-1", "batch-1", tx, v, bigquery.NullBool{Bool: true, Valid: true}, now)
	if err != nil {
		t.Fatalf("NewFeatureRow: %v", err)
	}

	if row.ScoreRunID != "run-1" || row.BatchID != "batch-1" {
		t.Errorf("run/batch = %q/%q, want run-1/batch-1", row.ScoreRunID, row.BatchID)
	}
	if row.TransactionID != 42 || row.UserID != "user-1" {
		t.Errorf("identity = %d/%q, want 42/user-1", row.TransactionID, row.UserID)
	}
	if row.VendorName != "Netflix, Inc." {
		t.Errorf("VendorName = %q, want original name preserved", row.VendorName)
	}
	if row.VendorKey != "netflix" {
		t.Errorf("VendorKey = %q, want %q", row.VendorKey, "netflix")
	}
	if got := row.TxDate.String(); got != "2024-03-15" {
		t.Errorf("TxDate = %s, want 2024-03-15", got)
	}
	if row.NTransactions != 3 || row.MeanIntervalDays != 30 || row.RecurrenceConfidence != 0.91 {
		t.Errorf("feature columns not carried over: %+v", row)
	}
	if !row.Label.Valid || !row.Label.Bool {
		t.Errorf("Label = %+v, want valid true", row.Label)
	}
	if !row.CreatedTS.Equal(now) {
		t.Errorf("CreatedTS = %v, want %v", row.CreatedTS, now)
	}
}

func TestNewFeatureRowBadDate(t *testing.T) {
	tx := domain.Transaction{ID: 7, UserID: "u", Name: "x", Date: "03/15/2024", Amount: 1}
	if _, err := NewFeatureRow("run", "batch", tx, features.Vector{}, bigquery.NullBool{}, time.Now()); err == nil {
		t.Fatal("NewFeatureRow: expected error for non ISO date")
	}
}
