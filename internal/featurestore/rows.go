package featurestore

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// BatchRow is one ingested transaction CSV batch.
type BatchRow struct {
	BatchID          string            `bigquery:"batch_id"` // REQUIRED
	GCSURI           string            `bigquery:"gcs_uri"`  // NULLABLE (empty for local batches)
	OriginalFilename string            `bigquery:"original_filename"`
	TransactionCount int64             `bigquery:"transaction_count"`
	SkippedRows      int64             `bigquery:"skipped_rows"`
	Labeled          bool              `bigquery:"labeled"`
	UploadTS         time.Time         `bigquery:"upload_ts"`
	Metadata         bigquery.NullJSON `bigquery:"metadata"`
}

// ScoreRunRow is one scoring run over a batch. A batch may be rescored after
// the cycle set or allowlist changes; the latest SUCCESS run wins.
type ScoreRunRow struct {
	ScoreRunID string `bigquery:"score_run_id"` // REQUIRED
	BatchID    string `bigquery:"batch_id"`     // REQUIRED

	StartedTS  time.Time              `bigquery:"started_ts"`
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"`

	ScorerVersion string `bigquery:"scorer_version"`

	Status       string `bigquery:"status"` // RUNNING | SUCCESS | FAILED
	ErrorMessage string `bigquery:"error_message"`

	Metadata bigquery.NullJSON `bigquery:"metadata"`
}

// FeatureRow is one transaction's assembled feature vector. Columns mirror
// the fields of features.Vector plus enough identity to join back to the
// source transaction.
type FeatureRow struct {
	ScoreRunID    string     `bigquery:"score_run_id"` // REQUIRED
	BatchID       string     `bigquery:"batch_id"`     // REQUIRED
	TransactionID int64      `bigquery:"transaction_id"`
	UserID        string     `bigquery:"user_id"`
	VendorName    string     `bigquery:"vendor_name"`
	VendorKey     string     `bigquery:"vendor_key"` // normalized grouping key
	TxDate        civil.Date `bigquery:"tx_date"`
	Amount        float64    `bigquery:"amount"`

	NTransactions        float64 `bigquery:"n_transactions"`
	MeanIntervalDays     float64 `bigquery:"mean_interval_days"`
	MedianIntervalDays   float64 `bigquery:"median_interval_days"`
	StdevIntervalDays    float64 `bigquery:"stdev_interval_days"`
	IQRIntervalDays      float64 `bigquery:"iqr_interval_days"`
	ModeIntervalDays     float64 `bigquery:"mode_interval_days"`
	IntervalCV           float64 `bigquery:"interval_cv"`
	DaysSincePrevious    float64 `bigquery:"days_since_previous"`
	MeanAmount           float64 `bigquery:"mean_amount"`
	MedianAmount         float64 `bigquery:"median_amount"`
	StdevAmount          float64 `bigquery:"stdev_amount"`
	IQRAmount            float64 `bigquery:"iqr_amount"`
	AmountCV             float64 `bigquery:"amount_cv"`
	SameAmountPct1       float64 `bigquery:"same_amount_ratio_1pct"`
	SameAmountPct5       float64 `bigquery:"same_amount_ratio_5pct"`
	DayOfMonth           float64 `bigquery:"day_of_month"`
	SameDayOfMonth       float64 `bigquery:"same_day_of_month_ratio"`
	IsRefund             float64 `bigquery:"is_refund"`
	CycleMatched         float64 `bigquery:"cycle_matched"`
	RecurrenceConfidence float64 `bigquery:"recurrence_confidence"`

	Label bigquery.NullBool `bigquery:"label"` // recurring label for training batches

	CreatedTS time.Time `bigquery:"created_ts"`
}
