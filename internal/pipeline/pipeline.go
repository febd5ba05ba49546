// Package pipeline wires ingestion, grouping, feature assembly, and the
// feature store into the batch scoring flow. One call scores one CSV batch;
// concurrency across batches lives in the job queue, not here.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/domain"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/features"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/featurestore"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/gcsbatch"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/grouping"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/ingest"
)

// Service runs the batch scoring pipeline. Dependencies are interfaces so
// tests can run the full flow against in-memory fakes.
type Service struct {
	repo      featurestore.Repository
	storage   gcsbatch.Storage
	assembler *features.Assembler
	log       zerolog.Logger
}

// NewService builds a pipeline service.
func NewService(repo featurestore.Repository, storage gcsbatch.Storage, assembler *features.Assembler, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		storage:   storage,
		assembler: assembler,
		log:       log,
	}
}

// Report summarizes one completed scoring run.
type Report struct {
	BatchID          string `json:"batch_id"`
	ScoreRunID       string `json:"score_run_id"`
	TransactionCount int    `json:"transaction_count"`
	SkippedRows      int    `json:"skipped_rows"`
	Labeled          bool   `json:"labeled"`
	GroupCount       int    `json:"group_count"`
}

// ScoreBatchFromGCS scores a transaction CSV stored in GCS. gcsURI should
// look like "gs://bucket/batches/2024-06.csv". labeled selects the training
// CSV layout with the trailing recurring column.
//
// The flow:
//
//  1. Fetch the CSV bytes from GCS.
//  2. Parse the CSV into transactions, dropping malformed rows.
//  3. Register a batch record for this file.
//  4. Start a score run (status=RUNNING).
//  5. Group transactions by user and normalized vendor.
//  6. Assemble the feature vector for every transaction against its group.
//  7. Insert the feature rows into the feature store.
//  8. Mark the score run SUCCESS.
//
// Any failure after step 4 marks the run FAILED before returning.
func (s *Service) ScoreBatchFromGCS(ctx context.Context, gcsURI string, labeled bool) (*Report, error) {
	data, err := s.storage.Fetch(ctx, gcsURI)
	if err != nil {
		return nil, fmt.Errorf("ScoreBatchFromGCS: fetching %s: %w", gcsURI, err)
	}

	var result *ingest.Result
	if labeled {
		result, err = ingest.ReadLabeled(bytes.NewReader(data), s.log)
	} else {
		result, err = ingest.ReadTransactions(bytes.NewReader(data), s.log)
	}
	if err != nil {
		return nil, fmt.Errorf("ScoreBatchFromGCS: parsing CSV: %w", err)
	}

	batchID, err := s.registerBatch(ctx, gcsURI, labeled, result)
	if err != nil {
		return nil, err
	}

	scoreRunID, err := s.repo.StartScoreRun(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("ScoreBatchFromGCS: starting score run: %w", err)
	}

	report, err := s.scoreBatch(ctx, scoreRunID, batchID, result, labeled)
	if err != nil {
		s.repo.MarkScoreRunFailed(ctx, scoreRunID, err)
		return nil, err
	}

	if err := s.repo.MarkScoreRunSucceeded(ctx, scoreRunID); err != nil {
		return nil, fmt.Errorf("ScoreBatchFromGCS: marking run succeeded: %w", err)
	}

	s.log.Info().
		Str("batch_id", batchID).
		Str("score_run_id", scoreRunID).
		Int("transactions", report.TransactionCount).
		Int("skipped_rows", report.SkippedRows).
		Int("groups", report.GroupCount).
		Msg("batch scored")

	return report, nil
}

func (s *Service) registerBatch(ctx context.Context, gcsURI string, labeled bool, result *ingest.Result) (string, error) {
	batchID := uuid.NewString()
	row := &featurestore.BatchRow{
		BatchID:          batchID,
		GCSURI:           gcsURI,
		OriginalFilename: gcsbatch.Filename(gcsURI),
		TransactionCount: int64(len(result.Transactions)),
		SkippedRows:      int64(result.SkippedRows),
		Labeled:          labeled,
		UploadTS:         time.Now().UTC(),
	}
	if err := s.repo.InsertBatch(ctx, row); err != nil {
		return "", fmt.Errorf("registerBatch: inserting batch: %w", err)
	}
	return batchID, nil
}

func (s *Service) scoreBatch(ctx context.Context, scoreRunID, batchID string, result *ingest.Result, labeled bool) (*Report, error) {
	groups := grouping.ByUserVendor(result.Transactions)

	rows, err := s.buildFeatureRows(scoreRunID, batchID, result, groups)
	if err != nil {
		return nil, err
	}

	if err := s.repo.InsertFeatureRows(ctx, rows); err != nil {
		return nil, fmt.Errorf("scoreBatch: inserting feature rows: %w", err)
	}

	return &Report{
		BatchID:          batchID,
		ScoreRunID:       scoreRunID,
		TransactionCount: len(result.Transactions),
		SkippedRows:      result.SkippedRows,
		Labeled:          labeled,
		GroupCount:       len(groups),
	}, nil
}

func (s *Service) buildFeatureRows(scoreRunID, batchID string, result *ingest.Result, groups map[grouping.UserVendor][]domain.Transaction) ([]*featurestore.FeatureRow, error) {
	now := time.Now().UTC()
	rows := make([]*featurestore.FeatureRow, 0, len(result.Transactions))

	for _, group := range groups {
		for _, tx := range group {
			v := s.assembler.Extract(tx, group)

			var label bigquery.NullBool
			if result.Labels != nil {
				if val, ok := result.Labels[tx.ID]; ok {
					label = bigquery.NullBool{Bool: val, Valid: true}
				}
			}

			row, err := featurestore.NewFeatureRow(scoreRunID, batchID, tx, v, label, now)
			if err != nil {
				return nil, fmt.Errorf("buildFeatureRows: %w", err)
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// ScoreTransactions assembles feature vectors for an already-parsed set of
// transactions without touching GCS or the feature store. The CLI's score
// subcommand and the synchronous API endpoint use this path.
func (s *Service) ScoreTransactions(txs []domain.Transaction) []ScoredTransaction {
	groups := grouping.ByUserVendor(txs)

	scored := make([]ScoredTransaction, 0, len(txs))
	for key, group := range groups {
		for _, tx := range group {
			v := s.assembler.Extract(tx, group)
			scored = append(scored, ScoredTransaction{
				Transaction: tx,
				VendorKey:   key.Vendor,
				Features:    v,
			})
		}
	}
	return scored
}

// ScoredTransaction pairs a transaction with its assembled feature vector.
type ScoredTransaction struct {
	Transaction domain.Transaction `json:"transaction"`
	VendorKey   string             `json:"vendor_key"`
	Features    features.Vector    `json:"features"`
}
