package featurestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("featurestore: not found")

// GetScoreRun fetches one score run by ID.
func (r *BigQueryRepository) GetScoreRun(ctx context.Context, scoreRunID string) (*ScoreRunRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s.%s
		WHERE score_run_id = @score_run_id
		LIMIT 1
	`, r.dataset, scoreRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "score_run_id", Value: scoreRunID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetScoreRun: reading query: %w", err)
	}

	var row ScoreRunRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetScoreRun: iterating: %w", err)
	}
	return &row, nil
}

// ListScoreRuns returns the runs for a batch, newest first.
func (r *BigQueryRepository) ListScoreRuns(ctx context.Context, batchID string) ([]*ScoreRunRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s.%s
		WHERE batch_id = @batch_id
		ORDER BY started_ts DESC
	`, r.dataset, scoreRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "batch_id", Value: batchID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListScoreRuns: reading query: %w", err)
	}

	var runs []*ScoreRunRow
	for {
		var row ScoreRunRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListScoreRuns: iterating: %w", err)
		}
		runs = append(runs, &row)
	}
	return runs, nil
}

// ListFeatureRows returns the feature rows produced by one score run,
// ordered for stable pagination-free consumption by small training sets.
func (r *BigQueryRepository) ListFeatureRows(ctx context.Context, scoreRunID string) ([]*FeatureRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s.%s
		WHERE score_run_id = @score_run_id
		ORDER BY user_id, vendor_key, tx_date, transaction_id
	`, r.dataset, featuresTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "score_run_id", Value: scoreRunID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListFeatureRows: reading query: %w", err)
	}

	var rows []*FeatureRow
	for {
		var row FeatureRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListFeatureRows: iterating: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}
