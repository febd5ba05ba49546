package featurestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/logger"
)

const (
	batchesTable   = "batches"
	scoreRunsTable = "score_runs"
	featuresTable  = "features"
)

// Repository is what the pipeline depends on; the BigQuery implementation
// below is the production one and tests use in-memory fakes.
type Repository interface {
	// InsertBatch registers an ingested CSV batch.
	InsertBatch(ctx context.Context, row *BatchRow) error

	// StartScoreRun inserts a new scoring run with status=RUNNING and
	// returns the generated score_run_id.
	StartScoreRun(ctx context.Context, batchID string) (string, error)

	// MarkScoreRunFailed sets status=FAILED with the error message.
	// Best-effort: failures here are logged, not propagated, because the
	// original pipeline error matters more.
	MarkScoreRunFailed(ctx context.Context, scoreRunID string, runErr error)

	// MarkScoreRunSucceeded sets status=SUCCESS and finished_ts.
	MarkScoreRunSucceeded(ctx context.Context, scoreRunID string) error

	// InsertFeatureRows streams a batch of feature vectors.
	InsertFeatureRows(ctx context.Context, rows []*FeatureRow) error
}

// BigQueryRepository writes batches, score runs, and feature rows to
// BigQuery. It holds a shared client so the pipeline does not open a new
// connection per operation.
type BigQueryRepository struct {
	client  *bigquery.Client
	dataset string
}

var _ Repository = (*BigQueryRepository)(nil)

// NewBigQueryRepository creates a repository with a shared BigQuery client.
func NewBigQueryRepository(ctx context.Context, projectID, dataset string) (*BigQueryRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRepository: creating client: %w", err)
	}
	return &BigQueryRepository{client: client, dataset: dataset}, nil
}

// Close releases the underlying client. Call when the repository is no
// longer needed.
func (r *BigQueryRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// InsertBatch registers an ingested CSV batch.
func (r *BigQueryRepository) InsertBatch(ctx context.Context, row *BatchRow) error {
	inserter := r.client.Dataset(r.dataset).Table(batchesTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertBatch: inserting row: %w", err)
	}
	return nil
}

// StartScoreRun inserts a score_runs row with status=RUNNING.
func (r *BigQueryRepository) StartScoreRun(ctx context.Context, batchID string) (string, error) {
	scoreRunID := newRunID()

	q := r.client.Query(fmt.Sprintf(`
		INSERT %s.%s (
			score_run_id,
			batch_id,
			started_ts,
			scorer_version,
			status
		)
		VALUES (
			@score_run_id,
			@batch_id,
			@started_ts,
			@scorer_version,
			@status
		)
	`, r.dataset, scoreRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "score_run_id", Value: scoreRunID},
		{Name: "batch_id", Value: batchID},
		{Name: "started_ts", Value: time.Now()},
		{Name: "scorer_version", Value: ScorerVersion},
		{Name: "status", Value: "RUNNING"},
	}

	if err := runAndWait(ctx, q); err != nil {
		return "", fmt.Errorf("StartScoreRun: %w", err)
	}
	return scoreRunID, nil
}

// MarkScoreRunFailed sets status=FAILED, finished_ts and error_message.
func (r *BigQueryRepository) MarkScoreRunFailed(ctx context.Context, scoreRunID string, runErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE score_run_id = @score_run_id
	`, r.dataset, scoreRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "FAILED"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "score_run_id", Value: scoreRunID},
	}

	if err := runAndWait(ctx, q); err != nil {
		log.Error().
			Err(err).
			Str("score_run_id", scoreRunID).
			Msg("MarkScoreRunFailed: update failed")
	}
}

// MarkScoreRunSucceeded sets status=SUCCESS and finished_ts.
func (r *BigQueryRepository) MarkScoreRunSucceeded(ctx context.Context, scoreRunID string) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = ""
		WHERE score_run_id = @score_run_id
	`, r.dataset, scoreRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "SUCCESS"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "score_run_id", Value: scoreRunID},
	}

	if err := runAndWait(ctx, q); err != nil {
		return fmt.Errorf("MarkScoreRunSucceeded: %w", err)
	}
	return nil
}

// InsertFeatureRows streams feature vectors into the features table.
func (r *BigQueryRepository) InsertFeatureRows(ctx context.Context, rows []*FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := r.client.Dataset(r.dataset).Table(featuresTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertFeatureRows: inserting %d rows: %w", len(rows), err)
	}
	return nil
}

func runAndWait(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
