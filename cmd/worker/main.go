package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/config"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/features"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/featurestore"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/gcsbatch"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/jobs"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/jobs/inmemory"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/logger"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/pipeline"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/recurrence"
)

func main() {
	cfg := config.Load()
	log := logger.New("worker", cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	allowlist, err := cfg.LoadAllowlist()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load vendor allowlist")
	}

	scorer := recurrence.NewScorer(
		recurrence.WithWeights(cfg.Weights),
		recurrence.WithAllowlist(allowlist),
	)
	assembler := features.NewAssembler(scorer)

	repo, err := featurestore.NewBigQueryRepository(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create feature store repository")
	}
	defer repo.Close()

	svc := pipeline.NewService(repo, gcsbatch.NewClient(), assembler, log)

	// In production, this would be replaced with Cloud Tasks or Pub/Sub.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueSize, cfg.WorkerCount, jobStore)

	log.Info().Int("workers", cfg.WorkerCount).Msg("Starting worker service")

	handler := func(ctx context.Context, job jobs.Job) error {
		scoreJob, ok := job.(*jobs.ScoreBatchJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", scoreJob.JobID).
			Str("gcs_uri", scoreJob.GCSURI).
			Msg("Processing scoring job")

		report, err := svc.ScoreBatchFromGCS(ctx, scoreJob.GCSURI, scoreJob.Labeled)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", scoreJob.JobID).
				Str("gcs_uri", scoreJob.GCSURI).
				Msg("Scoring pipeline failed")
			return err
		}

		scoreJob.BatchID = report.BatchID
		scoreJob.ScoreRunID = report.ScoreRunID

		log.Info().
			Str("job_id", scoreJob.JobID).
			Str("batch_id", report.BatchID).
			Str("score_run_id", report.ScoreRunID).
			Int("transactions", report.TransactionCount).
			Msg("Scoring pipeline completed")

		return nil
	}

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}
