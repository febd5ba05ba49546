package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/api/handlers"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/api/middleware"
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
	log := logger.New("api", cfg.LogLevel)

	if cfg.Bucket == "" {
		log.Warn().Msg("No GCS bucket configured - batch uploads will be disabled")
	}

	ctx := context.Background()

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

	storage := gcsbatch.NewClient()
	svc := pipeline.NewService(repo, storage, assembler, log)

	// Job infrastructure. The API runs an embedded worker so small
	// deployments need only one process.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueSize, cfg.WorkerCount, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
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

	go func() {
		log.Info().Int("workers", cfg.WorkerCount).Msg("Starting embedded job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	scoreHandler := handlers.NewScoreHandler(svc, log)
	batchesHandler := handlers.NewBatchesHandler(jobQueue, cfg.Bucket, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/score", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			scoreHandler.Score(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/batches/upload-target", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			batchesHandler.CreateUploadTarget(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/batches/score", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			batchesHandler.EnqueueScoring(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
