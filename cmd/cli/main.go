package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/config"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/features"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/featurestore"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/gcsbatch"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/ingest"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/logger"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/pipeline"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/recurrence"
)

func main() {
	cfg := config.Load()
	log := logger.New("cli", cfg.LogLevel)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "score":
		runScore(cfg, log)
	case "features":
		runFeatures(cfg, log)
	case "upload":
		runUpload(log)
	case "score-batch":
		runScoreBatch(cfg, log)
	case "inspect":
		runInspect(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Recurrence Scanner CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  score        Score a local transaction CSV and print confidences")
	fmt.Println("  features     Assemble feature vectors from a local CSV as JSON")
	fmt.Println("  upload       Upload a transaction CSV to GCS")
	fmt.Println("  score-batch  Run the full scoring pipeline on a GCS batch")
	fmt.Println("  inspect      Inspect a score run in the feature store")
	fmt.Println("  help         Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// newLocalService builds a pipeline service without GCS or BigQuery for the
// local score/features commands.
func newLocalService(cfg *config.Config, log zerolog.Logger) *pipeline.Service {
	return pipeline.NewService(nil, nil, newAssembler(cfg, log), log)
}

func newAssembler(cfg *config.Config, log zerolog.Logger) *features.Assembler {
	allowlist, err := cfg.LoadAllowlist()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load vendor allowlist")
	}
	return features.NewAssembler(recurrence.NewScorer(
		recurrence.WithWeights(cfg.Weights),
		recurrence.WithAllowlist(allowlist),
	))
}

func readLocalCSV(path string, labeled bool, log zerolog.Logger) *ingest.Result {
	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open CSV")
	}
	defer f.Close()

	var result *ingest.Result
	if labeled {
		result, err = ingest.ReadLabeled(f, log)
	} else {
		result, err = ingest.ReadTransactions(f, log)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse CSV")
	}
	if result.SkippedRows > 0 {
		log.Warn().Int("skipped_rows", result.SkippedRows).Msg("Some rows were skipped")
	}
	return result
}

func runScore(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	file := fs.String("file", "", "Path to transaction CSV")
	labeled := fs.Bool("labeled", false, "CSV has a trailing recurring column")
	threshold := fs.Float64("threshold", 0.7, "Confidence above which a transaction is flagged recurring")
	fs.Parse(os.Args[2:])

	if *file == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	result := readLocalCSV(*file, *labeled, log)
	svc := newLocalService(cfg, log)

	scored := svc.ScoreTransactions(result.Transactions)
	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Features.RecurrenceConfidence > scored[j].Features.RecurrenceConfidence
	})

	fmt.Printf("%-8s %-12s %-28s %-12s %10s  %s\n", "ID", "USER", "VENDOR", "DATE", "AMOUNT", "CONFIDENCE")
	for _, s := range scored {
		marker := " "
		if s.Features.RecurrenceConfidence >= *threshold {
			marker = "*"
		}
		fmt.Printf("%-8d %-12s %-28s %-12s %10.2f  %.4f %s\n",
			s.Transaction.ID, s.Transaction.UserID, s.VendorKey,
			s.Transaction.Date, s.Transaction.Amount,
			s.Features.RecurrenceConfidence, marker)
	}
}

func runFeatures(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("features", flag.ExitOnError)
	file := fs.String("file", "", "Path to transaction CSV")
	labeled := fs.Bool("labeled", false, "CSV has a trailing recurring column")
	out := fs.String("out", "", "Output path (defaults to stdout)")
	fs.Parse(os.Args[2:])

	if *file == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	result := readLocalCSV(*file, *labeled, log)
	svc := newLocalService(cfg, log)
	scored := svc.ScoreTransactions(result.Transactions)

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create output file")
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(scored); err != nil {
		log.Fatal().Err(err).Msg("Failed to write feature vectors")
	}

	log.Info().Int("transactions", len(scored)).Msg("Feature assembly completed")
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", "", "GCS bucket name")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local CSV file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading batch to GCS")

	if err := gcsbatch.NewClient().Upload(ctx, *bucketName, *objectName, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to gs://%s/%s\n", *filePath, *bucketName, *objectName)
}

func runScoreBatch(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("score-batch", flag.ExitOnError)
	gcsURI := fs.String("gcs-uri", "", "GCS URI of the batch CSV")
	labeled := fs.Bool("labeled", false, "CSV has a trailing recurring column")
	fs.Parse(os.Args[2:])

	if *gcsURI == "" {
		log.Fatal().Msg("Error: --gcs-uri is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := featurestore.NewBigQueryRepository(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create feature store repository")
	}
	defer repo.Close()

	svc := pipeline.NewService(repo, gcsbatch.NewClient(), newAssembler(cfg, log), log)

	log.Info().Str("gcs_uri", *gcsURI).Msg("Starting batch scoring")

	report, err := svc.ScoreBatchFromGCS(ctx, *gcsURI, *labeled)
	if err != nil {
		log.Fatal().Err(err).Msg("Batch scoring failed")
	}

	fmt.Println("Batch scoring completed successfully.")
	fmt.Printf("Batch ID:     %s\n", report.BatchID)
	fmt.Printf("Score run ID: %s\n", report.ScoreRunID)
	fmt.Printf("Transactions: %d (%d rows skipped)\n", report.TransactionCount, report.SkippedRows)
	fmt.Printf("Groups:       %d\n", report.GroupCount)
}

func runInspect(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	scoreRunID := fs.String("score-run-id", "", "Score run ID to inspect")
	showRows := fs.Bool("rows", false, "Also print the feature rows")
	fs.Parse(os.Args[2:])

	if *scoreRunID == "" {
		log.Fatal().Msg("Error: --score-run-id is required")
	}

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	repo, err := featurestore.NewBigQueryRepository(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create feature store repository")
	}
	defer repo.Close()

	run, err := repo.GetScoreRun(ctx, *scoreRunID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch score run")
	}

	fmt.Println("\n=== Score Run ===")
	fmt.Printf("ID:       %s\n", run.ScoreRunID)
	fmt.Printf("Batch:    %s\n", run.BatchID)
	fmt.Printf("Status:   %s\n", run.Status)
	fmt.Printf("Version:  %s\n", run.ScorerVersion)
	fmt.Printf("Started:  %s\n", run.StartedTS)
	if run.FinishedTS.Valid {
		fmt.Printf("Finished: %s\n", run.FinishedTS.Timestamp)
	}
	if run.ErrorMessage != "" {
		fmt.Printf("Error:    %s\n", run.ErrorMessage)
	}

	if !*showRows {
		return
	}

	rows, err := repo.ListFeatureRows(ctx, *scoreRunID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list feature rows")
	}

	fmt.Printf("\n=== Feature Rows (%d) ===\n", len(rows))
	for i, row := range rows {
		fmt.Printf("\n%d. %s (%s)\n", i+1, row.VendorName, row.UserID)
		fmt.Printf("   Date:       %s\n", row.TxDate)
		fmt.Printf("   Amount:     %.2f\n", row.Amount)
		fmt.Printf("   Confidence: %.4f\n", row.RecurrenceConfidence)
		if row.Label.Valid {
			fmt.Printf("   Label:      %t\n", row.Label.Bool)
		}
	}
	fmt.Println()
}
