package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/domain"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/features"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/featurestore"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/gcsbatch"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/logger"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/pipeline"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/recurrence"
)

// memRepo is an in-memory featurestore.Repository.
type memRepo struct {
	batches     []*featurestore.BatchRow
	featureRows []*featurestore.FeatureRow
	runStatus   map[string]string
	runErrors   map[string]string

	failInsertRows error
	failStartRun   error
}

var _ featurestore.Repository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{
		runStatus: make(map[string]string),
		runErrors: make(map[string]string),
	}
}

func (m *memRepo) InsertBatch(_ context.Context, row *featurestore.BatchRow) error {
	m.batches = append(m.batches, row)
	return nil
}

func (m *memRepo) StartScoreRun(_ context.Context, batchID string) (string, error) {
	if m.failStartRun != nil {
		return "", m.failStartRun
	}
	id := "run-" + batchID
	m.runStatus[id] = "RUNNING"
	return id, nil
}

func (m *memRepo) MarkScoreRunFailed(_ context.Context, scoreRunID string, runErr error) {
	m.runStatus[scoreRunID] = "FAILED"
	if runErr != nil {
		m.runErrors[scoreRunID] = runErr.Error()
	}
}

func (m *memRepo) MarkScoreRunSucceeded(_ context.Context, scoreRunID string) error {
	m.runStatus[scoreRunID] = "SUCCESS"
	return nil
}

func (m *memRepo) InsertFeatureRows(_ context.Context, rows []*featurestore.FeatureRow) error {
	if m.failInsertRows != nil {
		return m.failInsertRows
	}
	m.featureRows = append(m.featureRows, rows...)
	return nil
}

// memStorage serves canned bytes per URI.
type memStorage struct {
	objects map[string][]byte
}

var _ gcsbatch.Storage = (*memStorage)(nil)

func (m *memStorage) Upload(_ context.Context, bucketName, objectName, _ string) error {
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects["gs://"+bucketName+"/"+objectName] = nil
	return nil
}

func (m *memStorage) Fetch(_ context.Context, gcsURI string) ([]byte, error) {
	data, ok := m.objects[gcsURI]
	if !ok {
		return nil, errors.New("object not found: " + gcsURI)
	}
	return data, nil
}

func newService(repo *memRepo, storage *memStorage) *pipeline.Service {
	asm := features.NewAssembler(recurrence.NewScorer())
	return pipeline.NewService(repo, storage, asm, logger.Nop())
}

const labeledCSV = `id,user_id,name,date,amount,recurring
1,user1,Netflix,2024-01-15,15.99,1
2,user1,Netflix,2024-02-15,15.99,1
3,user1,Netflix,2024-03-15,15.99,1
4,user1,Corner Cafe,2024-02-02,7.40,0
bogus,user1,Broken Row,2024-02-03,1.00,0
`

func TestScoreBatchFromGCS(t *testing.T) {
	repo := newMemRepo()
	storage := &memStorage{objects: map[string][]byte{
		"gs://batches/june.csv": []byte(labeledCSV),
	}}
	svc := newService(repo, storage)

	report, err := svc.ScoreBatchFromGCS(context.Background(), "gs://batches/june.csv", true)
	if err != nil {
		t.Fatalf("ScoreBatchFromGCS: %v", err)
	}

	if report.TransactionCount != 4 {
		t.Errorf("TransactionCount = %d, want 4", report.TransactionCount)
	}
	if report.SkippedRows != 1 {
		t.Errorf("SkippedRows = %d, want 1 (bogus id row)", report.SkippedRows)
	}
	if report.GroupCount != 2 {
		t.Errorf("GroupCount = %d, want 2", report.GroupCount)
	}

	if len(repo.batches) != 1 {
		t.Fatalf("batches inserted = %d, want 1", len(repo.batches))
	}
	b := repo.batches[0]
	if b.OriginalFilename != "june.csv" || !b.Labeled || b.TransactionCount != 4 || b.SkippedRows != 1 {
		t.Errorf("batch row = %+v", b)
	}

	if got := repo.runStatus[report.ScoreRunID]; got != "SUCCESS" {
		t.Errorf("run status = %q, want SUCCESS", got)
	}

	if len(repo.featureRows) != 4 {
		t.Fatalf("feature rows = %d, want one per transaction", len(repo.featureRows))
	}
	for _, row := range repo.featureRows {
		if row.ScoreRunID != report.ScoreRunID || row.BatchID != report.BatchID {
			t.Errorf("row %d not tied to run/batch: %+v", row.TransactionID, row)
		}
		if !row.Label.Valid {
			t.Errorf("row %d missing label in labeled batch", row.TransactionID)
		}
	}

	// Steady monthly Netflix history should score clearly recurring.
	for _, row := range repo.featureRows {
		if row.VendorKey == "netflix" && row.RecurrenceConfidence <= 0.7 {
			t.Errorf("netflix confidence = %v, want > 0.7", row.RecurrenceConfidence)
		}
		if row.VendorKey == "corner cafe" && row.RecurrenceConfidence != 0 {
			t.Errorf("single-transaction vendor confidence = %v, want 0", row.RecurrenceConfidence)
		}
	}
}

func TestScoreBatchFromGCSMissingObject(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo, &memStorage{})

	if _, err := svc.ScoreBatchFromGCS(context.Background(), "gs://batches/missing.csv", false); err == nil {
		t.Fatal("expected error for missing object")
	}
	if len(repo.batches) != 0 {
		t.Errorf("batch registered despite fetch failure")
	}
	if len(repo.runStatus) != 0 {
		t.Errorf("score run started despite fetch failure")
	}
}

func TestScoreBatchFromGCSInsertFailureMarksRunFailed(t *testing.T) {
	repo := newMemRepo()
	repo.failInsertRows = errors.New("stream quota exceeded")
	storage := &memStorage{objects: map[string][]byte{
		"gs://batches/june.csv": []byte(labeledCSV),
	}}
	svc := newService(repo, storage)

	_, err := svc.ScoreBatchFromGCS(context.Background(), "gs://batches/june.csv", true)
	if err == nil {
		t.Fatal("expected error from feature row insert")
	}

	var failed bool
	for id, status := range repo.runStatus {
		if status == "FAILED" {
			failed = true
			if repo.runErrors[id] == "" {
				t.Errorf("failed run %s has no error message", id)
			}
		}
	}
	if !failed {
		t.Error("no run marked FAILED after insert error")
	}
}

func TestScoreTransactions(t *testing.T) {
	svc := newService(newMemRepo(), &memStorage{})

	txs := []domain.Transaction{
		{ID: 1, UserID: "u1", Name: "Spotify AB", Date: "2024-01-03", Amount: 9.99},
		{ID: 2, UserID: "u1", Name: "Spotify AB", Date: "2024-02-03", Amount: 9.99},
		{ID: 3, UserID: "u1", Name: "Spotify AB", Date: "2024-03-03", Amount: 9.99},
		{ID: 4, UserID: "u2", Name: "Hardware Store", Date: "2024-03-10", Amount: 112.50},
	}

	scored := svc.ScoreTransactions(txs)
	if len(scored) != len(txs) {
		t.Fatalf("scored %d transactions, want %d", len(scored), len(txs))
	}

	byID := make(map[int64]features.Vector, len(scored))
	for _, s := range scored {
		byID[s.Transaction.ID] = s.Features
	}
	if byID[2].RecurrenceConfidence <= 0.7 {
		t.Errorf("steady monthly confidence = %v, want > 0.7", byID[2].RecurrenceConfidence)
	}
	if byID[4].RecurrenceConfidence != 0 {
		t.Errorf("lone transaction confidence = %v, want 0", byID[4].RecurrenceConfidence)
	}
}
