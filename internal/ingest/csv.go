// Package ingest reads transaction batches from CSV. Malformed rows are the
// ingestion layer's problem: they are dropped and counted here so the feature
// pipeline only ever sees well-formed Transaction values.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/domain"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/txdate"
)

// Result is a parsed batch plus the bookkeeping the caller logs or exposes.
type Result struct {
	Transactions []domain.Transaction
	SkippedRows  int
	Labels       map[int64]bool // transaction ID -> recurring label; nil for unlabeled batches
}

// ReadTransactions parses a transaction CSV with header
// "id,user_id,name,date,amount". Rows with malformed ids, dates, or amounts
// are skipped and logged, never fatal; a systematic date-format problem
// upstream surfaces as a large skipped-row count. Amounts are parsed with
// shopspring/decimal so "19.99" survives the trip into a float64 unchanged.
func ReadTransactions(r io.Reader, log zerolog.Logger) (*Result, error) {
	return read(r, log, false)
}

// ReadLabeled parses a training CSV with a trailing 0/1 "recurring" label
// column: "id,user_id,name,date,amount,recurring".
func ReadLabeled(r io.Reader, log zerolog.Logger) (*Result, error) {
	return read(r, log, true)
}

func read(r io.Reader, log zerolog.Logger, labeled bool) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // validated per row so one bad row cannot abort the batch

	header, err := cr.Read()
	if err == io.EOF {
		return &Result{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ReadTransactions: reading header: %w", err)
	}

	want := []string{"id", "user_id", "name", "date", "amount"}
	if labeled {
		want = append(want, "recurring")
	}
	if err := checkHeader(header, want); err != nil {
		return nil, fmt.Errorf("ReadTransactions: %w", err)
	}
	wantFields := len(want)

	result := &Result{}
	if labeled {
		result.Labels = make(map[int64]bool)
	}
	parser := txdate.NewParser()
	seen := make(map[int64]bool)
	line := 1

	for {
		line++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A structurally broken row (bare quote etc). Skip it.
			log.Warn().Err(err).Int("line", line).Msg("Skipping unreadable CSV row")
			result.SkippedRows++
			continue
		}
		if len(record) < wantFields {
			log.Warn().Int("line", line).Int("columns", len(record)).Msg("Skipping short CSV row")
			result.SkippedRows++
			continue
		}

		tx, label, err := parseRow(record, parser, labeled)
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("Skipping malformed transaction row")
			result.SkippedRows++
			continue
		}
		if seen[tx.ID] {
			log.Warn().Int64("id", tx.ID).Int("line", line).Msg("Skipping duplicate transaction id")
			result.SkippedRows++
			continue
		}
		seen[tx.ID] = true

		result.Transactions = append(result.Transactions, tx)
		if labeled {
			result.Labels[tx.ID] = label
		}
	}

	if result.SkippedRows > 0 {
		log.Info().
			Int("skipped", result.SkippedRows).
			Int("accepted", len(result.Transactions)).
			Msg("Batch parsed with skipped rows")
	}

	return result, nil
}

// checkHeader verifies column names, not just the count. A reordered or
// renamed export must fail fast here rather than degrade into a batch of
// skipped rows downstream.
func checkHeader(header, want []string) error {
	if len(header) < len(want) {
		return fmt.Errorf("header has %d columns, want %d (%s)", len(header), len(want), strings.Join(want, ","))
	}
	for i, name := range want {
		if got := strings.ToLower(strings.TrimSpace(header[i])); got != name {
			return fmt.Errorf("unexpected header: column %d is %q, want %q", i+1, header[i], name)
		}
	}
	return nil
}

func parseRow(record []string, parser *txdate.Parser, labeled bool) (domain.Transaction, bool, error) {
	var tx domain.Transaction

	id, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
	if err != nil {
		return tx, false, fmt.Errorf("invalid id %q: %w", record[0], err)
	}

	date := strings.TrimSpace(record[3])
	if _, err := parser.Parse(date); err != nil {
		return tx, false, err
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(record[4]))
	if err != nil {
		return tx, false, fmt.Errorf("invalid amount %q: %w", record[4], err)
	}

	tx = domain.Transaction{
		ID:     id,
		UserID: strings.TrimSpace(record[1]),
		Name:   strings.TrimSpace(record[2]),
		Date:   date,
		Amount: amount.InexactFloat64(),
	}

	if !labeled {
		return tx, false, nil
	}

	switch strings.TrimSpace(record[5]) {
	case "1", "true":
		return tx, true, nil
	case "0", "false", "":
		return tx, false, nil
	default:
		return tx, false, fmt.Errorf("invalid label %q", record[5])
	}
}
