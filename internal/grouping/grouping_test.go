package grouping

import (
	"testing"

	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/domain"
)

func TestNormalizeVendor(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercases", input: "NETFLIX", want: "netflix"},
		{name: "strips suffix", input: "Netflix LLC", want: "netflix"},
		{name: "strips punctuation", input: "AT&T*BILL", want: "at t bill"},
		{name: "strips phone number", input: "Comcast 800-266-2278", want: "comcast"},
		{name: "collapses whitespace", input: "  Spotify   USA  ", want: "spotify usa"},
		{name: "keeps suffix-only name", input: "Co", want: "co"},
		{name: "multiple suffixes", input: "Acme Co Ltd", want: "acme"},
		{name: "phone-only falls back to lowered input", input: "800-266-2278", want: "800-266-2278"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeVendor(tt.input); got != tt.want {
				t.Errorf("NormalizeVendor(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestByVendor_Completeness(t *testing.T) {
	txs := []domain.Transaction{
		{ID: 1, UserID: "u1", Name: "Netflix", Date: "2024-01-01", Amount: 15.99},
		{ID: 2, UserID: "u1", Name: "NETFLIX LLC", Date: "2024-02-01", Amount: 15.99},
		{ID: 3, UserID: "u2", Name: "Spotify", Date: "2024-01-05", Amount: 9.99},
		{ID: 4, UserID: "u1", Name: "Corner Shop", Date: "2024-01-07", Amount: 4.20},
	}

	groups := ByVendor(txs)

	total := 0
	seen := make(map[int64]bool)
	for _, group := range groups {
		for _, tx := range group {
			if seen[tx.ID] {
				t.Errorf("transaction %d appears in more than one group", tx.ID)
			}
			seen[tx.ID] = true
			total++
		}
	}
	if total != len(txs) {
		t.Errorf("groups contain %d transactions, want %d", total, len(txs))
	}

	netflix := groups["netflix"]
	if len(netflix) != 2 {
		t.Errorf("netflix group has %d transactions, want 2 (suffix normalization)", len(netflix))
	}
	// Insertion order within the group is preserved.
	if len(netflix) == 2 && (netflix[0].ID != 1 || netflix[1].ID != 2) {
		t.Errorf("netflix group order = [%d %d], want [1 2]", netflix[0].ID, netflix[1].ID)
	}
}

func TestByVendor_Empty(t *testing.T) {
	if got := ByVendor(nil); len(got) != 0 {
		t.Errorf("ByVendor(nil) = %v, want empty map", got)
	}
}

func TestByUserVendor(t *testing.T) {
	txs := []domain.Transaction{
		{ID: 1, UserID: "u1", Name: "Netflix", Date: "2024-01-01", Amount: 15.99},
		{ID: 2, UserID: "u2", Name: "Netflix", Date: "2024-01-01", Amount: 15.99},
		{ID: 3, UserID: "u1", Name: "netflix", Date: "2024-02-01", Amount: 15.99},
	}

	groups := ByUserVendor(txs)

	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	u1 := groups[UserVendor{UserID: "u1", Vendor: "netflix"}]
	if len(u1) != 2 {
		t.Errorf("u1/netflix group has %d transactions, want 2", len(u1))
	}
	u2 := groups[UserVendor{UserID: "u2", Vendor: "netflix"}]
	if len(u2) != 1 {
		t.Errorf("u2/netflix group has %d transactions, want 1", len(u2))
	}

	total := 0
	for _, group := range groups {
		total += len(group)
	}
	if total != len(txs) {
		t.Errorf("groups contain %d transactions, want %d", total, len(txs))
	}
}
