package grouping

import (
	"regexp"
	"strings"

	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/domain"
)

// UserVendor keys a group of transactions belonging to one user at one
// vendor. Recurring billing is scoped per user, so this is the grouping most
// feature functions want.
type UserVendor struct {
	UserID string
	Vendor string
}

// Company suffixes and boilerplate that merchants append inconsistently.
// Stripping them is a recall heuristic: "Netflix" and "NETFLIX LLC" should
// land in the same group. Grouping stays correct without it.
var vendorSuffixes = []string{
	"llc", "inc", "ltd", "co", "corp", "company", "com",
}

var (
	phonePattern       = regexp.MustCompile(`\+?\d[\d\- ]{6,}\d`)
	punctuationPattern = regexp.MustCompile(`[^a-z0-9 ]+`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// NormalizeVendor canonicalizes a free-text merchant string for use as a
// grouping key: lowercase, phone numbers and punctuation removed, company
// suffixes dropped, whitespace collapsed. An input that normalizes to nothing
// (e.g. a bare phone number) falls back to its lowercased trimmed form so the
// transaction is never dropped from grouping.
func NormalizeVendor(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))

	s := phonePattern.ReplaceAllString(lowered, " ")
	s = punctuationPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	words := strings.Fields(s)
	for len(words) > 1 {
		last := words[len(words)-1]
		if !isVendorSuffix(last) {
			break
		}
		words = words[:len(words)-1]
	}
	s = strings.Join(words, " ")

	if s == "" {
		return lowered
	}
	return s
}

func isVendorSuffix(word string) bool {
	for _, suffix := range vendorSuffixes {
		if word == suffix {
			return true
		}
	}
	return false
}

// ByVendor partitions transactions by normalized vendor name. Every input
// transaction appears in exactly one group; within a group, insertion order
// is preserved (callers sort by date before computing intervals). Empty input
// yields an empty map.
func ByVendor(txs []domain.Transaction) map[string][]domain.Transaction {
	groups := make(map[string][]domain.Transaction, len(txs))
	for _, tx := range txs {
		key := NormalizeVendor(tx.Name)
		groups[key] = append(groups[key], tx)
	}
	return groups
}

// ByUserVendor partitions transactions by (user, normalized vendor). Same
// stability guarantees as ByVendor.
func ByUserVendor(txs []domain.Transaction) map[UserVendor][]domain.Transaction {
	groups := make(map[UserVendor][]domain.Transaction, len(txs))
	for _, tx := range txs {
		key := UserVendor{UserID: tx.UserID, Vendor: NormalizeVendor(tx.Name)}
		groups[key] = append(groups[key], tx)
	}
	return groups
}
