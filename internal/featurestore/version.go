package featurestore

import "github.com/google/uuid"

// ScorerVersion is recorded on every score run so feature rows can be
// traced back to the scoring logic that produced them. Bump on changes
// to the feature set or the confidence blend.
const ScorerVersion = "v1.2.0"

func newRunID() string {
	return uuid.New().String()
}
