package usecase

import "PaperTracker/internal/domain"

// DefaultConfidenceThreshold is the exclusive lower bound a classification
// confidence must exceed before a paper is announced.
const DefaultConfidenceThreshold = 0.8

// Gate decides whether a processed paper fires a notification.
// The zero value uses DefaultConfidenceThreshold.
type Gate struct {
	Threshold float64
}

// ShouldNotify fires only for first-seen papers that belong to the category
// with confidence strictly above the threshold. Metric refreshes of known
// papers never re-notify.
func (g Gate) ShouldNotify(isNew bool, result domain.ClassificationResult) bool {
	threshold := g.Threshold
	if threshold == 0 {
		threshold = DefaultConfidenceThreshold
	}
	return isNew && result.Belongs && result.Confidence > threshold
}

// ShouldNotify applies the default gate.
func ShouldNotify(isNew bool, result domain.ClassificationResult) bool {
	return Gate{}.ShouldNotify(isNew, result)
}
