package domain

// ClassificationResult is the outcome of one (paper, category) evaluation.
// It is never cached or reused across calls.
type ClassificationResult struct {
	Belongs    bool    `json:"belongs_to_category"`
	Confidence float64 `json:"confidence"`
}

// ItemStage enumerates the per-URL milestones of a tracking batch.
type ItemStage string

const (
	StagePending        ItemStage = "pending"
	StageExtracting     ItemStage = "extracting"
	StageExtractFailed  ItemStage = "extract_failed"
	StageExtracted      ItemStage = "extracted"
	StagePersisting     ItemStage = "persisting"
	StagePersistFailed  ItemStage = "persist_failed"
	StagePersisted      ItemStage = "persisted"
	StageClassifying    ItemStage = "classifying"
	StageClassifyFailed ItemStage = "classify_failed"
	StageClassified     ItemStage = "classified"
	StageDeciding       ItemStage = "deciding"
	StageDone           ItemStage = "done"
)

// Failed reports whether the stage is a terminal failure.
func (s ItemStage) Failed() bool {
	switch s {
	case StageExtractFailed, StagePersistFailed, StageClassifyFailed:
		return true
	}
	return false
}
