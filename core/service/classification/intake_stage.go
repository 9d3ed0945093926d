// Package classification assigns incoming messages to campaigns.
package classification

import (
	"context"

	"intake_server/core/domain"
)

// StageKind is the tagged result of one cascade stage.
type StageKind int

const (
	// NotMatched means the stage ran and found nothing; the cascade moves on.
	NotMatched StageKind = iota
	// Matched carries a classification and ends the cascade.
	Matched
	// Unavailable means the stage could not run. The stage policy decides
	// whether the cascade moves on or fails.
	Unavailable
)

func (k StageKind) String() string {
	switch k {
	case Matched:
		return "matched"
	case Unavailable:
		return "unavailable"
	default:
		return "not_matched"
	}
}

// StageResult is returned by every stage.
type StageResult struct {
	Kind   StageKind
	Result *domain.ClassificationResult
	Err    error
}

func matched(c *domain.Campaign, confidence float64) StageResult {
	return StageResult{
		Kind: Matched,
		Result: &domain.ClassificationResult{
			CampaignID:   c.ID,
			CampaignName: c.Name,
			Confidence:   confidence,
		},
	}
}

func notMatched() StageResult { return StageResult{Kind: NotMatched} }

func unavailable(err error) StageResult { return StageResult{Kind: Unavailable, Err: err} }

// FailurePolicy says what an Unavailable result does to the cascade.
type FailurePolicy int

const (
	// SoftFail treats Unavailable as NotMatched.
	SoftFail FailurePolicy = iota
	// Fatal aborts classification with ErrClassificationUnavailable.
	Fatal
)

// StageInput is what each stage sees.
type StageInput struct {
	Embedding []float32
	Hint      string
}

// StageFunc runs one stage of the cascade.
type StageFunc func(ctx context.Context, in StageInput) StageResult

// Stage is one row of the cascade policy table.
type Stage struct {
	Name   string
	Run    StageFunc
	Policy FailurePolicy
}
