package curation

import (
	types "github.com/jamespheffernan/words-on-phone-sub001/internal/domain"
)

// Candidate is a generated phrase that has not been admitted yet. BatchIndex
// and Position pin its place in the deterministic merge order.
type Candidate struct {
	Raw        string
	Text       string
	FirstWord  string
	Category   string
	Source     string
	Recent     bool
	BatchIndex int
	Position   int

	Score ScoreResult
}

type Classification string

const (
	ClassAutoAccept   Classification = "auto_accept"
	ClassAccept       Classification = "accept"
	ClassManualReview Classification = "manual_review"
	ClassWarning      Classification = "warning"
	ClassAutoReject   Classification = "auto_reject"
)

// Classify applies the composite-score thresholds. Boundaries are inclusive
// on the lower edge of each band.
func Classify(total int) Classification {
	switch {
	case total >= 80:
		return ClassAutoAccept
	case total >= 60:
		return ClassAccept
	case total >= 40:
		return ClassManualReview
	case total >= 20:
		return ClassWarning
	default:
		return ClassAutoReject
	}
}

type ScoreResult struct {
	Total          int
	Breakdown      types.ScoreBreakdown
	Classification Classification
}

type DropReason string

const (
	DropInvalidFormat  DropReason = "invalid_format"
	DropDuplicate      DropReason = "duplicate"
	DropFirstWordLimit DropReason = "first-word-limit"
	DropQuotaExceeded  DropReason = "quota_exceeded"
	DropAutoReject     DropReason = "auto_reject"
	DropWarning        DropReason = "warning"
	DropManualReview   DropReason = "manual_review"
)

// Dropped pairs a candidate with the reason it left the pipeline.
type Dropped struct {
	Candidate Candidate
	Reason    DropReason
}
