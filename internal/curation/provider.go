package curation

import (
	"context"
	"errors"
	"fmt"
)

// GenerationProvider is the opaque text-generation backend. One call is one
// batch of raw candidate phrases for a category.
type GenerationProvider interface {
	Generate(ctx context.Context, category string, count int, biasRecent bool) ([]string, error)
	// Name tags admitted phrases with their provenance.
	Name() string
}

type ProviderErrorKind string

const (
	ProviderRateLimited ProviderErrorKind = "rate_limited"
	ProviderTimeout     ProviderErrorKind = "timeout"
	ProviderMalformed   ProviderErrorKind = "malformed"
	ProviderUnavailable ProviderErrorKind = "unavailable"
)

// ProviderError classifies a failed generation call. A failed call loses its
// batch for the round and nothing more.
type ProviderError struct {
	Kind ProviderErrorKind
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("provider %s", e.Kind)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func NewProviderError(kind ProviderErrorKind, err error) *ProviderError {
	return &ProviderError{Kind: kind, Err: err}
}

func ProviderErrorKindOf(err error) ProviderErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ProviderTimeout
	}
	return ProviderUnavailable
}

// KnowledgeBaseResult is one phrase's entry from a batched knowledge-base
// lookup.
type KnowledgeBaseResult struct {
	Exists        bool
	SourceCount   int
	CrossRefCount int
}

// KnowledgeBaseLookup validates phrases against an external structured
// knowledge base, up to KnowledgeBaseBatchMax texts per round-trip.
type KnowledgeBaseLookup interface {
	LookupBatch(ctx context.Context, texts []string) (map[string]KnowledgeBaseResult, error)
}

const KnowledgeBaseBatchMax = 50

type EngagementTier string

const (
	EngagementNone   EngagementTier = "none"
	EngagementMedium EngagementTier = "medium"
	EngagementHigh   EngagementTier = "high"
)

// SocialRelevanceLookup reports an engagement tier for a single phrase.
// Callers are responsible for pacing; the lookup itself does not throttle.
type SocialRelevanceLookup interface {
	Lookup(ctx context.Context, text string) (EngagementTier, error)
}
