package matcher

import (
	"fmt"
)

// RequestNotFoundError indicates the request id does not exist. Not retried;
// callers log and drop.
type RequestNotFoundError struct {
	RequestID string
}

func (e *RequestNotFoundError) Error() string {
	return fmt.Sprintf("request %s not found", e.RequestID)
}

// MissingDescriptionError indicates the record has no usable text to embed.
// The record stays unmatched until it gains a description; callers skip it
// rather than aborting a whole pass.
type MissingDescriptionError struct {
	RecordID string
}

func (e *MissingDescriptionError) Error() string {
	return fmt.Sprintf("record %s has no usable description to embed", e.RecordID)
}

// EmbeddingProviderError indicates a transient or permanent failure calling
// the embedding provider. The vector is not persisted on failure, so a later
// pass retries the embedding step.
type EmbeddingProviderError struct {
	Err error
}

func (e *EmbeddingProviderError) Error() string {
	return fmt.Sprintf("embedding provider: %v", e.Err)
}

func (e *EmbeddingProviderError) Unwrap() error {
	return e.Err
}

// VectorIndexMissingError indicates the found-item collection has no queryable
// vector index configured. A provisioning defect, surfaced distinctly from
// transient failures and never retried.
type VectorIndexMissingError struct {
	Err error
}

func (e *VectorIndexMissingError) Error() string {
	return fmt.Sprintf("vector index missing: %v", e.Err)
}

func (e *VectorIndexMissingError) Unwrap() error {
	return e.Err
}
