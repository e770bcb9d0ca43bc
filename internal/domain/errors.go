package domain

import (
	"context"
	"errors"
)

// Sentinel errors for the evaluation pipeline.
var (
	// ErrInvalidAddress is fatal: the orchestrator fails before fan-out.
	ErrInvalidAddress = errors.New("invalid token address")

	// ErrRateLimited marks an upstream 429. Recorded as a failure for
	// this run, not retried synchronously.
	ErrRateLimited = errors.New("upstream rate limited")

	// ErrUpstreamMalformed marks an upstream response that failed shape
	// normalization. Treated like a timeout by the aggregator.
	ErrUpstreamMalformed = errors.New("upstream response malformed")
)

// ClassifyError maps an error from a detector run to its ErrorKind.
func ClassifyError(err error) ErrorKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrKindTimeout
	case errors.Is(err, ErrRateLimited):
		return ErrKindRateLimited
	case errors.Is(err, ErrUpstreamMalformed):
		return ErrKindUpstreamMalformed
	case errors.Is(err, ErrInvalidAddress):
		return ErrKindInvalidAddress
	default:
		return ErrKindInternal
	}
}
