package resilience

import (
	"context"
	"errors"

	"github.com/kirillkom/footwear-qc/internal/core/domain"
)

var (
	// Transient failures are retried and count against the breaker.
	Transient = ErrorClassification{Retryable: true, RecordFailure: true}
	// Permanent failures fail fast but still count against the breaker.
	Permanent = ErrorClassification{RecordFailure: true}
	// Ignored outcomes neither retry nor trip the breaker.
	Ignored = ErrorClassification{}
)

// Classify builds a classifier that ignores cancellation and open circuits
// and hands every other error to match.
func Classify(match func(err error) ErrorClassification) ErrorClassifier {
	return func(err error) ErrorClassification {
		switch {
		case err == nil:
			return Ignored
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), IsCircuitOpen(err):
			return Ignored
		}
		if match == nil {
			return Permanent
		}
		return match(err)
	}
}

// WrapTemporary tags retryable failures and open circuits as
// domain.ErrTemporary so adapters can answer 503.
func WrapTemporary(operation string, err error, classifier ErrorClassifier) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if IsCircuitOpen(err) || (classifier != nil && classifier(err).Retryable) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
