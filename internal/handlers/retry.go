package handlers

import (
	"errors"

	"garage-backend/internal/models"
)

// retryOnce re-runs an idempotent operation a single time when it fails with
// something outside the domain error taxonomy, which is how transient store
// failures (lost connection, lock timeout) surface. Domain errors are final
// and never retried, and non-idempotent operations (payments, clock-in) must
// not go through this helper.
func retryOnce[T any](fn func() (T, error)) (T, error) {
	out, err := fn()
	if err == nil || isDomainError(err) {
		return out, err
	}
	return fn()
}

func isDomainError(err error) bool {
	return errors.Is(err, models.ErrNotFound) ||
		errors.Is(err, models.ErrConflict) ||
		errors.Is(err, models.ErrInvalidTransition) ||
		errors.Is(err, models.ErrPreconditionFailed) ||
		errors.Is(err, models.ErrValidation)
}
