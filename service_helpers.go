package adminkit

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ============================================================================
// RETRIES
// ============================================================================

// RetryOnConflict runs fn until it returns something other than a conflict,
// at most attempts times (the configured default when attempts <= 0). fn
// must re-read whatever it bases its write on, so that every attempt
// re-validates against current state.
//
// Example:
//
//	err := service.RetryOnConflict(ctx, 0, func(ctx context.Context) error {
//	    rec, err := service.GetAdminRecord(ctx, "user_123")
//	    if err != nil {
//	        return err
//	    }
//	    _, err = service.ChangeRole(ctx, actor, adminkit.ChangeRoleRequest{
//	        IdentityID:      rec.IdentityID,
//	        Role:            adminkit.RoleSupport,
//	        ExpectedVersion: rec.Version,
//	    })
//	    return err
//	})
func (s *Service) RetryOnConflict(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = s.conflictRetries
	}
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !IsConflict(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		s.logger.WithFields(logrus.Fields{
			"attempt":    attempt + 1,
			"request_id": GetRequestID(ctx),
		}).Debug("retrying after conflict")

		if werr := sleepBackoff(ctx, s.readBackoff, attempt); werr != nil {
			return err
		}
	}
	return err
}

// retryRead runs an idempotent read, retrying transient failures up to the
// configured number of times. Domain errors are returned at once.
func retryRead[T any](ctx context.Context, s *Service, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for attempt := 0; attempt <= s.readRetries; attempt++ {
		result, err = fn(ctx)
		if err == nil || !isTransientError(err) || ctx.Err() != nil {
			return result, err
		}
		if attempt == s.readRetries {
			break
		}

		s.logger.WithFields(logrus.Fields{
			"operation": op,
			"attempt":   attempt + 1,
			"error":     err.Error(),
		}).Debug("retrying transient read failure")

		if werr := sleepBackoff(ctx, s.readBackoff, attempt); werr != nil {
			return result, err
		}
	}
	return result, err
}

// sleepBackoff waits base*2^attempt plus up to 50% jitter, or until ctx ends.
func sleepBackoff(ctx context.Context, base time.Duration, attempt int) error {
	if base <= 0 {
		return ctx.Err()
	}
	backoff := base << uint(attempt)
	jitter := time.Duration(float64(backoff) * 0.5 * rand.Float64())

	timer := time.NewTimer(backoff + jitter)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isTransientError reports whether a failed read may succeed when repeated.
// Classified adminkit errors never are, except database errors whose cause
// looks like a connectivity or locking problem.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch KindOf(err) {
	case KindAccessDenied, KindPermissionDenied, KindValidation, KindConflict:
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range transientErrorFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

// PostgreSQL and driver messages of failures worth retrying.
var transientErrorFragments = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"timeout",
	"deadlock",
	"lock wait timeout",
	"temporary failure",
	"try again",
	"resource temporarily unavailable",
	"bad connection",
}
