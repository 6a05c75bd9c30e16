// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/poiesic/relata/core"
	"github.com/poiesic/relata/storage"
	"github.com/poiesic/relata/vectorindex"
)

// RetryPolicy configures Retry.
// Transient decides whether a failure is worth another attempt; a nil
// Transient retries every error.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Transient   func(error) bool
}

// Retry runs operation with exponential backoff.
// The delay doubles on each retry. A non-transient error stops retrying
// immediately and is returned as-is.
func Retry(ctx context.Context, policy RetryPolicy, operation func() error) error {
	if policy.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil // Success
		}

		if policy.Transient != nil && !policy.Transient(lastErr) {
			slog.Debug("operation failed with non-transient error, not retrying", "error", lastErr)
			return lastErr
		}

		slog.Debug("operation failed, will retry",
			"attempt", attempt, "maxAttempts", policy.MaxAttempts, "error", lastErr)

		// Don't sleep after the last attempt
		if attempt == policy.MaxAttempts {
			break
		}

		// Exponential backoff: baseDelay * 2^(attempt-1)
		delay := policy.BaseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}

		// Sleep with context awareness
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// Continue to next attempt
		}
	}

	return lastErr
}

// IsTransient classifies an error as retryable.
//
// Only network-class failures qualify: net.Error values, the usual
// timeout/reset/busy message shapes, and a failed post-upsert
// verification (the vector may simply not be readable yet). Everything
// else, including unrecognized remote errors, is permanent and aborts
// on the first attempt.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, core.ErrInvalidRecord) ||
		errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, storage.ErrSerializationFailed) ||
		errors.Is(err, vectorindex.ErrDimensionMismatch) ||
		errors.Is(err, vectorindex.ErrMetricMismatch) {
		return false
	}
	if errors.Is(err, ErrVerificationFailed) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range []string{
		"timeout",
		"connection reset",
		"connection refused",
		"unavailable",
		"too many requests",
		"busy",
	} {
		if strings.Contains(msg, hint) {
			return true
		}
	}

	return false
}
