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

package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// maxBackoff caps the wait between two extraction attempts.
const maxBackoff = 30 * time.Second

// RetryWithBackoff calls operation with a 1-based attempt number until it
// succeeds, maxAttempts calls have failed or ctx is done. The wait starts at
// baseDelay and doubles after every failure up to maxBackoff.
//
// When every attempt fails the error wraps ErrAttemptsExhausted and the last
// operation error, and reports how many attempts were made.
func RetryWithBackoff(ctx context.Context, logger *slog.Logger, maxAttempts int, baseDelay time.Duration, operation func(attempt int) error) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}

	delay := baseDelay
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = operation(attempt); lastErr == nil {
			if attempt > 1 {
				logger.Debug("extraction recovered", "attempt", attempt)
			}
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		logger.Debug("extraction failed, backing off", "attempt", attempt, "max_attempts", maxAttempts, "delay", delay, "err", lastErr)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, maxBackoff)
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, maxAttempts, lastErr)
}
