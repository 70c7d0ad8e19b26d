// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	pullAttempts = 3
	pullBackoff  = 2 * time.Second
)

// EnsureImage makes ref available to engine according to policy. Transient
// pull failures are retried with backoff.
func EnsureImage(ctx context.Context, engine Engine, ref string, policy PullPolicy, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == "" {
		policy = PullMissing
	}
	if err := policy.Validate(); err != nil {
		return err
	}

	if policy != PullAlways {
		exists, err := engine.ImageExists(ctx, ref)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		if policy == PullNever {
			return fmt.Errorf("%w: %s (pull policy is %q)", ErrImageNotPresent, ref, policy)
		}
	}

	logger.Info("pulling container image", "image", ref, "engine", engine.Name())
	return RetryWithBackoff(ctx, pullAttempts, pullBackoff, func(attempt int) (bool, error) {
		err := engine.Pull(ctx, ref)
		if err != nil && IsTransientError(err) {
			logger.Debug("image pull failed, retrying", "image", ref, "attempt", attempt+1, "error", err)
			return true, err
		}
		return false, err
	})
}
