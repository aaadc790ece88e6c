/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package reconciler

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/carverauto/storagesync/pkg/models"
)

// RetryPolicy bounds the retries applied to a single collaborator call.
// Retries are local to one operation; they never restart a pass.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxTries        uint
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		MaxTries:        3,
	}
}

// retryCall runs op with exponential backoff. Validation rejections are
// permanent: retrying without changed input cannot succeed.
func retryCall[T any](ctx context.Context, policy RetryPolicy, op func() (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.InitialInterval
	bo.MaxInterval = policy.MaxInterval
	bo.Multiplier = 1.6
	bo.RandomizationFactor = 0.2

	operation := func() (T, error) {
		out, err := op()
		if err != nil && !retryable(err) {
			return out, backoff.Permanent(err)
		}

		return out, err
	}

	return backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(policy.MaxTries))
}

func retryable(err error) bool {
	if errors.Is(err, models.ErrTargetRejected) {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return true
}
