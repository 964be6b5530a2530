/*
Copyright Credentive Systems Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const defaultMaxRetryElapsed = 10 * time.Second

type retryingAssessor struct {
	next       PolicyAssessor
	newBackOff func() backoff.BackOff
}

// RetryOpt configures WithRetry.
type RetryOpt func(*retryingAssessor)

// WithBackOffFactory overrides the backoff strategy used per Assess call.
func WithBackOffFactory(factory func() backoff.BackOff) RetryOpt {
	return func(r *retryingAssessor) {
		r.newBackOff = factory
	}
}

// WithRetry wraps an assessor, typically a remote policy service client,
// with exponential backoff. Retries stop when the engine's context is
// cancelled, so a retrying assessor never outlives its Compute call.
func WithRetry(next PolicyAssessor, opts ...RetryOpt) PolicyAssessor {
	r := &retryingAssessor{
		next: next,
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.MaxElapsedTime = defaultMaxRetryElapsed

			return bo
		},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *retryingAssessor) Name() string {
	return r.next.Name()
}

func (r *retryingAssessor) Assess(ctx context.Context, req *AssessmentRequest) (*Assessment, error) {
	var result *Assessment

	operation := func() error {
		assessment, err := r.next.Assess(ctx, req)
		if err != nil {
			return err
		}

		result = assessment

		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(r.newBackOff(), ctx)); err != nil {
		return nil, err
	}

	return result, nil
}
