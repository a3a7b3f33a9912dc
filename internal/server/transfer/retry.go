package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/common"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/objstore"
)

// retryPolicy counts per-chunk failures against a single ceiling. One
// policy instance serves one pipeline run; upload uses a per-chunk ceiling,
// download and delete size the ceiling to 3x the chunk count.
type retryPolicy struct {
	ceiling int
	counts  map[int]int
}

func newRetryPolicy(ceiling int) *retryPolicy {
	return &retryPolicy{ceiling: ceiling, counts: make(map[int]int)}
}

// next records one failure for the chunk at index and reports whether it may
// be retried, and after what deferral. Non-retryable errors and chunks over
// the ceiling get retry=false.
func (r *retryPolicy) next(index int, err error) (retry bool, delay time.Duration) {
	if !objstore.IsRetryable(err) {
		return false, 0
	}
	r.counts[index]++
	if r.counts[index] > r.ceiling {
		return false, 0
	}
	return true, objstore.RetryAfter(err)
}

func (r *retryPolicy) attempts(index int) int {
	return r.counts[index]
}

// supervise drains pool results until total chunks have succeeded, applying
// the retry policy to failures. Rate-limited chunks are re-enqueued after
// their deferral via a timer; other retryable failures re-enqueue at once.
// Returns on the first terminal failure: a non-retryable error, a chunk over
// the retry ceiling, pool exhaustion or context cancellation.
func supervise(ctx context.Context, pool *Pool, total int, policy *retryPolicy, onDone func(res Result)) error {
	completed := 0
	for completed < total {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-pool.Fatal():
			return err
		case res := <-pool.Results():
			if res.Err != nil {
				retry, delay := policy.next(res.Index, res.Err)
				if !retry {
					if objstore.IsRetryable(res.Err) {
						return fmt.Errorf("chunk %d failed %d times: %w (last: %v)",
							res.Index, policy.attempts(res.Index), common.ErrRetryExhausted, res.Err)
					}
					return fmt.Errorf("chunk %d: %w", res.Index, res.Err)
				}
				if delay > 0 {
					index := res.Index
					time.AfterFunc(delay, func() { pool.Submit(index) })
				} else {
					pool.Submit(res.Index)
				}
				continue
			}
			completed++
			onDone(res)
		}
	}
	return nil
}
