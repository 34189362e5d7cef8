package subscriptions

import (
	"context"

	"task-sync-backend/pkg/models"
)

// Combine merges two result streams into one. The output is Loading until
// both inputs have produced a Success at least once; an empty Success
// value still counts as produced, so an empty task list combines like any
// other. An Error on either side surfaces immediately. The merged stream
// closes when both inputs close or ctx is cancelled.
func Combine[A, B, C any](ctx context.Context, as <-chan models.Result[A], bs <-chan models.Result[B], merge func(A, B) C) <-chan models.Result[C] {
	out := make(chan models.Result[C], channelBuffer)

	go func() {
		defer close(out)

		var (
			lastA models.Result[A]
			lastB models.Result[B]
			hasA  bool
			hasB  bool
		)

		emit := func() bool {
			var r models.Result[C]
			switch {
			case lastA.IsError():
				r = models.Failure[C](lastA.Err)
			case lastB.IsError():
				r = models.Failure[C](lastB.Err)
			case hasA && hasB:
				r = models.Success(merge(lastA.Value, lastB.Value))
			default:
				r = models.Loading[C]()
			}
			select {
			case out <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}

		for as != nil || bs != nil {
			select {
			case <-ctx.Done():
				return
			case r, ok := <-as:
				if !ok {
					as = nil
					continue
				}
				lastA = r
				if r.IsSuccess() {
					hasA = true
				}
				if !emit() {
					return
				}
			case r, ok := <-bs:
				if !ok {
					bs = nil
					continue
				}
				lastB = r
				if r.IsSuccess() {
					hasB = true
				}
				if !emit() {
					return
				}
			}
		}
	}()

	return out
}
