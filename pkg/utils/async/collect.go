package async

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
)

// Result is one item's outcome of a Collect fan-out.
type Result[R any] struct {
	Value R
	Err   error
}

// Collect runs fn for every item concurrently and joins on all of them,
// returning one Result per item in input order. It never fails fast: a
// failing item does not cancel its siblings, matching the per-repository
// independence of sync and versioning operations. A panic in fn is converted
// into that item's error.
func Collect[T, R any](ctx context.Context, items []T, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i].Err = goerr.New("panic in fan-out handler", goerr.V("recover", r))
				}
			}()
			results[i].Value, results[i].Err = fn(ctx, item)
		}(i, item)
	}
	wg.Wait()

	return results
}
