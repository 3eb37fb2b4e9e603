// Package par runs independent build steps in parallel with a bounded
// number of workers and fail-fast semantics: after the first failure no new
// items are started, but items already running are allowed to drain so no
// child process is orphaned.
package par

import "sync"

// Run invokes f on each item with at most n invocations running at a time.
// It returns the first error encountered, or nil when every item succeeded.
func Run[T any](n int, items []T, f func(T) error) error {
	if len(items) == 0 {
		return nil
	}

	if n < 1 {
		n = 1
	}

	if n > len(items) {
		n = len(items)
	}

	var (
		mu       sync.Mutex
		next     int
		firstErr error
	)

	// take hands out the next item, or reports false once the list is
	// exhausted or a failure has been recorded.
	take := func() (T, bool) {
		mu.Lock()
		defer mu.Unlock()

		var zero T
		if firstErr != nil || next >= len(items) {
			return zero, false
		}

		item := items[next]
		next++

		return item, true
	}

	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()

		if firstErr == nil {
			firstErr = err
		}
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()

			for {
				item, ok := take()
				if !ok {
					return
				}

				if err := f(item); err != nil {
					fail(err)
					return
				}
			}
		}()
	}

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()

	return firstErr
}
