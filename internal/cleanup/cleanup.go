// Package cleanup collects hooks run once before the process exits, such
// as closing the JSONL log file.
package cleanup

import (
	"errors"
	"fmt"
	"sync"
)

type hook struct {
	name string
	fn   func() error
}

var (
	mu    sync.Mutex
	hooks []hook
)

// Register adds fn under name. Hooks run in reverse registration order.
func Register(name string, fn func() error) {
	if fn == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	hooks = append(hooks, hook{name: name, fn: fn})
}

// RunAll runs and forgets every registered hook. Each failure is reported
// with the name of its hook.
func RunAll() error {
	mu.Lock()
	pending := hooks
	hooks = nil
	mu.Unlock()

	var errs []error
	for i := len(pending) - 1; i >= 0; i-- {
		if err := pending[i].fn(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", pending[i].name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	return nil
}
