// Package groutine starts named goroutines. The names show up as pprof
// labels, which makes the link and UI goroutines easy to tell apart in
// profiles and goroutine dumps.
package groutine

import (
	"context"
	"runtime/pprof"
)

// Go starts fn on its own goroutine under the given name.
// If parentCtx is nil, context.Background() is used.
func Go(parentCtx context.Context, name string, fn func(ctx context.Context)) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	labels := pprof.Labels("goroutine_name", name)
	go pprof.Do(parentCtx, labels, fn)
}
