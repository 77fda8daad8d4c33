// Package groutine starts named goroutines. The name is attached as a pprof label and
// stored in the goroutine's context, so platform callbacks can be traced back to the
// request that spawned them.
package groutine

import (
	"context"
	"runtime/pprof"
)

type ctxKey string

const nameKey ctxKey = "goroutine_name"

// Go runs fn in a new goroutine labelled name. A nil parentCtx means context.Background().
//
//	groutine.Go(ctx, "ble-dial", func(ctx context.Context) {
//	    // blocking platform call
//	})
func Go(parentCtx context.Context, name string, fn func(ctx context.Context)) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	labels := pprof.Labels("goroutine_name", name)

	go pprof.Do(parentCtx, labels, func(ctx context.Context) {
		fn(context.WithValue(ctx, nameKey, name))
	})
}

// Name returns the goroutine name stored in ctx, or "" when ctx was not created by Go.
func Name(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(nameKey).(string); ok {
		return s
	}
	return ""
}
