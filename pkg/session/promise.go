package session

import (
	"context"
	"sync"
	"sync/atomic"
)

type outcome[T any] struct {
	val T
	err error
}

// promise is a one-shot result. The first settle wins; later settles are no-ops.
type promise[T any] struct {
	once    sync.Once
	settled atomic.Bool
	ch      chan outcome[T]
}

func newPromise[T any]() *promise[T] {
	return &promise[T]{ch: make(chan outcome[T], 1)}
}

// settle records the result if nothing was recorded yet. onWin hooks run before the
// result becomes visible to wait. Reports whether this call won.
func (p *promise[T]) settle(val T, err error, onWin ...func()) bool {
	won := false
	p.once.Do(func() {
		won = true
		p.settled.Store(true)
		for _, fn := range onWin {
			fn()
		}
		p.ch <- outcome[T]{val: val, err: err}
	})
	return won
}

func (p *promise[T]) done() bool {
	return p.settled.Load()
}

// wait blocks until the promise settles or ctx is done. Cancellation settles the
// promise with wrap(ctx.Err()) so late platform results are ignored.
func (p *promise[T]) wait(ctx context.Context, wrap func(error) error) (T, error) {
	select {
	case o := <-p.ch:
		return o.val, o.err
	case <-ctx.Done():
		var zero T
		p.settle(zero, wrap(ctx.Err()))
		o := <-p.ch
		return o.val, o.err
	}
}
