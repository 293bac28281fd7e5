package qthought

import (
	"context"
	"sync"
)

/*
branchPool fans branch-enumeration jobs out over a fixed set of workers.
Each job owns a private System copy, so workers never share mutable state;
the first error cancels the remaining jobs. Protocol execution itself stays
strictly sequential; only the independent per-value branches of the
inference engine go through here.
*/
type branchPool struct {
	ctx    context.Context
	cancel context.CancelFunc
	jobs   chan int
	wg     sync.WaitGroup

	mu  sync.Mutex
	err error
}

func newBranchPool(workers int, run func(value int) error) *branchPool {
	ctx, cancel := context.WithCancel(context.Background())
	bp := &branchPool{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(chan int),
	}

	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		bp.wg.Add(1)
		go func() {
			defer bp.wg.Done()
			for {
				select {
				case <-bp.ctx.Done():
					return
				case value, ok := <-bp.jobs:
					if !ok {
						return
					}
					if err := run(value); err != nil {
						bp.fail(err)
						return
					}
				}
			}
		}()
	}
	return bp
}

func (bp *branchPool) fail(err error) {
	bp.mu.Lock()
	if bp.err == nil {
		bp.err = err
	}
	bp.mu.Unlock()
	bp.cancel()
}

// submit queues one branch value; returns false once the pool has failed.
func (bp *branchPool) submit(value int) bool {
	select {
	case bp.jobs <- value:
		return true
	case <-bp.ctx.Done():
		return false
	}
}

// wait drains the pool and returns the first error, if any.
func (bp *branchPool) wait() error {
	close(bp.jobs)
	bp.wg.Wait()
	bp.cancel()

	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.err
}
