package service

import (
	"context"
	"sync"
)

// ExportGuard is exported for the service_test package.
type ExportGuard = exportGuard

// exportGuard lets one export run per destination at a time and lets Close
// wait for exports still writing.
type exportGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
	wg     sync.WaitGroup
}

// Acquire marks dest as being written. It reports false when another export
// to dest is in flight.
func (g *exportGuard) Acquire(dest string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == nil {
		g.active = make(map[string]struct{})
	}
	if _, busy := g.active[dest]; busy {
		return false
	}
	g.active[dest] = struct{}{}
	g.wg.Add(1)
	return true
}

// Release ends an export started by a successful Acquire.
func (g *exportGuard) Release(dest string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, dest)
	g.wg.Done()
}

// Busy reports whether an export to dest is in flight.
func (g *exportGuard) Busy(dest string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.active[dest]
	return ok
}

// Wait blocks until no export is running or ctx is done.
func (g *exportGuard) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
