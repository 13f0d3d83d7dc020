package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/foodshare/food-recognition-service/classification"
)

var ErrPoolClosed = errors.New("session pool is closed")

// SessionFactory builds a new model session. It is called lazily, so the
// model artifact is looked up when a session is first needed.
type SessionFactory func() (classification.Session, error)

// ModelSessionPool keeps up to size model sessions alive and hands each to
// one request at a time. With size 0 every Acquire builds a fresh session
// and Release destroys it.
type ModelSessionPool struct {
	factory        SessionFactory
	sessions       chan classification.Session
	slots          chan struct{}
	size           int
	acquireTimeout time.Duration
	mu             sync.Mutex
	closed         bool
	metrics        *PoolMetrics
}

type PoolMetrics struct {
	mu               sync.RWMutex
	live             int
	inUse            int
	totalAcquired    int64
	totalReleased    int64
	totalDiscarded   int64
	acquireFailures  int64
	creationFailures int64
	waitTime         time.Duration
}

// PoolStats is a point-in-time copy of the pool counters.
type PoolStats struct {
	Size             int
	Live             int
	InUse            int
	TotalAcquired    int64
	TotalReleased    int64
	TotalDiscarded   int64
	AcquireFailures  int64
	CreationFailures int64
	WaitTime         time.Duration
}

func NewModelSessionPool(factory SessionFactory, size int, acquireTimeout time.Duration) *ModelSessionPool {
	if size < 0 {
		size = 0
	}
	return &ModelSessionPool{
		factory:        factory,
		sessions:       make(chan classification.Session, size),
		slots:          make(chan struct{}, size),
		size:           size,
		acquireTimeout: acquireTimeout,
		metrics:        &PoolMetrics{},
	}
}

// Warm fills the pool up to its size. Failures are returned but leave the
// pool usable; missing sessions are built on demand later.
func (p *ModelSessionPool) Warm() error {
	for i := 0; i < p.size; i++ {
		select {
		case p.slots <- struct{}{}:
		default:
			return nil
		}
		session, err := p.create()
		if err != nil {
			return fmt.Errorf("failed to initialize session %d: %w", i, err)
		}
		if !p.put(session) {
			p.destroy(session)
			return ErrPoolClosed
		}
	}
	return nil
}

func (p *ModelSessionPool) Acquire(ctx context.Context) (classification.Session, error) {
	if p.isClosed() {
		return nil, ErrPoolClosed
	}

	start := time.Now()
	defer func() {
		p.metrics.mu.Lock()
		p.metrics.waitTime += time.Since(start)
		p.metrics.mu.Unlock()
	}()

	if p.size == 0 {
		session, err := p.create()
		if err != nil {
			return nil, err
		}
		p.markAcquired()
		return session, nil
	}

	// Prefer an idle session over building a new one.
	select {
	case session := <-p.sessions:
		return p.acquired(session)
	default:
	}

	var timeout <-chan time.Time
	if p.acquireTimeout > 0 {
		timer := time.NewTimer(p.acquireTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case session := <-p.sessions:
		return p.acquired(session)
	case p.slots <- struct{}{}:
		session, err := p.create()
		if err != nil {
			return nil, err
		}
		p.markAcquired()
		return session, nil
	case <-timeout:
		p.metrics.mu.Lock()
		p.metrics.acquireFailures++
		p.metrics.mu.Unlock()
		return nil, fmt.Errorf("timeout waiting for available session")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *ModelSessionPool) acquired(session classification.Session) (classification.Session, error) {
	if session == nil {
		// The channel was closed by Destroy.
		return nil, ErrPoolClosed
	}
	p.markAcquired()
	return session, nil
}

// create builds a session. For a bounded pool the caller already holds a
// slot, which is given back on failure.
func (p *ModelSessionPool) create() (classification.Session, error) {
	session, err := p.factory()
	if err != nil {
		if p.size > 0 {
			<-p.slots
		}
		p.metrics.mu.Lock()
		p.metrics.creationFailures++
		p.metrics.mu.Unlock()
		return nil, err
	}

	p.metrics.mu.Lock()
	p.metrics.live++
	p.metrics.mu.Unlock()
	return session, nil
}

func (p *ModelSessionPool) markAcquired() {
	p.metrics.mu.Lock()
	p.metrics.inUse++
	p.metrics.totalAcquired++
	p.metrics.mu.Unlock()
}

// Release returns a healthy session to the pool.
func (p *ModelSessionPool) Release(session classification.Session) {
	p.metrics.mu.Lock()
	p.metrics.inUse--
	p.metrics.totalReleased++
	p.metrics.mu.Unlock()

	if p.size == 0 || !p.put(session) {
		p.destroy(session)
	}
}

// Discard destroys a session that failed and frees its slot.
func (p *ModelSessionPool) Discard(session classification.Session) {
	p.metrics.mu.Lock()
	p.metrics.inUse--
	p.metrics.totalDiscarded++
	p.metrics.mu.Unlock()

	p.destroy(session)
}

func (p *ModelSessionPool) put(session classification.Session) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	p.sessions <- session
	return true
}

func (p *ModelSessionPool) destroy(session classification.Session) {
	session.Destroy()

	p.metrics.mu.Lock()
	p.metrics.live--
	p.metrics.mu.Unlock()

	if p.size > 0 {
		<-p.slots
	}
}

func (p *ModelSessionPool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true
	close(p.sessions)

	// Destroy all idle sessions; busy ones are destroyed on Release.
	for session := range p.sessions {
		session.Destroy()
		p.metrics.mu.Lock()
		p.metrics.live--
		p.metrics.mu.Unlock()
	}
}

func (p *ModelSessionPool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *ModelSessionPool) Size() int {
	return p.size
}

func (p *ModelSessionPool) Stats() PoolStats {
	p.metrics.mu.RLock()
	defer p.metrics.mu.RUnlock()
	return PoolStats{
		Size:             p.size,
		Live:             p.metrics.live,
		InUse:            p.metrics.inUse,
		TotalAcquired:    p.metrics.totalAcquired,
		TotalReleased:    p.metrics.totalReleased,
		TotalDiscarded:   p.metrics.totalDiscarded,
		AcquireFailures:  p.metrics.acquireFailures,
		CreationFailures: p.metrics.creationFailures,
		WaitTime:         p.metrics.waitTime,
	}
}
