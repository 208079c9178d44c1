package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var ErrPoolClosed = errors.New("worker pool is closed")

// Config configures the pool
type Config struct {
	// Workers is the number of concurrent workers
	Workers int
}

// DefaultConfig returns a configuration sized for blob I/O fan-out
func DefaultConfig() *Config {
	return &Config{Workers: 16}
}

// Statistics tracks task counts
type Statistics struct {
	mu sync.RWMutex

	Submitted int64
	Completed int64
	Failed    int64
}

func (s *Statistics) incSubmitted() {
	s.mu.Lock()
	s.Submitted++
	s.mu.Unlock()
}

func (s *Statistics) incCompleted() {
	s.mu.Lock()
	s.Completed++
	s.mu.Unlock()
}

func (s *Statistics) incFailed() {
	s.mu.Lock()
	s.Failed++
	s.mu.Unlock()
}

// Get returns a copy of the current counters
func (s *Statistics) Get() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Statistics{
		Submitted: s.Submitted,
		Completed: s.Completed,
		Failed:    s.Failed,
	}
}

// Pool is a fixed-size worker pool for fanning out independent blob
// operations. Collection mutation stays with the caller; only I/O runs
// here.
type Pool struct {
	pool   *ants.Pool
	stats  *Statistics
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// New creates a worker pool
func New(config *Config, logger *zap.Logger) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}

	antsPool, err := ants.NewPool(config.Workers,
		ants.WithPanicHandler(func(err interface{}) {
			logger.Error("worker panic", zap.Any("error", err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		pool:   antsPool,
		stats:  &Statistics{},
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}, nil
}

// Submit schedules a task on the pool
func (p *Pool) Submit(task func()) error {
	select {
	case <-p.ctx.Done():
		return ErrPoolClosed
	default:
	}

	p.stats.incSubmitted()
	return p.pool.Submit(func() {
		defer p.stats.incCompleted()
		task()
	})
}

// SubmitWait schedules each task and blocks until all of them finish.
// A task that cannot be scheduled counts as failed; the others still run.
func (p *Pool) SubmitWait(tasks []func()) {
	var wg sync.WaitGroup
	for _, task := range tasks {
		task := task
		wg.Add(1)
		if err := p.Submit(func() {
			defer wg.Done()
			task()
		}); err != nil {
			p.stats.incFailed()
			wg.Done()
		}
	}
	wg.Wait()
}

// Running returns the number of busy workers
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Stats returns a snapshot of task counters
func (p *Pool) Stats() Statistics {
	return p.stats.Get()
}

// Shutdown stops accepting tasks and releases the workers
func (p *Pool) Shutdown() {
	p.cancel()
	p.pool.Release()
}
