// Package workers runs message handlers on a bounded pool. Jobs that share a
// key run one at a time in submission order; different keys run in parallel
// up to the pool size.
package workers

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"assistantbot/internal/metrics"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

type Job func(ctx context.Context)

type Pool struct {
	ctx context.Context
	sem *semaphore.Weighted
	wg  sync.WaitGroup

	mu     sync.Mutex
	queues map[int64][]Job
}

// New returns a pool running at most size jobs at once. Jobs get ctx; once
// it is cancelled queued jobs are dropped.
func New(ctx context.Context, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		ctx:    ctx,
		sem:    semaphore.NewWeighted(int64(size)),
		queues: make(map[int64][]Job),
	}
}

// Submit queues job behind earlier jobs with the same key.
func (p *Pool) Submit(key int64, job Job) {
	metrics.QueueDepth.Inc()

	p.mu.Lock()
	queue, running := p.queues[key]
	p.queues[key] = append(queue, job)
	p.mu.Unlock()

	if !running {
		p.wg.Add(1)
		go p.drain(key)
	}
}

// Wait blocks until every submitted job has finished or been dropped.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) drain(key int64) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		queue := p.queues[key]
		if len(queue) == 0 {
			delete(p.queues, key)
			p.mu.Unlock()
			return
		}
		job := queue[0]
		p.queues[key] = queue[1:]
		p.mu.Unlock()

		metrics.QueueDepth.Dec()
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			logrus.Warnf("Задача пользователя %d отброшена: %v", key, err)
			continue
		}
		p.run(key, job)
		p.sem.Release(1)
	}
}

func (p *Pool) run(key int64, job Job) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("user_id", key).Errorf("Паника при обработке сообщения: %v\n%s", fmt.Sprint(r), debug.Stack())
		}
	}()
	job(p.ctx)
}
