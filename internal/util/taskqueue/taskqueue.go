// Package taskqueue 提供有界的异步任务队列
//
// 固定数量的 worker 从有界队列取任务执行。Submit 从不在调用方 goroutine 上执行任务：
// 队列已满时任务交给新建的 goroutine，避免在协议栈向下调用中阻塞或重入。
package taskqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-simnet/pkg/lib/log"
)

var logger = log.Logger("simnet/taskqueue")

var (
	// ErrClosed 队列已关闭
	ErrClosed = errors.New("taskqueue: closed")

	// ErrNilTask 任务为 nil
	ErrNilTask = errors.New("taskqueue: nil task")
)

// Config 队列配置
type Config struct {
	// Workers worker 数量
	Workers int

	// QueueSize 队列容量
	QueueSize int
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Workers:   4,
		QueueSize: 1024,
	}
}

// Stats 运行统计
type Stats struct {
	Submitted uint64
	Completed uint64
	Overflow  uint64
}

// Queue 有界任务队列
type Queue struct {
	tasks chan func()

	// mu 保护 closed 与 tasks 的关闭
	mu     sync.RWMutex
	closed bool

	workers  sync.WaitGroup
	overflow sync.WaitGroup

	submitted atomic.Uint64
	completed atomic.Uint64
	spilled   atomic.Uint64
}

// New 创建并启动队列
func New(cfg Config) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	q := &Queue{tasks: make(chan func(), cfg.QueueSize)}
	q.workers.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go q.work()
	}
	return q
}

func (q *Queue) work() {
	defer q.workers.Done()
	for task := range q.tasks {
		q.run(task)
	}
}

func (q *Queue) run(task func()) {
	defer q.completed.Add(1)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("任务 panic", "recover", r)
		}
	}()
	task()
}

// Submit 提交任务
func (q *Queue) Submit(task func()) error {
	if task == nil {
		return ErrNilTask
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	q.submitted.Add(1)
	select {
	case q.tasks <- task:
	default:
		q.spilled.Add(1)
		logger.Debug("队列已满，任务转交独立 goroutine")
		q.overflow.Add(1)
		go func() {
			defer q.overflow.Done()
			q.run(task)
		}()
	}
	return nil
}

// Close 关闭队列并等待已提交的任务执行完毕
//
// ctx 到期时立即返回 ctx.Err()，剩余任务仍会在后台执行完。
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.workers.Wait()
		q.overflow.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats 返回运行统计
func (q *Queue) Stats() Stats {
	return Stats{
		Submitted: q.submitted.Load(),
		Completed: q.completed.Load(),
		Overflow:  q.spilled.Load(),
	}
}
