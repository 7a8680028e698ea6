package taskqueue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-simnet/config"
)

// submitNonBlocking 提交一个等待 release 的任务；若任务在调用方执行，Submit 不会返回
func submitNonBlocking(t *testing.T, q *Queue) (release func(), finished <-chan struct{}) {
	t.Helper()
	rel := make(chan struct{})
	fin := make(chan struct{})
	returned := make(chan error, 1)
	go func() {
		returned <- q.Submit(func() {
			<-rel
			close(fin)
		})
	}()
	select {
	case err := <-returned:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Submit 阻塞：任务在调用方 goroutine 上执行")
	}
	return func() { close(rel) }, fin
}

// TestQueue_NotInline 测试任务不在调用方 goroutine 执行（含溢出路径）
func TestQueue_NotInline(t *testing.T) {
	q := New(Config{Workers: 1, QueueSize: 1})
	defer q.Close(context.Background())

	release1, fin1 := submitNonBlocking(t, q)
	release2, fin2 := submitNonBlocking(t, q)
	release3, fin3 := submitNonBlocking(t, q)

	// 三个任务都阻塞时，worker 与队列最多容纳两个，至少一个走溢出路径
	release1()
	release2()
	release3()
	for _, fin := range []<-chan struct{}{fin1, fin2, fin3} {
		select {
		case <-fin:
		case <-time.After(time.Second):
			t.Fatal("task did not run")
		}
	}

	assert.GreaterOrEqual(t, q.Stats().Overflow, uint64(1))
}

// TestQueue_CloseWaits 测试关闭时等待任务完成
func TestQueue_CloseWaits(t *testing.T) {
	q := New(Config{Workers: 2, QueueSize: 16})

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Submit(func() {
			time.Sleep(time.Millisecond)
			count.Add(1)
		}))
	}
	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, int32(10), count.Load())

	assert.ErrorIs(t, q.Submit(func() {}), ErrClosed)
	assert.NoError(t, q.Close(context.Background()))

	stats := q.Stats()
	assert.Equal(t, uint64(10), stats.Submitted)
	assert.Equal(t, uint64(10), stats.Completed)
}

// TestQueue_NilTaskAndPanic 测试 nil 任务与 panic 隔离
func TestQueue_NilTaskAndPanic(t *testing.T) {
	q := New(DefaultConfig())
	assert.ErrorIs(t, q.Submit(nil), ErrNilTask)

	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, q.Submit(func() { panic("boom") }))
	require.NoError(t, q.Submit(func() { wg.Done() }))
	wg.Wait()
	require.NoError(t, q.Close(context.Background()))
}

// TestQueue_CloseTimeout 测试关闭超时
func TestQueue_CloseTimeout(t *testing.T) {
	q := New(Config{Workers: 1, QueueSize: 1})
	block := make(chan struct{})
	require.NoError(t, q.Submit(func() { <-block }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Close(ctx), context.DeadlineExceeded)
	close(block)
}

// TestModule 测试 Fx 模块
func TestModule(t *testing.T) {
	var q *Queue
	cfg := config.NewConfig()
	cfg.Loopback.Workers = 1

	app := fxtest.New(t,
		fx.Supply(cfg),
		Module,
		fx.Populate(&q),
	)
	app.RequireStart()
	require.NotNil(t, q)

	done := make(chan struct{})
	require.NoError(t, q.Submit(func() { close(done) }))
	<-done

	app.RequireStop()
	assert.ErrorIs(t, q.Submit(func() {}), ErrClosed)
}
