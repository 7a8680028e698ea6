package fault

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-simnet/internal/stack"
	"github.com/dep2p/go-simnet/internal/util/taskqueue"
	"github.com/dep2p/go-simnet/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

// wire 栈底的捕获层，记录所有到达的向下事件
type wire struct {
	stack.Base
	mu   sync.Mutex
	msgs []*types.Message
	evts []types.EventType
}

func (w *wire) Down(evt *types.Event) any {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evts = append(w.evts, evt.Type)
	if msg := evt.Message(); msg != nil {
		w.msgs = append(w.msgs, msg)
	}
	if evt.Type == types.EventGetPhysicalAddress {
		return types.NewPhysicalAddress("c", 1)
	}
	return nil
}

func (w *wire) sent() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.msgs)
}

// app 栈顶的捕获层
type app struct {
	stack.Base
	mu      sync.Mutex
	msgs    []*types.Message
	batches []*types.MessageBatch
	notify  chan struct{}
}

func newApp() *app {
	return &app{Base: stack.NewBase("app"), notify: make(chan struct{}, 64)}
}

func (a *app) Up(evt *types.Event) any {
	if msg := evt.Message(); msg != nil {
		a.mu.Lock()
		a.msgs = append(a.msgs, msg)
		a.mu.Unlock()
		a.notify <- struct{}{}
	}
	return nil
}

func (a *app) UpBatch(batch *types.MessageBatch) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.batches = append(a.batches, batch)
}

func (a *app) received() []*types.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*types.Message(nil), a.msgs...)
}

// waitDeliveries 等待 n 次向上投递
func (a *app) waitDeliveries(t *testing.T, n int) {
	t.Helper()
	for k := 0; k < n; k++ {
		select {
		case <-a.notify:
		case <-time.After(time.Second):
			t.Fatalf("等待第 %d 次投递超时", k+1)
		}
	}
}

// assertNoMoreDeliveries 在短时间内没有额外投递
func (a *app) assertNoMoreDeliveries(t *testing.T) {
	t.Helper()
	select {
	case <-a.notify:
		t.Fatal("出现多余的投递")
	case <-time.After(50 * time.Millisecond):
	}
}

type fixture struct {
	inj   *Injector
	wire  *wire
	app   *app
	local types.Address
	queue *taskqueue.Queue
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	q := taskqueue.New(taskqueue.Config{Workers: 2, QueueSize: 16})
	t.Cleanup(func() { _ = q.Close(context.Background()) })

	inj, err := New(cfg, q)
	require.NoError(t, err)
	w := &wire{Base: stack.NewBase("wire")}
	a := newApp()
	_, err = stack.New(nil, w, inj, a)
	require.NoError(t, err)

	local := types.NewAddress()
	inj.Down(types.NewEvent(types.EventSetLocalAddress, local))
	return &fixture{inj: inj, wire: w, app: a, local: local, queue: q}
}

func (f *fixture) send(dest types.Address, payload string) *types.Message {
	msg := types.NewMessage(dest, []byte(payload))
	f.inj.Down(types.MsgEvent(msg))
	return msg
}

func (f *fixture) deliver(src types.Address, payload string) {
	msg := types.NewMessage(f.local, []byte(payload))
	msg.Src = src
	f.inj.Up(types.MsgEvent(msg))
}

// ============================================================================
//                              向下路径
// ============================================================================

// TestInjector_AssignsSender 测试填充发送方
func TestInjector_AssignsSender(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	msg := f.send(types.NewAddress(), "x")
	assert.Equal(t, f.local, msg.Src)
	assert.Equal(t, 1, f.wire.sent())

	other := types.NewAddress()
	msg = types.NewMessage(types.NilAddress, nil)
	msg.Src = other
	f.inj.Down(types.MsgEvent(msg))
	assert.Equal(t, other, msg.Src, "已设置的发送方保持不变")
}

// TestInjector_CountdownPrecedence 测试倒计数优先于概率规则
func TestInjector_CountdownPrecedence(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.NoError(t, f.inj.SetDownDropRate(1))
	f.inj.SetDropNextUnicast(3)

	peer := types.NewAddress()
	for k := 0; k < 3; k++ {
		f.send(peer, "u")
	}
	assert.Equal(t, 0, f.inj.DropNextUnicast())
	assert.Equal(t, 0, f.wire.sent())
	assert.Equal(t, uint64(0), f.inj.DroppedDown(), "倒计数丢弃不计入概率丢弃")

	// 第 4 条由概率规则处理
	f.send(peer, "u")
	assert.Equal(t, uint64(1), f.inj.DroppedDown())

	// 关闭概率丢弃后放行
	require.NoError(t, f.inj.SetDownDropRate(0))
	f.send(peer, "u")
	assert.Equal(t, 1, f.wire.sent())
}

// TestInjector_MulticastCountdown 测试组播倒计数只作用于组播
func TestInjector_MulticastCountdown(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.inj.SetDropNextMulticast(2)

	f.send(types.NewAddress(), "u")
	assert.Equal(t, 1, f.wire.sent())
	assert.Equal(t, 2, f.inj.DropNextMulticast())

	f.send(types.NilAddress, "m1")
	f.send(types.NilAddress, "m2")
	f.send(types.NilAddress, "m3")
	assert.Equal(t, 0, f.inj.DropNextMulticast())
	assert.Equal(t, 2, f.wire.sent())

	f.inj.SetDropNextMulticast(-5)
	assert.Equal(t, 0, f.inj.DropNextMulticast())
}

// TestInjector_DiscardAllLoopback 测试 discard-all 环回
func TestInjector_DiscardAllLoopback(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.inj.SetDiscardAll(true)

	mcast := f.send(types.NilAddress, "mcast")
	f.app.waitDeliveries(t, 1)
	f.app.assertNoMoreDeliveries(t)

	self := f.send(f.local, "self")
	f.app.waitDeliveries(t, 1)
	f.app.assertNoMoreDeliveries(t)

	f.send(types.NewAddress(), "other")
	f.app.assertNoMoreDeliveries(t)

	assert.Equal(t, 0, f.wire.sent(), "discard-all 下没有任何消息向下传播")

	got := f.app.received()
	require.Len(t, got, 2)
	assert.Equal(t, "mcast", string(got[0].Payload))
	assert.NotSame(t, mcast, got[0], "投递的是副本")
	assert.Equal(t, "self", string(got[1].Payload))
	assert.NotSame(t, self, got[1])
	assert.Equal(t, uint64(2), f.inj.Stats().LoopedBack)
}

// TestInjector_DiscardAllOverridesCountdown 测试 discard-all 优先于倒计数
func TestInjector_DiscardAllOverridesCountdown(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.inj.SetDropNextUnicast(1)
	f.inj.SetDiscardAll(true)

	f.send(types.NewAddress(), "u")
	assert.Equal(t, 1, f.inj.DropNextUnicast(), "discard-all 先命中，倒计数不变")
}

// TestInjector_ExcludeSelf 测试自身流量不参与概率丢弃
func TestInjector_ExcludeSelf(t *testing.T) {
	f := newFixture(t, Config{DownDropRate: 1, ExcludeSelf: true})

	for k := 0; k < 20; k++ {
		f.send(f.local, "self")
	}
	assert.Equal(t, 20, f.wire.sent())
	assert.Equal(t, uint64(0), f.inj.DroppedDown())

	f.send(types.NewAddress(), "other")
	assert.Equal(t, 20, f.wire.sent())
	assert.Equal(t, uint64(1), f.inj.DroppedDown())

	// 倒计数仍然作用于自身单播
	f.inj.SetDropNextUnicast(1)
	f.send(f.local, "self")
	assert.Equal(t, 20, f.wire.sent())

	f.inj.SetExcludeSelf(false)
	f.send(f.local, "self")
	assert.Equal(t, 20, f.wire.sent())
	assert.Equal(t, uint64(2), f.inj.DroppedDown())
}

// TestInjector_RejectPhysicalAddress 测试 discard-all 拒绝物理地址请求
func TestInjector_RejectPhysicalAddress(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	req := types.NewEvent(types.EventGetPhysicalAddress, f.local)

	assert.Equal(t, types.NewPhysicalAddress("c", 1), f.inj.Down(req))

	f.inj.SetDiscardAll(true)
	assert.Nil(t, f.inj.Down(req))
}

// TestInjector_ControlEvents 测试控制事件记录并继续向下传递
func TestInjector_ControlEvents(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	assert.Equal(t, f.local, f.inj.LocalAddress())

	a, b := types.NewAddress(), types.NewAddress()
	f.inj.Down(types.NewEvent(types.EventViewChange, types.NewView(2, a, b)))
	assert.Equal(t, []types.Address{a, b}, f.inj.Members())

	f.wire.mu.Lock()
	defer f.wire.mu.Unlock()
	assert.Equal(t, []types.EventType{types.EventSetLocalAddress, types.EventViewChange}, f.wire.evts)
}

// ============================================================================
//                              向上路径
// ============================================================================

// TestInjector_IgnoredSenders 测试忽略列表
func TestInjector_IgnoredSenders(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	bad, good := types.NewAddress(), types.NewAddress()
	f.inj.AddIgnoredSender(bad)
	assert.Equal(t, []types.Address{bad}, f.inj.IgnoredSenders())

	for k := 0; k < 5; k++ {
		f.deliver(bad, "x")
	}
	f.deliver(good, "y")
	assert.Len(t, f.app.received(), 1)
	assert.Equal(t, uint64(5), f.inj.DroppedUp())

	f.inj.RemoveIgnoredSender(bad)
	f.deliver(bad, "x")
	assert.Len(t, f.app.received(), 2)

	f.inj.AddIgnoredSender(good)
	f.inj.ClearIgnoredSenders()
	assert.Empty(t, f.inj.IgnoredSenders())
}

// TestInjector_UpDiscardAll 测试 discard-all 下只接收自身消息
func TestInjector_UpDiscardAll(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.inj.SetDiscardAll(true)

	f.deliver(types.NewAddress(), "other")
	f.deliver(f.local, "self")

	got := f.app.received()
	require.Len(t, got, 1)
	assert.Equal(t, "self", string(got[0].Payload))
	assert.Equal(t, uint64(0), f.inj.DroppedUp(), "discard-all 丢弃不计数")
}

// TestInjector_UpDropRate 测试向上概率丢弃
func TestInjector_UpDropRate(t *testing.T) {
	f := newFixture(t, Config{UpDropRate: 1, ExcludeSelf: true})

	f.deliver(types.NewAddress(), "other")
	f.deliver(f.local, "self")

	got := f.app.received()
	require.Len(t, got, 1)
	assert.Equal(t, "self", string(got[0].Payload))
	assert.Equal(t, uint64(1), f.inj.DroppedUp())
}

// TestInjector_UpBatch 测试批次逐条过滤
func TestInjector_UpBatch(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	bad, good := types.NewAddress(), types.NewAddress()
	f.inj.AddIgnoredSender(bad)

	mk := func(src types.Address, p string) *types.Message {
		m := types.NewMessage(f.local, []byte(p))
		m.Src = src
		return m
	}
	batch := types.NewMessageBatch(good, "c",
		mk(good, "1"), mk(bad, "2"), mk(good, "3"), mk(bad, "4"), mk(good, "5"))
	f.inj.UpBatch(batch)

	require.Len(t, f.app.batches, 1)
	var payloads []string
	for _, m := range f.app.batches[0].Messages {
		payloads = append(payloads, string(m.Payload))
	}
	assert.Equal(t, []string{"1", "3", "5"}, payloads)

	// 全部被过滤的批次不再上交
	f.inj.UpBatch(types.NewMessageBatch(bad, "c", mk(bad, "6"), mk(bad, "7")))
	assert.Len(t, f.app.batches, 1)
	assert.Equal(t, uint64(4), f.inj.DroppedUp())
}

// ============================================================================
//                              参数与随机源
// ============================================================================

// TestInjector_InvalidRates 测试概率校验
func TestInjector_InvalidRates(t *testing.T) {
	_, err := New(Config{UpDropRate: 1.1}, nil)
	assert.ErrorIs(t, err, ErrInvalidRate)

	inj, err := New(DefaultConfig(), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, inj.SetDownDropRate(-0.5), ErrInvalidRate)
	assert.Zero(t, inj.DownDropRate())
	require.NoError(t, inj.SetUpDropRate(0.25))
	assert.Equal(t, 0.25, inj.UpDropRate())
	assert.Contains(t, inj.String(), "up=0.25")
}

// TestInjector_DeterministicSeed 测试相同种子产生相同丢弃序列
func TestInjector_DeterministicSeed(t *testing.T) {
	run := func() []bool {
		f := newFixture(t, Config{DownDropRate: 0.5, Seed: 42})
		peer := types.NewAddress()
		var out []bool
		for k := 0; k < 64; k++ {
			before := f.inj.DroppedDown()
			f.send(peer, "x")
			out = append(out, f.inj.DroppedDown() > before)
		}
		return out
	}
	first, second := run(), run()
	assert.Equal(t, first, second)
	assert.Contains(t, first, true)
	assert.Contains(t, first, false)
}

// TestInjector_ResetStats 测试统计清零
func TestInjector_ResetStats(t *testing.T) {
	f := newFixture(t, Config{DownDropRate: 1})
	f.send(types.NewAddress(), "x")
	require.Equal(t, uint64(1), f.inj.DroppedDown())
	f.inj.ResetStats()
	assert.Equal(t, Stats{}, f.inj.Stats())
}

// TestInjector_ConcurrentCountdown 测试并发发送时倒计数精确
func TestInjector_ConcurrentCountdown(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.inj.SetDropNextUnicast(50)

	peer := types.NewAddress()
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 20; k++ {
				f.send(peer, "x")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, f.inj.DropNextUnicast())
	assert.Equal(t, 150, f.wire.sent())
}
