package node

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-simnet/internal/simnet/discovery"
	"github.com/dep2p/go-simnet/internal/simnet/fault"
	"github.com/dep2p/go-simnet/internal/simnet/loopback"
	"github.com/dep2p/go-simnet/internal/simnet/registry"
	"github.com/dep2p/go-simnet/internal/util/taskqueue"
	"github.com/dep2p/go-simnet/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

func newDeps(t *testing.T) Deps {
	t.Helper()
	q := taskqueue.New(taskqueue.Config{Workers: 2, QueueSize: 64})
	t.Cleanup(func() { _ = q.Close(context.Background()) })
	return Deps{Registry: registry.New(), Hub: loopback.NewHub(), Executor: q}
}

func startNode(t *testing.T, deps Deps, name string, opts ...func(*Config)) *Node {
	t.Helper()
	cfg := Config{
		Name:      name,
		Discovery: discovery.Config{TestScope: t.Name(), Cluster: "c", Server: true},
		Fault:     fault.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	n, err := New(cfg, deps)
	require.NoError(t, err)
	require.NoError(t, n.Start())
	t.Cleanup(func() { _ = n.Stop() })
	return n
}

func payloads(msgs []*types.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, string(m.Payload))
	}
	return out
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)
	return ctx
}

// ============================================================================
//                              消息
// ============================================================================

// TestNode_SendAndBroadcast 测试单播与组播
func TestNode_SendAndBroadcast(t *testing.T) {
	deps := newDeps(t)
	a, b, c := startNode(t, deps, "A"), startNode(t, deps, "B"), startNode(t, deps, "C")

	require.NoError(t, a.Send(b.Address(), []byte("hi-b")))
	assert.Equal(t, []string{"hi-b"}, payloads(b.Received()))
	assert.Empty(t, c.Received())

	require.NoError(t, a.Broadcast([]byte("all")))
	for _, n := range []*Node{a, b, c} {
		assert.Contains(t, payloads(n.Received()), "all")
	}
	assert.Equal(t, a.Address(), b.Received()[0].Src)
}

// TestNode_DiscardAllLoopback 测试 discard-all 下只有发往自身/组播的消息环回
func TestNode_DiscardAllLoopback(t *testing.T) {
	deps := newDeps(t)
	a, b := startNode(t, deps, "A"), startNode(t, deps, "B")
	a.Faults().SetDiscardAll(true)

	require.NoError(t, a.Broadcast([]byte("mcast")))
	require.NoError(t, a.Send(a.Address(), []byte("self")))
	require.NoError(t, a.Send(b.Address(), []byte("other")))

	require.NoError(t, a.WaitReceived(waitCtx(t), 2))
	assert.ElementsMatch(t, []string{"mcast", "self"}, payloads(a.Received()))
	assert.Empty(t, b.Received(), "没有消息到达线路")
	assert.Zero(t, a.Transport().Stats().Sent)
	assert.Equal(t, uint64(2), a.Stats().LoopedBack)

	// 其他节点发来的消息也被丢弃
	a.ClearReceived()
	require.NoError(t, b.Send(a.Address(), []byte("in")))
	assert.Empty(t, a.Received())
}

// TestNode_DropCountdown 测试倒计数
func TestNode_DropCountdown(t *testing.T) {
	deps := newDeps(t)
	a, b := startNode(t, deps, "A"), startNode(t, deps, "B")
	a.Faults().SetDropNextUnicast(2)

	for i := 0; i < 3; i++ {
		require.NoError(t, a.Send(b.Address(), []byte{byte('0' + i)}))
	}
	assert.Equal(t, []string{"2"}, payloads(b.Received()))
}

// TestNode_IgnoredSender 测试接收方忽略列表
func TestNode_IgnoredSender(t *testing.T) {
	deps := newDeps(t)
	a, b, c := startNode(t, deps, "A"), startNode(t, deps, "B"), startNode(t, deps, "C")
	c.Faults().AddIgnoredSender(a.Address())

	require.NoError(t, a.Broadcast([]byte("from-a")))
	require.NoError(t, b.Broadcast([]byte("from-b")))

	assert.Equal(t, []string{"from-b"}, payloads(c.Received()))
	assert.Equal(t, uint64(1), c.Stats().DroppedUp)
}

// TestNode_SendBeforeStart 测试未启动时发送
func TestNode_SendBeforeStart(t *testing.T) {
	deps := newDeps(t)
	n, err := New(Config{Name: "A", Discovery: discovery.Config{TestScope: "s", Cluster: "c"}}, deps)
	require.NoError(t, err)

	assert.ErrorIs(t, n.Send(types.NewAddress(), nil), ErrNotStarted)
	assert.ErrorIs(t, n.Broadcast(nil), ErrNotStarted)
	assert.True(t, n.FindMembers().IsEmpty())
	assert.NoError(t, n.Stop())

	_, err = New(Config{Name: "B"}, Deps{})
	assert.ErrorIs(t, err, ErrMissingDeps)
}

// ============================================================================
//                              发现
// ============================================================================

// TestNode_FindMembers 测试通过协议栈发现成员
func TestNode_FindMembers(t *testing.T) {
	deps := newDeps(t)
	a, b, c := startNode(t, deps, "A"), startNode(t, deps, "B"), startNode(t, deps, "C")
	a.FindMembers()
	b.FindMembers()
	c.FindMembers()

	view := types.NewView(1, a.Address(), b.Address(), c.Address())
	for _, n := range []*Node{a, b, c} {
		n.InstallView(view)
	}
	assert.Same(t, view, a.View())

	resp := b.FindMembers()
	require.Equal(t, 2, resp.Len())
	pa, ok := resp.Find(a.Address())
	require.True(t, ok)
	assert.True(t, pa.Coord)
	assert.Equal(t, "A", pa.LogicalName)
	assert.Equal(t, a.Transport().PhysicalAddress(), pa.PhysicalAddr)

	// 发现之后 B 的地址表可以解析 A 的逻辑名
	name := b.Stack().Down(types.NewEvent(types.EventGetLogicalName, a.Address()))
	assert.Equal(t, "A", name)
}

// TestNode_SuspendResumeStop 测试挂起、恢复与停止
func TestNode_SuspendResumeStop(t *testing.T) {
	deps := newDeps(t)
	a, b := startNode(t, deps, "A"), startNode(t, deps, "B")
	b.FindMembers()

	b.Suspend()
	_, found := a.FindMembers().Find(b.Address())
	assert.False(t, found)
	assert.True(t, deps.Registry.Contains(b.ScopeKey(), b.Address()))

	require.NoError(t, b.Resume())
	_, found = a.FindMembers().Find(b.Address())
	assert.True(t, found)

	require.NoError(t, b.Stop())
	assert.False(t, b.IsStarted())
	assert.False(t, deps.Registry.Contains(b.ScopeKey(), b.Address()))
	assert.Equal(t, 1, deps.Hub.Len(b.ScopeKey()), "传输层已断开")
	assert.True(t, a.FindMembers().IsEmpty())

	// 重新启动后再次可见
	require.NoError(t, b.Start())
	b.FindMembers()
	_, found = a.FindMembers().Find(b.Address())
	assert.True(t, found)
}

// TestNode_NoFaults 测试没有故障注入层的节点
func TestNode_NoFaults(t *testing.T) {
	deps := newDeps(t)
	a := startNode(t, deps, "A", func(c *Config) { c.NoFaults = true })
	b := startNode(t, deps, "B")
	a.FindMembers()

	assert.Nil(t, a.Faults())
	assert.Len(t, a.Stack().Layers(), 2)

	_, found := b.FindMembers().Find(a.Address())
	assert.True(t, found)

	s := a.Stats()
	assert.Zero(t, s.DroppedUp)
	assert.Equal(t, "A", s.Name)
}

// TestNode_FixedAddress 测试指定地址
func TestNode_FixedAddress(t *testing.T) {
	deps := newDeps(t)
	addr := types.NewAddress()
	n := startNode(t, deps, "A", func(c *Config) { c.Address = addr })
	assert.Equal(t, addr, n.Address())
	assert.Equal(t, addr, n.Faults().LocalAddress())
	assert.Contains(t, n.String(), "A(")
}
