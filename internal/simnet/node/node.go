package node

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-simnet/internal/simnet/discovery"
	"github.com/dep2p/go-simnet/internal/simnet/fault"
	"github.com/dep2p/go-simnet/internal/simnet/loopback"
	"github.com/dep2p/go-simnet/internal/simnet/metrics"
	"github.com/dep2p/go-simnet/internal/simnet/registry"
	"github.com/dep2p/go-simnet/internal/stack"
	"github.com/dep2p/go-simnet/pkg/interfaces"
	"github.com/dep2p/go-simnet/pkg/lib/log"
	"github.com/dep2p/go-simnet/pkg/types"
)

var logger = log.Logger("simnet/node")

var (
	// ErrNotStarted 节点未启动
	ErrNotStarted = errors.New("node: not started")

	// ErrMissingDeps 缺少共享依赖
	ErrMissingDeps = errors.New("node: registry and hub are required")
)

// Config 节点配置
type Config struct {
	// Name 逻辑名称
	Name string

	// Address 逻辑地址，零值时随机生成
	Address types.Address

	// Discovery 发现端点配置（LogicalName 由 Name 覆盖）
	Discovery discovery.Config

	// Fault 故障注入初始配置
	Fault fault.Config

	// NoFaults 不在协议栈中放置故障注入层
	NoFaults bool
}

// Deps 模拟内所有节点共享的依赖
type Deps struct {
	Registry *registry.Registry
	Hub      *loopback.Hub

	// Executor 环回投递执行器，可为 nil
	Executor interfaces.Executor
}

// Node 模拟集群成员
type Node struct {
	name string
	addr types.Address
	key  types.ScopeKey

	transport *loopback.Transport
	faults    *fault.Injector
	disc      *discovery.Endpoint
	stack     *stack.Stack

	started atomic.Bool

	mu       sync.Mutex
	received []*types.Message
	view     *types.View
	notify   chan struct{}
}

var _ interfaces.Receiver = (*Node)(nil)

// New 组装节点，尚未启动
func New(cfg Config, deps Deps) (*Node, error) {
	if deps.Registry == nil || deps.Hub == nil {
		return nil, ErrMissingDeps
	}
	addr := cfg.Address
	if addr.IsZero() {
		addr = types.NewAddress()
	}
	dcfg := cfg.Discovery
	dcfg.LogicalName = cfg.Name
	key := dcfg.ScopeKey()

	n := &Node{
		name:   cfg.Name,
		addr:   addr,
		key:    key,
		notify: make(chan struct{}),
	}

	tr, err := loopback.NewTransport(deps.Hub, key, addr)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", cfg.Name, err)
	}
	n.transport = tr
	layers := []interfaces.Layer{tr}

	var fs interfaces.FaultState
	if !cfg.NoFaults {
		inj, err := fault.New(cfg.Fault, deps.Executor)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", cfg.Name, err)
		}
		n.faults = inj
		fs = inj
		layers = append(layers, inj)
	}

	ep, err := discovery.New(dcfg, deps.Registry, fs)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", cfg.Name, err)
	}
	n.disc = ep
	layers = append(layers, ep)

	if n.stack, err = stack.New(n, layers...); err != nil {
		return nil, fmt.Errorf("node %s: %w", cfg.Name, err)
	}
	return n, nil
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 启动协议栈并广播本地地址
func (n *Node) Start() error {
	if err := n.stack.Start(); err != nil {
		return fmt.Errorf("node %s: %w", n.name, err)
	}
	n.stack.Down(types.NewEvent(types.EventSetLocalAddress, n.addr))
	n.started.Store(true)
	logger.Debug("节点已启动", "name", n.name, "addr", n.addr.ShortString(), "key", n.key)
	return nil
}

// Stop 停止协议栈，返回注册表一致性错误
func (n *Node) Stop() error {
	if !n.started.Swap(false) {
		return nil
	}
	if err := n.stack.Stop(); err != nil {
		return fmt.Errorf("node %s: %w", n.name, err)
	}
	logger.Debug("节点已停止", "name", n.name)
	return nil
}

// Suspend 保留登记但停止应答发现
func (n *Node) Suspend() {
	n.disc.Suspend()
}

// Resume 恢复应答发现
func (n *Node) Resume() error {
	return n.disc.Start()
}

// IsStarted 是否已启动
func (n *Node) IsStarted() bool {
	return n.started.Load()
}

// ============================================================================
//                              发现与消息
// ============================================================================

// FindMembers 从栈顶发起一轮发现
func (n *Node) FindMembers() *types.Responses {
	if !n.started.Load() {
		resp := types.NewResponses()
		resp.Done()
		return resp
	}
	resp, _ := n.stack.Down(types.NewEvent(types.EventFindMembers, nil)).(*types.Responses)
	if resp == nil {
		resp = types.NewResponses()
		resp.Done()
	}
	return resp
}

// Send 单播，dest 为零值时等同于 Broadcast
func (n *Node) Send(dest types.Address, payload []byte) error {
	if !n.started.Load() {
		return ErrNotStarted
	}
	n.stack.Down(types.MsgEvent(types.NewMessage(dest, payload)))
	return nil
}

// Broadcast 组播
func (n *Node) Broadcast(payload []byte) error {
	return n.Send(types.NilAddress, payload)
}

// SendMessage 发送已构造的消息
func (n *Node) SendMessage(msg *types.Message) error {
	if !n.started.Load() {
		return ErrNotStarted
	}
	n.stack.Down(types.MsgEvent(msg))
	return nil
}

// InstallView 安装成员视图
//
// 视图沿协议栈向下传给发现层与故障注入层，同时交给节点自身。
func (n *Node) InstallView(v *types.View) {
	if v == nil {
		return
	}
	n.stack.Down(types.NewEvent(types.EventViewChange, v))
	n.ViewAccepted(v)
}

// ============================================================================
//                              Receiver 实现
// ============================================================================

// Receive 实现 interfaces.Receiver
func (n *Node) Receive(msg *types.Message) {
	n.mu.Lock()
	n.received = append(n.received, msg)
	n.signalLocked()
	n.mu.Unlock()
}

// ReceiveBatch 实现 interfaces.Receiver
func (n *Node) ReceiveBatch(batch *types.MessageBatch) {
	n.mu.Lock()
	n.received = append(n.received, batch.Messages...)
	n.signalLocked()
	n.mu.Unlock()
}

// ViewAccepted 实现 interfaces.Receiver
func (n *Node) ViewAccepted(v *types.View) {
	n.mu.Lock()
	n.view = v
	n.mu.Unlock()
}

func (n *Node) signalLocked() {
	close(n.notify)
	n.notify = make(chan struct{})
}

// Received 已接收消息快照
func (n *Node) Received() []*types.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.received)
}

// ClearReceived 清空已接收消息
func (n *Node) ClearReceived() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received = nil
}

// WaitReceived 等待至少 count 条消息
func (n *Node) WaitReceived(ctx context.Context, count int) error {
	for {
		n.mu.Lock()
		got, ch := len(n.received), n.notify
		n.mu.Unlock()
		if got >= count {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return fmt.Errorf("node %s: received %d of %d: %w", n.name, got, count, ctx.Err())
		}
	}
}

// ============================================================================
//                              访问器
// ============================================================================

// Name 逻辑名称
func (n *Node) Name() string { return n.name }

// Address 逻辑地址
func (n *Node) Address() types.Address { return n.addr }

// ScopeKey 作用域键
func (n *Node) ScopeKey() types.ScopeKey { return n.key }

// Faults 故障注入层，未配置时为 nil
func (n *Node) Faults() *fault.Injector { return n.faults }

// Discovery 发现端点
func (n *Node) Discovery() *discovery.Endpoint { return n.disc }

// Transport 传输层
func (n *Node) Transport() *loopback.Transport { return n.transport }

// Stack 协议栈
func (n *Node) Stack() *stack.Stack { return n.stack }

// View 最近安装的视图
func (n *Node) View() *types.View {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.view
}

// Stats 指标快照
func (n *Node) Stats() metrics.NodeStats {
	s := metrics.NodeStats{Name: n.name, Cluster: n.key.ClusterName}
	if n.faults != nil {
		fs := n.faults.Stats()
		s.DroppedUp, s.DroppedDown, s.LoopedBack = fs.DroppedUp, fs.DroppedDown, fs.LoopedBack
	}
	ts := n.transport.Stats()
	s.Sent, s.Received, s.Unroutable = ts.Sent, ts.Received, ts.Unroutable
	ds := n.disc.Stats()
	s.Rounds, s.Responses, s.Placeholders, s.Suppressed = ds.Rounds, ds.Responses, ds.Placeholders, ds.Suppressed
	return s
}

// String 返回 name(addr)
func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)", n.name, n.addr.ShortString())
}
