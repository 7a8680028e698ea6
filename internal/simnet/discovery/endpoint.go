package discovery

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-simnet/config"
	"github.com/dep2p/go-simnet/internal/simnet/registry"
	"github.com/dep2p/go-simnet/internal/stack"
	"github.com/dep2p/go-simnet/pkg/interfaces"
	"github.com/dep2p/go-simnet/pkg/lib/log"
	"github.com/dep2p/go-simnet/pkg/types"
)

var logger = log.Logger("simnet/discovery")

// Name 层名称
const Name = "discovery"

// ============================================================================
//                              配置与状态
// ============================================================================

// Config 发现端点配置
type Config struct {
	// TestScope 测试作用域
	TestScope string

	// Cluster 集群名
	Cluster string

	// LogicalName 节点逻辑名称，出现在发现响应中
	LogicalName string

	// Server 是否为服务端成员
	Server bool
}

// ConfigFromUnified 从统一配置创建端点配置
func ConfigFromUnified(cfg *config.Config, cluster, name string) Config {
	c := Config{Cluster: cluster, LogicalName: name, Server: true, TestScope: "default"}
	if cfg != nil {
		c.TestScope = cfg.Discovery.TestScope
		c.Server = cfg.Discovery.Server
	}
	return c
}

// ScopeKey 返回注册表作用域键
func (c Config) ScopeKey() types.ScopeKey {
	return types.NewScopeKey(c.TestScope, c.Cluster)
}

// State 端点在注册表中的状态
type State int

const (
	// StateNotRegistered 尚未登记（首次发现时登记）
	StateNotRegistered State = iota
	// StateRegistered 已登记并应答
	StateRegistered
	// StateSuspended 已登记但不应答
	StateSuspended
	// StateDeregistered 已注销
	StateDeregistered
)

func (s State) String() string {
	switch s {
	case StateNotRegistered:
		return "not-registered"
	case StateRegistered:
		return "registered"
	case StateSuspended:
		return "suspended"
	case StateDeregistered:
		return "deregistered"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stats 发现统计
type Stats struct {
	Rounds       uint64
	Responses    uint64
	Placeholders uint64
	Suppressed   uint64
}

// ============================================================================
//                              Endpoint
// ============================================================================

// Endpoint 发现层
type Endpoint struct {
	stack.Base

	reg    *registry.Registry
	faults interfaces.FaultState
	cfg    Config
	key    types.ScopeKey

	stopped atomic.Bool

	// lifeMu 串行化登记状态变迁
	lifeMu     sync.Mutex
	state      State
	registered types.Address

	addrMu sync.RWMutex
	local  types.Address
	view   *types.View

	rounds       atomic.Uint64
	responses    atomic.Uint64
	placeholders atomic.Uint64
	suppressed   atomic.Uint64
}

var (
	_ interfaces.Layer         = (*Endpoint)(nil)
	_ interfaces.Discovery     = (*Endpoint)(nil)
	_ interfaces.DiscoveryPeer = (*Endpoint)(nil)
)

// New 创建发现端点
//
// faults 是本节点故障注入层的句柄，为 nil 时本节点视为始终可达。
func New(cfg Config, reg *registry.Registry, faults interfaces.FaultState) (*Endpoint, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}
	key := cfg.ScopeKey()
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}
	return &Endpoint{
		Base:   stack.NewBase(Name),
		reg:    reg,
		faults: faults,
		cfg:    cfg,
		key:    key,
	}, nil
}

// ============================================================================
//                              事件处理
// ============================================================================

// Down 处理向下事件
func (e *Endpoint) Down(evt *types.Event) any {
	switch evt.Type {
	case types.EventFindMembers:
		return e.FindMembers()
	case types.EventSetLocalAddress:
		if addr, ok := evt.Address(); ok {
			e.addrMu.Lock()
			e.local = addr
			e.addrMu.Unlock()
		}
	case types.EventViewChange:
		if v := evt.View(); v != nil {
			e.addrMu.Lock()
			e.view = v
			e.addrMu.Unlock()
		}
	}
	return e.Base.Down(evt)
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 清除 stopped 标志
//
// 挂起的端点恢复应答；已注销的端点回到未登记状态，下一次发现时重新登记。
func (e *Endpoint) Start() error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	switch e.state {
	case StateSuspended:
		e.state = StateRegistered
	case StateDeregistered:
		e.state = StateNotRegistered
	}
	e.stopped.Store(false)
	return nil
}

// Stop 从注册表注销并设置 stopped
//
// 返回注册表的一致性错误，调用方不应重试。
func (e *Endpoint) Stop() error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	e.stopped.Store(true)

	var err error
	if e.state == StateRegistered || e.state == StateSuspended {
		// 注销登记时使用的地址，本地地址可能已被重新设置
		err = e.reg.Deregister(e.key, e.registered)
	}
	addr := e.registered
	e.registered = types.Address{}
	e.state = StateDeregistered
	if err != nil {
		logger.Error("注销失败", "key", e.key, "local", addr.ShortString(), "err", err)
		return err
	}
	logger.Debug("发现端点已停止", "key", e.key, "local", addr.ShortString())
	return nil
}

// Suspend 设置 stopped 但保留登记
func (e *Endpoint) Suspend() {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	e.stopped.Store(true)
	if e.state == StateRegistered {
		e.state = StateSuspended
	}
}

// IsStopped 是否已停止或挂起
func (e *Endpoint) IsStopped() bool {
	return e.stopped.Load()
}

// State 返回当前状态
func (e *Endpoint) State() State {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	return e.state
}

// ensureRegistered 首次发现时登记，返回 false 表示端点已停止
func (e *Endpoint) ensureRegistered(local types.Address) (bool, error) {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if e.stopped.Load() {
		return false, nil
	}
	if e.state != StateNotRegistered {
		return true, nil
	}
	if _, err := e.reg.Register(e.key, local, e); err != nil {
		return false, err
	}
	e.registered = local
	e.state = StateRegistered
	return true, nil
}

// ============================================================================
//                              发现
// ============================================================================

// FindMembers 执行一轮发现
//
// 返回的结果集已标记完成。端点停止、尚无本地地址、本节点 discard-all
// 开启或没有其他成员时结果为空，均不视为错误。
func (e *Endpoint) FindMembers() *types.Responses {
	resp := types.NewResponses()
	defer resp.Done()

	if e.stopped.Load() {
		return resp
	}
	local := e.LocalAddress()
	if local.IsZero() {
		logger.Debug("本地地址未设置，跳过发现", "key", e.key)
		return resp
	}
	ok, err := e.ensureRegistered(local)
	if err != nil {
		logger.Warn("登记失败", "key", e.key, "local", local.ShortString(), "err", err)
		return resp
	}
	if !ok {
		return resp
	}
	e.rounds.Add(1)

	if discarding(e.faults) {
		e.suppressed.Add(1)
		logger.Debug("discard-all 开启，本轮不联系对端", "key", e.key, "local", local.ShortString())
		return resp
	}

	contacted := 0
	e.reg.PeersExcludingSelf(e.key, e).Each(func(peer interfaces.DiscoveryPeer) {
		if peer.IsStopped() {
			return
		}
		contacted++
		ExchangeAddresses(e, peer)
		if discarding(peer.FaultState()) {
			resp.Add(types.NewPlaceholder(peer.LocalAddress()))
			e.placeholders.Add(1)
			return
		}
		resp.Add(peer.PingData())
		e.responses.Add(1)
	})
	if contacted == 0 {
		logger.Debug("no other nodes yet", "key", e.key, "local", local.ShortString())
		return resp
	}
	logger.Debug("发现完成", "key", e.key, "local", local.ShortString(), "peers", contacted, "responses", resp.Len())
	return resp
}

// discarding 读取故障注入状态，缺失时按可达处理
func discarding(fs interfaces.FaultState) bool {
	return fs != nil && fs.DiscardAll()
}

// ============================================================================
//                              DiscoveryPeer 实现
// ============================================================================

// LocalAddress 返回本地地址
func (e *Endpoint) LocalAddress() types.Address {
	e.addrMu.RLock()
	defer e.addrMu.RUnlock()
	return e.local
}

// LogicalName 返回逻辑名称
func (e *Endpoint) LogicalName() string {
	return e.cfg.LogicalName
}

// FaultState 返回本节点故障注入句柄
func (e *Endpoint) FaultState() interfaces.FaultState {
	return e.faults
}

// IsCoordinator 本节点是否为当前视图的协调者
func (e *Endpoint) IsCoordinator() bool {
	e.addrMu.RLock()
	defer e.addrMu.RUnlock()
	return e.view != nil && !e.local.IsZero() && e.view.Coordinator() == e.local
}

// PhysicalAddress 通过下层解析本节点物理地址
func (e *Endpoint) PhysicalAddress() (types.PhysicalAddress, bool) {
	v := e.Base.Down(types.NewEvent(types.EventGetPhysicalAddress, e.LocalAddress()))
	phys, ok := v.(types.PhysicalAddress)
	return phys, ok && !phys.IsZero()
}

// AddPhysicalAddress 通过下层登记对端映射
func (e *Endpoint) AddPhysicalAddress(m types.AddressMapping) bool {
	ok, _ := e.Base.Down(types.NewEvent(types.EventAddPhysicalAddress, m)).(bool)
	return ok
}

// PingData 描述本节点的发现响应
func (e *Endpoint) PingData() *types.PingData {
	phys, _ := e.PhysicalAddress()
	return &types.PingData{
		Sender:       e.LocalAddress(),
		Server:       e.cfg.Server,
		LogicalName:  e.cfg.LogicalName,
		PhysicalAddr: phys,
		Coord:        e.IsCoordinator(),
	}
}

// ScopeKey 返回作用域键
func (e *Endpoint) ScopeKey() types.ScopeKey {
	return e.key
}

// Stats 返回统计快照
func (e *Endpoint) Stats() Stats {
	return Stats{
		Rounds:       e.rounds.Load(),
		Responses:    e.responses.Load(),
		Placeholders: e.placeholders.Load(),
		Suppressed:   e.suppressed.Load(),
	}
}
