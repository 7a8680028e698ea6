package loopback

import (
	"sync/atomic"

	"github.com/dep2p/go-simnet/internal/stack"
	"github.com/dep2p/go-simnet/pkg/interfaces"
	"github.com/dep2p/go-simnet/pkg/lib/log"
	"github.com/dep2p/go-simnet/pkg/types"
)

var logger = log.Logger("simnet/loopback")

// Name 层名称
const Name = "loopback"

// Stats 线路统计
type Stats struct {
	Sent       uint64
	Received   uint64
	Unroutable uint64
}

// Transport 模拟传输层（协议栈最底层）
type Transport struct {
	stack.Base

	hub   *Hub
	key   types.ScopeKey
	local types.Address
	phys  types.PhysicalAddress
	table *AddressTable

	attached atomic.Bool

	sent       atomic.Uint64
	received   atomic.Uint64
	unroutable atomic.Uint64
}

var _ interfaces.Layer = (*Transport)(nil)

// NewTransport 创建传输层
//
// 物理地址在创建时由 Hub 分配，Start 后才接入线路。
func NewTransport(hub *Hub, key types.ScopeKey, local types.Address) (*Transport, error) {
	if hub == nil {
		return nil, ErrNilHub
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if local.IsZero() {
		return nil, types.ErrInvalidAddress
	}
	return &Transport{
		Base:  stack.NewBase(Name),
		hub:   hub,
		key:   key,
		local: local,
		phys:  types.NewPhysicalAddress(key.ClusterName, hub.allocPort()),
		table: NewAddressTable(),
	}, nil
}

// Start 接入线路
func (t *Transport) Start() error {
	if err := t.hub.attach(t); err != nil {
		return err
	}
	t.attached.Store(true)
	logger.Debug("传输层已接入", "key", t.key, "local", t.local.ShortString(), "phys", t.phys)
	return nil
}

// Stop 断开线路
func (t *Transport) Stop() error {
	t.attached.Store(false)
	t.hub.detach(t)
	return nil
}

// Down 处理向下事件
func (t *Transport) Down(evt *types.Event) any {
	switch evt.Type {
	case types.EventMsg:
		if msg := evt.Message(); msg != nil {
			t.send(msg)
		}
	case types.EventGetPhysicalAddress:
		addr, _ := evt.Address()
		if addr.IsZero() || addr == t.local {
			return t.phys
		}
		if phys, ok := t.table.Physical(addr); ok {
			return phys
		}
	case types.EventAddPhysicalAddress:
		if m, ok := evt.Arg.(types.AddressMapping); ok {
			return t.table.Add(m)
		}
		return false
	case types.EventGetLogicalName:
		addr, _ := evt.Address()
		if name, ok := t.table.Name(addr); ok {
			return name
		}
	}
	return nil
}

func (t *Transport) send(msg *types.Message) {
	if !t.attached.Load() {
		logger.Debug("传输层未接入，丢弃消息", "local", t.local.ShortString(), "msg", msg)
		return
	}
	if msg.Src.IsZero() {
		msg.Src = t.local
	}
	t.sent.Add(1)

	if msg.IsMulticast() {
		for _, peer := range t.hub.Members(t.key) {
			if peer == t && msg.IsFlagSet(types.FlagNoLoopback) {
				continue
			}
			peer.receive(msg.Copy())
		}
		return
	}

	peer, ok := t.hub.Lookup(t.key, msg.Dest)
	if !ok {
		t.unroutable.Add(1)
		logger.Debug("目的地址不在线路上，丢弃消息", "local", t.local.ShortString(), "dest", msg.Dest.ShortString())
		return
	}
	peer.receive(msg.Copy())
}

func (t *Transport) receive(msg *types.Message) {
	t.received.Add(1)
	t.Base.Up(types.MsgEvent(msg))
}

// DeliverBatch 把一批消息从线路向上投递
func (t *Transport) DeliverBatch(batch *types.MessageBatch) {
	if batch == nil || batch.IsEmpty() {
		return
	}
	t.received.Add(uint64(batch.Len()))
	t.Base.UpBatch(batch)
}

// LocalAddress 本地逻辑地址
func (t *Transport) LocalAddress() types.Address {
	return t.local
}

// PhysicalAddress 本地物理地址
func (t *Transport) PhysicalAddress() types.PhysicalAddress {
	return t.phys
}

// AddressTable 返回地址表
func (t *Transport) AddressTable() *AddressTable {
	return t.table
}

// ScopeKey 返回作用域键
func (t *Transport) ScopeKey() types.ScopeKey {
	return t.key
}

// Stats 返回统计快照
func (t *Transport) Stats() Stats {
	return Stats{
		Sent:       t.sent.Load(),
		Received:   t.received.Load(),
		Unroutable: t.unroutable.Load(),
	}
}
