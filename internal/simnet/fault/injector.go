package fault

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-simnet/config"
	"github.com/dep2p/go-simnet/internal/stack"
	"github.com/dep2p/go-simnet/pkg/interfaces"
	"github.com/dep2p/go-simnet/pkg/lib/log"
	"github.com/dep2p/go-simnet/pkg/types"
)

var logger = log.Logger("simnet/fault")

// Name 层名称
const Name = "fault"

// ErrInvalidRate 丢弃概率越界
var ErrInvalidRate = errors.New("fault: drop rate must be within [0,1]")

// Config 故障注入初始配置
type Config struct {
	UpDropRate   float64
	DownDropRate float64
	ExcludeSelf  bool

	// Seed 随机源种子，0 表示随机
	Seed uint64
}

// DefaultConfig 默认配置：不丢弃，排除自身
func DefaultConfig() Config {
	return Config{ExcludeSelf: true}
}

// ConfigFromUnified 从统一配置创建故障注入配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		UpDropRate:   cfg.Fault.UpDropRate,
		DownDropRate: cfg.Fault.DownDropRate,
		ExcludeSelf:  cfg.Fault.ExcludeSelf,
		Seed:         cfg.Fault.Seed,
	}
}

// Stats 丢弃统计
type Stats struct {
	DroppedUp   uint64
	DroppedDown uint64
	LoopedBack  uint64
}

// Injector 故障注入层
//
// 所有可调参数都是原子字段：测试线程写，协议栈线程与对端发现端点读。
type Injector struct {
	stack.Base

	executor interfaces.Executor

	upDropRate        atomic.Uint64 // math.Float64bits
	downDropRate      atomic.Uint64 // math.Float64bits
	excludeSelf       atomic.Bool
	discardAll        atomic.Bool
	dropNextUnicast   atomic.Int64
	dropNextMulticast atomic.Int64

	ignoredMu sync.RWMutex
	ignored   map[types.Address]struct{}

	viewMu    sync.RWMutex
	localAddr types.Address
	members   []types.Address

	rngMu sync.Mutex
	rng   *rand.Rand

	droppedUp   atomic.Uint64
	droppedDown atomic.Uint64
	loopedBack  atomic.Uint64
}

var (
	_ interfaces.Layer           = (*Injector)(nil)
	_ interfaces.FaultController = (*Injector)(nil)
)

// New 创建故障注入层
//
// executor 用于 discard-all 下的环回投递；为 nil 时每条环回消息使用独立 goroutine。
func New(cfg Config, executor interfaces.Executor) (*Injector, error) {
	i := &Injector{
		Base:     stack.NewBase(Name),
		executor: executor,
		ignored:  make(map[types.Address]struct{}),
	}
	if i.executor == nil {
		i.executor = goExecutor{}
	}
	if err := i.SetUpDropRate(cfg.UpDropRate); err != nil {
		return nil, err
	}
	if err := i.SetDownDropRate(cfg.DownDropRate); err != nil {
		return nil, err
	}
	i.excludeSelf.Store(cfg.ExcludeSelf)
	i.SetSeed(cfg.Seed)
	return i, nil
}

// ============================================================================
//                              向下路径
// ============================================================================

// Down 处理向下事件
func (i *Injector) Down(evt *types.Event) any {
	switch evt.Type {
	case types.EventMsg:
		if msg := evt.Message(); msg != nil && i.filterDown(msg) {
			return nil
		}
	case types.EventSetLocalAddress:
		if addr, ok := evt.Address(); ok {
			i.viewMu.Lock()
			i.localAddr = addr
			i.viewMu.Unlock()
		}
	case types.EventViewChange:
		if v := evt.View(); v != nil {
			i.viewMu.Lock()
			i.members = slices.Clone(v.Members)
			i.viewMu.Unlock()
		}
	case types.EventGetPhysicalAddress:
		if i.discardAll.Load() {
			logger.Debug("discard-all 开启，拒绝物理地址请求", "local", i.LocalAddress().ShortString())
			return nil
		}
	}
	return i.Base.Down(evt)
}

// filterDown 返回 true 表示消息被丢弃
func (i *Injector) filterDown(msg *types.Message) bool {
	local := i.LocalAddress()
	if msg.Src.IsZero() {
		msg.Src = local
	}

	if i.discardAll.Load() {
		if msg.IsMulticast() || isSelf(msg.Dest, local) {
			i.loopback(msg)
		}
		return true
	}

	if msg.IsMulticast() {
		if decrementIfPositive(&i.dropNextMulticast) {
			logger.Debug("丢弃组播消息（倒计数）", "msg", msg, "remaining", i.dropNextMulticast.Load())
			return true
		}
	} else if decrementIfPositive(&i.dropNextUnicast) {
		logger.Debug("丢弃单播消息（倒计数）", "msg", msg, "remaining", i.dropNextUnicast.Load())
		return true
	}

	if rate := i.DownDropRate(); rate > 0 && i.draw() < rate {
		if i.excludeSelf.Load() && isSelf(msg.Dest, local) {
			return false
		}
		i.droppedDown.Add(1)
		logger.Debug("丢弃向下消息", "msg", msg)
		return true
	}
	return false
}

// loopback 把消息副本异步投递给上层
//
// 不能在当前调用栈上向上投递：当前仍处于向下调用中，调用方可能持有协议栈内的锁。
func (i *Injector) loopback(msg *types.Message) {
	up := i.UpLayer()
	if up == nil {
		return
	}
	cp := msg.Copy()
	if err := i.executor.Submit(func() { up.Up(types.MsgEvent(cp)) }); err != nil {
		logger.Warn("环回投递提交失败", "msg", cp, "err", err)
		return
	}
	i.loopedBack.Add(1)
}

// ============================================================================
//                              向上路径
// ============================================================================

// Up 处理向上事件
func (i *Injector) Up(evt *types.Event) any {
	if evt.Type == types.EventMsg {
		if msg := evt.Message(); msg != nil && i.filterUp(msg) {
			return nil
		}
	}
	return i.Base.Up(evt)
}

// UpBatch 逐条过滤批次，空批次不再上交
func (i *Injector) UpBatch(batch *types.MessageBatch) {
	batch.Filter(func(msg *types.Message) bool {
		return !i.filterUp(msg)
	})
	if batch.IsEmpty() {
		return
	}
	i.Base.UpBatch(batch)
}

// filterUp 返回 true 表示消息被丢弃
func (i *Injector) filterUp(msg *types.Message) bool {
	local := i.LocalAddress()

	if i.discardAll.Load() && msg.Src != local {
		return true
	}

	if i.isIgnored(msg.Src) {
		i.droppedUp.Add(1)
		logger.Debug("丢弃来自忽略列表的消息", "msg", msg)
		return true
	}

	if rate := i.UpDropRate(); rate > 0 && i.draw() < rate {
		if i.excludeSelf.Load() && isSelf(msg.Src, local) {
			return false
		}
		i.droppedUp.Add(1)
		logger.Debug("丢弃向上消息", "msg", msg)
		return true
	}
	return false
}

// ============================================================================
//                              参数读写
// ============================================================================

// UpDropRate 返回向上丢弃概率
func (i *Injector) UpDropRate() float64 {
	return math.Float64frombits(i.upDropRate.Load())
}

// SetUpDropRate 设置向上丢弃概率
func (i *Injector) SetUpDropRate(rate float64) error {
	if !validRate(rate) {
		return fmt.Errorf("%w: %v", ErrInvalidRate, rate)
	}
	i.upDropRate.Store(math.Float64bits(rate))
	return nil
}

// DownDropRate 返回向下丢弃概率
func (i *Injector) DownDropRate() float64 {
	return math.Float64frombits(i.downDropRate.Load())
}

// SetDownDropRate 设置向下丢弃概率
func (i *Injector) SetDownDropRate(rate float64) error {
	if !validRate(rate) {
		return fmt.Errorf("%w: %v", ErrInvalidRate, rate)
	}
	i.downDropRate.Store(math.Float64bits(rate))
	return nil
}

// DropNextUnicast 返回剩余的单播倒计数
func (i *Injector) DropNextUnicast() int {
	return int(i.dropNextUnicast.Load())
}

// SetDropNextUnicast 丢弃接下来的 n 条单播消息
func (i *Injector) SetDropNextUnicast(n int) {
	i.dropNextUnicast.Store(int64(max(n, 0)))
}

// DropNextMulticast 返回剩余的组播倒计数
func (i *Injector) DropNextMulticast() int {
	return int(i.dropNextMulticast.Load())
}

// SetDropNextMulticast 丢弃接下来的 n 条组播消息
func (i *Injector) SetDropNextMulticast(n int) {
	i.dropNextMulticast.Store(int64(max(n, 0)))
}

// DiscardAll 是否开启 discard-all
func (i *Injector) DiscardAll() bool {
	return i.discardAll.Load()
}

// SetDiscardAll 开关 discard-all
func (i *Injector) SetDiscardAll(on bool) {
	if i.discardAll.Swap(on) != on {
		logger.Debug("discard-all 切换", "local", i.LocalAddress().ShortString(), "on", on)
	}
}

// ExcludeSelf 是否排除自身流量
func (i *Injector) ExcludeSelf() bool {
	return i.excludeSelf.Load()
}

// SetExcludeSelf 设置是否排除自身流量
func (i *Injector) SetExcludeSelf(on bool) {
	i.excludeSelf.Store(on)
}

// AddIgnoredSender 忽略来自 addr 的所有向上消息
func (i *Injector) AddIgnoredSender(addr types.Address) {
	i.ignoredMu.Lock()
	defer i.ignoredMu.Unlock()
	i.ignored[addr] = struct{}{}
}

// RemoveIgnoredSender 取消忽略 addr
func (i *Injector) RemoveIgnoredSender(addr types.Address) {
	i.ignoredMu.Lock()
	defer i.ignoredMu.Unlock()
	delete(i.ignored, addr)
}

// ClearIgnoredSenders 清空忽略列表
func (i *Injector) ClearIgnoredSenders() {
	i.ignoredMu.Lock()
	defer i.ignoredMu.Unlock()
	clear(i.ignored)
}

// IgnoredSenders 返回忽略列表快照
func (i *Injector) IgnoredSenders() []types.Address {
	i.ignoredMu.RLock()
	defer i.ignoredMu.RUnlock()
	out := make([]types.Address, 0, len(i.ignored))
	for a := range i.ignored {
		out = append(out, a)
	}
	return out
}

func (i *Injector) isIgnored(addr types.Address) bool {
	i.ignoredMu.RLock()
	defer i.ignoredMu.RUnlock()
	_, ok := i.ignored[addr]
	return ok
}

// LocalAddress 返回从协议栈学到的本地地址
func (i *Injector) LocalAddress() types.Address {
	i.viewMu.RLock()
	defer i.viewMu.RUnlock()
	return i.localAddr
}

// Members 返回最近一次视图的成员列表
func (i *Injector) Members() []types.Address {
	i.viewMu.RLock()
	defer i.viewMu.RUnlock()
	return slices.Clone(i.members)
}

// DroppedUp 向上丢弃计数
func (i *Injector) DroppedUp() uint64 {
	return i.droppedUp.Load()
}

// DroppedDown 向下丢弃计数
func (i *Injector) DroppedDown() uint64 {
	return i.droppedDown.Load()
}

// Stats 返回统计快照
func (i *Injector) Stats() Stats {
	return Stats{
		DroppedUp:   i.droppedUp.Load(),
		DroppedDown: i.droppedDown.Load(),
		LoopedBack:  i.loopedBack.Load(),
	}
}

// ResetStats 清零统计
func (i *Injector) ResetStats() {
	i.droppedUp.Store(0)
	i.droppedDown.Store(0)
	i.loopedBack.Store(0)
}

// SetSeed 重置随机源，seed 为 0 时使用随机种子
func (i *Injector) SetSeed(seed uint64) {
	if seed == 0 {
		seed = rand.Uint64()
	}
	i.rngMu.Lock()
	i.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	i.rngMu.Unlock()
}

// String 返回当前参数摘要
func (i *Injector) String() string {
	return fmt.Sprintf("discard_all=%t, up=%.2f, down=%.2f, exclude_self=%t, drop_next_ucast=%d, drop_next_mcast=%d, dropped_up=%d, dropped_down=%d",
		i.DiscardAll(), i.UpDropRate(), i.DownDropRate(), i.ExcludeSelf(),
		i.DropNextUnicast(), i.DropNextMulticast(), i.DroppedUp(), i.DroppedDown())
}

func (i *Injector) draw() float64 {
	i.rngMu.Lock()
	defer i.rngMu.Unlock()
	return i.rng.Float64()
}

// ============================================================================
//                              辅助函数
// ============================================================================

// isSelf 本地地址已知且 addr 等于本地地址
func isSelf(addr, local types.Address) bool {
	return !local.IsZero() && addr == local
}

func validRate(r float64) bool {
	return r >= 0 && r <= 1
}

// decrementIfPositive 计数大于 0 时减一并返回 true
func decrementIfPositive(c *atomic.Int64) bool {
	for {
		n := c.Load()
		if n <= 0 {
			return false
		}
		if c.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// goExecutor 每个任务一个 goroutine
type goExecutor struct{}

func (goExecutor) Submit(task func()) error {
	go task()
	return nil
}
