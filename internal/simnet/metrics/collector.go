package metrics

import (
	"fmt"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-simnet/internal/simnet/registry"
	"github.com/dep2p/go-simnet/pkg/lib/log"
)

var logger = log.Logger("simnet/metrics")

// NodeStats 单个节点的统计快照
type NodeStats struct {
	Name    string
	Cluster string

	DroppedUp   uint64
	DroppedDown uint64
	LoopedBack  uint64

	Sent       uint64
	Received   uint64
	Unroutable uint64

	Rounds       uint64
	Responses    uint64
	Placeholders uint64
	Suppressed   uint64
}

// StatsFunc 返回节点当前统计
type StatsFunc func() NodeStats

// Collector 模拟网络指标采集器
type Collector struct {
	reg *registry.Registry

	mu    sync.RWMutex
	nodes map[string]StatsFunc

	dropped    *prometheus.Desc
	loopedBack *prometheus.Desc
	wire       *prometheus.Desc
	rounds     *prometheus.Desc
	responses  *prometheus.Desc
	suppressed *prometheus.Desc
	scopes     *prometheus.Desc
	members    *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector 创建采集器，reg 为 nil 时不导出注册表规模
func NewCollector(namespace string, reg *registry.Registry) *Collector {
	nodeLabels := []string{"node", "cluster"}
	desc := func(name, help string, extra ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help,
			append(slices.Clone(nodeLabels), extra...), nil)
	}
	return &Collector{
		reg:        reg,
		nodes:      make(map[string]StatsFunc),
		dropped:    desc("fault_dropped_total", "Messages dropped by the fault injector.", "direction"),
		loopedBack: desc("fault_looped_back_total", "Messages looped back while discard-all is set."),
		wire:       desc("wire_messages_total", "Messages handled by the loopback transport.", "kind"),
		rounds:     desc("discovery_rounds_total", "Discovery rounds run by the node."),
		responses:  desc("discovery_responses_total", "Discovery responses collected by the node.", "kind"),
		suppressed: desc("discovery_suppressed_total", "Discovery rounds suppressed by local discard-all."),
		scopes: prometheus.NewDesc(prometheus.BuildFQName(namespace, "registry", "scopes"),
			"Scope keys currently present in the discovery registry.", nil, nil),
		members: prometheus.NewDesc(prometheus.BuildFQName(namespace, "registry", "members"),
			"Endpoints currently registered across all scopes.", nil, nil),
	}
}

// Track 跟踪节点，id 重复时替换
func (c *Collector) Track(id string, fn StatsFunc) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes[id] = fn
}

// Untrack 停止跟踪节点
func (c *Collector) Untrack(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.nodes, id)
}

// Tracked 已跟踪节点数
func (c *Collector) Tracked() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nodes)
}

// Describe 实现 prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.dropped, c.loopedBack, c.wire, c.rounds, c.responses, c.suppressed, c.scopes, c.members,
	} {
		ch <- d
	}
}

// Collect 实现 prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.snapshot() {
		counter := func(d *prometheus.Desc, v uint64, extra ...string) {
			labels := append([]string{s.Name, s.Cluster}, extra...)
			ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
		}
		counter(c.dropped, s.DroppedUp, "up")
		counter(c.dropped, s.DroppedDown, "down")
		counter(c.loopedBack, s.LoopedBack)
		counter(c.wire, s.Sent, "sent")
		counter(c.wire, s.Received, "received")
		counter(c.wire, s.Unroutable, "unroutable")
		counter(c.rounds, s.Rounds)
		counter(c.responses, s.Responses, "full")
		counter(c.responses, s.Placeholders, "placeholder")
		counter(c.suppressed, s.Suppressed)
	}
	if c.reg != nil {
		ch <- prometheus.MustNewConstMetric(c.scopes, prometheus.GaugeValue, float64(c.reg.Len()))
		ch <- prometheus.MustNewConstMetric(c.members, prometheus.GaugeValue, float64(c.reg.Size()))
	}
}

// snapshot 读取所有节点统计，按名称排序
func (c *Collector) snapshot() []NodeStats {
	c.mu.RLock()
	fns := make([]StatsFunc, 0, len(c.nodes))
	for _, fn := range c.nodes {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()

	out := make([]NodeStats, 0, len(fns))
	for _, fn := range fns {
		out = append(out, fn())
	}
	slices.SortFunc(out, func(a, b NodeStats) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

// Register 注册到 Registerer，已注册的同类采集器直接复用
func Register(r prometheus.Registerer, c *Collector) (*Collector, error) {
	if err := r.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*Collector); ok {
				logger.Debug("复用已注册的采集器")
				return existing, nil
			}
			return nil, fmt.Errorf("metrics: collector already registered with incompatible type")
		}
		return nil, err
	}
	return c, nil
}
