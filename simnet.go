package simnet

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-simnet/config"
	"github.com/dep2p/go-simnet/internal/simnet/discovery"
	"github.com/dep2p/go-simnet/internal/simnet/fault"
	"github.com/dep2p/go-simnet/internal/simnet/loopback"
	"github.com/dep2p/go-simnet/internal/simnet/metrics"
	"github.com/dep2p/go-simnet/internal/simnet/node"
	"github.com/dep2p/go-simnet/internal/simnet/registry"
	"github.com/dep2p/go-simnet/internal/util/taskqueue"
	"github.com/dep2p/go-simnet/pkg/interfaces"
	"github.com/dep2p/go-simnet/pkg/lib/log"
	"github.com/dep2p/go-simnet/pkg/types"
)

var logger = log.Logger("simnet")

// Simulation 一次模拟（通常对应一个测试）
type Simulation struct {
	cfg *config.Config
	app *fx.App

	// 由 fx 注入
	registry  *registry.Registry
	hub       *loopback.Hub
	queue     *taskqueue.Queue
	executor  interfaces.Executor
	collector *metrics.Collector
	gatherer  prometheus.Gatherer

	mu     sync.Mutex
	nodes  []*node.Node
	byName map[string]*node.Node
	viewID uint64
	closed bool
}

// New 创建并启动模拟
func New(ctx context.Context, opts ...Option) (*Simulation, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	sim := &Simulation{
		cfg:    o.config,
		byName: make(map[string]*node.Node),
	}
	app, err := buildFxApp(o, sim)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	if err := app.Start(ctx); err != nil {
		return nil, fmt.Errorf("start fx app: %w", err)
	}
	sim.app = app
	logger.Debug("模拟已启动", "scope", sim.cfg.Discovery.TestScope)
	return sim, nil
}

// NewNode 创建并启动一个节点，随后执行一轮发现使其对其他节点可见
//
// 节点名称在模拟内唯一。cluster 与测试作用域共同决定节点可见的范围。
func (s *Simulation) NewNode(name, cluster string, opts ...NodeOption) (*node.Node, error) {
	no := &nodeOptions{}
	for _, opt := range opts {
		opt(no)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if _, dup := s.byName[name]; dup {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, name)
	}

	cfg := node.Config{
		Name:    name,
		Address: no.address,
		Discovery: discovery.Config{
			TestScope: s.cfg.Discovery.TestScope,
			Cluster:   cluster,
			Server:    s.cfg.Discovery.Server,
		},
		Fault:    fault.ConfigFromUnified(s.cfg),
		NoFaults: no.noFaults,
	}
	if cfg.Fault.Seed != 0 {
		cfg.Fault.Seed += uint64(len(s.nodes))
	}
	if no.fault != nil {
		cfg.Fault = *no.fault
	}
	if no.server != nil {
		cfg.Discovery.Server = *no.server
	}

	n, err := node.New(cfg, node.Deps{Registry: s.registry, Hub: s.hub, Executor: s.executor})
	if err != nil {
		return nil, err
	}
	if err := n.Start(); err != nil {
		return nil, err
	}
	// 加入时执行一轮发现，完成在注册表中的登记
	n.FindMembers()
	s.nodes = append(s.nodes, n)
	s.byName[name] = n
	s.collector.Track(name, n.Stats)
	logger.Debug("节点已加入", "node", n, "cluster", cluster)
	return n, nil
}

// Node 按名称查找节点
func (s *Simulation) Node(name string) (*node.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.byName[name]
	return n, ok
}

// Nodes 按创建顺序返回所有节点
func (s *Simulation) Nodes() []*node.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.nodes)
}

// StopNode 停止并移除节点，返回注册表一致性错误
func (s *Simulation) StopNode(n *node.Node) error {
	s.mu.Lock()
	idx := slices.Index(s.nodes, n)
	if idx < 0 {
		s.mu.Unlock()
		return ErrUnknownNode
	}
	s.nodes = slices.Delete(s.nodes, idx, idx+1)
	delete(s.byName, n.Name())
	s.mu.Unlock()

	s.collector.Untrack(n.Name())
	return n.Stop()
}

// InstallView 向 cluster 中所有已启动节点安装视图
//
// 成员按节点创建顺序排列，最早创建的节点是协调者。没有节点时返回 nil。
func (s *Simulation) InstallView(cluster string) *types.View {
	s.mu.Lock()
	var members []*node.Node
	for _, n := range s.nodes {
		if n.IsStarted() && n.ScopeKey().ClusterName == cluster {
			members = append(members, n)
		}
	}
	if len(members) == 0 {
		s.mu.Unlock()
		return nil
	}
	s.viewID++
	addrs := make([]types.Address, 0, len(members))
	for _, n := range members {
		addrs = append(addrs, n.Address())
	}
	view := types.NewView(s.viewID, addrs...)
	s.mu.Unlock()

	for _, n := range members {
		n.InstallView(view)
	}
	logger.Debug("视图已安装", "cluster", cluster, "view", view)
	return view
}

// Registry 共享的发现注册表
func (s *Simulation) Registry() *registry.Registry { return s.registry }

// Hub 共享的环回 Hub
func (s *Simulation) Hub() *loopback.Hub { return s.hub }

// Gatherer 指标采集入口
func (s *Simulation) Gatherer() prometheus.Gatherer { return s.gatherer }

// Config 模拟配置
func (s *Simulation) Config() *config.Config { return s.cfg }

// TaskStats 环回任务队列统计
func (s *Simulation) TaskStats() taskqueue.Stats { return s.queue.Stats() }

// Close 停止所有节点，然后停止共享组件
//
// 节点按创建的相反顺序停止；任何节点的注册表一致性错误都会合并返回。
func (s *Simulation) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	nodes := slices.Clone(s.nodes)
	s.nodes = nil
	clear(s.byName)
	s.mu.Unlock()

	var err error
	for i := len(nodes) - 1; i >= 0; i-- {
		s.collector.Untrack(nodes[i].Name())
		err = multierr.Append(err, nodes[i].Stop())
	}
	if stopErr := s.app.Stop(ctx); stopErr != nil {
		err = multierr.Append(err, fmt.Errorf("stop fx app: %w", stopErr))
	}
	if err != nil {
		logger.Error("模拟关闭出错", "err", err)
		return err
	}
	logger.Debug("模拟已关闭", "nodes", len(nodes))
	return nil
}
