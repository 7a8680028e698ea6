package simnet

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-simnet/config"
	"github.com/dep2p/go-simnet/internal/simnet/fault"
	"github.com/dep2p/go-simnet/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              模拟选项
// ════════════════════════════════════════════════════════════════════════════

// Option 模拟配置选项
type Option func(*options) error

type options struct {
	config        *config.Config
	registerer    prometheus.Registerer
	userFxOptions []fx.Option
}

func newOptions() *options {
	return &options{config: config.NewConfig()}
}

// WithConfig 使用完整配置
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("config is nil")
		}
		o.config = config.CloneConfig(cfg)
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		o.config = cfg
		return nil
	}
}

// WithPreset 应用故障预设（reliable / lossy / chaos）
func WithPreset(name string) Option {
	return func(o *options) error {
		return config.ApplyPreset(o.config, name)
	}
}

// WithTestScope 设置测试作用域，不同作用域的节点互不可见
func WithTestScope(scope string) Option {
	return func(o *options) error {
		o.config.Discovery.TestScope = scope
		return nil
	}
}

// WithDropRates 设置新节点的默认丢弃概率
func WithDropRates(up, down float64) Option {
	return func(o *options) error {
		o.config.Fault.UpDropRate = up
		o.config.Fault.DownDropRate = down
		return nil
	}
}

// WithUpDropRate 只设置向上方向的默认丢弃概率
func WithUpDropRate(rate float64) Option {
	return func(o *options) error {
		o.config.Fault.UpDropRate = rate
		return nil
	}
}

// WithDownDropRate 只设置向下方向的默认丢弃概率
func WithDownDropRate(rate float64) Option {
	return func(o *options) error {
		o.config.Fault.DownDropRate = rate
		return nil
	}
}

// WithSeed 设置随机种子，第 i 个节点使用 seed+i
func WithSeed(seed uint64) Option {
	return func(o *options) error {
		o.config.Fault.Seed = seed
		return nil
	}
}

// WithRegisterer 把指标注册到指定的 Registerer
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = r
		return nil
	}
}

// WithFxOptions 追加自定义 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              节点选项
// ════════════════════════════════════════════════════════════════════════════

// NodeOption 单个节点的配置选项
type NodeOption func(*nodeOptions)

type nodeOptions struct {
	fault    *fault.Config
	noFaults bool
	server   *bool
	address  types.Address
}

// WithFaults 覆盖节点的初始故障注入配置
func WithFaults(cfg fault.Config) NodeOption {
	return func(o *nodeOptions) {
		o.fault = &cfg
	}
}

// WithoutFaultInjector 节点协议栈中不放置故障注入层
func WithoutFaultInjector() NodeOption {
	return func(o *nodeOptions) {
		o.noFaults = true
	}
}

// WithServer 设置节点是否为服务端成员
func WithServer(server bool) NodeOption {
	return func(o *nodeOptions) {
		o.server = &server
	}
}

// WithAddress 指定节点逻辑地址
func WithAddress(addr types.Address) NodeOption {
	return func(o *nodeOptions) {
		o.address = addr
	}
}
