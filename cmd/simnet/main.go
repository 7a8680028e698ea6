// Package main 提供 simnet 命令行入口
//
// 在单个进程中启动一组模拟节点，执行一轮发现与组播，打印发现结果和丢弃统计。
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/common/expfmt"

	simnet "github.com/dep2p/go-simnet"
	"github.com/dep2p/go-simnet/pkg/lib/log"
)

var logger = log.Logger("simnet/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
//	命令行参数：本次场景的快速覆盖
//	JSON 配置文件：可复用的故障注入默认值
//
// ═══════════════════════════════════════════════════════════════════════════
var (
	nodes      = flag.Int("nodes", 3, "节点数量")
	cluster    = flag.String("cluster", "demo", "集群名称")
	scope      = flag.String("scope", "", "测试作用域（默认使用配置中的值）")
	configFile = flag.String("config", "", "配置文件路径")
	preset     = flag.String("preset", "", "故障预设 (reliable/lossy/chaos)")
	seed       = flag.Uint64("seed", 0, "随机种子（0 = 随机）")

	// ─────────────────────────────────────────────────────────────────────
	// 故障注入
	// ─────────────────────────────────────────────────────────────────────
	dropDown = flag.Float64("drop-down", 0, "向下丢弃概率 [0,1]")
	dropUp   = flag.Float64("drop-up", 0, "向上丢弃概率 [0,1]")
	discard  = flag.String("discard", "", "开启 discard-all 的节点序号，逗号分隔（从 0 开始）")
	rounds   = flag.Int("rounds", 1, "组播轮数")

	// ─────────────────────────────────────────────────────────────────────
	// 输出
	// ─────────────────────────────────────────────────────────────────────
	showMetrics = flag.Bool("metrics", false, "结束时打印 Prometheus 指标")
	showVersion = flag.Bool("version", false, "显示版本信息")
	showHelp    = flag.Bool("help", false, "显示帮助信息")
)

func main() {
	if err := run(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run(out io.Writer) error {
	flag.Parse()

	if *showVersion {
		printVersion(out)
		return nil
	}
	if *showHelp {
		printHelp(out)
		return nil
	}

	opts, err := buildOptions()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}
	discardSet, err := parseIndexes(*discard, *nodes)
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Fprintf(out, "📦 %s\n", simnet.VersionInfo())
	logger.Info("启动模拟", "nodes", *nodes, "cluster", *cluster)

	sim, err := simnet.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}

	members := make([]*simnet.Node, 0, *nodes)
	for i := 0; i < *nodes; i++ {
		n, err := sim.NewNode(fmt.Sprintf("node-%d", i), *cluster)
		if err != nil {
			_ = sim.Close(ctx)
			return fmt.Errorf("创建节点失败: %w", err)
		}
		if discardSet[i] {
			n.Faults().SetDiscardAll(true)
		}
		members = append(members, n)
	}
	sim.InstallView(*cluster)

	runScenario(ctx, out, members)

	if *showMetrics {
		if err := printMetrics(out, sim); err != nil {
			logger.Warn("打印指标失败", "err", err)
		}
	}
	return sim.Close(ctx)
}

// buildOptions 构建模拟选项
//
// 配置优先级（从高到低）：
//  1. 显式设置的命令行参数
//  2. 预设
//  3. 配置文件
func buildOptions() ([]simnet.Option, error) {
	if *nodes <= 0 {
		return nil, fmt.Errorf("-nodes must be positive, got %d", *nodes)
	}
	var opts []simnet.Option
	if *configFile != "" {
		opts = append(opts, simnet.WithConfigFile(*configFile))
	}
	if *preset != "" {
		opts = append(opts, simnet.WithPreset(*preset))
	}
	if *scope != "" {
		opts = append(opts, simnet.WithTestScope(*scope))
	}
	if isFlagSet("drop-up") {
		opts = append(opts, simnet.WithUpDropRate(*dropUp))
	}
	if isFlagSet("drop-down") {
		opts = append(opts, simnet.WithDownDropRate(*dropDown))
	}
	if isFlagSet("seed") {
		opts = append(opts, simnet.WithSeed(*seed))
	}
	return opts, nil
}

// isFlagSet 检查命令行参数是否被显式设置
func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// parseIndexes 解析 "0,2" 形式的节点序号列表
func parseIndexes(s string, limit int) (map[int]bool, error) {
	set := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid node index %q: %w", part, err)
		}
		if i < 0 || i >= limit {
			return nil, fmt.Errorf("node index %d out of range [0,%d)", i, limit)
		}
		set[i] = true
	}
	return set, nil
}

// runScenario 每个节点执行一轮发现，然后组播 rounds 轮
func runScenario(ctx context.Context, out io.Writer, members []*simnet.Node) {
	fmt.Fprintln(out, "═══════════════════════════════════════════════")
	fmt.Fprintln(out, "发现")
	fmt.Fprintln(out, "═══════════════════════════════════════════════")
	for _, n := range members {
		resp := n.FindMembers()
		fmt.Fprintf(out, "%s: %d 个响应\n", n, resp.Len())
		for _, pd := range resp.List() {
			fmt.Fprintf(out, "  %s\n", pd)
		}
	}

	for r := 0; r < *rounds; r++ {
		for _, n := range members {
			if err := n.Broadcast([]byte(fmt.Sprintf("%s#%d", n.Name(), r))); err != nil {
				logger.Warn("组播失败", "node", n.Name(), "err", err)
			}
		}
	}

	// 等待 discard-all 节点的异步环回投递
	for _, n := range members {
		if f := n.Faults(); f != nil && f.DiscardAll() {
			wctx, cancel := context.WithTimeout(ctx, time.Second)
			if err := n.WaitReceived(wctx, *rounds); err != nil {
				logger.Warn("等待环回超时", "node", n.Name(), "err", err)
			}
			cancel()
		}
	}

	fmt.Fprintln(out, "═══════════════════════════════════════════════")
	fmt.Fprintln(out, "消息统计")
	fmt.Fprintln(out, "═══════════════════════════════════════════════")
	for _, n := range members {
		st := n.Stats()
		fmt.Fprintf(out, "%-12s received=%-4d dropped_up=%-4d dropped_down=%-4d looped_back=%d\n",
			n.Name(), len(n.Received()), st.DroppedUp, st.DroppedDown, st.LoopedBack)
	}
}

// printMetrics 以 Prometheus 文本格式输出指标
func printMetrics(out io.Writer, sim *simnet.Simulation) error {
	families, err := sim.Gatherer().Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return err
		}
	}
	return nil
}

// printVersion 打印版本信息
func printVersion(out io.Writer) {
	fmt.Fprintf(out, "simnet %s\n", simnet.Version)
	if simnet.GitCommit != "" {
		fmt.Fprintf(out, "  commit: %s\n", simnet.GitCommit)
	}
	if simnet.BuildDate != "" {
		fmt.Fprintf(out, "  built:  %s\n", simnet.BuildDate)
	}
}

// printHelp 打印帮助信息
func printHelp(out io.Writer) {
	fmt.Fprintln(out, "simnet - 进程内模拟集群网络")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "用法:")
	fmt.Fprintln(out, "  simnet [选项]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "选项:")
	flag.CommandLine.SetOutput(out)
	flag.PrintDefaults()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "示例:")
	fmt.Fprintln(out, "  simnet -nodes 5 -discard 1,3")
	fmt.Fprintln(out, "  simnet -preset lossy -seed 42 -rounds 10 -metrics")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "日志:")
	fmt.Fprintln(out, "  SIMNET_LOG_LEVEL=simnet/fault=debug,info")
	fmt.Fprintln(out, "  SIMNET_LOG_FORMAT=json")
}
