// Package simnet 在单个进程内模拟一个集群网络
//
// 每个模拟节点拥有一条真实的分层协议栈：底层是进程内环回线路，中间是故障注入层，
// 上层是基于共享注册表的成员发现层。测试通过故障注入层精确控制消息丢失与成员可见性。
//
// # 快速开始
//
//	sim, err := simnet.New(ctx, simnet.WithTestScope(t.Name()))
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer sim.Close(ctx)
//
//	a, _ := sim.NewNode("A", "cluster")
//	b, _ := sim.NewNode("B", "cluster")
//
//	resp := a.FindMembers()        // 包含 B 的完整响应
//	b.Faults().SetDiscardAll(true) // B 被完全隔离
//	resp = a.FindMembers()         // B 只剩占位响应
//
// # 共享组件
//
// 发现注册表、环回 Hub、环回任务队列与指标采集器由 fx 构造，整个模拟共享一份，
// Close 时按相反顺序释放。
//
// # 日志
//
// 日志基于 log/slog，按组件过滤级别：
//
//	SIMNET_LOG_LEVEL=simnet/discovery=debug,info
//	SIMNET_LOG_FORMAT=json
package simnet
