// Package metrics 把模拟网络的计数器导出为 Prometheus 指标
//
// Collector 在每次采集时读取已跟踪节点的统计快照与注册表规模，
// 不在消息路径上做任何额外记录。
//
// 导出的指标（前缀为配置的命名空间）：
//   - fault_dropped_total{node,cluster,direction}
//   - fault_looped_back_total{node,cluster}
//   - wire_messages_total{node,cluster,kind}
//   - discovery_rounds_total{node,cluster}
//   - discovery_responses_total{node,cluster,kind}
//   - discovery_suppressed_total{node,cluster}
//   - registry_scopes / registry_members
package metrics
