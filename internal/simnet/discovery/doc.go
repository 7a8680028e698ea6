// Package discovery 实现基于进程内注册表的成员发现层
//
// 发现端点位于故障注入层之上。上层请求成员列表时，端点先把自己登记到
// 发现注册表，然后遍历同一作用域键下的其他端点，交换物理地址映射并
// 合成发现响应，不发送任何真实的网络广播。
//
// # 状态
//
// 端点状态依次为 NotRegistered、Registered、Suspended（可与 Registered 互相切换）、Deregistered：
//   - Start 清除 stopped
//   - Stop 注销并设置 stopped
//   - Suspend 设置 stopped 但保留登记，节点不再应答
//
// # 故障注入
//
// 本节点的 discard-all 开启时，本轮不联系任何对端。对端 discard-all 开启时，
// 仍交换地址映射，但只返回占位响应，表示"成员存在但不可达"。
// 没有故障注入层的节点按可达处理。
package discovery
