// Package fault 实现故障注入协议层
//
// Injector 插入到每个模拟节点的协议栈中，按规则丢弃或环回经过的消息。
//
// # 向下路径（应用 → 线路）
//
// 规则按顺序求值，第一个命中的规则决定结果：
//  1. 发送方未设置时填充为本地地址
//  2. discard-all：组播或发往自身的消息复制一份异步投递回上层，原消息丢弃；其余直接丢弃
//  3. 单播且 dropNextUnicast > 0：计数减一，丢弃
//  4. 组播且 dropNextMulticast > 0：计数减一，丢弃
//  5. downDropRate > 0 且随机数 < downDropRate：若 excludeSelf 且发往自身则放行，否则丢弃
//  6. 放行
//
// # 向上路径（线路 → 应用）
//
//  1. discard-all 且发送方不是本节点：丢弃
//  2. 发送方在忽略列表中：丢弃
//  3. upDropRate > 0 且随机数 < upDropRate：若 excludeSelf 且来自自身则放行，否则丢弃
//  4. 放行
//
// 批次逐条过滤，保留的消息保持相对顺序一起上交，空批次不再上交。
//
// # 控制事件
//
//   - EventSetLocalAddress：记录本地地址
//   - EventViewChange：记录成员列表
//   - EventGetPhysicalAddress：discard-all 时拒绝，发现请求不能在完全分区时泄漏
package fault
