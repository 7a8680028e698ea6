// Package registry 实现进程内的发现注册表
//
// 注册表按作用域键（测试作用域 + 集群名）分区，每个分区是一个
// 逻辑地址到发现端点的映射。分区在首次注册时创建，在最后一个成员
// 注销时移除，外层映射中存在某个键当且仅当其分区非空。
//
// 注册表由 fx 以单例方式构造并注入每个模拟节点，模拟结束时清空。
//
// # 并发
//
//   - 外层映射使用 sync.Map，分区移除按分区对象身份进行（CompareAndDelete）
//   - 分区内部由互斥锁保护；分区一旦被清空即标记为退役，后续注册会等待其移除后创建新分区
//   - 发现轮次持有分区的轮次锁遍历成员，两个轮次不会交错修改地址表
package registry
