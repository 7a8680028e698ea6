// Package interfaces 定义 simnet 的公共接口
//
// 接口按协议栈中的角色组织（一个接口文件 = 一类实现）：
//   - layer.go     - Layer（协议层）与 Receiver（栈顶应用）
//   - fault.go     - FaultState / FaultController（故障注入能力句柄）
//   - discovery.go - Discovery（成员发现端点）
//   - executor.go  - Executor（异步任务执行器）
//
// 实现位于 internal/ 下，通过 fx 模块或构造函数注入。
package interfaces
