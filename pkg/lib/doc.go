// Package lib 包含基础设施工具库
//
// 本目录包含与模拟网络组件无关的通用工具库：
//
//   - log: 日志封装
//
// # 与 pkg/ 其他目录的关系
//
// pkg/ 目录包含三类内容：
//
//   - interfaces/: 组件能力接口（协议层、故障状态、执行器）
//   - types/: 公共类型定义（地址、消息、事件、发现响应）
//   - lib/: 基础设施工具库（本目录）
//
// # 使用示例
//
//	import "github.com/dep2p/go-simnet/pkg/lib/log"
//
//	var logger = log.Logger("simnet/mycomponent")
package lib
