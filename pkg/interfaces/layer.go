package interfaces

import "github.com/dep2p/go-simnet/pkg/types"

// Layer 协议栈中的一层
//
// 事件向下（应用 → 线路）经 Down 传递，向上（线路 → 应用）经 Up/UpBatch 传递。
// 不处理的事件必须交给相邻层继续传递。
type Layer interface {
	// Name 返回层名称
	Name() string

	// Down 处理向下事件，返回值由事件类型决定
	Down(evt *types.Event) any

	// Up 处理向上事件
	Up(evt *types.Event) any

	// UpBatch 处理向上的消息批次
	UpBatch(batch *types.MessageBatch)

	// SetUpLayer 设置上层
	SetUpLayer(l Layer)

	// SetDownLayer 设置下层
	SetDownLayer(l Layer)

	// UpLayer 返回上层
	UpLayer() Layer

	// DownLayer 返回下层
	DownLayer() Layer

	// Start 启动层（自底向上调用）
	Start() error

	// Stop 停止层（自顶向下调用）
	Stop() error
}

// Receiver 栈顶的应用接收者
type Receiver interface {
	// Receive 接收一条消息
	Receive(msg *types.Message)

	// ReceiveBatch 接收一批消息
	ReceiveBatch(batch *types.MessageBatch)

	// ViewAccepted 接收新视图
	ViewAccepted(view *types.View)
}
