package interfaces

// Executor 异步任务执行器
//
// Submit 提交的任务不会在调用方 goroutine 上执行。
type Executor interface {
	Submit(task func()) error
}
