package types

import "fmt"

// ============================================================================
//                              Event - 协议栈事件
// ============================================================================

// EventType 协议栈事件类型
type EventType int

const (
	// EventMsg 数据消息，Arg 为 *Message
	EventMsg EventType = iota + 1

	// EventSetLocalAddress 设置本地地址，Arg 为 Address
	EventSetLocalAddress

	// EventViewChange 成员视图变更，Arg 为 *View
	EventViewChange

	// EventGetPhysicalAddress 请求物理地址，Arg 为 Address，返回 PhysicalAddress
	EventGetPhysicalAddress

	// EventAddPhysicalAddress 写入地址表，Arg 为 AddressMapping，返回 bool
	EventAddPhysicalAddress

	// EventGetLogicalName 查询逻辑名，Arg 为 Address，返回 string
	EventGetLogicalName

	// EventFindMembers 发起一轮成员发现，返回 *Responses
	EventFindMembers
)

// String 返回事件类型名
func (t EventType) String() string {
	switch t {
	case EventMsg:
		return "MSG"
	case EventSetLocalAddress:
		return "SET_LOCAL_ADDRESS"
	case EventViewChange:
		return "VIEW_CHANGE"
	case EventGetPhysicalAddress:
		return "GET_PHYSICAL_ADDRESS"
	case EventAddPhysicalAddress:
		return "ADD_PHYSICAL_ADDRESS"
	case EventGetLogicalName:
		return "GET_LOGICAL_NAME"
	case EventFindMembers:
		return "FIND_MEMBERS"
	default:
		return fmt.Sprintf("EVENT(%d)", int(t))
	}
}

// Event 沿协议栈上下传递的事件
type Event struct {
	Type EventType
	Arg  any
}

// NewEvent 创建事件
func NewEvent(t EventType, arg any) *Event {
	return &Event{Type: t, Arg: arg}
}

// MsgEvent 包装数据消息
func MsgEvent(msg *Message) *Event {
	return &Event{Type: EventMsg, Arg: msg}
}

// Message 返回 EventMsg 携带的消息，其他类型返回 nil
func (e *Event) Message() *Message {
	if e.Type != EventMsg {
		return nil
	}
	msg, _ := e.Arg.(*Message)
	return msg
}

// Address 返回 Arg 中的地址
func (e *Event) Address() (Address, bool) {
	a, ok := e.Arg.(Address)
	return a, ok
}

// View 返回 EventViewChange 携带的视图
func (e *Event) View() *View {
	v, _ := e.Arg.(*View)
	return v
}

// String 返回事件描述
func (e *Event) String() string {
	return fmt.Sprintf("%s(%v)", e.Type, e.Arg)
}
