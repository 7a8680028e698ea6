package types

import (
	"fmt"
	"maps"
)

// ============================================================================
//                              Message - 消息
// ============================================================================

// MessageFlag 消息标志位
type MessageFlag uint16

const (
	// FlagOOB 带外消息
	FlagOOB MessageFlag = 1 << iota
	// FlagNoLoopback 组播时不投递给自身
	FlagNoLoopback
)

// Message 协议栈中传递的消息
//
// Payload 是不透明的字节切片，协议栈按引用传递，不做任何编解码。
type Message struct {
	// Src 发送方地址，零值表示未设置
	Src Address

	// Dest 目的地址，零值表示组播
	Dest Address

	// Payload 负载
	Payload []byte

	// Headers 各层附加的头部
	Headers map[string]string

	// Flags 标志位
	Flags MessageFlag
}

// NewMessage 创建消息
func NewMessage(dest Address, payload []byte) *Message {
	return &Message{Dest: dest, Payload: payload}
}

// IsMulticast 是否组播消息
func (m *Message) IsMulticast() bool {
	return m.Dest.IsZero()
}

// IsFlagSet 检查标志位
func (m *Message) IsFlagSet(f MessageFlag) bool {
	return m.Flags&f == f
}

// SetFlag 设置标志位
func (m *Message) SetFlag(f MessageFlag) *Message {
	m.Flags |= f
	return m
}

// PutHeader 设置头部
func (m *Message) PutHeader(key, value string) *Message {
	if m.Headers == nil {
		m.Headers = make(map[string]string)
	}
	m.Headers[key] = value
	return m
}

// Header 读取头部
func (m *Message) Header(key string) (string, bool) {
	v, ok := m.Headers[key]
	return v, ok
}

// Copy 深拷贝消息（负载与头部均复制）
func (m *Message) Copy() *Message {
	cp := &Message{
		Src:   m.Src,
		Dest:  m.Dest,
		Flags: m.Flags,
	}
	if m.Payload != nil {
		cp.Payload = append([]byte(nil), m.Payload...)
	}
	if m.Headers != nil {
		cp.Headers = maps.Clone(m.Headers)
	}
	return cp
}

// String 返回消息摘要
func (m *Message) String() string {
	dst := "all"
	if !m.IsMulticast() {
		dst = m.Dest.ShortString()
	}
	return fmt.Sprintf("[%s -> %s, %d bytes]", m.Src.ShortString(), dst, len(m.Payload))
}

// ============================================================================
//                              MessageBatch - 消息批次
// ============================================================================

// MessageBatch 同一发送方的一批消息
type MessageBatch struct {
	// Sender 发送方
	Sender Address

	// Dest 目的地址，零值表示组播
	Dest Address

	// Cluster 集群名
	Cluster string

	// Messages 消息列表（保持顺序）
	Messages []*Message
}

// NewMessageBatch 创建消息批次
func NewMessageBatch(sender Address, cluster string, msgs ...*Message) *MessageBatch {
	return &MessageBatch{Sender: sender, Cluster: cluster, Messages: msgs}
}

// Len 批次中的消息数
func (b *MessageBatch) Len() int {
	return len(b.Messages)
}

// IsEmpty 批次是否为空
func (b *MessageBatch) IsEmpty() bool {
	return len(b.Messages) == 0
}

// Add 追加消息
func (b *MessageBatch) Add(msg *Message) {
	b.Messages = append(b.Messages, msg)
}

// Filter 原地保留 keep 返回 true 的消息，保持相对顺序，返回被移除的数量
func (b *MessageBatch) Filter(keep func(*Message) bool) int {
	kept := b.Messages[:0]
	removed := 0
	for _, msg := range b.Messages {
		if keep(msg) {
			kept = append(kept, msg)
		} else {
			removed++
		}
	}
	for i := len(kept); i < len(b.Messages); i++ {
		b.Messages[i] = nil
	}
	b.Messages = kept
	return removed
}
