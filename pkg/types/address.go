package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

// ============================================================================
//                              Address - 逻辑地址
// ============================================================================

// Address 集群成员的逻辑地址
//
// 由 UUID 承载。零值有双重含义：
//   - 作为发送方：尚未设置，由 Fault Injector 填充为本地地址
//   - 作为目的地：组播
type Address struct {
	id uuid.UUID
}

// NilAddress 零值地址（组播目的地 / 未设置的发送方）
var NilAddress Address

// NewAddress 生成一个随机的逻辑地址
func NewAddress() Address {
	return Address{id: uuid.New()}
}

// AddressFromUUID 从 UUID 构造地址
func AddressFromUUID(id uuid.UUID) Address {
	return Address{id: id}
}

// ParseAddress 从字符串解析地址
func ParseAddress(s string) (Address, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NilAddress, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return Address{id: id}, nil
}

// IsZero 检查地址是否为零值
func (a Address) IsZero() bool {
	return a.id == uuid.Nil
}

// UUID 返回底层 UUID
func (a Address) UUID() uuid.UUID {
	return a.id
}

// String 返回完整的 UUID 字符串
func (a Address) String() string {
	if a.IsZero() {
		return "<nil>"
	}
	return a.id.String()
}

// ShortString 返回 Base58 前 8 个字符，用于日志
func (a Address) ShortString() string {
	if a.IsZero() {
		return "<nil>"
	}
	s := base58.Encode(a.id[:])
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// ============================================================================
//                              PhysicalAddress - 模拟物理地址
// ============================================================================

// physicalScheme 模拟物理地址的前缀
const physicalScheme = "sim://"

// PhysicalAddress 模拟传输层的物理地址
//
// 格式: sim://<cluster>/<port>。零值表示未知。
type PhysicalAddress struct {
	Cluster string
	Port    int
}

// NewPhysicalAddress 创建物理地址
func NewPhysicalAddress(cluster string, port int) PhysicalAddress {
	return PhysicalAddress{Cluster: cluster, Port: port}
}

// ParsePhysicalAddress 解析 sim://<cluster>/<port> 格式的物理地址
func ParsePhysicalAddress(s string) (PhysicalAddress, error) {
	rest, ok := strings.CutPrefix(s, physicalScheme)
	if !ok {
		return PhysicalAddress{}, fmt.Errorf("%w: %q", ErrInvalidPhysicalAddress, s)
	}
	idx := strings.LastIndexByte(rest, '/')
	if idx <= 0 {
		return PhysicalAddress{}, fmt.Errorf("%w: %q", ErrInvalidPhysicalAddress, s)
	}
	port, err := strconv.Atoi(rest[idx+1:])
	if err != nil || port <= 0 {
		return PhysicalAddress{}, fmt.Errorf("%w: %q", ErrInvalidPhysicalAddress, s)
	}
	return PhysicalAddress{Cluster: rest[:idx], Port: port}, nil
}

// IsZero 检查物理地址是否未知
func (p PhysicalAddress) IsZero() bool {
	return p.Port == 0 && p.Cluster == ""
}

// String 返回 sim://<cluster>/<port>
func (p PhysicalAddress) String() string {
	if p.IsZero() {
		return ""
	}
	return physicalScheme + p.Cluster + "/" + strconv.Itoa(p.Port)
}

// ============================================================================
//                              AddressMapping - 地址映射
// ============================================================================

// AddressMapping 逻辑地址到物理地址（及逻辑名）的映射
//
// 作为 EventAddPhysicalAddress 的参数，写入对端传输层的地址表。
type AddressMapping struct {
	Logical     Address
	Physical    PhysicalAddress
	LogicalName string
}
