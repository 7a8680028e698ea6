package stack

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/multierr"

	"github.com/dep2p/go-simnet/pkg/interfaces"
	"github.com/dep2p/go-simnet/pkg/lib/log"
	"github.com/dep2p/go-simnet/pkg/types"
)

var logger = log.Logger("simnet/stack")

var (
	// ErrNoLayers 协议栈没有任何层
	ErrNoLayers = errors.New("stack: no layers")

	// ErrNilLayer 协议栈中存在 nil 层
	ErrNilLayer = errors.New("stack: nil layer")

	// ErrDuplicateLayer 层名称重复
	ErrDuplicateLayer = errors.New("stack: duplicate layer name")

	// ErrAlreadyStarted 协议栈已启动
	ErrAlreadyStarted = errors.New("stack: already started")
)

// Stack 分层协议栈
type Stack struct {
	// layers 自底向上排列
	layers []interfaces.Layer
	top    *topLayer

	mu      sync.Mutex
	started bool
}

// New 创建协议栈
//
// layers 按自底向上的顺序给出，layers[0] 是传输层。receiver 可以为 nil，
// 此时到达栈顶的事件被丢弃。
func New(receiver interfaces.Receiver, layers ...interfaces.Layer) (*Stack, error) {
	if len(layers) == 0 {
		return nil, ErrNoLayers
	}
	seen := make(map[string]struct{}, len(layers))
	for i, l := range layers {
		if l == nil {
			return nil, fmt.Errorf("%w at position %d", ErrNilLayer, i)
		}
		if _, dup := seen[l.Name()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLayer, l.Name())
		}
		seen[l.Name()] = struct{}{}
	}

	s := &Stack{
		layers: slices.Clone(layers),
		top:    &topLayer{Base: NewBase("top"), receiver: receiver},
	}
	for i := 0; i < len(s.layers)-1; i++ {
		s.layers[i].SetUpLayer(s.layers[i+1])
		s.layers[i+1].SetDownLayer(s.layers[i])
	}
	last := s.layers[len(s.layers)-1]
	last.SetUpLayer(s.top)
	s.top.SetDownLayer(last)
	return s, nil
}

// Start 自底向上启动各层，失败时按相反顺序停止已启动的层
func (s *Stack) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	for i, l := range s.layers {
		if err := l.Start(); err != nil {
			err = fmt.Errorf("start layer %s: %w", l.Name(), err)
			for j := i - 1; j >= 0; j-- {
				if stopErr := s.layers[j].Stop(); stopErr != nil {
					err = multierr.Append(err, fmt.Errorf("rollback layer %s: %w", s.layers[j].Name(), stopErr))
				}
			}
			return err
		}
	}
	s.started = true
	logger.Debug("协议栈已启动", "layers", s.names())
	return nil
}

// Stop 自顶向下停止各层（可重复调用）
//
// 某一层停止失败不会阻止其余层停止，所有错误合并返回。
func (s *Stack) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	var err error
	for i := len(s.layers) - 1; i >= 0; i-- {
		if stopErr := s.layers[i].Stop(); stopErr != nil {
			err = multierr.Append(err, fmt.Errorf("stop layer %s: %w", s.layers[i].Name(), stopErr))
		}
	}
	s.started = false
	return err
}

// IsStarted 协议栈是否已启动
func (s *Stack) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Down 从栈顶协议层向下发送事件
func (s *Stack) Down(evt *types.Event) any {
	return s.Top().Down(evt)
}

// Top 返回最上层协议层
func (s *Stack) Top() interfaces.Layer {
	return s.layers[len(s.layers)-1]
}

// Bottom 返回最下层（传输层）
func (s *Stack) Bottom() interfaces.Layer {
	return s.layers[0]
}

// Layers 返回自底向上的层列表副本
func (s *Stack) Layers() []interfaces.Layer {
	return slices.Clone(s.layers)
}

// FindByName 按名称查找层
func (s *Stack) FindByName(name string) interfaces.Layer {
	for _, l := range s.layers {
		if l.Name() == name {
			return l
		}
	}
	return nil
}

// Find 返回栈中第一个可断言为 T 的层
//
// 用于在组装时一次性解析能力句柄（例如 interfaces.FaultState）。
func Find[T any](s *Stack) (T, bool) {
	for _, l := range s.layers {
		if v, ok := l.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func (s *Stack) names() []string {
	names := make([]string, 0, len(s.layers))
	for _, l := range s.layers {
		names = append(names, l.Name())
	}
	return names
}

// ============================================================================
//                              topLayer
// ============================================================================

// topLayer 栈顶适配层，把向上事件交给 Receiver
type topLayer struct {
	Base
	receiver interfaces.Receiver
}

func (t *topLayer) Up(evt *types.Event) any {
	if t.receiver == nil {
		return nil
	}
	switch evt.Type {
	case types.EventMsg:
		if msg := evt.Message(); msg != nil {
			t.receiver.Receive(msg)
		}
	case types.EventViewChange:
		t.receiver.ViewAccepted(evt.View())
	}
	return nil
}

func (t *topLayer) UpBatch(batch *types.MessageBatch) {
	if t.receiver != nil && !batch.IsEmpty() {
		t.receiver.ReceiveBatch(batch)
	}
}
