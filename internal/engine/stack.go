package engine

import (
	"fmt"
	"sync"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
)

// StackItemKind records why a value is on the stack: local, parameter,
// member, return slot, or a borrowed repush.
type StackItemKind int

const (
	KindLocal StackItemKind = iota
	KindParam
	KindMember
	KindReturn
	KindRepush
	KindTemp
)

// StackItem is one slot on the value stack.
type StackItem struct {
	Kind  StackItemKind
	Owned bool // false for repush items: the stack pops the slot but does not destroy the value
	Value *classmeta.ValueObject
}

// ValueStack is the engine's operand stack. Grounded on the interpreter's
// vm_stack.go push/pop helpers, generalized to carry ownership/kind
// metadata per value.
type ValueStack struct {
	items []StackItem
	pools map[ids.ClassID]*sync.Pool
}

func newValueStack(capacity int) *ValueStack {
	return &ValueStack{
		items: make([]StackItem, 0, capacity),
		pools: make(map[ids.ClassID]*sync.Pool),
	}
}

// Push places an owned value on top of the stack.
func (s *ValueStack) Push(kind StackItemKind, v *classmeta.ValueObject) {
	s.items = append(s.items, StackItem{Kind: kind, Owned: true, Value: v})
}

// PushRepush places a borrowed value on top of the stack: popping it will
// not destroy v, since some other frame owns it.
func (s *ValueStack) PushRepush(v *classmeta.ValueObject) {
	s.items = append(s.items, StackItem{Kind: KindRepush, Owned: false, Value: v})
}

// Pop removes and returns the top item. Returns an error if the stack is
// empty — an internal bug, since well-formed opcode streams never
// underflow.
func (s *ValueStack) Pop() (StackItem, error) {
	if len(s.items) == 0 {
		return StackItem{}, fmt.Errorf("engine: stack underflow")
	}
	it := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return it, nil
}

// PopValue is a convenience wrapper around Pop that discards stack
// bookkeeping and returns just the value.
func (s *ValueStack) PopValue() (*classmeta.ValueObject, error) {
	it, err := s.Pop()
	if err != nil {
		return nil, err
	}
	return it.Value, nil
}

// MultiPop pops n items at once, in the order they were pushed (bottom to
// top), matching the compiler's ABI for tearing down a call region.
func (s *ValueStack) MultiPop(n int) ([]StackItem, error) {
	if n > len(s.items) {
		return nil, fmt.Errorf("engine: stack underflow popping %d items (have %d)", n, len(s.items))
	}
	start := len(s.items) - n
	out := append([]StackItem(nil), s.items[start:]...)
	s.items = s.items[:start]
	return out, nil
}

// Depth returns the current stack depth.
func (s *ValueStack) Depth() int { return len(s.items) }

// TruncateTo pops down to depth, discarding (and, for owned items,
// abandoning — the caller is responsible for destruction bookkeeping)
// everything above it. Used by exception unwinding.
func (s *ValueStack) TruncateTo(depth int) []StackItem {
	if depth >= len(s.items) {
		return nil
	}
	discarded := append([]StackItem(nil), s.items[depth:]...)
	s.items = s.items[:depth]
	return discarded
}

// At returns the item at absolute stack index i (0-based from the
// bottom), used to locate parameters relative to a frame base.
func (s *ValueStack) At(i int) (*StackItem, bool) {
	if i < 0 || i >= len(s.items) {
		return nil, false
	}
	return &s.items[i], true
}

// PushPoolValue draws a temporary ValueObject for classID from a per-type
// pool rather than allocating, the pool-of-temporaries ABI for arithmetic
// and string-formatting scratch values. make is called only on a pool
// miss.
func (s *ValueStack) PushPoolValue(classID ids.ClassID, make func() classmeta.Payload) *classmeta.ValueObject {
	pool, ok := s.pools[classID]
	if !ok {
		pool = &sync.Pool{New: func() interface{} { return classmeta.NewValueObject(classID, make()) }}
		s.pools[classID] = pool
	}
	v := pool.Get().(*classmeta.ValueObject)
	s.Push(KindTemp, v)
	return v
}

// ReleasePoolValue returns a temporary obtained via PushPoolValue to its
// pool once popped, so future PushPoolValue calls can reuse it.
func (s *ValueStack) ReleasePoolValue(v *classmeta.ValueObject) {
	pool, ok := s.pools[v.ClassID]
	if !ok {
		return
	}
	pool.Put(v)
}
