package engine

import (
	"testing"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
)

func TestValueStackPushPopOrder(t *testing.T) {
	s := newValueStack(4)
	a := classmeta.NewValueObject(1, "a")
	b := classmeta.NewValueObject(1, "b")
	s.Push(KindLocal, a)
	s.Push(KindTemp, b)

	top, err := s.PopValue()
	if err != nil || top != b {
		t.Fatalf("got (%v, %v), want b", top, err)
	}
	bottom, err := s.PopValue()
	if err != nil || bottom != a {
		t.Fatalf("got (%v, %v), want a", bottom, err)
	}
}

func TestValueStackPopUnderflow(t *testing.T) {
	s := newValueStack(0)
	if _, err := s.Pop(); err == nil {
		t.Fatal("expected an error popping an empty stack")
	}
}

func TestValueStackMultiPopPreservesOrder(t *testing.T) {
	s := newValueStack(4)
	vals := []*classmeta.ValueObject{
		classmeta.NewValueObject(1, 1),
		classmeta.NewValueObject(1, 2),
		classmeta.NewValueObject(1, 3),
	}
	for _, v := range vals {
		s.Push(KindTemp, v)
	}
	items, err := s.MultiPop(3)
	if err != nil {
		t.Fatal(err)
	}
	for i, it := range items {
		if it.Value != vals[i] {
			t.Fatalf("item %d: got %v, want %v", i, it.Value, vals[i])
		}
	}
	if s.Depth() != 0 {
		t.Fatalf("expected empty stack after MultiPop, got depth %d", s.Depth())
	}
}

func TestValueStackTruncateToReturnsDiscarded(t *testing.T) {
	s := newValueStack(4)
	s.Push(KindTemp, classmeta.NewValueObject(1, "keep"))
	s.Push(KindTemp, classmeta.NewValueObject(1, "drop1"))
	s.Push(KindTemp, classmeta.NewValueObject(1, "drop2"))

	discarded := s.TruncateTo(1)
	if len(discarded) != 2 {
		t.Fatalf("got %d discarded items, want 2", len(discarded))
	}
	if s.Depth() != 1 {
		t.Fatalf("got depth %d after truncate, want 1", s.Depth())
	}
}

func TestValueStackPoolReusesReleasedValue(t *testing.T) {
	s := newValueStack(4)
	classID := ids.ClassID(42)
	makeCount := 0
	makeFn := func() classmeta.Payload {
		makeCount++
		return int64(0)
	}

	v1 := s.PushPoolValue(classID, makeFn)
	s.Pop()
	s.ReleasePoolValue(v1)

	v2 := s.PushPoolValue(classID, makeFn)
	s.Pop()

	if v1 != v2 {
		t.Fatalf("expected the released value to be reused")
	}
	if makeCount != 1 {
		t.Fatalf("got %d calls to make, want 1 (second draw should reuse the pool)", makeCount)
	}
}
