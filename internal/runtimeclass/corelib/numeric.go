package corelib

import (
	"fmt"
	"strconv"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// Radix selects the text base numerics format to/from, used by the
// Formattable radix support.
type Radix int

const (
	RadixDec Radix = iota
	RadixBin
	RadixOct
	RadixHex
)

// numericErrOrdinal enumerates the runtime errors a numeric class can
// raise. They are raised against the numeric class's own id; no separate
// error enum class is registered for them.
const (
	errOrdDivideByZero uint32 = iota + 1
	errOrdOverflow
)

// numericKind describes one of Card1/2/4/8, Int1/2/4, Float4/8: the
// bit width and signedness the shared implementation below needs to do
// arithmetic, saturate Inc/Dec, and report MinVal/MaxVal.
type numericKind struct {
	Path    string
	Signed  bool
	Float   bool
	BitSize int // 8, 16, 32, 64
}

var numericKinds = []numericKind{
	{Path: "MEng.Card1", Signed: false, BitSize: 8},
	{Path: "MEng.Card2", Signed: false, BitSize: 16},
	{Path: "MEng.Card4", Signed: false, BitSize: 32},
	{Path: "MEng.Card8", Signed: false, BitSize: 64},
	{Path: "MEng.Int1", Signed: true, BitSize: 8},
	{Path: "MEng.Int2", Signed: true, BitSize: 16},
	{Path: "MEng.Int4", Signed: true, BitSize: 32},
	{Path: "MEng.Float4", Float: true, BitSize: 32},
	{Path: "MEng.Float8", Float: true, BitSize: 64},
}

func (k numericKind) minMax() (min, max float64) {
	if k.Float {
		if k.BitSize == 32 {
			return -3.402823e38, 3.402823e38
		}
		return -1.7976931348623157e308, 1.7976931348623157e308
	}
	if k.Signed {
		bits := uint(k.BitSize)
		max = float64(int64(1)<<(bits-1) - 1)
		min = -max - 1
		return
	}
	bits := uint(k.BitSize)
	if bits == 64 {
		return 0, float64(uint64(1)<<63) * 2 // approximate: Card8's max overflows float64 precision anyway
	}
	return 0, float64(uint64(1)<<bits - 1)
}

// NewNumericClasses returns one RuntimeClass per entry in numericKinds,
// ready to append to a runtimeclass.Loader.
func NewNumericClasses() []runtimeclass.RuntimeClass {
	out := make([]runtimeclass.RuntimeClass, len(numericKinds))
	for i, k := range numericKinds {
		out[i] = &numericClass{kind: k}
	}
	return out
}

// numericClass is the single RuntimeClass implementation backing every
// numeric kind: all nine share one family of behavior ("each provides...")
// rather than being nine unrelated classes, so one parameterized Go type
// mirrors that rather than duplicating nine near-identical files.
type numericClass struct {
	kind numericKind

	idAdd, idSub, idMul, idDiv, idModDiv          ids.MethodID
	idAddEq, idSubEq, idMulEq, idDivEq            ids.MethodID
	idEQ, idNE, idLT, idLE, idGT, idGE            ids.MethodID
	idInc, idDec, idAbsValue, idNegate, idFormatTo ids.MethodID
	idCastFrom                                     ids.MethodID
}

func (c *numericClass) Path() string { return c.kind.Path }

func (c *numericClass) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(c.kind.Path, ids.InvalidClassID, classmeta.Final, true)
	if err != nil {
		return nil, err
	}

	add := func(name string, p *ids.MethodID) error {
		id, err := reg.NextMethodID(desc.ID)
		if err != nil {
			return err
		}
		*p = id
		return desc.AddMethod(&classmeta.MethodDescriptor{ID: id, Name: name, ReturnClassID: desc.ID})
	}

	for name, target := range map[string]*ids.MethodID{
		"Add": &c.idAdd, "Sub": &c.idSub, "Mul": &c.idMul, "Div": &c.idDiv, "ModDiv": &c.idModDiv,
		"AddEq": &c.idAddEq, "SubEq": &c.idSubEq, "MulEq": &c.idMulEq, "DivEq": &c.idDivEq,
		"Eq": &c.idEQ, "Ne": &c.idNE, "Lt": &c.idLT, "Le": &c.idLE, "Gt": &c.idGT, "Ge": &c.idGE,
		"Inc": &c.idInc, "Dec": &c.idDec, "AbsValue": &c.idAbsValue, "FormatTo": &c.idFormatTo,
		"CastFrom": &c.idCastFrom,
	} {
		if err := add(name, target); err != nil {
			return nil, err
		}
	}
	if c.kind.Signed || c.kind.Float {
		if err := add("Negate", &c.idNegate); err != nil {
			return nil, err
		}
	}

	min, max := c.kind.minMax()
	if err := desc.AddLiteral(&classmeta.LiteralValue{Name: "kMinValue", ClassID: desc.ID, Payload: min}); err != nil {
		return nil, err
	}
	if err := desc.AddLiteral(&classmeta.LiteralValue{Name: "kMaxValue", ClassID: desc.ID, Payload: max}); err != nil {
		return nil, err
	}
	return desc, nil
}

// MakeStorage returns the numeric's zero value, stored as float64 for
// floats or int64/uint64 for integers depending on signedness — the
// payload's dynamic type is the contract InvokeMethod relies on.
func (c *numericClass) MakeStorage(bool) classmeta.Payload {
	if c.kind.Float {
		return float64(0)
	}
	if c.kind.Signed {
		return int64(0)
	}
	return uint64(0)
}

func (c *numericClass) asFloat(v *classmeta.ValueObject) float64 {
	switch p := v.Payload.(type) {
	case float64:
		return p
	case int64:
		return float64(p)
	case uint64:
		return float64(p)
	}
	return 0
}

func (c *numericClass) fromFloat(f float64) classmeta.Payload {
	if c.kind.Float {
		return f
	}
	if c.kind.Signed {
		return int64(f)
	}
	return uint64(f)
}

func (c *numericClass) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	self := c.asFloat(receiver)
	var rhs float64
	if len(args) > 0 {
		rhs = c.asFloat(args[0])
	}

	newVal := func(f float64) *classmeta.ValueObject {
		return classmeta.NewValueObject(receiver.ClassID, c.fromFloat(f))
	}
	newBool := func(b bool) *classmeta.ValueObject {
		boolClassID := receiver.ClassID
		if desc, err := ctx.Registry().FindClassByPath("MEng.Boolean"); err == nil {
			boolClassID = desc.ID
		}
		return classmeta.NewValueObject(boolClassID, b)
	}

	switch methodID {
	case c.idAdd:
		return newVal(self + rhs), true, nil
	case c.idSub:
		return newVal(self - rhs), true, nil
	case c.idMul:
		return newVal(self * rhs), true, nil
	case c.idDiv:
		if rhs == 0 {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdDivideByZero, "division by zero")
		}
		return newVal(self / rhs), true, nil
	case c.idModDiv:
		if rhs == 0 {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdDivideByZero, "modulo by zero")
		}
		return newVal(float64(int64(self) % int64(rhs))), true, nil
	case c.idAddEq, c.idSubEq, c.idMulEq, c.idDivEq:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		var result float64
		switch methodID {
		case c.idAddEq:
			result = self + rhs
		case c.idSubEq:
			result = self - rhs
		case c.idMulEq:
			result = self * rhs
		case c.idDivEq:
			if rhs == 0 {
				return nil, true, ctx.Raise(receiver.ClassID, errOrdDivideByZero, "division by zero")
			}
			result = self / rhs
		}
		receiver.Payload = c.fromFloat(result)
		return receiver, true, nil
	case c.idEQ:
		return newBool(self == rhs), true, nil
	case c.idNE:
		return newBool(self != rhs), true, nil
	case c.idLT:
		return newBool(self < rhs), true, nil
	case c.idLE:
		return newBool(self <= rhs), true, nil
	case c.idGT:
		return newBool(self > rhs), true, nil
	case c.idGE:
		return newBool(self >= rhs), true, nil
	case c.idInc:
		_, max := c.kind.minMax()
		next := self + 1
		if next > max {
			next = max
		}
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		receiver.Payload = c.fromFloat(next)
		return receiver, true, nil
	case c.idDec:
		min, _ := c.kind.minMax()
		next := self - 1
		if next < min {
			next = min
		}
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		receiver.Payload = c.fromFloat(next)
		return receiver, true, nil
	case c.idAbsValue:
		if self < 0 {
			self = -self
		}
		return newVal(self), true, nil
	case c.idNegate:
		return newVal(-self), true, nil
	case c.idFormatTo:
		radix := RadixDec
		if len(args) > 0 {
			if r, ok := args[0].Payload.(Radix); ok {
				radix = r
			}
		}
		text := c.format(receiver, radix)
		return classmeta.NewValueObject(ids.InvalidClassID, text), true, nil
	case c.idCastFrom:
		if len(args) == 0 {
			return nil, true, fmt.Errorf("corelib: CastFrom called with no source value (engine bug)")
		}
		return classmeta.NewValueObject(receiver.ClassID, c.castValue(args[0])), true, nil
	}
	return nil, false, nil
}

// castValue converts src's payload to this numeric kind, truncating rather
// than rejecting the way a dynamic cast between unrelated numeric classes
// does: a float narrows or truncates toward zero into an integer, and an
// integer's raw two's-complement bits are masked to this kind's width and
// reinterpreted per its own signedness (so Int4(-1) cast to Card1 yields
// 0xFF, not a BadCast).
func (c *numericClass) castValue(src *classmeta.ValueObject) classmeta.Payload {
	switch p := src.Payload.(type) {
	case float64:
		if c.kind.Float {
			if c.kind.BitSize == 32 {
				return float64(float32(p))
			}
			return p
		}
		return c.fromBits(uint64(int64(p)))
	case int64:
		if c.kind.Float {
			return float64(p)
		}
		return c.fromBits(uint64(p))
	case uint64:
		if c.kind.Float {
			return float64(p)
		}
		return c.fromBits(p)
	}
	return c.MakeStorage(false)
}

// fromBits masks a 64-bit two's-complement pattern down to this kind's
// BitSize and sign-extends it when this kind is signed, yielding the value
// a C-style narrowing cast to that width would produce.
func (c *numericClass) fromBits(bits uint64) classmeta.Payload {
	if c.kind.BitSize < 64 {
		mask := uint64(1)<<uint(c.kind.BitSize) - 1
		bits &= mask
	}
	if !c.kind.Signed {
		return bits
	}
	shift := uint(64 - c.kind.BitSize)
	if shift == 0 {
		return int64(bits)
	}
	return int64(bits<<shift) >> shift
}

// format renders receiver's payload as text in the given radix. Only
// integers support non-decimal radixes; a float formats with FormatFloat
// regardless of the requested radix, since radix only applies meaningfully
// to integral numerics.
func (c *numericClass) format(receiver *classmeta.ValueObject, radix Radix) string {
	if c.kind.Float {
		return strconv.FormatFloat(c.asFloat(receiver), 'g', -1, 64)
	}
	base := 10
	switch radix {
	case RadixBin:
		base = 2
	case RadixOct:
		base = 8
	case RadixHex:
		base = 16
	}
	if c.kind.Signed {
		return strconv.FormatInt(int64(c.asFloat(receiver)), base)
	}
	return strconv.FormatUint(uint64(c.asFloat(receiver)), base)
}
