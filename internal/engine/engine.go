package engine

import (
	"fmt"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// UnhandledExceptionFunc is invoked when an exception unwinds past the
// outermost frame with no Try left to catch it — the unhandled-exception
// handler hook.
type UnhandledExceptionFunc func(*ExceptionValue, []FrameSnapshot)

// FrameSnapshot is a point-in-time copy of one stack frame, handed to the
// unhandled-exception handler so it can format a backtrace after the real
// frames have already been unwound.
type FrameSnapshot struct {
	ClassPath  string
	MethodName string
	Line       int
}

// Option configures an Engine at construction time, matching the
// interpreter's functional-option constructors (NewVMWithOutput etc. in
// vm.go).
type Option func(*Engine)

// WithValidation turns on strict cast checking: with validation on, a cast
// passes a value through unchanged only when its class id equals the
// target's exactly, so a descendant is no longer accepted as its ancestor
// (the assignment-across-shared-ancestor bug trap noted in DESIGN.md).
// Assignments through PopLocal/PopParam/PopMember are not checked in
// either mode.
func WithValidation(on bool) Option {
	return func(e *Engine) { e.validating = on }
}

// WithSandboxBase records the fixed base path host-service runtime classes
// resolve relative paths against. The engine itself never inspects this
// value; it is exposed via EngineContext for sandbox-aware runtime classes.
func WithSandboxBase(base string) Option {
	return func(e *Engine) { e.sandboxBase = base }
}

// WithUnhandledExceptionHandler installs the callback invoked when an
// exception escapes the outermost frame.
func WithUnhandledExceptionHandler(f UnhandledExceptionFunc) Option {
	return func(e *Engine) { e.unhandled = f }
}

// WithLoader appends a classmeta.ClassLoader to the engine's resolution
// chain, in addition to whatever default loader New installs. If l is also
// a *runtimeclass.Loader, it is additionally registered as a native-method
// resolver so that calls to its classes' methods reach InvokeMethod instead
// of the opcode dispatcher.
func WithLoader(l classmeta.ClassLoader) Option {
	return func(e *Engine) {
		e.InstallLoader(l)
	}
}

// InstallLoader does what WithLoader does, callable after construction —
// needed because a *runtimeclass.Loader is built from an EngineContext,
// and the Engine itself is the only EngineContext implementation, so
// loaders carrying native classes are necessarily built from an
// already-constructed *Engine rather than threaded in as an Option.
func (e *Engine) InstallLoader(l classmeta.ClassLoader) {
	e.registry.AddLoader(l)
	if rl, ok := l.(*runtimeclass.Loader); ok {
		e.nativeLoaders = append(e.nativeLoaders, rl)
	}
}

// Engine is the execution engine: a value stack, call-frame stack,
// single exception slot, and opcode dispatch loop, plus the class
// registry and loader chain it resolves classes through.
//
// Grounded on the interpreter's VM struct (internal/bytecode/vm.go, vm_core.go),
// generalized from a single-program interpreter into a long-lived host
// embeddable engine: the registry and loaders persist across Invoke calls,
// while the value/frame stacks and exception slot are reset per call.
type Engine struct {
	registry *classmeta.Registry

	stack  *ValueStack
	frames *FrameStack

	exception *ExceptionValue
	tryStack  []tryFrame

	validating  bool
	sandboxBase string
	unhandled   UnhandledExceptionFunc

	// nativeLoaders resolves a class id to the RuntimeClass backing it, so
	// that a method with a nil opcode stream dispatches to InvokeMethod
	// instead of the opcode interpreter.
	nativeLoaders []*runtimeclass.Loader
}

// classFor returns the RuntimeClass backing id, trying each installed
// native loader in order, or nil if id names a program-defined class.
func (e *Engine) classFor(id ids.ClassID) runtimeclass.RuntimeClass {
	for _, l := range e.nativeLoaders {
		if rc := l.ClassFor(id); rc != nil {
			return rc
		}
	}
	return nil
}

// New creates an Engine with an empty class registry. Callers append
// runtime-class loaders via WithLoader (or InstallLoader, before the first
// Invoke); a loader added straight to the registry returned by Registry()
// resolves its classes but does not reach their InvokeMethod.
func New(opts ...Option) *Engine {
	e := &Engine{
		registry: classmeta.NewRegistry(),
		stack:    newValueStack(64),
		frames:   &FrameStack{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry implements EngineContext.
func (e *Engine) Registry() *classmeta.Registry { return e.registry }

// Validating implements EngineContext.
func (e *Engine) Validating() bool { return e.validating }

// SandboxBase returns the fixed base path installed via WithSandboxBase, or
// "" if none was configured (host-service runtime classes treat "" as
// "sandboxing disabled"). Implements runtimeclass.EngineContext.
func (e *Engine) SandboxBase() string { return e.sandboxBase }

// CurrentException implements runtimeclass.EngineContext, letting the
// corelib Exception class's Check/CheckGreater inspect the in-flight
// exception without runtimeclass importing internal/engine.
func (e *Engine) CurrentException() (classID ids.ClassID, ordinal uint32, ok bool) {
	if e.exception == nil {
		return ids.InvalidClassID, 0, false
	}
	return e.exception.ErrorClassID, e.exception.ErrorOrdinal, true
}

// Raise implements EngineContext: it populates the engine's single
// in-flight exception slot and returns it as an error so that a
// RuntimeClass.InvokeMethod can simply `return nil, true, ctx.Raise(...)`.
// Raise does NOT itself unwind frames; the dispatch loop does that when it
// sees a non-nil error come back from a call.
func (e *Engine) Raise(classID ids.ClassID, ordinal uint32, text string) error {
	if e.exception != nil {
		return &ReraiseError{Existing: e.exception}
	}
	line := 0
	if f := e.frames.Top(); f != nil {
		line = f.Line
	}
	var path string
	if d, ok := e.registry.FindClassByID(classID); ok {
		path = d.Path
	}
	e.exception = &ExceptionValue{
		SourceClassPath: path,
		ErrorClassID:    classID,
		ErrorOrdinal:    ordinal,
		ErrorName:       fmt.Sprintf("%s#%d", path, ordinal),
		ErrorText:       text,
		Line:            line,
	}
	return e.exception
}

// Invoke resolves path, looks up methodName on its class, and runs it with
// args pushed as parameters. Returns the method's result value, or a nil
// result and the ExceptionValue if it raised and nothing inside it caught
// the exception — Invoke itself is the implicit outermost Try.
func (e *Engine) Invoke(path, methodName string, args []*classmeta.ValueObject) (*classmeta.ValueObject, *ExceptionValue) {
	desc, err := e.registry.FindClassByPath(path)
	if err != nil {
		return nil, &ExceptionValue{ErrorText: err.Error()}
	}
	method := desc.MethodByName(methodName)
	if method == nil {
		return nil, &ExceptionValue{ErrorText: fmt.Sprintf("engine: %s has no method %q", path, methodName)}
	}

	e.exception = nil
	e.tryStack = e.tryStack[:0]
	e.stack.TruncateTo(0)

	result, err := e.call(desc.ID, method, nil, args)
	if exc, ok := err.(*ExceptionValue); ok {
		e.deliverUnhandled(exc)
		return nil, exc
	}
	if err != nil {
		return nil, &ExceptionValue{ErrorText: err.Error()}
	}
	return result, nil
}

func (e *Engine) deliverUnhandled(exc *ExceptionValue) {
	if e.unhandled == nil {
		return
	}
	snaps := make([]FrameSnapshot, 0, e.frames.Depth())
	for i := e.frames.Depth() - 1; i >= 0; i-- {
		f := e.frames.frames[i]
		name := ""
		path := ""
		if f.Method != nil {
			name = f.Method.Name
		}
		if d, ok := e.registry.FindClassByID(f.ReceiverClass); ok {
			path = d.Path
		}
		snaps = append(snaps, FrameSnapshot{ClassPath: path, MethodName: name, Line: f.Line})
	}
	e.unhandled(exc, snaps)
}

// call pushes a new frame for method, runs its opcode stream (or, for a
// runtime class, its native InvokeMethod) to completion, and pops the
// frame. Returns the method's result, or an *ExceptionValue if it raised
// and propagated past every Try in this activation.
func (e *Engine) call(receiverClass ids.ClassID, method *classmeta.MethodDescriptor, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, error) {
	if method.Required {
		return nil, fmt.Errorf("engine: call to required (abstract) method %s: unresolved virtual dispatch (engine bug)", method.Name)
	}

	frame := &Frame{
		Method:        method,
		Receiver:      receiver,
		ReceiverClass: receiverClass,
		// The return value travels back through call's own return path
		// rather than occupying a physical stack slot, so the parameter
		// base is simply "wherever the stack is right now" — args are
		// pushed immediately below, at run's top.
		ReturnSlotIndex: e.stack.Depth(),
		ParamBaseIndex:  e.stack.Depth(),
	}
	e.frames.Push(frame)
	defer e.frames.Pop()

	if method.Code == nil {
		rc := e.classFor(receiverClass)
		if rc == nil {
			return nil, fmt.Errorf("engine: method %s has no opcode stream and no runtime-class binding", method.Name)
		}
		result, handled, err := rc.InvokeMethod(e, method.ID, receiver, args)
		if !handled {
			// Let each ancestor's runtime class try the same method id.
			for _, pid := range e.registry.AncestorChain(receiverClass)[1:] {
				prc := e.classFor(pid)
				if prc == nil {
					continue
				}
				if result, handled, err = prc.InvokeMethod(e, method.ID, receiver, args); handled {
					return result, err
				}
			}
			return nil, fmt.Errorf("engine: runtime class did not handle method id %d (engine bug: descriptor advertised it)", method.ID)
		}
		return result, err
	}

	return e.run(frame, method.Code, args)
}

// run decodes code with DecodeInstructions, pushes args as parameters, and
// executes the instructions to an OpReturn (or an unrecovered exception),
// matching the interpreter's vm_exec.go dispatch loop.
func (e *Engine) run(frame *Frame, code []byte, args []*classmeta.ValueObject) (*classmeta.ValueObject, error) {
	instrs, err := DecodeInstructions(code)
	if err != nil {
		return nil, err
	}
	for _, a := range args {
		e.stack.Push(KindParam, a)
	}

	tryBase := len(e.tryStack)
	for frame.IP = 0; frame.IP < len(instrs); frame.IP++ {
		instr := instrs[frame.IP]
		result, done, err := e.step(frame, instr)
		if err != nil {
			caught, recovered := e.unwindToHandler(tryBase)
			if !caught {
				return nil, err
			}
			frame.IP = recovered - 1 // loop increment lands us on the handler pc
			continue
		}
		if done {
			return result, nil
		}
	}
	return nil, nil
}

// step executes a single instruction. done is true once OpReturn has
// produced the frame's result.
func (e *Engine) step(frame *Frame, instr Instruction) (result *classmeta.ValueObject, done bool, err error) {
	switch instr.Op {
	case OpPushBoolean, OpPushCard1, OpPushCard2, OpPushCard4, OpPushCard8,
		OpPushInt1, OpPushInt2, OpPushInt4, OpPushFloat4, OpPushFloat8, OpPushChar:
		v := classmeta.NewValueObject(ids.ClassID(instr.ClassID), nil)
		e.stack.Push(KindTemp, v)

	case OpPushStringPool, OpPushEnum:
		v := classmeta.NewValueObject(ids.ClassID(instr.ClassID), int(instr.B))
		e.stack.Push(KindTemp, v)

	case OpPushLocal:
		if int(instr.B) < len(frame.Locals) {
			e.stack.PushRepush(frame.Locals[instr.B])
		}

	case OpPopLocal:
		v, perr := e.stack.PopValue()
		if perr != nil {
			return nil, false, perr
		}
		for len(frame.Locals) <= int(instr.B) {
			frame.Locals = append(frame.Locals, nil)
		}
		frame.Locals[instr.B] = v

	case OpPushParam:
		item, ok := e.stack.At(frame.ParamBaseIndex + int(instr.B))
		if !ok {
			return nil, false, fmt.Errorf("engine: parameter index %d out of range", instr.B)
		}
		e.stack.PushRepush(item.Value)

	case OpPopParam:
		v, perr := e.stack.PopValue()
		if perr != nil {
			return nil, false, perr
		}
		item, ok := e.stack.At(frame.ParamBaseIndex + int(instr.B))
		if !ok {
			return nil, false, fmt.Errorf("engine: parameter index %d out of range", instr.B)
		}
		item.Value = v

	case OpPushMember:
		if frame.Receiver == nil {
			return nil, false, fmt.Errorf("engine: OpPushMember with no receiver (engine bug)")
		}
		e.stack.PushRepush(frame.Receiver.MemberAt(int(instr.B)))

	case OpPopMember:
		if frame.Receiver == nil {
			return nil, false, fmt.Errorf("engine: OpPopMember with no receiver (engine bug)")
		}
		if cerr := frame.Receiver.CheckMutable(); cerr != nil {
			return nil, false, cerr
		}
		v, perr := e.stack.PopValue()
		if perr != nil {
			return nil, false, perr
		}
		if int(instr.B) < len(frame.Receiver.Members) {
			frame.Receiver.Members[instr.B] = v
		}

	case OpDup:
		top, ok := e.stack.At(e.stack.Depth() - 1)
		if !ok {
			return nil, false, fmt.Errorf("engine: stack underflow on Dup")
		}
		e.stack.PushRepush(top.Value)

	case OpPushPoolValue:
		classID := ids.ClassID(instr.ClassID)
		e.stack.PushPoolValue(classID, func() classmeta.Payload {
			if rc := e.classFor(classID); rc != nil {
				return rc.MakeStorage(false)
			}
			return nil
		})

	case OpPop:
		if _, perr := e.stack.Pop(); perr != nil {
			return nil, false, perr
		}

	case OpRepush:
		below, ok := e.stack.At(e.stack.Depth() - 2)
		if !ok {
			return nil, false, fmt.Errorf("engine: stack underflow on Repush")
		}
		e.stack.PushRepush(below.Value)

	case OpCallDirect, OpCallPolymorphic, OpCallRequired:
		return e.dispatchCall(frame, instr)

	case OpReturn:
		v, _ := e.stack.PopValue() // a Void method leaves nothing to pop
		return v, true, nil

	case OpBranch:
		frame.IP = int(instr.B) - 1 // loop increment restores it

	case OpBranchIfFalse:
		v, perr := e.stack.PopValue()
		if perr != nil {
			return nil, false, perr
		}
		if b, ok := v.Payload.(bool); ok && !b {
			frame.IP = int(instr.B) - 1
		}

	case OpCompareEQ, OpCompareNE, OpCompareLT, OpCompareLE, OpCompareGT, OpCompareGE:
		return nil, false, e.compare(instr.Op)

	case OpTry:
		e.tryStack = append(e.tryStack, tryFrame{
			frameDepth: e.frames.Depth(),
			stackDepth: e.stack.Depth(),
			handlerPC:  int(instr.B),
			frame:      frame,
		})

	case OpEndTry:
		if len(e.tryStack) > 0 {
			e.tryStack = e.tryStack[:len(e.tryStack)-1]
		}

	case OpThrow:
		if e.exception == nil {
			return nil, false, fmt.Errorf("engine: OpThrow with no in-flight exception (engine bug)")
		}
		return nil, false, e.exception

	case OpCastStatic, OpCastDynamic:
		return nil, false, e.cast(instr)

	default:
		return nil, false, fmt.Errorf("engine: unknown opcode %d", instr.Op)
	}
	return nil, false, nil
}

// dispatchCall resolves the callee per instr's dispatch kind (direct,
// polymorphic, or required) and runs it.
func (e *Engine) dispatchCall(frame *Frame, instr Instruction) (*classmeta.ValueObject, bool, error) {
	targetClass := ids.ClassID(instr.ClassID)
	methodID := ids.MethodID(instr.B)

	var receiver *classmeta.ValueObject
	if instr.Op != OpCallDirect || targetClass == frame.ReceiverClass {
		receiver = frame.Receiver
	}

	resolvedClass := targetClass
	if (instr.Op == OpCallPolymorphic || instr.Op == OpCallRequired) && receiver != nil {
		resolvedClass = receiver.ClassID
	}

	desc, ok := e.registry.FindClassByID(resolvedClass)
	if !ok {
		return nil, false, fmt.Errorf("engine: call to unresolved class id %d", resolvedClass)
	}
	method := desc.MethodByID(methodID)
	if method == nil {
		return nil, false, fmt.Errorf("engine: class %s has no method id %d", desc.Path, methodID)
	}
	if instr.Op == OpCallRequired && method.Required {
		return nil, false, fmt.Errorf("engine: OpCallRequired target %s.%s was never overridden (engine bug)", desc.Path, method.Name)
	}

	argCount := len(method.Params)
	items, perr := e.stack.MultiPop(argCount)
	if perr != nil {
		return nil, false, perr
	}
	args := make([]*classmeta.ValueObject, len(items))
	for i, it := range items {
		args[i] = it.Value
	}

	v, err := e.call(resolvedClass, method, receiver, args)
	if err != nil {
		return nil, false, err
	}
	if v != nil {
		e.stack.Push(KindReturn, v)
	}
	return nil, false, nil
}

// compare pops two operands and pushes a bool-payload result tagged with
// the left operand's class id. Equality holds when both operands are the
// same value or their payloads compare equal with ==. Ordering widens
// float64/int64/uint64 payloads to float64 via numericOperand and returns
// an error for any other payload.
func (e *Engine) compare(op OpCode) error {
	rhs, err := e.stack.PopValue()
	if err != nil {
		return err
	}
	lhs, err := e.stack.PopValue()
	if err != nil {
		return err
	}

	var result bool
	switch op {
	case OpCompareEQ:
		result = lhs == rhs || lhs.Payload == rhs.Payload
	case OpCompareNE:
		result = !(lhs == rhs || lhs.Payload == rhs.Payload)
	default:
		l, lok := numericOperand(lhs)
		r, rok := numericOperand(rhs)
		if !lok || !rok {
			return fmt.Errorf("engine: ordering comparison on non-numeric class id %d (engine bug: should have been rejected at compile time)", lhs.ClassID)
		}
		switch op {
		case OpCompareLT:
			result = l < r
		case OpCompareLE:
			result = l <= r
		case OpCompareGT:
			result = l > r
		case OpCompareGE:
			result = l >= r
		default:
			return fmt.Errorf("engine: unknown compare opcode %d", op)
		}
	}
	e.stack.Push(KindTemp, classmeta.NewValueObject(lhs.ClassID, result))
	return nil
}

// numericOperand reads a numeric class's payload as a float64 for ordering
// comparisons, the same widening the method-form comparisons in
// corelib's numericClass use.
func numericOperand(v *classmeta.ValueObject) (float64, bool) {
	switch p := v.Payload.(type) {
	case float64:
		return p, true
	case int64:
		return float64(p), true
	case uint64:
		return float64(p), true
	}
	return 0, false
}

// cast implements OpCastStatic/OpCastDynamic. An ancestry-compatible cast
// (per IsAssignableTo) pushes v back unchanged; with validation on, only an
// exact class-id match does. Otherwise, if target's runtime
// class advertises a CastFrom method (the numeric family does, for
// coercions like Int4 to Card1 or Float8 to Int2), that method performs
// the coercion and its result replaces v. Only OpCastDynamic is allowed to
// fail at run time with BadCast once both of those are exhausted — a
// static cast's compatibility was already proven by the external compiler,
// so a mismatch here is an engine bug.
func (e *Engine) cast(instr Instruction) error {
	v, err := e.stack.PopValue()
	if err != nil {
		return err
	}
	target := ids.ClassID(instr.ClassID)

	if e.registry.IsAssignableTo(v.ClassID, target) && (!e.validating || v.ClassID == target) {
		e.stack.Push(KindTemp, v)
		return nil
	}

	if coerced, ok, cerr := e.coerce(target, v); ok {
		if cerr != nil {
			return cerr
		}
		e.stack.Push(KindTemp, coerced)
		return nil
	}

	if instr.Op == OpCastStatic {
		return fmt.Errorf("engine: static cast to incompatible class (engine bug, should have been rejected at compile time)")
	}
	return &BadCastError{From: v.ClassID, To: target}
}

// coerce looks up target's CastFrom method and, if target's runtime class
// declares one, invokes it with src as the sole argument against a fresh
// zero-valued receiver of the target class. ok is false when target has no
// CastFrom (e.g. a program-defined class), letting cast fall through to
// the ancestry-only BadCast/engine-bug path.
func (e *Engine) coerce(target ids.ClassID, src *classmeta.ValueObject) (result *classmeta.ValueObject, ok bool, err error) {
	desc, found := e.registry.FindClassByID(target)
	if !found {
		return nil, false, nil
	}
	method := desc.MethodByName("CastFrom")
	if method == nil {
		return nil, false, nil
	}
	rc := e.classFor(target)
	if rc == nil {
		return nil, false, nil
	}
	receiver := classmeta.NewValueObject(target, rc.MakeStorage(false))
	result, handled, err := rc.InvokeMethod(e, method.ID, receiver, []*classmeta.ValueObject{src})
	if !handled {
		return nil, false, nil
	}
	return result, true, err
}

// BadCastError reports a failed OpCastDynamic, surfaced to the language as
// the BadCast runtime error.
type BadCastError struct {
	From, To ids.ClassID
}

func (e *BadCastError) Error() string {
	return fmt.Sprintf("engine: cannot cast value of class id %d to class id %d", e.From, e.To)
}

// unwindToHandler pops frames and stack items back to the nearest Try
// whose frameDepth is still within tryBase (i.e. was entered by the
// current activation, not an outer one), resuming at its handler pc.
// Returns caught=false if no such Try exists, leaving the exception to
// propagate to the caller's own unwind (or, at the outermost frame, to
// Invoke's unhandled-exception delivery).
func (e *Engine) unwindToHandler(tryBase int) (caught bool, handlerPC int) {
	for len(e.tryStack) > tryBase {
		t := e.tryStack[len(e.tryStack)-1]
		e.tryStack = e.tryStack[:len(e.tryStack)-1]

		e.frames.TruncateTo(t.frameDepth)
		e.stack.TruncateTo(t.stackDepth)
		e.exception = nil // the handler has it; the slot is free for the next Raise
		return true, t.handlerPC
	}
	return false, 0
}
