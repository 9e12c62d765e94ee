package streams

import (
	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// errAction is the current-error-action triple every text stream and
// converter carries: Throw raises immediately, StopThenThrow finishes the
// current unit of work (a line, a conversion buffer) before raising, and
// Replace substitutes the configured replacement character/text instead
// of raising at all. The streams in this package only store the action and
// the replacement character (SetErrAction/SetRepChar); none of their reads
// or writes consults either one.
type errAction int64

const (
	errActThrow errAction = iota
	errActStopThenThrow
	errActReplace
)

func (a errAction) valid() bool { return a >= errActThrow && a <= errActReplace }

const (
	errOrdInternalize uint32 = iota + 1
	errOrdReset
	errOrdConfigure
)

func intArg(args []*classmeta.ValueObject, i int) int {
	if i >= len(args) || args[i] == nil {
		return 0
	}
	switch v := args[i].Payload.(type) {
	case int64:
		return int(v)
	case uint64:
		return int(v)
	}
	return 0
}

func strArg(args []*classmeta.ValueObject, i int) string {
	if i < len(args) && args[i] != nil {
		if s, ok := args[i].Payload.(string); ok {
			return s
		}
	}
	return ""
}

func runeArg(args []*classmeta.ValueObject, i int) rune {
	if i < len(args) && args[i] != nil {
		if r, ok := args[i].Payload.(rune); ok {
			return r
		}
	}
	return 0
}

// baseInStreamState is the shared mutable state every TextInStream
// derivative carries alongside its own source-specific payload (a
// bufio.Scanner, a string cursor, ...).
type baseInStreamState struct {
	action  errAction
	repChar rune
}

func newBaseInStreamState() baseInStreamState {
	return baseInStreamState{action: errActThrow, repChar: '?'}
}

// baseInStreamMethodIDs are the method ids every in-stream derivative
// registers for itself (see doc.go: no Go-level subclassing shares them).
type baseInStreamMethodIDs struct {
	endOfStream, readLine, reset, setErrAction, setRepChar ids.MethodID
}

func addBaseInStreamMethods(reg *classmeta.Registry, desc *classmeta.ClassDescriptor) (baseInStreamMethodIDs, error) {
	var m baseInStreamMethodIDs
	for name, target := range map[string]*ids.MethodID{
		"EndOfStream": &m.endOfStream, "ReadLine": &m.readLine, "Reset": &m.reset,
		"SetErrAction": &m.setErrAction, "SetRepChar": &m.setRepChar,
	} {
		id, err := reg.NextMethodID(desc.ID)
		if err != nil {
			return m, err
		}
		*target = id
		if err := desc.AddMethod(&classmeta.MethodDescriptor{ID: id, Name: name, ReturnClassID: desc.ID}); err != nil {
			return m, err
		}
	}
	return m, nil
}

// inStreamOps is the set of source-specific behaviors a concrete in-stream
// supplies; dispatchBaseInStream handles everything shared around them.
type inStreamOps struct {
	endOfStream func() bool
	readLine    func() (string, bool, error) // line, ok (false at end of stream), error
	reset       func() error
}

// dispatchBaseInStream answers methodID if it is one of the shared ids,
// reporting handled=false otherwise so the caller's own switch can try its
// own method ids next.
func dispatchBaseInStream(ctx runtimeclass.EngineContext, receiver *classmeta.ValueObject, state *baseInStreamState, m baseInStreamMethodIDs, methodID ids.MethodID, args []*classmeta.ValueObject, ops inStreamOps) (*classmeta.ValueObject, bool, error) {
	switch methodID {
	case m.endOfStream:
		return classmeta.NewValueObject(ids.InvalidClassID, ops.endOfStream()), true, nil

	case m.readLine:
		line, ok, err := ops.readLine()
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdInternalize, err.Error())
		}
		if !ok {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdInternalize, "read past end of stream")
		}
		return classmeta.NewValueObject(ids.InvalidClassID, line), true, nil

	case m.reset:
		if err := ops.reset(); err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdReset, err.Error())
		}
		return receiver, true, nil

	case m.setErrAction:
		v := errAction(intArg(args, 0))
		if !v.valid() {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdConfigure, "unknown error action ordinal")
		}
		state.action = v
		return receiver, true, nil

	case m.setRepChar:
		state.repChar = runeArg(args, 0)
		return receiver, true, nil
	}
	return nil, false, nil
}

// baseOutStreamState mirrors baseInStreamState for the write side.
type baseOutStreamState struct {
	action  errAction
	repChar rune
}

func newBaseOutStreamState() baseOutStreamState {
	return baseOutStreamState{action: errActThrow, repChar: '?'}
}

type baseOutStreamMethodIDs struct {
	writeLine, flush, reset, setErrAction, setRepChar ids.MethodID
}

func addBaseOutStreamMethods(reg *classmeta.Registry, desc *classmeta.ClassDescriptor) (baseOutStreamMethodIDs, error) {
	var m baseOutStreamMethodIDs
	for name, target := range map[string]*ids.MethodID{
		"WriteLine": &m.writeLine, "Flush": &m.flush, "Reset": &m.reset,
		"SetErrAction": &m.setErrAction, "SetRepChar": &m.setRepChar,
	} {
		id, err := reg.NextMethodID(desc.ID)
		if err != nil {
			return m, err
		}
		*target = id
		if err := desc.AddMethod(&classmeta.MethodDescriptor{ID: id, Name: name, ReturnClassID: desc.ID}); err != nil {
			return m, err
		}
	}
	return m, nil
}

type outStreamOps struct {
	writeLine func(s string) error
	flush     func() error
	reset     func() error
}

func dispatchBaseOutStream(ctx runtimeclass.EngineContext, receiver *classmeta.ValueObject, state *baseOutStreamState, m baseOutStreamMethodIDs, methodID ids.MethodID, args []*classmeta.ValueObject, ops outStreamOps) (*classmeta.ValueObject, bool, error) {
	switch methodID {
	case m.writeLine:
		if err := ops.writeLine(strArg(args, 0)); err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdInternalize, err.Error())
		}
		return receiver, true, nil

	case m.flush:
		if err := ops.flush(); err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdInternalize, err.Error())
		}
		return receiver, true, nil

	case m.reset:
		if err := ops.reset(); err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdReset, err.Error())
		}
		return receiver, true, nil

	case m.setErrAction:
		v := errAction(intArg(args, 0))
		if !v.valid() {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdConfigure, "unknown error action ordinal")
		}
		state.action = v
		return receiver, true, nil

	case m.setRepChar:
		state.repChar = runeArg(args, 0)
		return receiver, true, nil
	}
	return nil, false, nil
}
