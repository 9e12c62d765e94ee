package streams

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// TextOutStreamPath is MEng.System.Runtime.TextOutStream's class path.
// The original CIDMacroEng source for this side of the hierarchy did not
// survive in the retrieval pack; this package builds it by symmetry with
// TextInStream and with the references CIDMacroEng_InputStreamClasses.cpp
// itself makes to TTextOutStream/TMEngStringOutStreamVal.
const TextOutStreamPath = "MEng.System.Runtime.TextOutStream"

// TextOutStream is the abstract base every concrete out-stream derives
// from, mirroring TextInStream's role on the read side.
type TextOutStream struct{}

func (t *TextOutStream) Path() string { return TextOutStreamPath }

func (t *TextOutStream) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(t.Path(), ids.InvalidClassID, classmeta.Abstract, true)
	if err != nil {
		return nil, err
	}
	if _, err := addBaseOutStreamMethods(reg, desc); err != nil {
		return nil, err
	}
	return desc, nil
}

func (t *TextOutStream) MakeStorage(bool) classmeta.Payload { return nil }

func (t *TextOutStream) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	return nil, false, nil
}

// consoleOutStreamStorage wraps the buffered stdout writer alongside the
// error-action state every out-stream carries.
type consoleOutStreamStorage struct {
	w     *bufio.Writer
	state baseOutStreamState
}

// ConsoleOutStream is MEng.System.Runtime.ConsoleOutStream: a TextOutStream
// writing line-at-a-time to the host process's standard output.
type ConsoleOutStream struct {
	base baseOutStreamMethodIDs
}

func NewConsoleOutStream() *ConsoleOutStream { return &ConsoleOutStream{} }

func (c *ConsoleOutStream) Path() string { return TextOutStreamPath + ".ConsoleOutStream" }

func (c *ConsoleOutStream) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	parent, err := reg.FindClassByPath(TextOutStreamPath)
	if err != nil {
		return nil, err
	}
	desc, err := reg.RegisterClass(c.Path(), parent.ID, classmeta.Final, true)
	if err != nil {
		return nil, err
	}
	base, err := addBaseOutStreamMethods(reg, desc)
	if err != nil {
		return nil, err
	}
	c.base = base
	return desc, nil
}

func (c *ConsoleOutStream) MakeStorage(bool) classmeta.Payload {
	return &consoleOutStreamStorage{w: bufio.NewWriter(os.Stdout), state: newBaseOutStreamState()}
}

func (c *ConsoleOutStream) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	store, _ := receiver.Payload.(*consoleOutStreamStorage)
	if store == nil {
		store = &consoleOutStreamStorage{w: bufio.NewWriter(os.Stdout), state: newBaseOutStreamState()}
		receiver.Payload = store
	}
	return dispatchBaseOutStream(ctx, receiver, &store.state, c.base, methodID, args, outStreamOps{
		writeLine: func(s string) error {
			_, err := fmt.Fprintln(store.w, s)
			return err
		},
		flush: store.w.Flush,
		reset: func() error { return resetErr("the console output stream cannot be reset") },
	})
}

// fileOutStreamStorage holds the open file and a buffered writer over it;
// f is nil until Open succeeds.
type fileOutStreamStorage struct {
	f        *os.File
	w        *bufio.Writer
	fileName string
	state    baseOutStreamState
}

// FileOutStream is MEng.System.Runtime.FileOutStream: a TextOutStream
// writing line-at-a-time to a sandboxed file path.
type FileOutStream struct {
	base                           baseOutStreamMethodIDs
	idOpen, idClose, idGetFileName ids.MethodID
}

func NewFileOutStream() *FileOutStream { return &FileOutStream{} }

func (f *FileOutStream) Path() string { return TextOutStreamPath + ".FileOutStream" }

func (f *FileOutStream) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	parent, err := reg.FindClassByPath(TextOutStreamPath)
	if err != nil {
		return nil, err
	}
	desc, err := reg.RegisterClass(f.Path(), parent.ID, classmeta.Final, true)
	if err != nil {
		return nil, err
	}
	base, err := addBaseOutStreamMethods(reg, desc)
	if err != nil {
		return nil, err
	}
	f.base = base
	for name, target := range map[string]*ids.MethodID{
		"Open": &f.idOpen, "Close": &f.idClose, "GetFileName": &f.idGetFileName,
	} {
		id, err := reg.NextMethodID(desc.ID)
		if err != nil {
			return nil, err
		}
		*target = id
		if err := desc.AddMethod(&classmeta.MethodDescriptor{ID: id, Name: name, ReturnClassID: desc.ID}); err != nil {
			return nil, err
		}
	}
	return desc, nil
}

func (f *FileOutStream) MakeStorage(bool) classmeta.Payload {
	return &fileOutStreamStorage{state: newBaseOutStreamState()}
}

func (f *FileOutStream) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	store, _ := receiver.Payload.(*fileOutStreamStorage)
	if store == nil {
		store = &fileOutStreamStorage{state: newBaseOutStreamState()}
		receiver.Payload = store
	}

	switch methodID {
	case f.idOpen:
		path, err := resolvePath(ctx, strArg(args, 0))
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdConfigure, err.Error())
		}
		file, err := os.Create(path)
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdInternalize, err.Error())
		}
		if store.f != nil {
			store.w.Flush()
			store.f.Close()
		}
		store.f = file
		store.w = bufio.NewWriter(file)
		store.fileName = strArg(args, 0)
		return receiver, true, nil

	case f.idClose:
		if store.f != nil {
			store.w.Flush()
			err := store.f.Close()
			store.f, store.w = nil, nil
			if err != nil {
				return nil, true, ctx.Raise(receiver.ClassID, errOrdInternalize, err.Error())
			}
		}
		return receiver, true, nil

	case f.idGetFileName:
		return classmeta.NewValueObject(ids.InvalidClassID, store.fileName), true, nil
	}

	return dispatchBaseOutStream(ctx, receiver, &store.state, f.base, methodID, args, outStreamOps{
		writeLine: func(s string) error {
			if store.w == nil {
				return resetErr("no file is open")
			}
			_, err := fmt.Fprintln(store.w, s)
			return err
		},
		flush: func() error {
			if store.w == nil {
				return nil
			}
			return store.w.Flush()
		},
		reset: func() error {
			if store.f == nil {
				return resetErr("no file is open")
			}
			if err := store.w.Flush(); err != nil {
				return err
			}
			if _, err := store.f.Seek(0, 0); err != nil {
				return err
			}
			return store.f.Truncate(0)
		},
	})
}

// stringOutStreamStorage accumulates written text in memory. Its buf
// field is read directly by StringInStream.SyncWith so a paired in-stream
// sees writes as they happen, without copying the buffer on every call.
type stringOutStreamStorage struct {
	buf   strings.Builder
	state baseOutStreamState
}

// StringOutStream is MEng.System.Runtime.StringOutStream: a TextOutStream
// accumulating written text in memory, readable live via a StringInStream
// synced to it or in one shot via GetText.
type StringOutStream struct {
	base      baseOutStreamMethodIDs
	idGetText ids.MethodID
}

func NewStringOutStream() *StringOutStream { return &StringOutStream{} }

func (s *StringOutStream) Path() string { return TextOutStreamPath + ".StringOutStream" }

func (s *StringOutStream) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	parent, err := reg.FindClassByPath(TextOutStreamPath)
	if err != nil {
		return nil, err
	}
	desc, err := reg.RegisterClass(s.Path(), parent.ID, classmeta.Final, true)
	if err != nil {
		return nil, err
	}
	base, err := addBaseOutStreamMethods(reg, desc)
	if err != nil {
		return nil, err
	}
	s.base = base
	id, err := reg.NextMethodID(desc.ID)
	if err != nil {
		return nil, err
	}
	s.idGetText = id
	if err := desc.AddMethod(&classmeta.MethodDescriptor{ID: id, Name: "GetText", ReturnClassID: desc.ID}); err != nil {
		return nil, err
	}
	return desc, nil
}

func (s *StringOutStream) MakeStorage(bool) classmeta.Payload {
	return &stringOutStreamStorage{state: newBaseOutStreamState()}
}

func (s *StringOutStream) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	store, _ := receiver.Payload.(*stringOutStreamStorage)
	if store == nil {
		store = &stringOutStreamStorage{state: newBaseOutStreamState()}
		receiver.Payload = store
	}

	if methodID == s.idGetText {
		return classmeta.NewValueObject(ids.InvalidClassID, store.buf.String()), true, nil
	}

	return dispatchBaseOutStream(ctx, receiver, &store.state, s.base, methodID, args, outStreamOps{
		writeLine: func(str string) error {
			store.buf.WriteString(str)
			store.buf.WriteByte('\n')
			return nil
		},
		flush: func() error { return nil },
		reset: func() error {
			store.buf.Reset()
			return nil
		},
	})
}
