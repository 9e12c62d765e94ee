package streams

import (
	"bufio"
	"os"
	"strings"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
	"github.com/cidlib/macroeng/internal/sandbox"
)

// TextInStreamPath is MEng.System.Runtime.TextInStream's class path,
// exported so derivatives in this package and host loaders elsewhere can
// register it as their ParentID without a string literal.
const TextInStreamPath = "MEng.System.Runtime.TextInStream"

// TextInStream is the abstract base every concrete in-stream derives
// from. It is never instantiated directly; Console/File/StringInStream
// each register their own copies of its method set (see base.go) against
// a ParentID pointing back at this class's id, so casts and
// IsAssignableTo checks see the hierarchy a program expects. The engine's
// retry of an unhandled call against ancestors reaches this class's
// InvokeMethod, which handles nothing.
type TextInStream struct{}

func (t *TextInStream) Path() string { return TextInStreamPath }

func (t *TextInStream) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(t.Path(), ids.InvalidClassID, classmeta.Abstract, true)
	if err != nil {
		return nil, err
	}
	if _, err := addBaseInStreamMethods(reg, desc); err != nil {
		return nil, err
	}
	return desc, nil
}

func (t *TextInStream) MakeStorage(bool) classmeta.Payload { return nil }

func (t *TextInStream) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	return nil, false, nil
}

// consoleInStreamStorage wraps stdin as a line scanner; eof is latched
// once a Scan() call comes back empty so repeated EndOfStream probes
// after exhaustion don't re-read.
type consoleInStreamStorage struct {
	scanner *bufio.Scanner
	eof     bool
	state   baseInStreamState
}

// ConsoleInStream is MEng.System.Runtime.ConsoleInStream: a TextInStream
// reading line-at-a-time from the host process's standard input.
type ConsoleInStream struct {
	base baseInStreamMethodIDs
}

// NewConsoleInStream returns a ConsoleInStream. Its Init resolves
// TextInStream by path (forcing the loader to register it first, if it
// hasn't already) rather than taking the parent id as a constructor
// argument.
func NewConsoleInStream() *ConsoleInStream { return &ConsoleInStream{} }

func (c *ConsoleInStream) Path() string { return TextInStreamPath + ".ConsoleInStream" }

func (c *ConsoleInStream) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	parent, err := reg.FindClassByPath(TextInStreamPath)
	if err != nil {
		return nil, err
	}
	desc, err := reg.RegisterClass(c.Path(), parent.ID, classmeta.Final, true)
	if err != nil {
		return nil, err
	}
	base, err := addBaseInStreamMethods(reg, desc)
	if err != nil {
		return nil, err
	}
	c.base = base
	return desc, nil
}

func (c *ConsoleInStream) MakeStorage(bool) classmeta.Payload {
	return &consoleInStreamStorage{scanner: bufio.NewScanner(os.Stdin), state: newBaseInStreamState()}
}

func (c *ConsoleInStream) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	store, _ := receiver.Payload.(*consoleInStreamStorage)
	if store == nil {
		store = &consoleInStreamStorage{scanner: bufio.NewScanner(os.Stdin), state: newBaseInStreamState()}
		receiver.Payload = store
	}
	return dispatchBaseInStream(ctx, receiver, &store.state, c.base, methodID, args, inStreamOps{
		endOfStream: func() bool { return store.eof },
		readLine: func() (string, bool, error) {
			if !store.scanner.Scan() {
				store.eof = true
				return "", false, store.scanner.Err()
			}
			return store.scanner.Text(), true, nil
		},
		reset: func() error {
			return errConsoleNotResettable
		},
	})
}

var errConsoleNotResettable = resetErr("the console input stream cannot be reset")

type resetErr string

func (e resetErr) Error() string { return string(e) }

// fileInStreamStorage holds the open file and its line scanner; f is nil
// until Open succeeds.
type fileInStreamStorage struct {
	f        *os.File
	scanner  *bufio.Scanner
	fileName string
	eof      bool
	state    baseInStreamState
}

// FileInStream is MEng.System.Runtime.FileInStream: a TextInStream
// reading line-at-a-time from a sandboxed file path.
type FileInStream struct {
	base            baseInStreamMethodIDs
	idOpen, idClose ids.MethodID
	idGetFileName   ids.MethodID
}

func NewFileInStream() *FileInStream { return &FileInStream{} }

func (f *FileInStream) Path() string { return TextInStreamPath + ".FileInStream" }

func (f *FileInStream) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	parent, err := reg.FindClassByPath(TextInStreamPath)
	if err != nil {
		return nil, err
	}
	desc, err := reg.RegisterClass(f.Path(), parent.ID, classmeta.Final, true)
	if err != nil {
		return nil, err
	}
	base, err := addBaseInStreamMethods(reg, desc)
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

func (f *FileInStream) MakeStorage(bool) classmeta.Payload {
	return &fileInStreamStorage{state: newBaseInStreamState()}
}

func (f *FileInStream) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	store, _ := receiver.Payload.(*fileInStreamStorage)
	if store == nil {
		store = &fileInStreamStorage{state: newBaseInStreamState()}
		receiver.Payload = store
	}

	switch methodID {
	case f.idOpen:
		path, err := resolvePath(ctx, strArg(args, 0))
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdConfigure, err.Error())
		}
		file, err := os.Open(path)
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdInternalize, err.Error())
		}
		if store.f != nil {
			store.f.Close()
		}
		store.f = file
		store.scanner = bufio.NewScanner(file)
		store.fileName = strArg(args, 0)
		store.eof = false
		return receiver, true, nil

	case f.idClose:
		if store.f != nil {
			err := store.f.Close()
			store.f = nil
			store.scanner = nil
			if err != nil {
				return nil, true, ctx.Raise(receiver.ClassID, errOrdInternalize, err.Error())
			}
		}
		return receiver, true, nil

	case f.idGetFileName:
		return classmeta.NewValueObject(ids.InvalidClassID, store.fileName), true, nil
	}

	return dispatchBaseInStream(ctx, receiver, &store.state, f.base, methodID, args, inStreamOps{
		endOfStream: func() bool { return store.eof || store.scanner == nil },
		readLine: func() (string, bool, error) {
			if store.scanner == nil {
				return "", false, nil
			}
			if !store.scanner.Scan() {
				store.eof = true
				return "", false, store.scanner.Err()
			}
			return store.scanner.Text(), true, nil
		},
		reset: func() error {
			if store.f == nil {
				return resetErr("no file is open")
			}
			if _, err := store.f.Seek(0, 0); err != nil {
				return err
			}
			store.scanner = bufio.NewScanner(store.f)
			store.eof = false
			return nil
		},
	})
}

// resolvePath expands a macro-level path through the sandbox resolver when
// one is configured, and passes it through unchanged otherwise.
func resolvePath(ctx runtimeclass.EngineContext, macroPath string) (string, error) {
	base := ctx.SandboxBase()
	if base == "" {
		return macroPath, nil
	}
	return sandbox.NewPathResolver(base).Expand(macroPath)
}

// stringInStreamStorage is an in-memory line reader over a fixed string,
// or one tied to a StringOutStream's live buffer via SyncWith — each
// ReadLine/EndOfStream call re-slices from source() so writes to the
// paired out-stream are visible immediately, per CIDMacroEng's "reading
// whatever has been written so far" contract.
type stringInStreamStorage struct {
	source func() string
	pos    int
	state  baseInStreamState
}

// StringInStream is MEng.System.Runtime.StringInStream: a TextInStream
// reading line-at-a-time from an in-memory string.
type StringInStream struct {
	base                  baseInStreamMethodIDs
	idSetText, idSyncWith ids.MethodID
}

func NewStringInStream() *StringInStream { return &StringInStream{} }

func (s *StringInStream) Path() string { return TextInStreamPath + ".StringInStream" }

func (s *StringInStream) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	parent, err := reg.FindClassByPath(TextInStreamPath)
	if err != nil {
		return nil, err
	}
	desc, err := reg.RegisterClass(s.Path(), parent.ID, classmeta.Final, true)
	if err != nil {
		return nil, err
	}
	base, err := addBaseInStreamMethods(reg, desc)
	if err != nil {
		return nil, err
	}
	s.base = base
	for name, target := range map[string]*ids.MethodID{
		"SetText": &s.idSetText, "SyncWith": &s.idSyncWith,
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

func (s *StringInStream) MakeStorage(bool) classmeta.Payload {
	text := ""
	return &stringInStreamStorage{source: func() string { return text }, state: newBaseInStreamState()}
}

func (s *StringInStream) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	store, _ := receiver.Payload.(*stringInStreamStorage)
	if store == nil {
		store = &stringInStreamStorage{source: func() string { return "" }, state: newBaseInStreamState()}
		receiver.Payload = store
	}

	switch methodID {
	case s.idSetText:
		text := strArg(args, 0)
		store.source = func() string { return text }
		store.pos = 0
		return receiver, true, nil

	case s.idSyncWith:
		if len(args) > 0 && args[0] != nil {
			if outStore, ok := args[0].Payload.(*stringOutStreamStorage); ok {
				store.source = func() string { return outStore.buf.String() }
				store.pos = 0
				return receiver, true, nil
			}
		}
		return nil, true, ctx.Raise(receiver.ClassID, errOrdConfigure, "SyncWith requires a StringOutStream instance")
	}

	return dispatchBaseInStream(ctx, receiver, &store.state, s.base, methodID, args, inStreamOps{
		endOfStream: func() bool { return store.pos >= len(store.source()) },
		readLine: func() (string, bool, error) {
			text := store.source()
			if store.pos >= len(text) {
				return "", false, nil
			}
			rest := text[store.pos:]
			if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
				line := strings.TrimSuffix(rest[:idx], "\r")
				store.pos += idx + 1
				return line, true, nil
			}
			store.pos = len(text)
			return rest, true, nil
		},
		reset: func() error {
			store.pos = 0
			return nil
		},
	})
}
