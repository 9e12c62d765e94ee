// Package macro is the host-embedding surface for the macro-language
// execution engine: construct an Engine, register class loaders (the
// built-in corelib, text streams, text converters, and host-service
// classes, plus whatever a host adds of its own), optionally sandbox
// file access to a fixed base path, and Invoke an entry method.
//
// Grounded on the interpreter's top-level public API shape (interp.New
// returning a ready-to-use interpreter configured via functional
// options), generalized from "parse then eval a script" to "resolve
// classes lazily from installed loaders, then invoke one by path".
package macro

import (
	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/diag"
	"github.com/cidlib/macroeng/internal/engine"
	"github.com/cidlib/macroeng/internal/runtimeclass"
	"github.com/cidlib/macroeng/internal/runtimeclass/corelib"
	"github.com/cidlib/macroeng/internal/runtimeclass/services"
	"github.com/cidlib/macroeng/internal/runtimeclass/streams"
	"github.com/cidlib/macroeng/internal/runtimeclass/textconv"
	"github.com/cidlib/macroeng/internal/sandbox"
)

// Engine wraps internal/engine.Engine with the host-facing setup steps:
// corelib is always installed first, host loaders and the sandbox are
// layered on after.
type Engine struct {
	core *engine.Engine
}

// Option configures an Engine at construction time.
type Option func(*config)

type config struct {
	validate       bool
	sandboxBase    string
	unhandledFunc  engine.UnhandledExceptionFunc
	extraLoaders   []classmeta.ClassLoader
}

// WithValidation turns on the extra assignment/cast checks the engine
// only performs when validation is requested.
func WithValidation(on bool) Option {
	return func(c *config) { c.validate = on }
}

// SetFileResolver fixes every sandboxed host-service runtime class (file
// system, and anything built on it) to base, per
// CIDMacroEng_FileResolver.cpp's TMEngFixedBaseFileResolver.
func SetFileResolver(base string) Option {
	return func(c *config) { c.sandboxBase = base }
}

// SetUnhandledExceptionHandler installs the callback invoked when an
// exception escapes every Try in the call chain. If none is set,
// NewEngine installs a default that logs a formatted backtrace via
// internal/diag at Severe level.
func SetUnhandledExceptionHandler(f func(exc ExceptionInfo)) Option {
	return func(c *config) {
		c.unhandledFunc = func(exc *engine.ExceptionValue, frames []engine.FrameSnapshot) {
			f(toExceptionInfo(exc, frames))
		}
	}
}

// RegisterLoader appends a host-specific classmeta.ClassLoader after the
// built-in corelib loader, for classes the embedding host provides itself.
func RegisterLoader(l classmeta.ClassLoader) Option {
	return func(c *config) { c.extraLoaders = append(c.extraLoaders, l) }
}

// ExceptionInfo is the flattened view of an unhandled exception and its
// call stack handed to a host's SetUnhandledExceptionHandler callback.
type ExceptionInfo struct {
	ErrorClassPath string
	ErrorName      string
	ErrorText      string
	Line           int
	Frames         []diag.Frame
}

func toExceptionInfo(exc *engine.ExceptionValue, frames []engine.FrameSnapshot) ExceptionInfo {
	out := ExceptionInfo{
		ErrorClassPath: exc.SourceClassPath,
		ErrorName:      exc.ErrorName,
		ErrorText:      exc.ErrorText,
		Line:           exc.Line,
		Frames:         make([]diag.Frame, len(frames)),
	}
	for i, f := range frames {
		out.Frames[i] = diag.Frame{ClassPath: f.ClassPath, MethodName: f.MethodName, Line: f.Line}
	}
	return out
}

// defaultUnhandledHandler logs a formatted backtrace through internal/diag
// when the host never installed its own via SetUnhandledExceptionHandler.
func defaultUnhandledHandler(exc *engine.ExceptionValue, frames []engine.FrameSnapshot) {
	info := toExceptionInfo(exc, frames)
	text := diag.FormatBacktrace(
		diag.Exception{SourceClassPath: info.ErrorClassPath, ErrorName: info.ErrorName, ErrorText: info.ErrorText},
		info.Frames,
	)
	diag.Log(text, diag.Severe)
}

// NewEngine constructs an Engine with corelib installed as the first
// class loader, followed by the streams, textconv and services loaders
// and then any loaders passed through RegisterLoader options.
func NewEngine(opts ...Option) *Engine {
	cfg := &config{unhandledFunc: defaultUnhandledHandler}
	for _, opt := range opts {
		opt(cfg)
	}

	core := engine.New(
		engine.WithValidation(cfg.validate),
		engine.WithSandboxBase(cfg.sandboxBase),
		engine.WithUnhandledExceptionHandler(cfg.unhandledFunc),
	)
	core.InstallLoader(corelib.NewDefaultLoader(core))
	core.InstallLoader(runtimeclass.NewLoader(core, streams.DefaultClasses()...))
	core.InstallLoader(runtimeclass.NewLoader(core, textconv.DefaultClasses()...))
	core.InstallLoader(runtimeclass.NewLoader(core, services.DefaultClasses()...))
	for _, l := range cfg.extraLoaders {
		core.InstallLoader(l)
	}

	return &Engine{core: core}
}

// Registry exposes the underlying class registry for hosts that need to
// resolve classes directly (e.g. to build argument ValueObjects).
func (e *Engine) Registry() *classmeta.Registry { return e.core.Registry() }

// NewPathResolver returns a sandbox.PathResolver fixed to this Engine's
// configured base path, or nil if none was set via SetFileResolver.
func (e *Engine) NewPathResolver() *sandbox.PathResolver {
	if e.core.SandboxBase() == "" {
		return nil
	}
	return sandbox.NewPathResolver(e.core.SandboxBase())
}

// InstallRuntimeClasses appends classes directly to a fresh
// runtimeclass.Loader and installs it — a convenience for hosts that have
// a handful of native classes rather than a whole custom ClassLoader.
func (e *Engine) InstallRuntimeClasses(classes ...runtimeclass.RuntimeClass) {
	e.core.InstallLoader(runtimeclass.NewLoader(e.core, classes...))
}

// Invoke resolves path.methodName and calls it with args, returning the
// result or the exception that escaped it.
func (e *Engine) Invoke(path, methodName string, args []*classmeta.ValueObject) (*classmeta.ValueObject, error) {
	result, exc := e.core.Invoke(path, methodName, args)
	if exc != nil {
		return nil, exc
	}
	return result, nil
}
