// Package services implements the host-service runtime classes that sit
// on top of internal/sandbox: file system, sockets, HTTP (an
// Idle/Waiting/Complete/Error async state machine), an XML document
// tree, crypto digests, and wall-clock time.
//
// Each class routes any host path through the EngineContext's
// sandbox.PathResolver (via the shared resolvePath helper, the same one
// internal/runtimeclass/streams uses) and translates host-side errors
// into the domain-specific error ordinals CIDMacroEng_FileSysClass.cpp
// and its siblings define (OpenFailed, PathNotFQ, CopyFailed, DelFailed,
// and so on), rather than letting a raw *os.PathError or *net.OpError
// escape to macro code.
package services
