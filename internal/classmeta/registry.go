package classmeta

import (
	"fmt"
	"sync"

	"github.com/cidlib/macroeng/internal/ids"
)

// ClassLoader produces a class descriptor for a path the Registry has not
// yet seen. Returning (nil, false) means "not found, try the next loader".
// Implemented by internal/runtimeclass.Loader and runtimeclass.Chain, and
// by internal/classio.DirLoader; kept as an interface
// here to avoid classmeta depending on runtimeclass (the descriptor/value
// pair must stay acyclic).
type ClassLoader interface {
	LoadClass(reg *Registry, path string) (*ClassDescriptor, bool, error)
}

// Registry is the combined identifier registry and class-descriptor store,
// exposing RegisterClass/FindClassById/FindClassByPath.
type Registry struct {
	ids *ids.Registry

	mu       sync.RWMutex
	byID     map[ids.ClassID]*ClassDescriptor
	loaders  []ClassLoader
	resolved map[string]bool // paths already run through the loader chain
}

// NewRegistry creates an empty registry. Loaders are appended with
// AddLoader; the first loader added is tried first (installation order).
func NewRegistry() *Registry {
	return &Registry{
		ids:      ids.NewRegistry(),
		byID:     make(map[ids.ClassID]*ClassDescriptor),
		resolved: make(map[string]bool),
	}
}

// AddLoader appends l to the end of the loader chain.
func (r *Registry) AddLoader(l ClassLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders = append(r.loaders, l)
}

// RegisterClass assigns an id to path and stores descriptor under it.
// Fails with DuplicatePath if path is already registered, UnknownParent
// if parent does not resolve to an already-registered class (unless
// parent is InvalidClassID, meaning "no parent", reserved for Object).
func (r *Registry) RegisterClass(path string, parent ids.ClassID, finality Finality, intrinsic bool) (*ClassDescriptor, error) {
	if parent != ids.InvalidClassID {
		if _, ok := r.FindClassByID(parent); !ok {
			return nil, fmt.Errorf("classmeta: unknown parent class id %d for %q", parent, path)
		}
	}

	id, err := r.ids.RegisterClass(path)
	if err != nil {
		return nil, err
	}

	name := shortName(path)
	desc := NewClassDescriptor(id, name, path, parent, finality, intrinsic)

	r.mu.Lock()
	r.byID[id] = desc
	r.mu.Unlock()

	return desc, nil
}

// FindClassByID is a constant-time lookup; never invokes the loader chain
// (an unresolved id is a bug: ids are only ever handed out by RegisterClass).
func (r *Registry) FindClassByID(id ids.ClassID) (*ClassDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	return d, ok
}

// FindClassByPath resolves path, consulting already-registered classes
// first and then the loader chain in installation order on a miss. A path
// is only ever run through the loader chain once; the result (success or
// failure) is cached.
func (r *Registry) FindClassByPath(path string) (*ClassDescriptor, error) {
	if id, ok := r.ids.ClassIDForPath(path); ok {
		d, _ := r.FindClassByID(id)
		return d, nil
	}

	r.mu.Lock()
	if r.resolved[path] {
		r.mu.Unlock()
		return nil, &ClassNotFoundError{Path: path}
	}
	loaders := append([]ClassLoader(nil), r.loaders...)
	r.mu.Unlock()

	for _, l := range loaders {
		desc, ok, err := l.LoadClass(r, path)
		if err != nil {
			return nil, err
		}
		if ok {
			r.mu.Lock()
			r.resolved[path] = true
			r.mu.Unlock()
			return desc, nil
		}
	}

	r.mu.Lock()
	r.resolved[path] = true
	r.mu.Unlock()
	return nil, &ClassNotFoundError{Path: path}
}

// NextMethodID assigns the next free method id local to owner, delegating
// to the underlying identifier registry. RuntimeClass.Init implementations
// call this once per method while building a ClassDescriptor.
func (r *Registry) NextMethodID(owner ids.ClassID) (ids.MethodID, error) {
	return r.ids.NextMethodID(owner)
}

// AncestorChain walks parent ids from id up to (and including) Object's id,
// returning ids from id to root. Used by polymorphic dispatch.
func (r *Registry) AncestorChain(id ids.ClassID) []ids.ClassID {
	var chain []ids.ClassID
	cur := id
	for {
		chain = append(chain, cur)
		d, ok := r.FindClassByID(cur)
		if !ok || d.ParentID == ids.InvalidClassID {
			break
		}
		cur = d.ParentID
	}
	return chain
}

// IsAssignableTo reports whether from is the same class as to, or a
// descendant of it — the "shares an ancestor" check the engine's cast/copy
// logic uses.
func (r *Registry) IsAssignableTo(from, to ids.ClassID) bool {
	for _, id := range r.AncestorChain(from) {
		if id == to {
			return true
		}
	}
	return false
}

// ClassNotFoundError is returned by FindClassByPath when no loader (nor
// the registry itself) recognizes path.
type ClassNotFoundError struct{ Path string }

func (e *ClassNotFoundError) Error() string {
	return "classmeta: class not found: " + e.Path
}

func shortName(path string) string {
	last := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			last = path[i+1:]
			break
		}
	}
	return last
}
