package runtimeclass

import (
	"fmt"
	"sync"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
)

// Loader adapts one RuntimeClass (or a fixed set of them) into a
// classmeta.ClassLoader. The default loader installed by NewDefaultLoader
// knows every built-in runtime class; a host appends further Loaders for
// its own bindings.
type Loader struct {
	ctx     EngineContext
	byPath  map[string]RuntimeClass
	mu      sync.Mutex
	byClass map[ids.ClassID]RuntimeClass
}

// NewLoader creates a Loader bound to ctx (used to pass the engine through
// to each RuntimeClass's Init call) and seeded with classes.
func NewLoader(ctx EngineContext, classes ...RuntimeClass) *Loader {
	l := &Loader{
		ctx:     ctx,
		byPath:  make(map[string]RuntimeClass),
		byClass: make(map[ids.ClassID]RuntimeClass),
	}
	for _, c := range classes {
		l.byPath[c.Path()] = c
	}
	return l
}

// Register adds a single RuntimeClass to this loader after construction —
// used to append host-specific bindings to a loader the host controls.
func (l *Loader) Register(c RuntimeClass) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byPath[c.Path()] = c
}

// LoadClass implements classmeta.ClassLoader.
func (l *Loader) LoadClass(reg *classmeta.Registry, path string) (*classmeta.ClassDescriptor, bool, error) {
	l.mu.Lock()
	rc, ok := l.byPath[path]
	l.mu.Unlock()
	if !ok {
		return nil, false, nil
	}

	desc, err := rc.Init(l.ctx, reg)
	if err != nil {
		return nil, false, fmt.Errorf("runtimeclass: initializing %s: %w", path, err)
	}
	desc.Seal()

	l.mu.Lock()
	l.byClass[desc.ID] = rc
	l.mu.Unlock()

	return desc, true, nil
}

// ClassFor returns the RuntimeClass backing an already-resolved class id,
// or nil if id was not produced by this loader (e.g. it is a program-
// defined class with no native implementation).
func (l *Loader) ClassFor(id ids.ClassID) RuntimeClass {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.byClass[id]
}

// Chain is an ordered sequence of classmeta.ClassLoader, queried in
// installation order until one reports a hit. The "loaders are consulted
// only once per path; results are cached" guarantee is actually enforced
// one level up, by classmeta.Registry.FindClassByPath itself.
type Chain struct {
	mu      sync.RWMutex
	loaders []classmeta.ClassLoader
}

// NewChain creates an empty loader chain.
func NewChain() *Chain { return &Chain{} }

// Append adds l to the end of the chain.
func (c *Chain) Append(l classmeta.ClassLoader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaders = append(c.loaders, l)
}

// LoadClass implements classmeta.ClassLoader by trying each installed
// loader in order.
func (c *Chain) LoadClass(reg *classmeta.Registry, path string) (*classmeta.ClassDescriptor, bool, error) {
	c.mu.RLock()
	loaders := append([]classmeta.ClassLoader(nil), c.loaders...)
	c.mu.RUnlock()

	for _, l := range loaders {
		desc, ok, err := l.LoadClass(reg, path)
		if err != nil || ok {
			return desc, ok, err
		}
	}
	return nil, false, nil
}
