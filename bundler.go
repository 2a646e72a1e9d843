package docrest

import (
	"sync"

	"github.com/xdbsoft/docrest/api"
)

// Bundler shapes a stored document into the document returned to clients
type Bundler func(api.Document) api.Document

// Identity is the bundler of collections without a registered one
func Identity(d api.Document) api.Document {
	return d
}

// Bundlers maps collection names to their bundler. It is safe for
// concurrent use, so bundlers may be registered while serving.
type Bundlers struct {
	mu sync.RWMutex
	m  map[string]Bundler
}

func (b *Bundlers) Register(collection string, f Bundler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.m == nil {
		b.m = make(map[string]Bundler)
	}
	if f == nil {
		delete(b.m, collection)
		return
	}
	b.m[collection] = f
}

// Resolve is looked up on every call and never cached
func (b *Bundlers) Resolve(collection string) Bundler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if f, ok := b.m[collection]; ok {
		return f
	}
	return Identity
}
