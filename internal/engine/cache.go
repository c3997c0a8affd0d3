package engine

import (
	"context"
	"fmt"
	"sync"
	"text/template"

	lru "github.com/hashicorp/golang-lru"
)

// TemplateCache hides the process-global compiled-template cache behind an
// interface so tests can inject a fake, per the design notes' instruction
// never to expose global caches as public statics.
type TemplateCache interface {
	Get(ctx context.Context, url string) (*template.Template, error)
	Clear()
}

// Loader fetches a template's source text by URL, returning
// ErrTemplateNotFound when no source exists at that URL.
type Loader interface {
	Load(ctx context.Context, url string) (string, error)
}

// ErrTemplateNotFound is returned by a Loader when no template exists at
// the requested URL.
var ErrTemplateNotFound = fmt.Errorf("engine: template not found")

// lruTemplateCache compiles templates on miss and caches them by URL,
// using github.com/hashicorp/golang-lru the way the teacher's caching
// packages do, with a per-key sync.Once standing in for the per-key lock
// the design notes require (avoiding a duplicate compile under concurrent
// first access to the same URL) without pulling in a dedicated
// singleflight dependency the teacher's go.mod does not carry directly.
type lruTemplateCache struct {
	env    *Environment
	loader Loader
	cache  *lru.Cache

	oncesMu sync.Mutex
	onces   map[string]*cacheEntry
}

type cacheEntry struct {
	once sync.Once
	tmpl *template.Template
	err  error
}

// NewTemplateCache returns a TemplateCache with room for size compiled
// templates.
func NewTemplateCache(env *Environment, loader Loader, size int) (TemplateCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &lruTemplateCache{env: env, loader: loader, cache: c, onces: map[string]*cacheEntry{}}, nil
}

func (c *lruTemplateCache) Get(ctx context.Context, url string) (*template.Template, error) {
	if v, ok := c.cache.Get(url); ok {
		return v.(*template.Template), nil
	}

	c.oncesMu.Lock()
	entry, ok := c.onces[url]
	if !ok {
		entry = &cacheEntry{}
		c.onces[url] = entry
	}
	c.oncesMu.Unlock()

	entry.once.Do(func() {
		src, err := c.loader.Load(ctx, url)
		if err != nil {
			entry.err = err
			return
		}
		t, err := c.env.Compile(url, src)
		if err != nil {
			entry.err = err
			return
		}
		entry.tmpl = t
		c.cache.Add(url, t)
	})

	c.oncesMu.Lock()
	delete(c.onces, url)
	c.oncesMu.Unlock()

	if entry.err != nil {
		return nil, entry.err
	}
	return entry.tmpl, nil
}

// Clear invalidates every cached compiled template.
func (c *lruTemplateCache) Clear() {
	c.cache.Purge()
	c.oncesMu.Lock()
	c.onces = map[string]*cacheEntry{}
	c.oncesMu.Unlock()
}
