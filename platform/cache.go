package platform

import (
	"sync"
	"time"

	"github.com/edgelet/hostbridge/errors"
	"github.com/edgelet/hostbridge/hostval"
)

type cacheEntry struct {
	value   any
	expires time.Time
}

// Cache is a named in-memory TTL cache. Expired entries are dropped
// lazily on lookup.
type Cache struct {
	name string
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expires: c.now().Add(c.ttl)}
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Object materializes the cache as a host object with get/put/delete
// function members, so the guest works with it like any other value.
func (c *Cache) Object() *hostval.Object {
	obj := hostval.NewObject()
	obj.Set("name", c.name)
	obj.Set("get", &hostval.Function{
		Name: "get",
		Impl: func(_ any, args []any) (any, error) {
			key, err := cacheKey("get", args)
			if err != nil {
				return nil, err
			}
			v, ok := c.Get(key)
			if !ok {
				return hostval.Undefined{}, nil
			}
			return v, nil
		},
	})
	obj.Set("put", &hostval.Function{
		Name: "put",
		Impl: func(_ any, args []any) (any, error) {
			key, err := cacheKey("put", args)
			if err != nil {
				return nil, err
			}
			if len(args) < 2 {
				return nil, errors.InvalidInput(errors.PhaseCall, "cache put needs a value")
			}
			c.Put(key, args[1])
			return hostval.Undefined{}, nil
		},
	})
	obj.Set("delete", &hostval.Function{
		Name: "delete",
		Impl: func(_ any, args []any) (any, error) {
			key, err := cacheKey("delete", args)
			if err != nil {
				return nil, err
			}
			c.Delete(key)
			return hostval.Undefined{}, nil
		},
	})
	return obj
}

func cacheKey(op string, args []any) (string, error) {
	if len(args) == 0 {
		return "", errors.InvalidInput(errors.PhaseCall, "cache "+op+" needs a key")
	}
	key, ok := args[0].(string)
	if !ok {
		return "", errors.TypeMismatch(errors.PhaseCall, hostval.TypeName(args[0]), "cache key string")
	}
	return key, nil
}

// CacheSet hands out named caches, one per namespace, created on first
// use.
type CacheSet struct {
	ttl time.Duration

	mu     sync.Mutex
	caches map[string]*Cache
}

func NewCacheSet(ttl time.Duration) *CacheSet {
	return &CacheSet{ttl: ttl, caches: make(map[string]*Cache)}
}

func (s *CacheSet) Get(name string) *Cache {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.caches[name]
	if c == nil {
		c = &Cache{
			name:    name,
			ttl:     s.ttl,
			now:     time.Now,
			entries: make(map[string]cacheEntry),
		}
		s.caches[name] = c
	}
	return c
}
