// Package registry implements the name-keyed entity stores for tools,
// resources, and prompts. Registration is exclusive, lookups are shared:
// registration happens at startup, while get/list are the hot path and must
// not contend with each other.
package registry

import (
	"sort"
	"sync"

	"github.com/0xeb/fastmcpp-sub002/mcperrors"
)

// RegisterOptions controls register's duplicate-name behavior.
type RegisterOptions struct {
	// Replace, when true, overwrites an existing entry of the same name
	// instead of returning AlreadyExists.
	Replace bool
}

// named is satisfied by any entity a Registry can store.
type named interface {
	entityName() string
}

// store is the generic map+mutex backing every typed registry. It is not
// exported: ToolManager, ResourceManager, and PromptManager each wrap one
// with entity-specific method names so callers get a registry whose API
// reads as "tool manager", not "generic container of T".
type store[T named] struct {
	mu      sync.RWMutex
	entries map[string]T
	kind    string
}

func newStore[T named](kind string) *store[T] {
	return &store[T]{entries: make(map[string]T), kind: kind}
}

func (s *store[T]) register(entity T, opts RegisterOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := entity.entityName()
	if _, exists := s.entries[name]; exists && !opts.Replace {
		return mcperrors.NewAlreadyExists(s.kind, name)
	}
	s.entries[name] = entity
	return nil
}

func (s *store[T]) get(name string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entity, ok := s.entries[name]
	if !ok {
		var zero T
		return zero, mcperrors.NewNotFound(s.kind, name)
	}
	return entity, nil
}

func (s *store[T]) contains(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[name]
	return ok
}

// list returns entities sorted lexicographically by name, so that MCP
// */list responses are stable enough for the caching middleware to key on.
func (s *store[T]) list() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]T, 0, len(names))
	for _, name := range names {
		out = append(out, s.entries[name])
	}
	return out
}
