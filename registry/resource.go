package registry

import "github.com/0xeb/fastmcpp-sub002/protocol"

type resourceEntity struct {
	protocol.Resource
}

func (r resourceEntity) entityName() string { return r.URI }

// ResourceManager is the name-keyed (by URI) registry of resources.
type ResourceManager struct {
	s *store[resourceEntity]
}

// NewResourceManager creates an empty ResourceManager.
func NewResourceManager() *ResourceManager {
	return &ResourceManager{s: newStore[resourceEntity]("resource")}
}

// Register adds resource under resource.URI.
func (m *ResourceManager) Register(resource protocol.Resource, opts RegisterOptions) error {
	return m.s.register(resourceEntity{resource}, opts)
}

// Get looks up a resource by URI, returning a NotFoundError if absent.
func (m *ResourceManager) Get(uri string) (protocol.Resource, error) {
	e, err := m.s.get(uri)
	return e.Resource, err
}

// Contains reports whether uri is registered.
func (m *ResourceManager) Contains(uri string) bool {
	return m.s.contains(uri)
}

// List returns all registered resources sorted lexicographically by URI.
func (m *ResourceManager) List() []protocol.Resource {
	entries := m.s.list()
	out := make([]protocol.Resource, len(entries))
	for i, e := range entries {
		out[i] = e.Resource
	}
	return out
}
