package registry

import "github.com/0xeb/fastmcpp-sub002/protocol"

// toolEntity adapts protocol.Tool to the store's named constraint.
type toolEntity struct {
	protocol.Tool
}

func (t toolEntity) entityName() string { return t.Name }

// ToolManager is the name-keyed registry of tools.
type ToolManager struct {
	s *store[toolEntity]
}

// NewToolManager creates an empty ToolManager.
func NewToolManager() *ToolManager {
	return &ToolManager{s: newStore[toolEntity]("tool")}
}

// Register adds tool under tool.Name. Without opts.Replace, registering an
// already-present name returns an AlreadyExistsError.
func (m *ToolManager) Register(tool protocol.Tool, opts RegisterOptions) error {
	return m.s.register(toolEntity{tool}, opts)
}

// Get looks up a tool by name, returning a NotFoundError if absent.
func (m *ToolManager) Get(name string) (protocol.Tool, error) {
	e, err := m.s.get(name)
	return e.Tool, err
}

// Contains reports whether name is registered.
func (m *ToolManager) Contains(name string) bool {
	return m.s.contains(name)
}

// List returns all registered tools sorted lexicographically by name.
func (m *ToolManager) List() []protocol.Tool {
	entries := m.s.list()
	out := make([]protocol.Tool, len(entries))
	for i, e := range entries {
		out[i] = e.Tool
	}
	return out
}
