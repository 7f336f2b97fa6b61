package registry

import "github.com/0xeb/fastmcpp-sub002/protocol"

type promptEntity struct {
	protocol.Prompt
}

func (p promptEntity) entityName() string { return p.Name }

// PromptManager is the name-keyed registry of prompts.
type PromptManager struct {
	s *store[promptEntity]
}

// NewPromptManager creates an empty PromptManager.
func NewPromptManager() *PromptManager {
	return &PromptManager{s: newStore[promptEntity]("prompt")}
}

// Register adds prompt under prompt.Name.
func (m *PromptManager) Register(prompt protocol.Prompt, opts RegisterOptions) error {
	return m.s.register(promptEntity{prompt}, opts)
}

// Get looks up a prompt by name, returning a NotFoundError if absent.
func (m *PromptManager) Get(name string) (protocol.Prompt, error) {
	e, err := m.s.get(name)
	return e.Prompt, err
}

// Contains reports whether name is registered.
func (m *PromptManager) Contains(name string) bool {
	return m.s.contains(name)
}

// List returns all registered prompts sorted lexicographically by name.
func (m *PromptManager) List() []protocol.Prompt {
	entries := m.s.list()
	out := make([]protocol.Prompt, len(entries))
	for i, e := range entries {
		out[i] = e.Prompt
	}
	return out
}
