package registry

import (
	"errors"
	"testing"

	"github.com/0xeb/fastmcpp-sub002/mcperrors"
	"github.com/0xeb/fastmcpp-sub002/protocol"
)

func TestToolManagerUniqueness(t *testing.T) {
	m := NewToolManager()
	first := protocol.Tool{Name: "add", Description: "v1"}
	second := protocol.Tool{Name: "add", Description: "v2"}

	if err := m.Register(first, RegisterOptions{}); err != nil {
		t.Fatalf("unexpected error registering first: %v", err)
	}

	err := m.Register(second, RegisterOptions{})
	var alreadyExists *mcperrors.AlreadyExistsError
	if !errors.As(err, &alreadyExists) {
		t.Fatalf("expected AlreadyExistsError, got %v", err)
	}

	if err := m.Register(second, RegisterOptions{Replace: true}); err != nil {
		t.Fatalf("unexpected error on replace: %v", err)
	}
	got, err := m.Get("add")
	if err != nil {
		t.Fatal(err)
	}
	if got.Description != "v2" {
		t.Fatalf("expected replaced tool, got %+v", got)
	}
}

func TestToolManagerNotFound(t *testing.T) {
	m := NewToolManager()
	_, err := m.Get("missing")
	var notFound *mcperrors.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestListIsLexicographicAndPure(t *testing.T) {
	m := NewToolManager()
	for _, name := range []string{"zebra", "alpha", "mango"} {
		if err := m.Register(protocol.Tool{Name: name}, RegisterOptions{}); err != nil {
			t.Fatal(err)
		}
	}

	list := m.List()
	if len(list) != 3 || list[0].Name != "alpha" || list[1].Name != "mango" || list[2].Name != "zebra" {
		t.Fatalf("expected lexicographic order, got %v", namesOf(list))
	}

	// calling List() again must not mutate the underlying map.
	again := m.List()
	if namesOf(list)[0] != namesOf(again)[0] {
		t.Fatal("List must be a pure function of current state")
	}
}

func namesOf(tools []protocol.Tool) []string {
	out := make([]string, len(tools))
	for i, tl := range tools {
		out[i] = tl.Name
	}
	return out
}

func TestContains(t *testing.T) {
	m := NewResourceManager()
	if m.Contains("file:///a") {
		t.Fatal("expected not contained")
	}
	if err := m.Register(protocol.Resource{URI: "file:///a"}, RegisterOptions{}); err != nil {
		t.Fatal(err)
	}
	if !m.Contains("file:///a") {
		t.Fatal("expected contained")
	}
}
