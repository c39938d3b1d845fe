package mist

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Builder is a fluent cursor over a config tree.
//
// It is the only way config trees are constructed and mutated. Navigation
// moves the cursor; mutation happens relative to it. Methods that cannot fail
// return the builder for chaining, the rest return an error.
type Builder struct {
	root    *Node
	current *Node
}

// NewBuilder allocates a builder. If rootName is empty the tree starts out
// rootless and the first AddChild establishes the root.
func NewBuilder(rootName string) *Builder {
	b := &Builder{}

	if rootName != "" {
		b.root = newNode(rootName, nil)
		b.current = b.root
	}

	return b
}

// AddChild appends a child under the cursor and moves the cursor to it unless
// stay is true. If the tree has no root yet the new node becomes the root and
// the cursor moves there regardless of stay.
func (b *Builder) AddChild(name string, value any, stay bool) *Builder {
	if b.root == nil {
		b.root = newNode(name, value)
		b.current = b.root

		return b
	}

	c := b.current.addChild(name, value)

	if !stay {
		b.current = c
	}

	return b
}

// InsertAtCurrent adds a child under the cursor without moving the cursor.
func (b *Builder) InsertAtCurrent(name string, value any) *Builder {
	b.current.addChild(name, value)

	return b
}

// Up moves the cursor to its parent. At the root it is a no-op.
func (b *Builder) Up() *Builder {
	if b.current != nil && b.current.parent != nil {
		b.current = b.current.parent
	}

	return b
}

// NavigateTo walks from the root following each path segment by child name
// and moves the cursor to the final node. A missing segment returns a
// PathNotFoundError naming the segment and the traversed prefix; the cursor
// does not move on failure.
func (b *Builder) NavigateTo(path ...string) error {
	if b.root == nil {
		return errors.New("tree has no root")
	}

	node := b.root

	var traversed []string

	for _, key := range path {
		child := node.findChild(key)

		if child == nil {
			return &PathNotFoundError{Segment: key, Traversed: traversed}
		}

		node = child

		traversed = append(traversed, key)
	}

	b.current = node

	return nil
}

// NavigateToByName moves the cursor to the first node with the given name,
// searching pre-order from the root.
func (b *Builder) NavigateToByName(name string) error {
	if b.root == nil {
		return errors.New("tree has no root")
	}

	found := b.root.findByName(name)

	if found == nil {
		return &NodeNotFoundError{Name: name}
	}

	b.current = found

	return nil
}

// DeleteCurrent removes the cursor node and its subtree from the tree and
// moves the cursor to the former parent. Deleting the root is an error.
func (b *Builder) DeleteCurrent() error {
	if b.current == nil || b.current.parent == nil {
		return ErrCannotDeleteRoot
	}

	parent := b.current.parent

	parent.removeChild(b.current)

	b.current = parent

	return nil
}

// Root returns the root node, or nil for a rootless builder.
func (b *Builder) Root() *Node {
	return b.root
}

// Current returns the cursor node.
func (b *Builder) Current() *Node {
	return b.current
}

// Build converts the tree to its nested-map representation.
//
// A branch maps child names to converted child values; two or more children
// sharing a name merge into a list, in insertion order. A leaf contributes
// its value as-is. A branch without children becomes an empty map.
func (b *Builder) Build() map[string]any {
	if b.root == nil {
		return map[string]any{}
	}

	return map[string]any{b.root.Name: buildValue(b.root)}
}

// Entry returns the converted value of the first top-level child with the
// given name, or false if there is none.
func (b *Builder) Entry(name string) (any, bool) {
	if b.root == nil {
		return nil, false
	}

	c := b.root.findChild(name)

	if c == nil {
		return nil, false
	}

	return buildValue(c), true
}

func buildValue(n *Node) any {
	if n.Value != nil {
		return n.Value
	}

	if len(n.children) == 0 {
		return map[string]any{}
	}

	result := make(map[string]any, len(n.children))

	// Insertion order of the first occurrence decides list order on merge.
	for _, c := range n.children {
		v := buildValue(c)

		if prev, ok := result[c.Name]; ok {
			if list, ok := prev.([]any); ok {
				result[c.Name] = append(list, v)
			} else {
				result[c.Name] = []any{prev, v}
			}
		} else {
			result[c.Name] = v
		}
	}

	return result
}

// ToYAML renders the tree as YAML with deterministic two-space indentation.
// Child order is preserved, so output for the same tree is diff-stable.
func (b *Builder) ToYAML() (string, error) {
	if b.root == nil {
		return "", errors.New("tree has no root")
	}

	doc := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
	}

	vn, err := yamlValue(b.root)

	if err != nil {
		return "", err
	}

	doc.Content = append(doc.Content, scalarKey(b.root.Name), vn)

	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("encoding tree: %w", err)
	}

	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding tree: %w", err)
	}

	return buf.String(), nil
}

func scalarKey(name string) *yaml.Node {
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!str",
		Value: name,
	}
}

// yamlValue converts a node like buildValue does, but into a yaml.Node so
// that child insertion order survives encoding.
func yamlValue(n *Node) (*yaml.Node, error) {
	if n.Value != nil {
		var vn yaml.Node

		if err := vn.Encode(n.Value); err != nil {
			return nil, fmt.Errorf("encoding value of %q: %w", n.Name, err)
		}

		return &vn, nil
	}

	m := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
	}

	// Index of the value slot per key, and which keys were already promoted
	// to a merge sequence.
	slots := map[string]int{}
	merged := map[string]bool{}

	for _, c := range n.children {
		vn, err := yamlValue(c)

		if err != nil {
			return nil, err
		}

		if i, ok := slots[c.Name]; ok {
			if merged[c.Name] {
				m.Content[i].Content = append(m.Content[i].Content, vn)

				continue
			}

			m.Content[i] = &yaml.Node{
				Kind:    yaml.SequenceNode,
				Tag:     "!!seq",
				Content: []*yaml.Node{m.Content[i], vn},
			}

			merged[c.Name] = true

			continue
		}

		m.Content = append(m.Content, scalarKey(c.Name), vn)

		slots[c.Name] = len(m.Content) - 1
	}

	return m, nil
}

// LoadFromString parses a YAML document with a single top-level key and
// merges it into the tree. For a rootless builder the top-level key becomes
// the root; otherwise it must match the existing root's name or a
// RootMismatchError is returned.
func (b *Builder) LoadFromString(content string) error {
	var doc yaml.Node

	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return fmt.Errorf("parsing document: %w", err)
	}

	if len(doc.Content) == 0 {
		return errors.New("empty document")
	}

	top := doc.Content[0]

	if top.Kind != yaml.MappingNode || len(top.Content) < 2 {
		return errors.New("invalid document: expected a mapping with a root key")
	}

	rootKey := top.Content[0].Value

	if b.root == nil {
		b.AddChild(rootKey, nil, true)
	} else if b.root.Name != rootKey {
		return &RootMismatchError{Want: b.root.Name, Got: rootKey}
	}

	b.current = b.root

	return b.mergeValue(top.Content[1])
}

// mergeValue merges a parsed YAML value into the tree below the cursor,
// entering (or creating) one child per mapping key and returning the cursor
// when done. Sequences and scalars land as node values.
func (b *Builder) mergeValue(vn *yaml.Node) error {
	if vn.Kind == yaml.AliasNode {
		vn = vn.Alias
	}

	switch vn.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(vn.Content); i += 2 {
			b.AddChild(vn.Content[i].Value, nil, false)

			if err := b.mergeValue(vn.Content[i+1]); err != nil {
				return err
			}

			b.Up()
		}
	case yaml.SequenceNode:
		var list []any

		if err := vn.Decode(&list); err != nil {
			return fmt.Errorf("decoding sequence: %w", err)
		}

		b.current.Value = list
	case yaml.ScalarNode:
		var v any

		if err := vn.Decode(&v); err != nil {
			return fmt.Errorf("decoding scalar: %w", err)
		}

		b.current.Value = v
	default:
		return fmt.Errorf("unsupported node kind %d", vn.Kind)
	}

	return nil
}
