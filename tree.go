package mist

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCannotDeleteRoot is returned when deletion is attempted at the root of a tree.
var ErrCannotDeleteRoot = errors.New("cannot delete root node")

// PathNotFoundError reports a failed path navigation, identifying the missing
// segment and the prefix that was traversed successfully.
type PathNotFoundError struct {
	Segment   string
	Traversed []string
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("path not found at segment %q after traversing: %s", e.Segment, strings.Join(e.Traversed, "/"))
}

// NodeNotFoundError reports a failed search for a node by name.
type NodeNotFoundError struct {
	Name string
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("node %q not found in the tree", e.Name)
}

// RootMismatchError reports a serialized document whose top-level key does not
// match the root of the tree it is being merged into.
type RootMismatchError struct {
	Want string
	Got  string
}

func (e *RootMismatchError) Error() string {
	return fmt.Sprintf("root mismatch: expected %q but found %q", e.Want, e.Got)
}

// Node is a single labeled node of a config tree.
//
// A node is either a leaf carrying a value (a scalar or an ordered sequence)
// or a branch with ordered children. Nodes are created and linked exclusively
// through a Builder, which keeps the tree a tree: one root, one parent per
// node, no cycles.
type Node struct {
	Name     string
	Value    any
	children []*Node
	parent   *Node
}

func newNode(name string, value any) *Node {
	return &Node{
		Name:  name,
		Value: value,
	}
}

// addChild appends a child node, preserving insertion order.
func (n *Node) addChild(name string, value any) *Node {
	c := newNode(name, value)

	c.parent = n

	n.children = append(n.children, c)

	return c
}

// findChild returns the first child with the given name, or nil.
func (n *Node) findChild(name string) *Node {
	for _, c := range n.children {
		if c.Name == name {
			return c
		}
	}

	return nil
}

// removeChild detaches the given child node along with its subtree. The
// child is matched by identity, not by name, since siblings may share a
// name. It reports whether a child was removed.
func (n *Node) removeChild(child *Node) bool {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)

			c.parent = nil

			return true
		}
	}

	return false
}

// findByName searches the subtree rooted at n in pre-order: n itself first,
// then each child's subtree in insertion order.
func (n *Node) findByName(name string) *Node {
	if n.Name == name {
		return n
	}

	for _, c := range n.children {
		if found := c.findByName(name); found != nil {
			return found
		}
	}

	return nil
}

// Parent returns the parent node, or nil at the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the node's children in insertion order.
// The returned slice is shared with the node and must not be modified.
func (n *Node) Children() []*Node {
	return n.children
}
