// Package hierarchy provides a tree (or forest) of nodes addressed by dense integer indices,
// with an explicit-stack depth-first enumeration and a replayable traversal Recipe.
//
// Nodes never hold pointers to each other: parent and child links are indices into the
// hierarchy's single node slice. Indices are stable for the lifetime of the hierarchy.
package hierarchy

import (
	"fmt"
	"iter"
	"strings"
)

// noParent marks a node without a parent, following the -1 parent index convention.
const noParent = -1

// Node is a single element of a Hierarchy.
type Node[T any] struct {
	parent   int
	children []int

	// Data is the payload carried by the node. It may be mutated in place at any time.
	Data T
}

// HasParent reports whether the node has a parent, i.e. it is not a root.
func (n *Node[T]) HasParent() bool {
	return n.parent != noParent
}

// HasChildren reports whether the node has at least one child.
func (n *Node[T]) HasChildren() bool {
	return len(n.children) > 0
}

// Hierarchy is a collection of nodes forming one or more trees.
//
// Structure is edited with AddNode and Relate. Roots are not maintained incrementally:
// FindRoots must be run after structural edits before Roots is used.
type Hierarchy[T any] struct {
	elements []Node[T]
	roots    []int
}

// New creates an empty hierarchy.
//
// Returns:
//   - *Hierarchy[T]: the empty hierarchy
func New[T any]() *Hierarchy[T] {
	return &Hierarchy[T]{}
}

// Len returns the number of nodes in the hierarchy.
func (h *Hierarchy[T]) Len() int {
	return len(h.elements)
}

// AddNode appends a parentless node carrying data.
//
// Parameters:
//   - data: the payload for the new node
//
// Returns:
//   - int: the stable index of the new node
func (h *Hierarchy[T]) AddNode(data T) int {
	n := len(h.elements)
	h.elements = append(h.elements, Node[T]{parent: noParent, Data: data})
	return n
}

// Relate records parent as the parent of child, updating both sides of the link.
// Children are enumerated in the order they were related.
//
// Relate panics on programming errors: an index out of range, a node related to itself,
// a child that already has a parent, or a relation that would make child an ancestor
// of itself.
//
// Parameters:
//   - parent: index of the parent node
//   - child: index of the child node
func (h *Hierarchy[T]) Relate(parent, child int) {
	h.mustIndex(parent)
	h.mustIndex(child)
	if parent == child {
		panic(fmt.Sprintf("hierarchy: cannot relate node %d to itself", child))
	}
	if p := h.elements[child].parent; p != noParent {
		panic(fmt.Sprintf("hierarchy: node %d already has parent %d, cannot relate to %d", child, p, parent))
	}
	for a := h.elements[parent].parent; a != noParent; a = h.elements[a].parent {
		if a == child {
			panic(fmt.Sprintf("hierarchy: relating %d -> %d would create a cycle", parent, child))
		}
	}
	h.elements[parent].children = append(h.elements[parent].children, child)
	h.elements[child].parent = parent
}

// FindRoots rescans the hierarchy and records every parentless node as a root, in index order.
func (h *Hierarchy[T]) FindRoots() {
	h.roots = make([]int, 0, len(h.roots))
	for i := range h.elements {
		if !h.elements[i].HasParent() {
			h.roots = append(h.roots, i)
		}
	}
}

// Roots returns the roots recorded by the last FindRoots call.
func (h *Hierarchy[T]) Roots() []int {
	return h.roots
}

// Node returns the node at index for read access to its links.
func (h *Hierarchy[T]) Node(index int) *Node[T] {
	h.mustIndex(index)
	return &h.elements[index]
}

// Data returns a pointer to the payload of the node at index, for in-place mutation.
func (h *Hierarchy[T]) Data(index int) *T {
	h.mustIndex(index)
	return &h.elements[index].Data
}

// Parent returns the parent index of a node and whether it has one.
func (h *Hierarchy[T]) Parent(index int) (int, bool) {
	h.mustIndex(index)
	p := h.elements[index].parent
	return p, p != noParent
}

// Children returns the child indices of a node in relation order. The slice must not be modified.
func (h *Hierarchy[T]) Children(index int) []int {
	h.mustIndex(index)
	return h.elements[index].children
}

// HasChildren reports whether the node at index has children.
func (h *Hierarchy[T]) HasChildren(index int) bool {
	h.mustIndex(index)
	return h.elements[index].HasChildren()
}

// EnumFrom starts a depth-first enumeration of the sub-tree rooted at node.
//
// Parameters:
//   - node: the index to start from
//
// Returns:
//   - *NodeEnum[T]: the enumerator yielding Push/Pop operations
func (h *Hierarchy[T]) EnumFrom(node int) *NodeEnum[T] {
	h.mustIndex(node)
	return newNodeEnum(h.elements, node)
}

// IterFrom walks the sub-tree rooted at node, yielding each Push/Pop operation with a
// pointer to the data of the node it refers to.
func (h *Hierarchy[T]) IterFrom(node int) iter.Seq2[NodeEnumOp, *T] {
	return func(yield func(NodeEnumOp, *T) bool) {
		e := h.EnumFrom(node)
		for {
			op, ok := e.Next()
			if !ok {
				return
			}
			if !yield(op, &h.elements[op.Index].Data) {
				return
			}
		}
	}
}

// String renders every tree in the hierarchy, one node per line, indented by one space
// per level of depth (roots have a single leading space).
func (h *Hierarchy[T]) String() string {
	var sb strings.Builder
	for i := range h.elements {
		if h.elements[i].HasParent() {
			continue
		}
		depth := 0
		for op, data := range h.IterFrom(i) {
			if op.IsPop() {
				depth--
				continue
			}
			depth++
			sb.WriteString(strings.Repeat(" ", depth))
			if s, ok := any(data).(fmt.Stringer); ok {
				sb.WriteString(s.String())
			} else {
				fmt.Fprint(&sb, *data)
			}
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func (h *Hierarchy[T]) mustIndex(index int) {
	if index < 0 || index >= len(h.elements) {
		panic(fmt.Sprintf("hierarchy: node index %d out of range [0, %d)", index, len(h.elements)))
	}
}
