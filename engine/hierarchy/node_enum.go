package hierarchy

import (
	"fmt"
	"iter"
)

// OpKind distinguishes the two operations of a traversal.
type OpKind uint8

const (
	// OpPush enters a node; its children follow before the matching OpPop.
	OpPush OpKind = iota
	// OpPop leaves a node after all of its children.
	OpPop
)

// NodeEnumOp is one step of a depth-first traversal. Every Push of an index is matched by
// exactly one later Pop of the same index, properly nested.
type NodeEnumOp struct {
	Kind OpKind
	// Index is the node the operation refers to.
	Index int
	// HasChildren is true if the node has at least one child.
	HasChildren bool
}

// Push creates a push operation.
func Push(index int, hasChildren bool) NodeEnumOp {
	return NodeEnumOp{Kind: OpPush, Index: index, HasChildren: hasChildren}
}

// Pop creates a pop operation.
func Pop(index int, hasChildren bool) NodeEnumOp {
	return NodeEnumOp{Kind: OpPop, Index: index, HasChildren: hasChildren}
}

// IsPop reports whether the operation is a Pop.
func (op NodeEnumOp) IsPop() bool {
	return op.Kind == OpPop
}

func (op NodeEnumOp) String() string {
	if op.IsPop() {
		return fmt.Sprintf("Pop(%d,%t)", op.Index, op.HasChildren)
	}
	return fmt.Sprintf("Push(%d,%t)", op.Index, op.HasChildren)
}

// enumStage is the position of the walk within one node.
type enumStage uint8

const (
	stagePreNode enumStage = iota
	stagePreChildren
	stageChild
	stagePostChildren
)

type enumState struct {
	stage enumStage
	node  int
	// child is the next child position to visit in stageChild.
	child int
}

// NodeEnum enumerates a sub-tree depth first with an explicit stack, so arbitrarily deep
// trees do not grow the goroutine stack. For a hierarchy
//
//	A -> B -> C0
//	          C1
//	     D
//	     E -> F
//
// it yields Push(A) Push(B) Push(C0) Pop(C0) Push(C1) Pop(C1) Pop(B) Push(D) Pop(D)
// Push(E) Push(F) Pop(F) Pop(E) Pop(A).
type NodeEnum[T any] struct {
	elements []Node[T]
	stack    []enumState
}

func newNodeEnum[T any](elements []Node[T], root int) *NodeEnum[T] {
	return &NodeEnum[T]{
		elements: elements,
		stack:    []enumState{{stage: stagePreNode, node: root}},
	}
}

// Next returns the next operation, or false once the walk is complete.
func (e *NodeEnum[T]) Next() (NodeEnumOp, bool) {
	for len(e.stack) > 0 {
		top := len(e.stack) - 1
		se := e.stack[top]
		e.stack = e.stack[:top]

		switch se.stage {
		case stagePreNode:
			e.stack = append(e.stack, enumState{stage: stagePreChildren, node: se.node})
			return Push(se.node, e.elements[se.node].HasChildren()), true
		case stagePreChildren:
			e.stack = append(e.stack, enumState{stage: stageChild, node: se.node})
		case stageChild:
			children := e.elements[se.node].children
			if se.child < len(children) {
				e.stack = append(e.stack,
					enumState{stage: stageChild, node: se.node, child: se.child + 1},
					enumState{stage: stagePreNode, node: children[se.child]},
				)
			} else {
				e.stack = append(e.stack, enumState{stage: stagePostChildren, node: se.node})
			}
		case stagePostChildren:
			return Pop(se.node, e.elements[se.node].HasChildren()), true
		}
	}
	return NodeEnumOp{}, false
}

// All drains the enumerator as a sequence.
func (e *NodeEnum[T]) All() iter.Seq[NodeEnumOp] {
	return func(yield func(NodeEnumOp) bool) {
		for {
			op, ok := e.Next()
			if !ok || !yield(op) {
				return
			}
		}
	}
}
