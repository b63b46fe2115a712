package hierarchy

import (
	"math/rand"
	"slices"
	"testing"
)

// basicHierarchy builds
//
//	A -> B -> C0
//	          C1
//	     D
//	     E -> F
func basicHierarchy() *Hierarchy[string] {
	h := New[string]()
	a := h.AddNode("A")
	b := h.AddNode("B")
	c0 := h.AddNode("C0")
	c1 := h.AddNode("C1")
	d := h.AddNode("D")
	e := h.AddNode("E")
	f := h.AddNode("F")
	h.Relate(a, b)
	h.Relate(a, d)
	h.Relate(a, e)
	h.Relate(b, c0)
	h.Relate(b, c1)
	h.Relate(e, f)
	h.FindRoots()
	return h
}

func assertPanics(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

func collect[T any](h *Hierarchy[T], root int) []NodeEnumOp {
	var ops []NodeEnumOp
	for op := range h.EnumFrom(root).All() {
		ops = append(ops, op)
	}
	return ops
}

// longestChain is the number of nodes on the longest root-to-leaf path below node,
// computed recursively as an independent reference.
func longestChain[T any](h *Hierarchy[T], node int) int {
	best := 0
	for _, c := range h.Children(node) {
		best = max(best, longestChain(h, c))
	}
	return best + 1
}

func assertBalanced(t *testing.T, ops []NodeEnumOp) {
	t.Helper()
	var stack []int
	for i, op := range ops {
		if !op.IsPop() {
			stack = append(stack, op.Index)
			continue
		}
		if len(stack) == 0 {
			t.Fatalf("op %d: %v pops an empty stack", i, op)
		}
		if top := stack[len(stack)-1]; top != op.Index {
			t.Fatalf("op %d: %v does not match open push of %d", i, op, top)
		}
		stack = stack[:len(stack)-1]
	}
	if len(stack) != 0 {
		t.Fatalf("unterminated pushes: %v", stack)
	}
}

func TestAddNodeReturnsSequentialIndices(t *testing.T) {
	h := New[int]()
	for i := 0; i < 5; i++ {
		if got := h.AddNode(i * 10); got != i {
			t.Fatalf("AddNode #%d = %d", i, got)
		}
	}
	if h.Len() != 5 {
		t.Errorf("Len = %d, want 5", h.Len())
	}
	if *h.Data(3) != 30 {
		t.Errorf("Data(3) = %d, want 30", *h.Data(3))
	}
}

func TestRelateIsBidirectional(t *testing.T) {
	h := basicHierarchy()
	for i := 0; i < h.Len(); i++ {
		for _, c := range h.Children(i) {
			p, ok := h.Parent(c)
			if !ok || p != i {
				t.Errorf("child %d of %d has parent (%d, %t)", c, i, p, ok)
			}
		}
		if p, ok := h.Parent(i); ok && !slices.Contains(h.Children(p), i) {
			t.Errorf("node %d not listed among children of its parent %d", i, p)
		}
	}
}

func TestFindRoots(t *testing.T) {
	h := basicHierarchy()
	if got := h.Roots(); !slices.Equal(got, []int{0}) {
		t.Fatalf("Roots = %v, want [0]", got)
	}

	g := h.AddNode("G")
	if got := h.Roots(); !slices.Equal(got, []int{0}) {
		t.Errorf("Roots changed without FindRoots: %v", got)
	}
	h.FindRoots()
	if got := h.Roots(); !slices.Equal(got, []int{0, g}) {
		t.Errorf("Roots after FindRoots = %v, want [0 %d]", got, g)
	}
}

func TestEnumFromOrder(t *testing.T) {
	h := basicHierarchy()
	want := []NodeEnumOp{
		Push(0, true),
		Push(1, true),
		Push(2, false),
		Pop(2, false),
		Push(3, false),
		Pop(3, false),
		Pop(1, true),
		Push(4, false),
		Pop(4, false),
		Push(5, true),
		Push(6, false),
		Pop(6, false),
		Pop(5, true),
		Pop(0, true),
	}
	if got := collect(h, 0); !slices.Equal(got, want) {
		t.Errorf("EnumFrom(0) =\n%v\nwant\n%v", got, want)
	}
}

func TestEnumFromSubtree(t *testing.T) {
	h := basicHierarchy()
	want := []NodeEnumOp{Push(5, true), Push(6, false), Pop(6, false), Pop(5, true)}
	if got := collect(h, 5); !slices.Equal(got, want) {
		t.Errorf("EnumFrom(5) = %v, want %v", got, want)
	}
}

func TestEnumLeafYieldsPushAndPop(t *testing.T) {
	h := New[string]()
	h.AddNode("only")
	want := []NodeEnumOp{Push(0, false), Pop(0, false)}
	if got := collect(h, 0); !slices.Equal(got, want) {
		t.Errorf("single node = %v, want %v", got, want)
	}
}

func TestEnumNextAfterExhaustion(t *testing.T) {
	h := New[string]()
	h.AddNode("only")
	e := h.EnumFrom(0)
	for range 2 {
		if _, ok := e.Next(); !ok {
			t.Fatal("expected two ops")
		}
	}
	if _, ok := e.Next(); ok {
		t.Error("Next after exhaustion should report false")
	}
}

func TestEnumDeepChainIsIterative(t *testing.T) {
	const depth = 10000
	h := New[int]()
	prev := h.AddNode(0)
	for i := 1; i < depth; i++ {
		n := h.AddNode(i)
		h.Relate(prev, n)
		prev = n
	}
	ops := collect(h, 0)
	if len(ops) != 2*depth {
		t.Fatalf("len(ops) = %d, want %d", len(ops), 2*depth)
	}
	assertBalanced(t, ops)
}

func TestEnumBalancedOnRandomTrees(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		h := New[int]()
		n := 1 + rng.Intn(60)
		for i := 0; i < n; i++ {
			h.AddNode(i)
			if i > 0 {
				h.Relate(rng.Intn(i), i)
			}
		}
		ops := collect(h, 0)
		if len(ops) != 2*n {
			t.Fatalf("trial %d: len(ops) = %d, want %d", trial, len(ops), 2*n)
		}
		assertBalanced(t, ops)
		for _, op := range ops {
			if op.HasChildren != h.HasChildren(op.Index) {
				t.Fatalf("trial %d: %v disagrees with HasChildren", trial, op)
			}
		}
	}
}

func TestIterFromCarriesData(t *testing.T) {
	h := basicHierarchy()
	var pushed []string
	for op, data := range h.IterFrom(0) {
		if !op.IsPop() {
			pushed = append(pushed, *data)
		}
	}
	want := []string{"A", "B", "C0", "C1", "D", "E", "F"}
	if !slices.Equal(pushed, want) {
		t.Errorf("pushed = %v, want %v", pushed, want)
	}
}

func TestIterFromStopsEarly(t *testing.T) {
	h := basicHierarchy()
	count := 0
	for range h.IterFrom(0) {
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestString(t *testing.T) {
	h := basicHierarchy()
	want := " A\n  B\n   C0\n   C1\n  D\n  E\n   F\n"
	if got := h.String(); got != want {
		t.Errorf("String() =\n%q\nwant\n%q", got, want)
	}
}

func TestRelatePanics(t *testing.T) {
	h := basicHierarchy()
	assertPanics(t, "out of range", func() { h.Relate(0, 99) })
	assertPanics(t, "negative", func() { h.Relate(-1, 2) })
	assertPanics(t, "self", func() { h.Relate(3, 3) })
	assertPanics(t, "second parent", func() { h.Relate(4, 2) })
	assertPanics(t, "cycle", func() { h.Relate(6, 0) })
}

func TestDataMutationInPlace(t *testing.T) {
	h := basicHierarchy()
	*h.Data(4) = "D2"
	if h.Node(4).Data != "D2" {
		t.Errorf("Node(4).Data = %q, want D2", h.Node(4).Data)
	}
}
