package hierarchy

import "iter"

// Recipe is a recorded traversal of a hierarchy from one node: the sequence of Push/Pop
// operations plus the maximum nesting depth reached. It is computed once, after the
// hierarchy structure is final, and then replayed as often as needed without touching
// the tree. The depth sizes any per-level scratch buffer a replay needs.
type Recipe struct {
	ops      []NodeEnumOp
	maxDepth int
	depth    int
}

// NewRecipe creates an empty recipe.
func NewRecipe() *Recipe {
	return &Recipe{}
}

// AddOp appends an operation, tracking the running depth and its high-water mark.
// A Pop without a matching Push panics.
//
// Parameters:
//   - op: the operation to record
func (r *Recipe) AddOp(op NodeEnumOp) {
	if op.IsPop() {
		if r.depth == 0 {
			panic("hierarchy: recipe pop without matching push")
		}
		r.depth--
	} else {
		r.depth++
		if r.depth > r.maxDepth {
			r.maxDepth = r.depth
		}
	}
	r.ops = append(r.ops, op)
}

// OfOps records every operation of a traversal into a new recipe.
//
// Parameters:
//   - ops: the traversal, typically NodeEnum.All()
//
// Returns:
//   - *Recipe: the recorded recipe
func OfOps(ops iter.Seq[NodeEnumOp]) *Recipe {
	r := NewRecipe()
	for op := range ops {
		r.AddOp(op)
	}
	return r
}

// RecipeFrom records the traversal of h starting at root.
func RecipeFrom[T any](h *Hierarchy[T], root int) *Recipe {
	return OfOps(h.EnumFrom(root).All())
}

// Ops returns the recorded operations. The slice must not be modified.
func (r *Recipe) Ops() []NodeEnumOp {
	return r.ops
}

// Depth returns the maximum nesting depth of the recipe, the length of its longest
// root-to-leaf chain.
func (r *Recipe) Depth() int {
	return r.maxDepth
}

// Take deconstructs the recipe into its maximum depth and operations.
func (r *Recipe) Take() (int, []NodeEnumOp) {
	return r.maxDepth, r.ops
}
