package skeleton

import (
	"github.com/Carmen-Shannon/oxy-skin/engine/hierarchy"
	"github.com/go-gl/mathgl/mgl32"
)

// deriveFunc computes the matrix of one node from its parent's matrix and returns the
// matrix its children should use as their parent.
type deriveFunc func(node int, isRoot bool, parent mgl32.Mat4) mgl32.Mat4

// replay runs recipes in order, threading matrices from parent to child through scratch,
// which is indexed by depth and must hold at least the deepest recipe's depth.
// A node pushed at depth 0 is a root; any other node reads its parent at depth-1.
func replay(recipes []*hierarchy.Recipe, scratch []mgl32.Mat4, derive deriveFunc) {
	for _, recipe := range recipes {
		depth := 0
		for _, op := range recipe.Ops() {
			if op.IsPop() {
				depth--
				continue
			}
			if depth == 0 {
				scratch[0] = derive(op.Index, true, scratch[0])
			} else {
				scratch[depth] = derive(op.Index, false, scratch[depth-1])
			}
			depth++
		}
	}
}
