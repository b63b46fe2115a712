package skeleton

// IndexPolicy selects how RewriteIndices assigns output matrix slots.
type IndexPolicy uint8

const (
	// IndexPolicyAuto rewrites indices only when the authored ones cannot cover every bone,
	// i.e. when one past the highest authored index is less than the number of bones.
	IndexPolicyAuto IndexPolicy = iota
	// IndexPolicyAuthored keeps the authored matrix indices unchanged.
	IndexPolicyAuthored
	// IndexPolicyDense always assigns indices 0, 1, 2, ... in traversal order.
	IndexPolicyDense
)

func (p IndexPolicy) String() string {
	switch p {
	case IndexPolicyAuto:
		return "auto"
	case IndexPolicyAuthored:
		return "authored"
	case IndexPolicyDense:
		return "dense"
	default:
		return "unknown"
	}
}

// BoneSetBuilderOption is a functional option for configuring a BoneSet via NewBoneSet.
type BoneSetBuilderOption func(*BoneSet)

// WithName is an option builder that sets the name of the BoneSet.
//
// Parameters:
//   - name: the skeleton identifier
//
// Returns:
//   - BoneSetBuilderOption: a function that applies the name option to a BoneSet
func WithName(name string) BoneSetBuilderOption {
	return func(bs *BoneSet) {
		bs.name = name
	}
}

// WithIndexPolicy is an option builder that sets how RewriteIndices assigns matrix slots.
//
// Parameters:
//   - policy: the index policy, IndexPolicyAuto by default
//
// Returns:
//   - BoneSetBuilderOption: a function that applies the policy option to a BoneSet
func WithIndexPolicy(policy IndexPolicy) BoneSetBuilderOption {
	return func(bs *BoneSet) {
		bs.policy = policy
	}
}

// WithDenseIndicesOnResolve is an option builder that makes Resolve apply the index
// policy itself, so callers never need a separate RewriteIndices call.
//
// Parameters:
//   - enabled: true to rewrite indices during Resolve
//
// Returns:
//   - BoneSetBuilderOption: a function that applies the option to a BoneSet
func WithDenseIndicesOnResolve(enabled bool) BoneSetBuilderOption {
	return func(bs *BoneSet) {
		bs.rewriteOnResolve = enabled
	}
}
