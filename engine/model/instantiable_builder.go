package model

// InstantiableBuilderOption is a functional option for configuring an Instantiable via NewInstantiable.
type InstantiableBuilderOption func(*instantiable)

// WithName is an option builder that sets the name of the Instantiable.
//
// Parameters:
//   - name: the asset identifier
//
// Returns:
//   - InstantiableBuilderOption: a function that applies the name option to an instantiable
func WithName(name string) InstantiableBuilderOption {
	return func(in *instantiable) {
		in.name = name
	}
}

// WithAnimations is an option builder that sets the animation clips of the Instantiable.
//
// Parameters:
//   - animations: the animation clips to set
//
// Returns:
//   - InstantiableBuilderOption: a function that applies the animations option to an instantiable
func WithAnimations(animations ...*AnimationClip) InstantiableBuilderOption {
	return func(in *instantiable) {
		in.animations = animations
	}
}
