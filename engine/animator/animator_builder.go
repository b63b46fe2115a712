package animator

import (
	"log"

	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/tanema/gween/ease"
)

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithClips is an option builder that registers animation clips in order. Clips that do not
// fit the pose set are logged and skipped.
//
// Parameters:
//   - clips: the animation clips to register
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the clips option to an animator
func WithClips(clips ...*model.AnimationClip) AnimatorBuilderOption {
	return func(a *animator) {
		for _, clip := range clips {
			if _, err := a.AddClip(clip); err != nil {
				log.Printf("[Animator] skipping clip: %v", err)
			}
		}
	}
}

// WithDefaultEasing is an option builder that sets the blend easing used when BlendTo is
// given none. The default is ease.Linear.
//
// Parameters:
//   - easing: the easing function
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the easing option to an animator
func WithDefaultEasing(easing ease.TweenFunc) AnimatorBuilderOption {
	return func(a *animator) {
		if easing != nil {
			a.defaultEasing = easing
		}
	}
}
