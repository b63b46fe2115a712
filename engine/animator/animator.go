package animator

import (
	"fmt"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// noClip marks an animator that has not been told to play anything.
const noClip = -1

// clipEntry is a validated clip with its channels indexed by bone.
type clipEntry struct {
	clip *model.AnimationClip
	// channel is the channel index for each bone of the pose set, or -1 if the clip does
	// not animate the bone.
	channel []int
}

// blendState tracks a transition from the playing clip to another.
type blendState struct {
	to                int
	toTime            float32
	duration, elapsed float32
	weight            float32
	tween             *gween.Tween
}

// animator is the implementation of the Animator interface.
type animator struct {
	mu *sync.Mutex

	poses *skeleton.BonePoseSet
	clips []clipEntry

	clip        int
	time, speed float32
	loop        bool

	blending      bool
	blend         blendState
	defaultEasing ease.TweenFunc
}

// Animator plays keyframed clips on a BonePoseSet. Each Advance moves playback forward and
// writes the sampled transformations into the poses of the animated bones; the pose set's
// skinning matrices then follow on its next Update.
//
// While blending, the playing clip and the blend target are sampled together and mixed by
// an eased weight that runs from 0 to 1 over the blend duration.
type Animator interface {
	// PoseSet retrieves the animated pose set.
	//
	// Returns:
	//   - *skeleton.BonePoseSet: the pose set
	PoseSet() *skeleton.BonePoseSet

	// AddClip validates a clip against the pose set and registers it.
	//
	// Parameters:
	//   - clip: the animation clip
	//
	// Returns:
	//   - int: the clip index
	//   - error: an error if the clip does not fit the skeleton
	AddClip(clip *model.AnimationClip) (int, error)

	// ClipCount returns the number of registered clips.
	//
	// Returns:
	//   - int: the clip count
	ClipCount() int

	// Play starts a clip from time zero at normal speed, cancelling any blend.
	//
	// Parameters:
	//   - clip: the clip index
	//   - loop: whether the clip wraps around at its end
	//
	// Returns:
	//   - error: an error if the clip index is unknown
	Play(clip int, loop bool) error

	// BlendTo transitions from the playing clip to another, starting the target at time zero.
	// Without a playing clip, or with a non-positive duration, the target simply starts playing.
	//
	// Parameters:
	//   - clip: the target clip index
	//   - duration: the blend duration in seconds
	//   - easing: the easing of the blend weight, or nil for the animator's default
	//
	// Returns:
	//   - error: an error if the clip index is unknown
	BlendTo(clip int, duration float32, easing ease.TweenFunc) error

	// Clip returns the playing clip index, or -1 if nothing has been played.
	//
	// Returns:
	//   - int: the clip index
	Clip() int

	// Time returns the playback position of the playing clip in seconds.
	//
	// Returns:
	//   - float32: the playback time
	Time() float32

	// SetTime sets the playback position of the playing clip.
	//
	// Parameters:
	//   - time: the playback time in seconds
	SetTime(time float32)

	// SetSpeed sets the playback speed multiplier.
	//
	// Parameters:
	//   - speed: the speed multiplier (1.0 = normal, 0.5 = half speed)
	SetSpeed(speed float32)

	// Speed returns the playback speed multiplier.
	//
	// Returns:
	//   - float32: the speed multiplier
	Speed() float32

	// IsBlending reports whether a blend is in progress.
	//
	// Returns:
	//   - bool: true if blending
	IsBlending() bool

	// BlendProgress returns how far the blend has run in time.
	//
	// Returns:
	//   - float32: progress from 0.0 (start) to 1.0 (complete), or 0.0 if not blending
	BlendProgress() float32

	// BlendWeight returns the eased weight of the blend target.
	//
	// Returns:
	//   - float32: the weight, or 0.0 if not blending
	BlendWeight() float32

	// CancelBlend stops an in-progress blend and keeps the playing clip.
	CancelBlend()

	// Advance moves playback forward by dt seconds and poses the animated bones.
	//
	// Parameters:
	//   - dt: the elapsed time in seconds
	Advance(dt float32)
}

var _ Animator = &animator{}

// NewAnimator creates an Animator for a pose set with the specified options applied.
//
// Parameters:
//   - poses: the pose set to animate
//   - options: a variadic list of AnimatorBuilderOption functions to configure the Animator
//
// Returns:
//   - Animator: the new animator, with nothing playing
func NewAnimator(poses *skeleton.BonePoseSet, options ...AnimatorBuilderOption) Animator {
	if poses == nil {
		panic("animator: NewAnimator requires a BonePoseSet")
	}
	a := &animator{
		mu:            &sync.Mutex{},
		poses:         poses,
		clip:          noClip,
		speed:         1,
		defaultEasing: ease.Linear,
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

func (a *animator) PoseSet() *skeleton.BonePoseSet {
	return a.poses
}

func (a *animator) AddClip(clip *model.AnimationClip) (int, error) {
	if clip == nil {
		return 0, fmt.Errorf("animator: nil clip")
	}
	n := a.poses.Len()
	if err := clip.Validate(n); err != nil {
		return 0, fmt.Errorf("animator: %w", err)
	}

	entry := clipEntry{clip: clip, channel: make([]int, n)}
	for i := range entry.channel {
		entry.channel[i] = -1
	}
	for i, ch := range clip.Channels {
		entry.channel[ch.BoneIndex] = i
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.clips = append(a.clips, entry)
	return len(a.clips) - 1, nil
}

func (a *animator) ClipCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.clips)
}

func (a *animator) Play(clip int, loop bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkClip(clip); err != nil {
		return err
	}
	a.clip = clip
	a.time = 0
	a.speed = 1
	a.loop = loop
	a.blending = false
	return nil
}

func (a *animator) BlendTo(clip int, duration float32, easing ease.TweenFunc) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkClip(clip); err != nil {
		return err
	}
	if a.clip == noClip || duration <= 0 {
		a.clip = clip
		a.time = 0
		a.blending = false
		return nil
	}
	if easing == nil {
		easing = a.defaultEasing
	}
	a.blending = true
	a.blend = blendState{
		to:       clip,
		duration: duration,
		tween:    gween.New(0, 1, duration, easing),
	}
	return nil
}

func (a *animator) Clip() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.clip
}

func (a *animator) Time() float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.time
}

func (a *animator) SetTime(time float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.time = time
}

func (a *animator) SetSpeed(speed float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.speed = speed
}

func (a *animator) Speed() float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.speed
}

func (a *animator) IsBlending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.blending
}

func (a *animator) BlendProgress() float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.blending {
		return 0
	}
	return min(a.blend.elapsed/a.blend.duration, 1)
}

func (a *animator) BlendWeight() float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.blending {
		return 0
	}
	return a.blend.weight
}

func (a *animator) CancelBlend() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blending = false
	a.blend = blendState{}
}

func (a *animator) Advance(dt float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.clip == noClip {
		return
	}

	a.time = a.wrap(a.clip, a.time+dt*a.speed)
	if a.blending {
		a.blend.elapsed += dt
		a.blend.toTime = a.wrap(a.blend.to, a.blend.toTime+dt*a.speed)
		weight, finished := a.blend.tween.Update(dt)
		a.blend.weight = weight
		if finished {
			a.clip = a.blend.to
			a.time = a.blend.toTime
			a.blending = false
			a.blend = blendState{}
		}
	}
	a.apply()
}

// wrap maps a playback time into the clip: modulo its duration when looping, clamped to
// [0, duration] otherwise.
func (a *animator) wrap(clip int, t float32) float32 {
	duration := a.clips[clip].clip.Duration
	if duration <= 0 {
		return 0
	}
	if !a.loop {
		return max(0, min(t, duration))
	}
	t = float32(math.Mod(float64(t), float64(duration)))
	if t < 0 {
		t += duration
	}
	return t
}

// apply samples the playing clip, and the blend target if any, into the poses of every
// bone either clip animates. Other bones keep whatever pose they have.
func (a *animator) apply() {
	from := &a.clips[a.clip]
	var to *clipEntry
	if a.blending {
		to = &a.clips[a.blend.to]
	}

	for bone := 0; bone < a.poses.Len(); bone++ {
		fromCh := from.channel[bone]
		toCh := -1
		if to != nil {
			toCh = to.channel[bone]
		}
		if fromCh < 0 && toCh < 0 {
			continue
		}

		pose := a.poses.Pose(bone)
		rest := pose.Bone().Transformation
		sampled := rest
		if fromCh >= 0 {
			sampled = sampleChannel(&from.clip.Channels[fromCh], a.time, rest)
		}
		if to != nil {
			target := rest
			if toCh >= 0 {
				target = sampleChannel(&to.clip.Channels[toCh], a.blend.toTime, rest)
			}
			var mixed common.Transformation
			mixed.Interpolate(a.blend.weight, sampled, target)
			sampled = mixed
		}
		pose.SetTransformation(sampled)
	}
}

func (a *animator) checkClip(clip int) error {
	if clip < 0 || clip >= len(a.clips) {
		return fmt.Errorf("animator: clip index %d out of range [0, %d)", clip, len(a.clips))
	}
	return nil
}
