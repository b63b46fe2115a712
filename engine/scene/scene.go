package scene

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-skin/engine/game_object"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/bind_group_provider"
)

// FrameStats summarizes one Scene.Update.
type FrameStats struct {
	Tick       uint64
	Objects    int // enabled objects updated
	Recomputed int // objects whose pose sets were recomputed
	Skipped    int // objects already up to date for the tick
	Writes     int // buffer writes staged
	Duration   time.Duration
}

// Scene manages a registry of GameObjects and a Renderer their bone matrices are uploaded
// through. Each Update advances every object's animators, recomputes the instances in
// parallel and stages one write per changed buffer; the staged writes are uploaded by
// Flush or handed out by StagedWriteData.
// Scenes can be hot-swapped via the Active flag to switch between different levels.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the name of the scene.
	//
	// Returns:
	//   - string: the scene name
	Name() string

	// SetName sets the name of the scene.
	//
	// Parameters:
	//   - name: the new name
	SetName(name string)

	// Active returns whether the scene is updated by the Engine.
	//
	// Returns:
	//   - bool: true if active
	Active() bool

	// SetActive sets whether the scene is updated by the Engine.
	//
	// Parameters:
	//   - active: true to activate the scene
	SetActive(active bool)

	// Renderer returns the renderer the scene uploads through.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// Add registers a GameObject, assigning it an ID if it has none. If the object has a
	// BindGroupProvider, its bone and instance buffers are created on the renderer.
	//
	// Parameters:
	//   - obj: the object to add
	//
	// Returns:
	//   - uint64: the object's ID
	//   - error: an error if the object's GPU buffers could not be created
	Add(obj game_object.GameObject) (uint64, error)

	// Get retrieves a registered object by ID.
	//
	// Parameters:
	//   - id: the object ID
	//
	// Returns:
	//   - game_object.GameObject: the object, or nil if not registered
	Get(id uint64) game_object.GameObject

	// Remove unregisters an object. Its provider is not released.
	//
	// Parameters:
	//   - id: the object ID
	Remove(id uint64)

	// Clear unregisters every object and drops the staged writes.
	Clear()

	// Count returns the number of registered objects.
	//
	// Returns:
	//   - int: the object count
	Count() int

	// Update advances the animators of every enabled object by deltaTime, updates the
	// instances for tick on the worker pool and stages their buffer writes.
	//
	// Parameters:
	//   - tick: the frame counter, which must increase for matrices to be recomputed
	//   - deltaTime: the elapsed time in seconds since the previous Update
	//
	// Returns:
	//   - FrameStats: a summary of the update
	Update(tick uint64, deltaTime float32) FrameStats

	// LastStats returns the summary of the most recent Update.
	//
	// Returns:
	//   - FrameStats: the summary
	LastStats() FrameStats

	// StagedWriteData drains the writes staged since the last drain.
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: the staged writes in registration order
	StagedWriteData() []bind_group_provider.BufferWrite

	// Flush drains the staged writes and uploads them through the renderer.
	//
	// Returns:
	//   - int: the number of writes the renderer submitted
	Flush() int
}

type scene struct {
	mu *sync.RWMutex

	name   string
	active bool

	r renderer.Renderer

	registry map[uint64]game_object.GameObject
	order    []uint64 // registration order of the registry keys
	nextID   uint64
	pending  []game_object.GameObject // added by WithObjects once the scene is built

	boneBinding     int
	instanceBinding int

	lastTick  uint64
	lastStats FrameStats

	// Pre-allocated slices reused each frame to avoid per-frame allocations.
	frameObjects []game_object.GameObject
	frameUpdated []bool
	staged       []bind_group_provider.BufferWrite

	// updatePool manages a bounded set of reusable goroutines for the parallel
	// instance updates. Workers persist across frames.
	updatePool    worker.DynamicWorkerPool
	updateWorkers int
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates a new, inactive Scene uploading through r, which must not be nil.
//
// Parameters:
//   - name: the name of the scene
//   - r: the renderer to attach
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, r renderer.Renderer, options ...SceneBuilderOption) Scene {
	if r == nil {
		panic("scene: NewScene requires a non-nil Renderer")
	}

	s := &scene{
		mu:              &sync.RWMutex{},
		name:            name,
		r:               r,
		registry:        make(map[uint64]game_object.GameObject),
		nextID:          1,
		boneBinding:     0,
		instanceBinding: 1,
		updateWorkers:   max(runtime.NumCPU()-1, 1),
	}

	for _, option := range options {
		option(s)
	}

	// Initialize the pool after options so WithUpdateWorkers can override the default.
	s.updatePool = worker.NewDynamicWorkerPool(s.updateWorkers, 256, 1*time.Second)

	for _, obj := range s.pending {
		if _, err := s.Add(obj); err != nil {
			log.Printf("[Scene] %s: skipping object: %v", name, err)
		}
	}
	s.pending = nil
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Renderer() renderer.Renderer {
	return s.r
}

func (s *scene) Add(obj game_object.GameObject) (uint64, error) {
	if obj == nil {
		return 0, fmt.Errorf("scene: cannot Add a nil GameObject")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if p := obj.BindGroupProvider(); p != nil {
		n := obj.Instance().Instantiable().NumBoneMatrices()
		if n > 0 {
			if err := s.r.InitBoneBuffer(p, s.boneBinding, n); err != nil {
				return 0, fmt.Errorf("scene: bone buffer for %q: %w", p.Label(), err)
			}
		}
		if err := s.r.InitInstanceBuffer(p, s.instanceBinding); err != nil {
			return 0, fmt.Errorf("scene: instance buffer for %q: %w", p.Label(), err)
		}
	}

	if obj.ID() == 0 {
		obj.SetID(atomic.AddUint64(&s.nextID, 1) - 1)
	}
	if _, exists := s.registry[obj.ID()]; !exists {
		s.order = append(s.order, obj.ID())
	}
	s.registry[obj.ID()] = obj
	return obj.ID(), nil
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.registry[id]; !exists {
		return
	}
	delete(s.registry, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry = make(map[uint64]game_object.GameObject)
	s.order = s.order[:0]
	s.staged = s.staged[:0]
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) Update(tick uint64, deltaTime float32) FrameStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	newTick := tick != s.lastTick

	objs := s.frameObjects[:0]
	for _, id := range s.order {
		if obj := s.registry[id]; obj.Enabled() {
			objs = append(objs, obj)
		}
	}
	s.frameObjects = objs
	if cap(s.frameUpdated) < len(objs) {
		s.frameUpdated = make([]bool, len(objs))
	}
	updated := s.frameUpdated[:len(objs)]

	// Parallel phase: each task touches only its own object's animators and instance.
	// A WaitGroup provides the per-frame barrier.
	var wg sync.WaitGroup
	for i, obj := range objs {
		wg.Add(1)
		s.updatePool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				obj.Advance(deltaTime)
				updated[i] = obj.Instance().Update(tick)
				return nil, nil
			},
		})
	}
	wg.Wait()

	// Serial phase: stage writes in registration order.
	stats := FrameStats{Tick: tick, Objects: len(objs)}
	for i, obj := range objs {
		if updated[i] {
			stats.Recomputed++
			instanceUpdates.WithLabelValues(resultRecomputed).Inc()
		} else {
			stats.Skipped++
			instanceUpdates.WithLabelValues(resultSkipped).Inc()
		}

		p := obj.BindGroupProvider()
		if p == nil {
			continue
		}
		inst := obj.Instance()
		if updated[i] {
			// copied because the instance rewrites its matrices on the next Update
			data := append([]byte(nil), inst.BoneMatrixBytes()...)
			s.stage(bind_group_provider.BufferWrite{Provider: p, Binding: s.boneBinding, Data: data})
			stats.Writes++
		}
		if updated[i] || newTick {
			data := inst.InstanceData()
			s.stage(bind_group_provider.BufferWrite{Provider: p, Binding: s.instanceBinding, Data: data.Marshal()})
			stats.Writes++
		}
	}

	s.lastTick = tick
	stats.Duration = time.Since(start)
	frameDuration.Observe(stats.Duration.Seconds())
	s.lastStats = stats
	return stats
}

func (s *scene) stage(w bind_group_provider.BufferWrite) {
	s.staged = append(s.staged, w)
	stagedBytes.Add(float64(len(w.Data)))
}

func (s *scene) LastStats() FrameStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastStats
}

func (s *scene) StagedWriteData() []bind_group_provider.BufferWrite {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.staged) == 0 {
		return nil
	}
	writes := make([]bind_group_provider.BufferWrite, len(s.staged))
	copy(writes, s.staged)
	s.staged = s.staged[:0]
	return writes
}

func (s *scene) Flush() int {
	writes := s.StagedWriteData()
	if len(writes) == 0 {
		return 0
	}
	return s.r.WriteBuffers(writes)
}
