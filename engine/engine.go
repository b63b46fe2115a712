package engine

import (
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-skin/engine/profiler"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-skin/engine/scene"
)

// engine implements the Engine interface.
type engine struct {
	mu *sync.RWMutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	tick           atomic.Uint64
	engineTickRate time.Duration
	tickCallback   func(tick uint64, deltaTime float32)
	uploadCallback func(tick uint64, writes []bind_group_provider.BufferWrite)

	scenes map[int]scene.Scene
}

// Engine drives the skinning pipeline headlessly at a fixed tick rate.
//
// Every tick the engine increments a monotonic tick counter, calls the tick callback
// (game logic, animator control) and then updates every active scene in ascending key
// order with the new tick. The writes each scene stages are handed to the upload callback
// or, if none is set, uploaded through the scene's own renderer.
type Engine interface {
	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called at the start of each tick, before the
	// scenes are updated.
	//
	// Parameters:
	//   - callback: function receiving the new tick and the delta time in seconds
	SetTickCallback(callback func(tick uint64, deltaTime float32))

	// SetUploadCallback registers the function receiving each scene's staged writes after
	// its update. The host application uploads them, typically inside its own frame.
	//
	// Parameters:
	//   - callback: function receiving the tick and the drained writes
	SetUploadCallback(callback func(tick uint64, writes []bind_group_provider.BufferWrite))

	// AddScene registers a scene at the given key. Scenes update in ascending key order.
	//
	// Parameters:
	//   - key: the update order key
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given key.
	//
	// Parameters:
	//   - key: the key of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given key.
	//
	// Parameters:
	//   - key: the key of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes by key.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// Tick returns the number of ticks run so far.
	//
	// Returns:
	//   - uint64: the current tick, zero before the first
	Tick() uint64

	// Step runs one tick synchronously with the given delta time.
	//
	// Parameters:
	//   - deltaTime: the elapsed time in seconds
	//
	// Returns:
	//   - uint64: the tick that was run
	Step(deltaTime float32) uint64

	// Run starts the tick loop and blocks until Quit is called.
	Run()

	// Quit signals the tick loop to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:              &sync.RWMutex{},
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		profiler:        profiler.NewProfiler(time.Second),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}
	return e
}

func (e *engine) Run() {
	e.running.Store(true)
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleQuit()
	e.wg.Wait()
}

// Quit signals all engine goroutines to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

// handleEngine runs the fixed-rate tick loop in its own goroutine.
// Listens for dynamic rate changes via tickRateChannel and exits when the quit
// channel is closed. Recovers from panics and signals quit on recovery.
func (e *engine) handleEngine() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Engine] tick goroutine recovered from panic: %v", r)
			e.Quit()
		}
	}()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now
			e.Step(dt)
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

func (e *engine) Step(deltaTime float32) uint64 {
	tick := e.tick.Add(1)

	e.mu.RLock()
	tickCallback, uploadCallback := e.tickCallback, e.uploadCallback
	active := e.activeScenes()
	e.mu.RUnlock()

	if tickCallback != nil {
		tickCallback(tick, deltaTime)
	}

	recomputed, skipped := 0, 0
	for _, s := range active {
		stats := s.Update(tick, deltaTime)
		recomputed += stats.Recomputed
		skipped += stats.Skipped

		if uploadCallback != nil {
			if writes := s.StagedWriteData(); len(writes) > 0 {
				uploadCallback(tick, writes)
			}
			continue
		}
		s.Flush()
	}

	if e.profilingEnabled.Load() && e.profiler != nil {
		e.profiler.Tick(recomputed, skipped)
	}
	return tick
}

// activeScenes returns the active scenes in ascending key order. Caller must hold e.mu.
func (e *engine) activeScenes() []scene.Scene {
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	active := make([]scene.Scene, 0, len(keys))
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	return active
}

func (e *engine) Tick() uint64 {
	return e.tick.Load()
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	newRate := tickInterval(fps)

	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}
	// Non-blocking send - if channel is full, replace the pending value
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(tick uint64, deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) SetUploadCallback(callback func(tick uint64, writes []bind_group_provider.BufferWrite)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.uploadCallback = callback
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}

func tickInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}
