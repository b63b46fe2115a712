package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/game_object"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-skin/engine/scene"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// countingRenderer sizes buffers on the provider and counts uploads without a GPU.
type countingRenderer struct {
	mu      sync.Mutex
	uploads int
}

var _ renderer.Renderer = &countingRenderer{}

func (c *countingRenderer) InitBoneBuffer(p bind_group_provider.BindGroupProvider, binding, matrices int) error {
	p.SetBuffer(binding, nil, uint64(matrices)*common.Mat4Size)
	return nil
}

func (c *countingRenderer) InitInstanceBuffer(p bind_group_provider.BindGroupProvider, binding int) error {
	p.SetBuffer(binding, nil, 64)
	return nil
}

func (c *countingRenderer) InitVertexBuffer(p bind_group_provider.BindGroupProvider, binding int, data []byte) error {
	p.SetBuffer(binding, nil, uint64(len(data)))
	return nil
}

func (c *countingRenderer) InitIndexBuffer(p bind_group_provider.BindGroupProvider, binding int, data []byte) error {
	p.SetBuffer(binding, nil, uint64(len(data)))
	return nil
}

func (c *countingRenderer) WriteBuffers(writes []bind_group_provider.BufferWrite) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploads += len(writes)
	return len(writes)
}

func (c *countingRenderer) BackendType() renderer.RendererBackendType { return renderer.BackendTypeWGPU }
func (c *countingRenderer) Device() *wgpu.Device                      { return nil }
func (c *countingRenderer) Release()                                  {}

func newScene(t *testing.T, r renderer.Renderer, label string, active bool) scene.Scene {
	t.Helper()
	bs := skeleton.NewBoneSet()
	root := bs.AddBone(common.NewTransformation(), 0)
	tip := bs.AddBone(common.NewTransformation().WithTranslation(mgl32.Vec3{0, 1, 0}), 1)
	bs.Relate(root, tip)
	in := model.NewInstantiable(model.WithName(label))
	in.AddBoneSet(bs)

	obj := game_object.NewGameObject(in.Instantiate(),
		game_object.WithBindGroupProvider(bind_group_provider.NewBindGroupProvider(label)))
	return scene.NewScene(label, r, scene.WithActive(active), scene.WithObjects(obj))
}

func TestStepUpdatesActiveScenesInOrder(t *testing.T) {
	r := &countingRenderer{}
	var calls []string
	e := NewEngine(
		WithScene(2, newScene(t, r, "second", true)),
		WithScene(1, newScene(t, r, "first", true)),
		WithScene(0, newScene(t, r, "inactive", false)),
		WithTickCallback(func(tick uint64, dt float32) {
			calls = append(calls, "tick")
		}),
		WithUploadCallback(func(tick uint64, writes []bind_group_provider.BufferWrite) {
			if tick != 1 {
				t.Errorf("upload tick = %d, want 1", tick)
			}
			calls = append(calls, writes[0].Provider.Label())
		}),
	)

	if tick := e.Step(1.0 / 60); tick != 1 || e.Tick() != 1 {
		t.Fatalf("Step = %d, Tick = %d, want 1", tick, e.Tick())
	}
	want := []string{"tick", "first", "second"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
	if r.uploads != 0 {
		t.Errorf("renderer saw %d uploads with an upload callback set", r.uploads)
	}
}

func TestStepFlushesWithoutUploadCallback(t *testing.T) {
	r := &countingRenderer{}
	e := NewEngine(WithScene(0, newScene(t, r, "only", true)), WithProfiling(true))
	e.Step(0)
	if r.uploads != 2 {
		t.Errorf("uploads = %d, want 2", r.uploads)
	}
	e.Step(0)
	if r.uploads != 4 {
		t.Errorf("uploads after second tick = %d, want 4", r.uploads)
	}
}

func TestSceneRegistry(t *testing.T) {
	r := &countingRenderer{}
	e := NewEngine()
	s := newScene(t, r, "a", true)
	e.AddScene(3, s)
	if e.Scene(3) != s || len(e.Scenes()) != 1 {
		t.Error("scene not registered")
	}
	e.RemoveScene(3)
	if e.Scene(3) != nil || len(e.Scenes()) != 0 {
		t.Error("scene not removed")
	}
}

func TestRunStopsOnQuit(t *testing.T) {
	e := NewEngine(WithTickRate(500))
	e.SetTickCallback(func(tick uint64, dt float32) {
		if tick >= 3 {
			e.Quit()
		}
	})

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		e.Quit()
		t.Fatal("Run did not return after Quit")
	}
	if e.Tick() < 3 {
		t.Errorf("Tick = %d, want at least 3", e.Tick())
	}
	e.Quit()
}

func TestTickInterval(t *testing.T) {
	if got := tickInterval(0); got != time.Second/60 {
		t.Errorf("tickInterval(0) = %v", got)
	}
	if got := tickInterval(120); got != time.Second/120 {
		t.Errorf("tickInterval(120) = %v", got)
	}
}
