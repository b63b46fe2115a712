package profiler

import (
	"fmt"
	"log"
	"runtime"
	"time"
)

// Report is one interval's worth of frame, pose and memory statistics.
type Report struct {
	FPS         float64
	HeapMB      float64
	AllocRateMB float64 // MB/s allocated over the interval
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64

	Recomputed int // instance updates that recomputed their skinning matrices
	Skipped    int // instance updates that were already current
}

func (r Report) String() string {
	return fmt.Sprintf("FPS: %.2f | Poses: %d recomputed, %d skipped | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		r.FPS, r.Recomputed, r.Skipped, r.HeapMB, r.AllocRateMB, r.GCCount, r.LastPauseUs, r.MaxPauseUs, r.SysMB)
}

// Profiler tracks frame rate, pose recomputation and memory statistics.
// Outputs a Report to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	recomputed     int
	skipped        int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	now   func() time.Time
	quiet bool
}

// NewProfiler creates a new Profiler reporting every interval, or every second if
// interval is not positive.
//
// Parameters:
//   - interval: the reporting interval
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(interval time.Duration) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: interval,
		now:            time.Now,
	}
}

// Tick should be called once per frame with the frame's instance update counts.
// When the interval has elapsed a Report is built and logged.
//
// Parameters:
//   - recomputed: instances whose matrices were recomputed this frame
//   - skipped: instances that were already current
//
// Returns:
//   - Report: the report, zero unless one was produced
//   - bool: true if a report was produced this tick
func (p *Profiler) Tick(recomputed, skipped int) (Report, bool) {
	p.frameCount++
	p.recomputed += recomputed
	p.skipped += skipped

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return Report{}, false
	}

	r := Report{
		FPS:        float64(p.frameCount) / elapsed.Seconds(),
		Recomputed: p.recomputed,
		Skipped:    p.skipped,
	}
	p.readMemory(&r, elapsed)
	if !p.quiet {
		log.Printf("[Profiler] %s", r)
	}

	p.frameCount = 0
	p.recomputed = 0
	p.skipped = 0
	p.lastTime = currentTime
	return r, true
}

func (p *Profiler) readMemory(r *Report, elapsed time.Duration) {
	runtime.ReadMemStats(&p.memStats)
	r.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	r.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	r.AllocRateMB = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	r.GCCount = gcCount
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses
		r.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			r.MaxPauseUs = max(r.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
}
