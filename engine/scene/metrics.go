package scene

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// instanceUpdates counts instance updates by whether their pose sets were recomputed
	instanceUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oxy_skin_instance_updates_total",
		Help: "Total instance updates by result",
	}, []string{"result"}) // "recomputed" or "skipped"

	// frameDuration tracks the time spent in Scene.Update
	frameDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "oxy_skin_scene_update_duration_seconds",
		Help:    "Scene update duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12), // 50us to ~100ms
	})

	// stagedBytes counts the bytes staged for upload
	stagedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oxy_skin_staged_bytes_total",
		Help: "Total bytes staged for GPU upload",
	})
)

const (
	resultRecomputed = "recomputed"
	resultSkipped    = "skipped"
)
