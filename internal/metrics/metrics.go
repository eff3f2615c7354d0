package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesDecodedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shotscan_frames_decoded_total",
		Help: "Frames read from the decode backend and queued",
	})

	FramesYieldedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shotscan_frames_yielded_total",
		Help: "Frames handed to the consumer after skip-rate sampling",
	})

	NullFrameRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shotscan_null_frame_retries_total",
		Help: "Null frames re-read on sources flagged as GoPro",
	})

	QueueFullWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shotscan_queue_full_waits_total",
		Help: "Times the decode worker backed off on a full frame queue",
	})

	ConsumerStallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shotscan_consumer_stalls_total",
		Help: "Times the consumer waited longer than the stall threshold for a frame",
	})

	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shotscan_cache_lookups_total",
		Help: "Metadata cache lookups, by result (hit, miss, corrupt)",
	}, []string{"result"})

	ProbeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shotscan_probe_failures_total",
		Help: "Metadata probes that failed and fell back to a default, by field",
	}, []string{"field"})

	VideosTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shotscan_videos_total",
		Help: "Videos finished by the pipeline, by final status",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shotscan_stage_duration_seconds",
		Help:    "Duration of pipeline stages",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})
)
