package attendance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_attendance_decisions_total",
		Help: "Attendance records written, by resulting status.",
	}, []string{"status"})

	failuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_attendance_failures_total",
		Help: "Failed attendance submissions, by error kind.",
	}, []string{"kind"})

	compareDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rollcall_face_compare_seconds",
		Help:    "Latency of face comparison calls.",
		Buckets: prometheus.DefBuckets,
	})
)
