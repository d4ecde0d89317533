// Package metrics exposes the session/transport core's best-effort
// observability surface via github.com/prometheus/client_golang, the way
// aistore's own stats package (stats/target_stats.go) names one counter
// per tracked quantity under a "*.n"/"*.ns"/"*.size" convention -- the
// names below follow that same dotted convention, just registered as
// real prometheus Collectors instead of aistore's StatsD-oriented Trunner.
//
// Nothing here is on the hot path's critical section: every call below is
// either a single atomic counter add (prometheus's own Counter/Gauge are
// already safe for concurrent use without any lock of ours) or, for
// QueueCredit, a plain Set overwriting the last-observed value -- fine
// for a best-effort gauge, not a substitute for per-session accounting.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Registry is this module's private collector registry; callers that
	// want to expose it over HTTP wrap it in promhttp.HandlerFor(Registry, ...)
	// rather than reaching for the global DefaultRegisterer, so that
	// embedding this core in a larger process never collides with that
	// process's own metric names.
	Registry = prometheus.NewRegistry()

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "session_active_n",
		Help: "number of currently open peer sessions",
	})

	FramesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "frame_sent_n",
		Help: "FRAME session messages written to a link",
	}, []string{"channel"}) // channel: "reliable" | "best_effort"

	FramesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "frame_recv_n",
		Help: "FRAME session messages read off a link",
	}, []string{"channel"})

	BytesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "link_sent_size",
		Help: "bytes written to links, including stream length prefixes",
	})

	BytesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "link_recv_size",
		Help: "bytes read off links",
	})

	QueueCredit = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "queue_credit",
		Help: "last-observed credit balance of a session send queue's priority bucket",
	}, []string{"priority"})
)

func init() {
	Registry.MustRegister(ActiveSessions, FramesSent, FramesReceived, BytesSent, BytesReceived, QueueCredit)
}

// ChannelLabel maps the Reliable bit on a FRAME to FramesSent/FramesReceived's
// "channel" label.
func ChannelLabel(reliable bool) string {
	if reliable {
		return "reliable"
	}
	return "best_effort"
}
