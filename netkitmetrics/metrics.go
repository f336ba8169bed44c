/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package netkitmetrics registers the Prometheus collectors shared by every
// netkit component as exported collectors, plus an HTTP Handler for them.
// The channel, connection, and RMI layers update these collectors directly
// through their prometheus methods; there are no wrapper helpers.
package netkitmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "netkit",
		Name:      "connections_opened_total",
		Help:      "Connections that completed the registration handshake.",
	})

	ConnectionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netkit",
		Name:      "connections_closed_total",
		Help:      "Connections that transitioned to Closed, by reason code.",
	}, []string{"reason"})

	BytesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "netkit",
		Name:      "bytes_sent_total",
		Help:      "Bytes written to reliable channels, post-framing.",
	})

	BytesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "netkit",
		Name:      "bytes_received_total",
		Help:      "Bytes read from reliable channels.",
	})

	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netkit",
		Name:      "frames_dropped_total",
		Help:      "Frames discarded without delivery, by reason code.",
	}, []string{"reason"})

	RmiCallsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "netkit",
		Name:      "rmi_calls_issued_total",
		Help:      "InvokeMethod frames sent by proxies.",
	})

	RmiCallsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netkit",
		Name:      "rmi_calls_completed_total",
		Help:      "RMI calls that resolved, by outcome.",
	}, []string{"outcome"})

	RmiCallDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "netkit",
		Name:      "rmi_call_duration_seconds",
		Help:      "Latency of blocking RMI calls awaiting a response.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Handler exposes the registered collectors over HTTP for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
