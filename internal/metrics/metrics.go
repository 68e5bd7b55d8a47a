// Package metrics exports notification pipeline and HTTP counters to Prometheus
// and keeps an in-process snapshot for the admin stats endpoint.
package metrics

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	transferred   int64
	fannedOut     int64
	relaySent     int64
	relayFailed   int64
	forcedLogouts int64
)

var (
	promTransferred = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campus_notifications_transferred_total",
		Help: "Notifications handed to clients by the transfer endpoint",
	})
	promTransferCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_notification_transfer_calls_total",
		Help: "Transfer calls by outcome",
	}, []string{"outcome"})
	promFannedOut = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campus_notifications_created_total",
		Help: "Notifications created by fan-out",
	})
	promRelay = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_outbox_relay_total",
		Help: "Outbox rows relayed by status",
	}, []string{"status"})
	promForcedLogouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campus_forced_logouts_total",
		Help: "Sessions terminated because the account is banned",
	})
	promHTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "campus_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func init() {
	prometheus.MustRegister(
		promTransferred,
		promTransferCalls,
		promFannedOut,
		promRelay,
		promForcedLogouts,
		promHTTPDuration,
	)
}

// AddTransferred records one transfer call returning n notifications.
func AddTransferred(n int) {
	outcome := "empty"
	if n > 0 {
		outcome = "delivered"
		atomic.AddInt64(&transferred, int64(n))
		promTransferred.Add(float64(n))
	}
	promTransferCalls.WithLabelValues(outcome).Inc()
}

// IncTransferContended records a transfer skipped because another poll held the user lock.
func IncTransferContended() {
	promTransferCalls.WithLabelValues("contended").Inc()
}

func AddFannedOut(n int) {
	atomic.AddInt64(&fannedOut, int64(n))
	promFannedOut.Add(float64(n))
}

func IncRelaySent() {
	atomic.AddInt64(&relaySent, 1)
	promRelay.WithLabelValues("sent").Inc()
}

func IncRelayFailed() {
	atomic.AddInt64(&relayFailed, 1)
	promRelay.WithLabelValues("failed").Inc()
}

func IncForcedLogout() {
	atomic.AddInt64(&forcedLogouts, 1)
	promForcedLogouts.Inc()
}

// ObserveHTTP records one request in the latency histogram.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	promHTTPDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// StatsSnapshot is a JSON view of the pipeline counters.
type StatsSnapshot struct {
	Transferred   int64 `json:"transferred"`
	FannedOut     int64 `json:"fanned_out"`
	RelaySent     int64 `json:"relay_sent"`
	RelayFailed   int64 `json:"relay_failed"`
	ForcedLogouts int64 `json:"forced_logouts"`
}

func GetSnapshot() StatsSnapshot {
	return StatsSnapshot{
		Transferred:   atomic.LoadInt64(&transferred),
		FannedOut:     atomic.LoadInt64(&fannedOut),
		RelaySent:     atomic.LoadInt64(&relaySent),
		RelayFailed:   atomic.LoadInt64(&relayFailed),
		ForcedLogouts: atomic.LoadInt64(&forcedLogouts),
	}
}

// PromHandler returns an HTTP handler that exposes Prometheus metrics.
func PromHandler() http.Handler { return promhttp.Handler() }
