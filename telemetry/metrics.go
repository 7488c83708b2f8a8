// Package telemetry provides Prometheus metrics for presence tracking.
package telemetry

import (
	"context"
	"errors"
	"expvar"
	"log/slog"
	"net/http"
	"time"

	"github.com/encodeous/nbrd/perf"
	"github.com/encodeous/nbrd/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	NeighboursTracked = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "nbrd",
		Name:      "neighbours_tracked",
		Help:      "Occupied neighbour table records at the last cycle boundary.",
	}, []string{"node"})
	NeighboursConfirmed = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "nbrd",
		Name:      "neighbours_confirmed",
		Help:      "Neighbours currently confirmed present.",
	}, []string{"node"})
	PresenceEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nbrd",
		Name:      "presence_events_total",
		Help:      "Presence events emitted.",
	}, []string{"node", "kind"}) // "DETECT" or "ABSENT"
	Cycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nbrd",
		Name:      "cycles_total",
		Help:      "Discovery cycles completed.",
	}, []string{"node"})
)

func init() {
	prometheus.MustRegister(
		NeighboursTracked,
		NeighboursConfirmed,
		PresenceEvents,
		Cycles,
	)
}

type presenceSink string

func (p presenceSink) Emit(e state.Event) {
	PresenceEvents.WithLabelValues(string(p), e.Kind.String()).Inc()
}

// Presence returns an EventSink counting events for node.
func Presence(node string) state.EventSink {
	return presenceSink(node)
}

// ObserveTable records the table occupancy of node at a cycle boundary.
func ObserveTable(node string, tracked, confirmed int) {
	Cycles.WithLabelValues(node).Inc()
	SetTable(node, tracked, confirmed)
}

// SetTable updates the occupancy gauges of node without counting a cycle.
func SetTable(node string, tracked, confirmed int) {
	NeighboursTracked.WithLabelValues(node).Set(float64(tracked))
	NeighboursConfirmed.WithLabelValues(node).Set(float64(confirmed))
}

// Handler serves prometheus on /metrics and the runtime perf counters on
// /debug/metrics and /debug/vars.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/metrics", perf.Handler())
	mux.Handle("/debug/vars", expvar.Handler())
	return mux
}

// Serve exposes Handler on addr until ctx is done.
func Serve(ctx context.Context, addr string, log *slog.Logger) {
	srv := &http.Server{Addr: addr, Handler: Handler()}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()
	log.Info("starting metrics server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server failed", "err", err)
	}
}
