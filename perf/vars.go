package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency = metric.NewHistogram("1m1s")
	AdvanceLatency  = metric.NewHistogram("1m1s")
	SweepLatency    = metric.NewHistogram("1m1s")
	BeaconsSent     = metric.NewCounter("10s1s")
	RadioErrors     = metric.NewCounter("10s1s")
	RxQualified     = metric.NewCounter("10s1s")
	RxDropped       = metric.NewCounter("10s1s")
	TableFull       = metric.NewCounter("10s1s")
)

func init() {
	expvar.Publish("nbrd:DispatchLatency (µs)", DispatchLatency)
	expvar.Publish("nbrd:AdvanceLatency (µs)", AdvanceLatency)
	expvar.Publish("nbrd:SweepLatency (µs)", SweepLatency)
	expvar.Publish("nbrd:BeaconsSent/s", BeaconsSent)
	expvar.Publish("nbrd:RadioErrors/s", RadioErrors)
	expvar.Publish("nbrd:RxQualified/s", RxQualified)
	expvar.Publish("nbrd:RxDropped/s", RxDropped)
	expvar.Publish("nbrd:TableFull/s", TableFull)
}

// Handler renders every metric published through expvar.
func Handler() http.Handler {
	return metric.Handler(metric.Exposed)
}
