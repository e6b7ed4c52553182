// Package metrics exposes Prometheus instrumentation for the capture
// pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline holds the per-process capture pipeline metrics.
type Pipeline struct {
	registry *prometheus.Registry

	FramesTotal   prometheus.Counter
	ErrorsTotal   prometheus.Counter
	NotifiesTotal prometheus.Counter
}

// NewPipeline creates the pipeline metrics on a fresh registry.
func NewPipeline() *Pipeline {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Pipeline{
		registry: registry,
		FramesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "camhal_frames_completed_total",
			Help: "Capture requests completed successfully.",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "camhal_request_errors_total",
			Help: "Capture requests completed with an error result.",
		}),
		NotifiesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "camhal_error_notifies_total",
			Help: "ERROR_REQUEST notifications sent to the framework.",
		}),
	}
}

// ObserveResult counts a completed request.
func (p *Pipeline) ObserveResult(success bool) {
	if success {
		p.FramesTotal.Inc()
	} else {
		p.ErrorsTotal.Inc()
	}
}

// ObserveNotifyError counts an error notification.
func (p *Pipeline) ObserveNotifyError() {
	p.NotifiesTotal.Inc()
}

// Handler returns the HTTP handler serving this registry.
func (p *Pipeline) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
