package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rl1809/inventory-ledger/internal/port"
)

// Prometheus counts applied / ignored / gap-detected events on a dedicated
// registry and serves them in pull-based exposition format.
type Prometheus struct {
	registry *prometheus.Registry
	applied  prometheus.Counter
	ignored  *prometheus.CounterVec
	gaps     prometheus.Counter
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	p := &Prometheus{
		registry: registry,
		applied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "events_applied_total",
			Help: "Total number of stock adjustment events applied",
		}),
		ignored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "events_ignored_total",
			Help: "Total number of stock adjustment events ignored",
		}, []string{"reason"}),
		gaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gap_detected_total",
			Help: "Total number of version gaps detected",
		}),
	}

	registry.MustRegister(p.applied, p.ignored, p.gaps)
	return p
}

func (p *Prometheus) EventApplied() {
	p.applied.Inc()
}

func (p *Prometheus) EventIgnored(reason port.IgnoreReason) {
	p.ignored.WithLabelValues(string(reason)).Inc()
}

func (p *Prometheus) GapDetected() {
	p.gaps.Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
