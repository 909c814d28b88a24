package topology

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-linkdisc/pkg/types"
)

const (
	metricsNamespace = "linkdisc"
	metricsSubsystem = "discovery"
)

// 帧分类标签
const (
	frameSelf     = "self"
	frameForeign  = "foreign"
	frameIgnored  = "ignored"
	frameDropped  = "dropped"
	frameRejected = "rejected"
)

// 边类别标签
const (
	edgeActive     = "active"
	edgeProduction = "production"
)

// metrics 发现引擎指标
//
// 每个 Service 持有独立的 Registry，避免多实例（测试、多控制器）重复注册。
type metrics struct {
	ticks          prometheus.Counter
	probesSent     prometheus.Counter
	probesSkipped  *prometheus.CounterVec
	frames         *prometheus.CounterVec
	edgeUpdates    *prometheus.CounterVec
	corrections    prometheus.Counter
	retries        prometheus.Counter
	portStates     *prometheus.GaugeVec
	edges          *prometheus.GaugeVec
	probeQueueSize prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "ticks_total",
			Help:      "Number of discovery clock ticks processed.",
		}),
		probesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "probes_sent_total",
			Help:      "Number of probe frames handed to the switch transport.",
		}),
		probesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "probes_skipped_total",
			Help:      "Number of probes not sent, by reason.",
		}, []string{"reason"}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "frames_total",
			Help:      "Number of received frames, by classification.",
		}, []string{"class"}),
		edgeUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "edge_updates_total",
			Help:      "Number of edge notifications delivered to the topology sink.",
		}, []string{"kind", "type"}),
		corrections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "consistency_corrections_total",
			Help:      "Number of corrections applied by the periodic consistency check.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "probe_retries_total",
			Help:      "Number of one-shot retries granted to unanswered new ports.",
		}),
		portStates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "ports",
			Help:      "Number of tracked ports, by probe state.",
		}, []string{"state"}),
		edges: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "edges",
			Help:      "Number of known edges, by kind.",
		}, []string{"kind"}),
		probeQueueSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "probe_queue_size",
			Help:      "Number of probes waiting for the transmitter.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ticks,
			m.probesSent,
			m.probesSkipped,
			m.frames,
			m.edgeUpdates,
			m.corrections,
			m.retries,
			m.portStates,
			m.edges,
			m.probeQueueSize,
		)
	}
	return m
}

func (m *metrics) edgeUpdate(kind string, update types.UpdateType) {
	m.edgeUpdates.WithLabelValues(kind, update.String()).Inc()
}

func (m *metrics) frame(class string) {
	m.frames.WithLabelValues(class).Inc()
}

// observe 在 tick 结束时刷新状态类指标
func (m *metrics) observe(store *PortStore, rec *Reconciler) {
	for st, n := range store.counts() {
		m.portStates.WithLabelValues(st.String()).Set(float64(n))
	}
	m.edges.WithLabelValues(edgeActive).Set(float64(len(rec.active)))
	m.edges.WithLabelValues(edgeProduction).Set(float64(len(rec.prod)))
}
