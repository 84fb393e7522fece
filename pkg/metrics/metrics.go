// Package metrics records dispatcher activity in a private Prometheus registry
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/poltergeist/callcenter/pkg/types"
)

const namespace = "callcenter"

// Metric names as exposed by Gather
const (
	SubmittedName  = namespace + "_calls_submitted_total"
	AssignedName   = namespace + "_calls_assigned_total"
	CompletedName  = namespace + "_calls_completed_total"
	PreemptedName  = namespace + "_calls_preempted_total"
	QueueDepthName = namespace + "_queue_depth"
	BusyAgentsName = namespace + "_busy_agents"
	WaitName       = namespace + "_call_wait_seconds"
	HandleName     = namespace + "_call_handle_seconds"
)

// Metrics holds the dispatcher's collectors. Each instance owns its registry,
// so several dispatchers in one process never collide.
type Metrics struct {
	registry *prometheus.Registry

	submitted  *prometheus.CounterVec
	assigned   *prometheus.CounterVec
	completed  *prometheus.CounterVec
	preempted  *prometheus.CounterVec
	queueDepth prometheus.Gauge
	busyAgents prometheus.Gauge
	wait       *prometheus.HistogramVec
	handle     *prometheus.HistogramVec
}

// waitBuckets spans sub-second test runs up to a long backlog
var waitBuckets = []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600}

// New creates collectors registered on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		submitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_submitted_total",
			Help:      "Calls accepted into the queue, by priority.",
		}, []string{"priority"}),
		assigned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_assigned_total",
			Help:      "Calls handed to an agent, by priority.",
		}, []string{"priority"}),
		completed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_completed_total",
			Help:      "Calls handled to the end of their duration, by priority.",
		}, []string{"priority"}),
		preempted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_preempted_total",
			Help:      "Calls abandoned by release or shutdown, by priority.",
		}, []string{"priority"}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Calls currently waiting.",
		}),
		busyAgents: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "busy_agents",
			Help:      "Agents currently handling a call.",
		}),
		wait: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_wait_seconds",
			Help:      "Time from submission to assignment.",
			Buckets:   waitBuckets,
		}, []string{"priority"}),
		handle: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_handle_seconds",
			Help:      "Wall-clock time spent on completed calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"priority"}),
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func label(p types.Priority) string {
	return p.String()
}

// CallSubmitted counts an accepted submission
func (m *Metrics) CallSubmitted(p types.Priority) {
	m.submitted.WithLabelValues(label(p)).Inc()
}

// CallAssigned counts an assignment and observes its queue wait
func (m *Metrics) CallAssigned(p types.Priority, wait time.Duration) {
	m.assigned.WithLabelValues(label(p)).Inc()
	m.wait.WithLabelValues(label(p)).Observe(wait.Seconds())
}

// CallCompleted counts a completion and observes its handle time
func (m *Metrics) CallCompleted(p types.Priority, handle time.Duration) {
	m.completed.WithLabelValues(label(p)).Inc()
	m.handle.WithLabelValues(label(p)).Observe(handle.Seconds())
}

// CallPreempted counts an abandoned call
func (m *Metrics) CallPreempted(p types.Priority) {
	m.preempted.WithLabelValues(label(p)).Inc()
}

// SetQueueDepth records the queue length
func (m *Metrics) SetQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

// SetBusyAgents records the busy agent count
func (m *Metrics) SetBusyAgents(busy int) {
	m.busyAgents.Set(float64(busy))
}

// Summary is a flattened view of the registry for display
type Summary struct {
	Submitted  float64
	Assigned   float64
	Completed  float64
	Preempted  float64
	QueueDepth float64
	BusyAgents float64
	AvgWait    time.Duration
	AvgHandle  time.Duration
	// ByPriority holds submitted counts per tier name
	ByPriority map[string]float64
}

// Summary gathers the registry and totals every series
func (m *Metrics) Summary() (Summary, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return Summary{}, fmt.Errorf("failed to gather metrics: %w", err)
	}

	s := Summary{ByPriority: make(map[string]float64)}
	for _, mf := range families {
		switch mf.GetName() {
		case SubmittedName:
			s.Submitted = sumCounters(mf)
			for _, metric := range mf.GetMetric() {
				s.ByPriority[labelValue(metric, "priority")] += metric.GetCounter().GetValue()
			}
		case AssignedName:
			s.Assigned = sumCounters(mf)
		case CompletedName:
			s.Completed = sumCounters(mf)
		case PreemptedName:
			s.Preempted = sumCounters(mf)
		case QueueDepthName:
			s.QueueDepth = gaugeValue(mf)
		case BusyAgentsName:
			s.BusyAgents = gaugeValue(mf)
		case WaitName:
			s.AvgWait = meanHistogram(mf)
		case HandleName:
			s.AvgHandle = meanHistogram(mf)
		}
	}
	return s, nil
}

func sumCounters(mf *dto.MetricFamily) float64 {
	var total float64
	for _, metric := range mf.GetMetric() {
		total += metric.GetCounter().GetValue()
	}
	return total
}

func gaugeValue(mf *dto.MetricFamily) float64 {
	for _, metric := range mf.GetMetric() {
		return metric.GetGauge().GetValue()
	}
	return 0
}

func meanHistogram(mf *dto.MetricFamily) time.Duration {
	var (
		sum   float64
		count uint64
	)
	for _, metric := range mf.GetMetric() {
		sum += metric.GetHistogram().GetSampleSum()
		count += metric.GetHistogram().GetSampleCount()
	}
	if count == 0 {
		return 0
	}
	return time.Duration(sum / float64(count) * float64(time.Second))
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
