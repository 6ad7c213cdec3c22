package axon

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tensorlink/go-tensorlink/pkg/types"
)

// metrics Axon 请求指标
type metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// newMetrics 创建并注册指标
//
// reg 为 nil 时注册到私有注册器，避免测试中多个 Axon 实例
// 在全局注册器上冲突。
func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tensorlink",
			Subsystem: "axon",
			Name:      "requests_total",
			Help:      "Total number of axon requests by method and return code.",
		}, []string{"method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tensorlink",
			Subsystem: "axon",
			Name:      "request_duration_seconds",
			Help:      "Axon request processing duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(m.requests, m.latency)
	return m
}

// observe 记录一次请求
func (m *metrics) observe(method string, code types.ReturnCode, seconds float64) {
	m.requests.WithLabelValues(method, code.String()).Inc()
	m.latency.WithLabelValues(method).Observe(seconds)
}
