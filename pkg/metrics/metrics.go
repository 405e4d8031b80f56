package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 应用 Prometheus 指标集合
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	AttendanceMarks *prometheus.CounterVec
	OrphansSwept    prometheus.Counter
}

// New 创建独立 Registry 并注册全部指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_http_requests_total",
			Help: "HTTP 请求总数",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attendance_http_request_duration_seconds",
			Help:    "HTTP 请求耗时",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		AttendanceMarks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_marks_total",
			Help: "写入的考勤记录数",
		}, []string{"status"}),
		OrphansSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_orphans_swept_total",
			Help: "清理任务删除的孤儿考勤记录数",
		}),
	}
	reg.MustRegister(m.HTTPRequests, m.HTTPDuration, m.AttendanceMarks, m.OrphansSwept)

	return m
}

// Handler 暴露 /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回底层 Registry（测试读取指标用）
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveMarks 记录一次写入的考勤条数；m 为 nil 时忽略
func (m *Metrics) ObserveMarks(status string, n int) {
	if m == nil || n <= 0 {
		return
	}
	if status == "" {
		status = "unset"
	}
	m.AttendanceMarks.WithLabelValues(status).Add(float64(n))
}

// ObserveSwept 记录清理掉的孤儿记录数；m 为 nil 时忽略
func (m *Metrics) ObserveSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.OrphansSwept.Add(float64(n))
}
