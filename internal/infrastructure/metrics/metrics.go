// Package metrics 暴露 Prometheus 指标：后端请求、读降级、查询缓存命中与页面请求
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contact_book"

// Recorder 持有独立的 Registry，便于测试时互不干扰
// nil Recorder 的所有方法都是空操作
type Recorder struct {
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	degradedReads    *prometheus.CounterVec
	cacheResults     *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New 创建 Recorder 并注册全部指标
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		upstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "requests_total",
				Help:      "Total number of requests sent to the contacts API.",
			},
			[]string{"method", "status"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "request_duration_seconds",
				Help:      "Duration of requests sent to the contacts API.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"method"},
		),
		degradedReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "degraded_reads_total",
				Help:      "Reads whose payload was malformed and replaced by an empty result.",
			},
			[]string{"op"},
		),
		cacheResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "query",
				Name:      "cache_results_total",
				Help:      "Query cache lookups by result (hit, stale, miss).",
			},
			[]string{"result"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			[]string{"method", "path"},
		),
	}
	r.registry.MustRegister(
		r.upstreamRequests,
		r.upstreamDuration,
		r.degradedReads,
		r.cacheResults,
		r.httpRequests,
		r.httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return r
}

// Registry 返回底层 Registry
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveRequest 记录一次后端请求，status 为 0 表示网络错误
func (r *Recorder) ObserveRequest(method string, status int, cost time.Duration) {
	if r == nil {
		return
	}
	r.upstreamRequests.WithLabelValues(method, statusLabel(status)).Inc()
	r.upstreamDuration.WithLabelValues(method).Observe(cost.Seconds())
}

// DegradedRead 记录一次读降级
func (r *Recorder) DegradedRead(op string) {
	if r == nil {
		return
	}
	r.degradedReads.WithLabelValues(op).Inc()
}

// CacheResult 记录一次查询缓存结果：hit、stale 或 miss
func (r *Recorder) CacheResult(result string) {
	if r == nil {
		return
	}
	r.cacheResults.WithLabelValues(result).Inc()
}

// Handler 返回 /metrics 处理器
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// GinMiddleware 记录页面请求数与耗时，path 使用路由模板避免标签膨胀
func (r *Recorder) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r == nil || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		r.httpRequests.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		r.httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

func statusLabel(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
