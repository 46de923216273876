// Package metrics exposes Prometheus instruments for conversions, oracle
// reads and the HTTP API.
package metrics

import (
	"bufio"
	"context"
	"errors"
	"math/big"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyoungcy/feedconv/internal/domain"
)

const namespace = "feedconv"

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	conversions        *prometheus.CounterVec
	conversionDuration prometheus.Histogram
	conversionHops     prometheus.Histogram
	oracleReads        *prometheus.CounterVec
	oracleLatency      prometheus.Histogram
	httpRequests       *prometheus.CounterVec
}

// New creates and registers every instrument, plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Conversions segmented by final status.",
		}, []string{"status"}),
		conversionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Wall time of a conversion including feed loading and oracle reads.",
			Buckets:   prometheus.DefBuckets,
		}),
		conversionHops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_hops",
			Help:      "Number of feeds on the route of successful conversions.",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8},
		}),
		oracleReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "reads_total",
			Help:      "Oracle latestRoundData reads segmented by outcome.",
		}, []string{"outcome"}),
		oracleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "read_duration_seconds",
			Help:      "Latency of single oracle reads.",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests segmented by method and status code.",
		}, []string{"method", "code"}),
	}

	m.registry.MustRegister(
		m.conversions,
		m.conversionDuration,
		m.conversionHops,
		m.oracleReads,
		m.oracleLatency,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveConversion records one finished conversion.
func (m *Metrics) ObserveConversion(status domain.ConversionStatus, hops int, d time.Duration) {
	m.conversions.WithLabelValues(string(status)).Inc()
	m.conversionDuration.Observe(d.Seconds())
	if status == domain.ConversionOK {
		m.conversionHops.Observe(float64(hops))
	}
}

// Middleware counts every request by method and status code.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.httpRequests.WithLabelValues(r.Method, strconv.Itoa(rec.code)).Inc()
	})
}

// InstrumentOracle wraps an OracleReader so every read is counted and timed.
func (m *Metrics) InstrumentOracle(next domain.OracleReader) domain.OracleReader {
	return &instrumentedOracle{next: next, m: m}
}

type instrumentedOracle struct {
	next domain.OracleReader
	m    *Metrics
}

func (o *instrumentedOracle) LatestAnswer(ctx context.Context, address common.Address) (*big.Int, error) {
	start := time.Now()
	answer, err := o.next.LatestAnswer(ctx, address)
	o.m.oracleLatency.Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	o.m.oracleReads.WithLabelValues(outcome).Inc()
	return answer, err
}

type statusRecorder struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.code = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

// Hijack keeps WebSocket upgrades working behind the middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	r.code = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
