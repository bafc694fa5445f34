// Package prometheus exports index metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	c, err := voyagerprom.NewCollector(reg, "voyager")
//	idx, err := voyager.New(voyager.Cosine, 128, voyager.WithMetricsCollector(c))
package prometheus

import (
	"errors"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Collector implements voyager.MetricsCollector with Prometheus metrics.
type Collector struct {
	opLatency  *prom.HistogramVec
	ops        *prom.CounterVec
	batchItems *prom.CounterVec
	bytes      *prom.CounterVec
}

// NewCollector creates the metrics under namespace and registers them with
// reg. A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(reg prom.Registerer, namespace string) (*Collector, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	c := &Collector{
		opLatency: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of index operations",
			Buckets:   prom.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"op", "status"}),
		ops: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total index operations",
		}, []string{"op", "status"}),
		batchItems: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "batch_insert_items_total",
			Help:      "Items submitted through batch inserts",
		}, []string{"result"}),
		bytes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "serialized_bytes_total",
			Help:      "Bytes written by saves and read by loads",
		}, []string{"op"}),
	}
	for _, col := range []prom.Collector{c.opLatency, c.ops, c.batchItems, c.bytes} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

var errBatchFailed = errors.New("batch insert failed")

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	s := status(err)
	c.opLatency.WithLabelValues(op, s).Observe(d.Seconds())
	c.ops.WithLabelValues(op, s).Inc()
}

// RecordInsert implements voyager.MetricsCollector.
func (c *Collector) RecordInsert(d time.Duration, err error) {
	c.observe("insert", d, err)
}

// RecordBatchInsert implements voyager.MetricsCollector.
func (c *Collector) RecordBatchInsert(count, failed int, d time.Duration) {
	var err error
	if failed > 0 {
		err = errBatchFailed
	}
	c.observe("batch_insert", d, err)
	c.batchItems.WithLabelValues("applied").Add(float64(count - failed))
	c.batchItems.WithLabelValues("failed").Add(float64(failed))
}

// RecordSearch implements voyager.MetricsCollector.
func (c *Collector) RecordSearch(_ int, d time.Duration, err error) {
	c.observe("search", d, err)
}

// RecordDelete implements voyager.MetricsCollector.
func (c *Collector) RecordDelete(d time.Duration, err error) {
	c.observe("delete", d, err)
}

// RecordSave implements voyager.MetricsCollector.
func (c *Collector) RecordSave(bytes int64, d time.Duration, err error) {
	c.observe("save", d, err)
	if err == nil {
		c.bytes.WithLabelValues("save").Add(float64(bytes))
	}
}

// RecordLoad implements voyager.MetricsCollector.
func (c *Collector) RecordLoad(bytes int64, d time.Duration, err error) {
	c.observe("load", d, err)
	if err == nil {
		c.bytes.WithLabelValues("load").Add(float64(bytes))
	}
}
