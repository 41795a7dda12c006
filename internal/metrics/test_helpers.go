package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// CounterValue reads the current value of a counter.
// It is shared by the tests of packages that increment these collectors.
func CounterValue(c prometheus.Counter) float64 {
	pb := &dto.Metric{}
	if err := c.Write(pb); err != nil {
		return 0
	}
	if pb.Counter == nil {
		return 0
	}
	return pb.Counter.GetValue()
}

// HistogramCount reads how many observations a histogram child has recorded.
func HistogramCount(o prometheus.Observer) uint64 {
	m, ok := o.(prometheus.Metric)
	if !ok {
		return 0
	}
	pb := &dto.Metric{}
	if err := m.Write(pb); err != nil {
		return 0
	}
	if pb.Histogram == nil {
		return 0
	}
	return pb.Histogram.GetSampleCount()
}

// GaugeValue reads the current value of a gauge.
func GaugeValue(g prometheus.Gauge) float64 {
	pb := &dto.Metric{}
	if err := g.Write(pb); err != nil {
		return 0
	}
	if pb.Gauge == nil {
		return 0
	}
	return pb.Gauge.GetValue()
}
