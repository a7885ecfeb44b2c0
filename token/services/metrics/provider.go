/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type CounterOpts struct {
	Namespace  string
	Subsystem  string
	Name       string
	Help       string
	LabelNames []string
}

type HistogramOpts struct {
	Namespace  string
	Subsystem  string
	Name       string
	Help       string
	LabelNames []string
	Buckets    []float64
}

// Counter is a monotonically increasing value.
// With binds label name/value pairs and returns the bound counter.
type Counter interface {
	With(labelValues ...string) Counter
	Add(delta float64)
}

// Histogram samples observations.
// With binds label name/value pairs and returns the bound histogram.
type Histogram interface {
	With(labelValues ...string) Histogram
	Observe(value float64)
}

// Provider creates metrics
type Provider interface {
	NewCounter(o CounterOpts) Counter
	NewHistogram(o HistogramOpts) Histogram
}

// NewPrometheusProvider returns a provider that registers its metrics with the passed registerer.
// Registering the same metric twice returns the metric registered first.
func NewPrometheusProvider(registerer prometheus.Registerer) Provider {
	return &promProvider{registerer: registerer}
}

type promProvider struct {
	registerer prometheus.Registerer
}

func (p *promProvider) NewCounter(o CounterOpts) Counter {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: o.Namespace,
		Subsystem: o.Subsystem,
		Name:      o.Name,
		Help:      o.Help,
	}, o.LabelNames)
	if err := p.registerer.Register(vec); err != nil {
		vec = existing[*prometheus.CounterVec](err)
	}
	return &counter{vec: vec, names: o.LabelNames, labels: prometheus.Labels{}}
}

func (p *promProvider) NewHistogram(o HistogramOpts) Histogram {
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: o.Namespace,
		Subsystem: o.Subsystem,
		Name:      o.Name,
		Help:      o.Help,
		Buckets:   o.Buckets,
	}, o.LabelNames)
	if err := p.registerer.Register(vec); err != nil {
		vec = existing[*prometheus.HistogramVec](err)
	}
	return &histogram{vec: vec, names: o.LabelNames, labels: prometheus.Labels{}}
}

func existing[T prometheus.Collector](err error) T {
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if c, ok := are.ExistingCollector.(T); ok {
			logger.Debugf("metric already registered, reusing it")
			return c
		}
	}
	panic(errors.Wrap(err, "failed registering metric"))
}

type counter struct {
	vec    *prometheus.CounterVec
	names  []string
	labels prometheus.Labels
}

func (c *counter) With(labelValues ...string) Counter {
	return &counter{vec: c.vec, names: c.names, labels: with(c.labels, labelValues)}
}

func (c *counter) Add(delta float64) {
	c.vec.With(complete(c.names, c.labels)).Add(delta)
}

type histogram struct {
	vec    *prometheus.HistogramVec
	names  []string
	labels prometheus.Labels
}

func (h *histogram) With(labelValues ...string) Histogram {
	return &histogram{vec: h.vec, names: h.names, labels: with(h.labels, labelValues)}
}

func (h *histogram) Observe(value float64) {
	h.vec.With(complete(h.names, h.labels)).Observe(value)
}

func with(labels prometheus.Labels, labelValues []string) prometheus.Labels {
	if len(labelValues)%2 != 0 {
		panic("label values must come in name/value pairs")
	}
	res := make(prometheus.Labels, len(labels)+len(labelValues)/2)
	for k, v := range labels {
		res[k] = v
	}
	for i := 0; i < len(labelValues); i += 2 {
		res[labelValues[i]] = labelValues[i+1]
	}
	return res
}

// complete fills the labels that were never bound with the empty string
func complete(names []string, labels prometheus.Labels) prometheus.Labels {
	if len(labels) == len(names) {
		return labels
	}
	res := make(prometheus.Labels, len(names))
	for _, name := range names {
		res[name] = labels[name]
	}
	return res
}

// NewDisabledProvider returns a provider whose metrics do nothing
func NewDisabledProvider() Provider {
	return disabledProvider{}
}

type disabledProvider struct{}

func (disabledProvider) NewCounter(CounterOpts) Counter { return disabledCounter{} }

func (disabledProvider) NewHistogram(HistogramOpts) Histogram { return disabledHistogram{} }

type disabledCounter struct{}

func (d disabledCounter) With(...string) Counter { return d }

func (disabledCounter) Add(float64) {}

type disabledHistogram struct{}

func (d disabledHistogram) With(...string) Histogram { return d }

func (disabledHistogram) Observe(float64) {}
