// Copyright 2024 The cable Authors
// This file is part of the cable library.
//
// The cable library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The cable library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the cable library. If not, see <http://www.gnu.org/licenses/>.

package cablemetrics

import (
	"strings"

	gethmetrics "github.com/ethereum/go-ethereum/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector bridges the go-ethereum metrics registry this package writes
// into, to Prometheus's pull model: it implements prometheus.Collector by
// walking the registry on every scrape.
type Collector struct {
	registry gethmetrics.Registry
	prefix   string
}

// NewCollector returns a Collector over the default go-ethereum metrics
// registry, with every exported name given prefix as a Prometheus
// namespace.
func NewCollector(prefix string) *Collector {
	return &Collector{registry: gethmetrics.DefaultRegistry, prefix: prefix}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	// Dynamic metric set: descriptions are sent alongside values in
	// Collect, as prometheus.Collector's unchecked-collector contract
	// allows.
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.registry.Each(func(name string, i interface{}) {
		fqName := c.prefix + "_" + sanitize(name)
		desc := prometheus.NewDesc(fqName, name, nil, nil)

		switch m := i.(type) {
		case gethmetrics.Meter:
			ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(m.Count()))
		case gethmetrics.Counter:
			ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(m.Count()))
		case gethmetrics.Gauge:
			ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(m.Value()))
		case gethmetrics.GaugeFloat64:
			ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, m.Value())
		case gethmetrics.Timer:
			ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, m.Mean())
		}
	})
}

func sanitize(name string) string {
	r := strings.NewReplacer("/", "_", ".", "_", "-", "_")
	return r.Replace(name)
}
