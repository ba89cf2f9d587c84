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
	"runtime"
	"time"

	"github.com/ethereum/go-ethereum/metrics"
)

var (
	goroutineGauge = metrics.NewRegisteredGauge("cable/process/goroutines", nil)
	gcCPUFractionGauge = metrics.NewRegisteredGaugeFloat64("cable/process/gc_cpu_fraction", nil)
	heapAllocGauge = metrics.NewRegisteredGauge("cable/process/heap_alloc_bytes", nil)
)

// CollectProcessMetrics starts a background goroutine that samples
// runtime process statistics into the gauges above every refresh.
func CollectProcessMetrics(refresh time.Duration) {
	if !metrics.Enabled {
		return
	}
	var memStats runtime.MemStats
	go func() {
		for {
			runtime.ReadMemStats(&memStats)
			goroutineGauge.Update(int64(runtime.NumGoroutine()))
			gcCPUFractionGauge.Update(gcCPUFraction(&memStats))
			heapAllocGauge.Update(int64(memStats.HeapAlloc))
			time.Sleep(refresh)
		}
	}()
}

// gcCPUFraction reports the fraction of CPU time spent in garbage
// collection since the program started, as reported by the runtime.
func gcCPUFraction(memStats *runtime.MemStats) float64 {
	return memStats.GCCPUFraction
}
