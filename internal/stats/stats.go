// Package stats derives point-in-time utilization figures from a raw
// two-point counter sample. It is pure: callers fetch the sample from the
// engine and handle fetch failures themselves (the convention is to fall
// back to the zero Usage — stats are a display feature, never blocking).
package stats

import (
	"math"

	"microiaas"
)

const megabyte = 1024 * 1024

// Summarize turns a raw counter sample into display figures.
//
// CPU percentage follows the engine's own convention: the container's share
// of host CPU time over the sample window, scaled by the core count, so a
// busy multi-core container can exceed 100%. Non-positive deltas (first
// sample, counter reset, stopped container) yield exactly 0.
func Summarize(raw microiaas.RawStats) microiaas.Usage {
	var u microiaas.Usage

	cpuDelta := int64(raw.CPUTotal) - int64(raw.PreCPUTotal)
	systemDelta := int64(raw.SystemCPU) - int64(raw.PreSystemCPU)
	if cpuDelta > 0 && systemDelta > 0 {
		cores := raw.OnlineCPUs
		if cores == 0 {
			cores = raw.PerCPUCount
		}
		u.CPUPercent = round1(float64(cpuDelta) / float64(systemDelta) * float64(cores) * 100)
	}

	u.MemoryUsedMB = raw.MemoryUsage / megabyte
	if raw.MemoryLimit > 0 {
		// An unlimited or unknown ceiling reports 0%, not an error.
		u.MemoryPercent = round1(float64(raw.MemoryUsage) / float64(raw.MemoryLimit) * 100)
	}

	var rx, tx uint64
	for _, nw := range raw.Networks {
		rx += nw.RxBytes
		tx += nw.TxBytes
	}
	u.NetworkRxMB = rx / megabyte
	u.NetworkTxMB = tx / megabyte

	return u
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
