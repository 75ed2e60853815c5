// Package insights computes on-demand summaries over a user's stored
// metric history.
package insights

import "github.com/ady24s/Cloud9/pkg/types"

const (
	// idleThreshold marks a sample idle when both CPU and memory sit
	// below this percentage
	idleThreshold = 10.0

	// savingsPerIdleResource is the fixed per-resource savings estimate
	savingsPerIdleResource = 100.0

	// spendScale converts summed utilization into the spend proxy
	spendScale = 10.0
)

// Aggregate computes an Insight from a snapshot of metric rows. It is
// pure and total: an empty snapshot yields a zero-valued Insight and
// no division ever happens on an empty denominator. The spend figures
// are crude utilization proxies, not billing data.
func Aggregate(rows []types.MetricSample) types.Insight {
	if len(rows) == 0 {
		return types.Insight{}
	}

	var sumCPU, sumMem float64
	idle := 0

	for _, r := range rows {
		sumCPU += r.CPUUsage
		sumMem += r.MemoryUsage
		if r.CPUUsage < idleThreshold && r.MemoryUsage < idleThreshold {
			idle++
		}
	}

	anomalies := idle - 1
	if anomalies < 0 {
		anomalies = 0
	}

	n := float64(len(rows))
	return types.Insight{
		TotalSpend:       (sumCPU + sumMem) * spendScale,
		IdleResources:    idle,
		PredictedSavings: float64(idle) * savingsPerIdleResource,
		Anomalies:        anomalies,
		AvgCPU:           sumCPU / n,
		AvgMemory:        sumMem / n,
	}
}
