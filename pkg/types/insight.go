package types

// Insight is an on-demand summary computed over a user's stored metric
// history. The cost figures are intentionally crude proxies, not a
// billing integration; the contract is determinism and totality.
type Insight struct {
	TotalSpend       float64 `json:"total_spend"`
	IdleResources    int     `json:"idle_resources"`
	PredictedSavings float64 `json:"predicted_savings"`
	Anomalies        int     `json:"anomalies"`
	AvgCPU           float64 `json:"avg_cpu"`
	AvgMemory        float64 `json:"avg_memory"`
}
