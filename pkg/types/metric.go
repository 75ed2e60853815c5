package types

import "time"

// MetricSample is one immutable utilization fact for one cloud resource.
// Timestamp is the sampling instant, not insertion time; a resource
// accrues many samples over time. Samples are never updated or
// deduplicated, so repeated sweeps over a quiet resource yield repeated
// rows by design of the append-only store.
type MetricSample struct {
	ID            string    `db:"id" json:"id"`
	Provider      Provider  `db:"provider" json:"provider"`
	ResourceID    string    `db:"resource_id" json:"resource_id"`
	ResourceName  string    `db:"resource_name" json:"resource_name"`
	Timestamp     time.Time `db:"timestamp" json:"timestamp"`
	CPUUsage      float64   `db:"cpu_usage" json:"cpu_usage"`         // percent, 0-100
	MemoryUsage   float64   `db:"memory_usage" json:"memory_usage"`   // percent, 0-100
	NetworkBytes  float64   `db:"network_bytes" json:"network_bytes"` // bytes over the lookback window
	Power         float64   `db:"power" json:"power"`
	ExecutionTime float64   `db:"execution_time" json:"execution_time"`
	ResourceKind  string    `db:"resource_kind" json:"resource_kind"` // "ec2", "gce", "vm", ...
	Region        string    `db:"region" json:"region"`
	State         string    `db:"state" json:"state"`
	UserID        string    `db:"user_id" json:"user_id"`
}
