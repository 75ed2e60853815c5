package types

// Recommendation assigns one current resource to an optimizer action
// bucket. Cluster is the raw k-means cluster id the resource landed in;
// Action is the fixed positional label for that cluster. The
// cluster-to-action mapping is positional, not semantic: which workload
// shape k-means labels cluster 0 depends on the seed and training data.
type Recommendation struct {
	ResourceID string `json:"resource_id"`
	Cluster    int    `json:"cluster"`
	Action     string `json:"action"`
}
