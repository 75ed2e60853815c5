package providers

// NormalizeFraction maps a fractional 0-1 utilization value onto the
// 0-100 percentage scale shared by all providers.
func NormalizeFraction(v float64) float64 {
	return ClampPercent(v * 100.0)
}

// ClampPercent clamps a percentage value into [0, 100]
func ClampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
