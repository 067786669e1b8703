package analytics

import "math"

func roundInt(v float64) int {
	return int(math.Round(v))
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clampPercent(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// percent is round(part/whole*100) clamped to [0,100], 0 when whole is 0.
func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return clampPercent(roundInt(float64(part) / float64(whole) * 100))
}

func mean1(sum, n int) float64 {
	if n == 0 {
		return 0
	}
	return round1(float64(sum) / float64(n))
}
