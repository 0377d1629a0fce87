package engine

import "leadpilot/models"

// ApplyScore adds a delta to a lead score, clamped to [0, 100]
func ApplyScore(current, delta int) int {
	score := current + delta
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Classify maps a score onto a temperature bucket using the flow's
// thresholds. Raising the score never lowers the bucket.
func Classify(score, warmThreshold, hotThreshold int) string {
	if score >= hotThreshold {
		return models.TemperatureHot
	}
	if score >= warmThreshold {
		return models.TemperatureWarm
	}
	return models.TemperatureCold
}
