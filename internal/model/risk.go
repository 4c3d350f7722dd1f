package model

// RiskLevel is the discrete label derived from a fused fraud score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// RiskLevels lists the labels from least to most severe.
var RiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical}

// ClassifyRisk bins a score into [0,25) Low, [25,50) Medium, [50,75) High
// and [75,100] Critical.
func ClassifyRisk(score float64) RiskLevel {
	switch {
	case score < 25:
		return RiskLow
	case score < 50:
		return RiskMedium
	case score < 75:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// Rank returns the position of the level in RiskLevels, or -1 if unknown.
func (r RiskLevel) Rank() int {
	for i, l := range RiskLevels {
		if l == r {
			return i
		}
	}
	return -1
}
