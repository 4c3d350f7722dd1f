package model

import "testing"

func TestClassifyRisk_Bins(t *testing.T) {
	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{0, RiskLow},
		{24.999, RiskLow},
		{25, RiskMedium},
		{49.9, RiskMedium},
		{50, RiskHigh},
		{74.99, RiskHigh},
		{75, RiskCritical},
		{100, RiskCritical},
	}
	for _, tt := range tests {
		if got := ClassifyRisk(tt.score); got != tt.want {
			t.Errorf("ClassifyRisk(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestRiskLevel_Rank(t *testing.T) {
	if RiskLow.Rank() >= RiskCritical.Rank() {
		t.Fatalf("Low rank %d should be below Critical rank %d", RiskLow.Rank(), RiskCritical.Rank())
	}
	if RiskLevel("bogus").Rank() != -1 {
		t.Fatal("unknown level should rank -1")
	}
}
