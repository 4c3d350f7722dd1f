package fraud

import (
	"sort"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

// Report summarizes a scoring run. Transactions scoring above threshold
// are flagged; the topN highest are listed.
func Report(scored []model.ScoredTransaction, summary model.AnomalySummary, threshold float64, topN int) model.FraudReport {
	rep := model.FraudReport{
		TotalTransactions: len(scored),
		RiskDistribution:  make(map[model.RiskLevel]int, len(model.RiskLevels)),
		Training:          summary,
		TopFlagged:        []model.FlaggedTransaction{},
	}
	for _, l := range model.RiskLevels {
		rep.RiskDistribution[l] = 0
	}

	var flagged []model.ScoredTransaction
	for _, s := range scored {
		rep.RiskDistribution[s.Risk]++
		if s.FraudScore > threshold {
			flagged = append(flagged, s)
		}
	}
	rep.FlaggedTransactions = len(flagged)

	sort.SliceStable(flagged, func(i, j int) bool {
		return flagged[i].FraudScore > flagged[j].FraudScore
	})
	if topN >= 0 && len(flagged) > topN {
		flagged = flagged[:topN]
	}
	for _, s := range flagged {
		rep.TopFlagged = append(rep.TopFlagged, model.FlaggedTransaction{
			ID:        s.ID,
			Amount:    s.AmountFloat(),
			Category:  s.Category,
			Merchant:  s.Merchant,
			Timestamp: s.Timestamp,
			Score:     s.FraudScore,
			Risk:      s.Risk,
		})
	}
	return rep
}
