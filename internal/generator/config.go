package generator

import "time"

// Config drives the synthetic ledger generator.
type Config struct {
	NumUsers    int
	Months      int
	PerMonth    int     // mean transactions per user per month
	OutlierRate float64 // share of transactions made anomalous
	Start       time.Time
	Seed        int64
}

// DefaultConfig returns settings large enough for both pipelines to train.
func DefaultConfig() Config {
	return Config{
		NumUsers:    3,
		Months:      18,
		PerMonth:    40,
		OutlierRate: 0.01,
		Start:       time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
		Seed:        42,
	}
}
