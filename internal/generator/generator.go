// Package generator synthesizes reproducible ledgers for demos, tests and
// benchmarks.
package generator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

type category struct {
	name      string
	weight    float64 // relative frequency
	mean      float64 // typical amount
	spread    float64 // log-normal sigma
	merchants []string
}

// Generator produces synthetic ledgers. The same Config always yields the
// same ledger.
type Generator struct {
	cfg        Config
	rand       *rand.Rand
	categories []category
	payments   []string
	total      float64
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.NumUsers <= 0 {
		cfg.NumUsers = def.NumUsers
	}
	if cfg.Months <= 0 {
		cfg.Months = def.Months
	}
	if cfg.PerMonth <= 0 {
		cfg.PerMonth = def.PerMonth
	}
	if cfg.OutlierRate < 0 || cfg.OutlierRate > 1 {
		cfg.OutlierRate = def.OutlierRate
	}
	if cfg.Start.IsZero() {
		cfg.Start = def.Start
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	cfg.Start = time.Date(cfg.Start.Year(), cfg.Start.Month(), 1, 0, 0, 0, 0, time.UTC)

	cats := defaultCategories()
	var total float64
	for _, c := range cats {
		total += c.weight
	}
	return &Generator{
		cfg:        cfg,
		rand:       rand.New(rand.NewSource(cfg.Seed)),
		categories: cats,
		payments:   []string{"Credit Card", "Debit Card", "Cash", "Bank Transfer", "Mobile Wallet"},
		total:      total,
	}
}

// Config returns the effective configuration after defaults were applied.
func (g *Generator) Config() Config {
	return g.cfg
}

// Generate synthesizes the ledger in chronological order with IDs assigned
// from 1. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) ([]model.Transaction, error) {
	var txns []model.Transaction
	for u := 1; u <= g.cfg.NumUsers; u++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scale := 0.6 + g.rand.Float64()*0.9
		growth := (g.rand.Float64() - 0.4) * 0.04
		prefPayment := g.payments[g.rand.Intn(len(g.payments))]

		for m := 0; m < g.cfg.Months; m++ {
			month := g.cfg.Start.AddDate(0, m, 0)
			factor := scale * seasonal(month.Month()) * math.Pow(1+growth, float64(m))
			n := g.monthlyCount()
			for i := 0; i < n; i++ {
				txns = append(txns, g.transaction(int64(u), month, factor, prefPayment))
			}
		}
	}

	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].Timestamp.Before(txns[j].Timestamp)
	})
	for i := range txns {
		txns[i].ID = int64(i + 1)
	}
	return txns, nil
}

func (g *Generator) monthlyCount() int {
	jitter := int(math.Round(g.rand.NormFloat64() * float64(g.cfg.PerMonth) * 0.15))
	n := g.cfg.PerMonth + jitter
	if n < 1 {
		n = 1
	}
	return n
}

func (g *Generator) transaction(user int64, month time.Time, factor float64, prefPayment string) model.Transaction {
	c := g.pickCategory()
	days := daysIn(month)
	ts := month.AddDate(0, 0, g.rand.Intn(days)).
		Add(time.Duration(8+g.rand.Intn(13)) * time.Hour).
		Add(time.Duration(g.rand.Intn(60)) * time.Minute).
		Add(time.Duration(g.rand.Intn(60)) * time.Second)

	amount := c.mean * factor * math.Exp(g.rand.NormFloat64()*c.spread)
	merchant := c.merchants[g.rand.Intn(len(c.merchants))]
	payment := prefPayment
	if g.rand.Float64() < 0.35 {
		payment = g.payments[g.rand.Intn(len(g.payments))]
	}

	if g.rand.Float64() < g.cfg.OutlierRate {
		amount *= 10 + g.rand.Float64()*20
		ts = time.Date(ts.Year(), ts.Month(), ts.Day(), g.rand.Intn(5), g.rand.Intn(60), 0, 0, time.UTC)
		merchant = fmt.Sprintf("Unlisted Vendor %04d", g.rand.Intn(10000))
	}

	return model.Transaction{
		UserID:        user,
		Timestamp:     ts,
		Amount:        toAmount(amount),
		Category:      c.name,
		Merchant:      merchant,
		PaymentMethod: payment,
	}
}

func (g *Generator) pickCategory() category {
	r := g.rand.Float64() * g.total
	for _, c := range g.categories {
		if r < c.weight {
			return c
		}
		r -= c.weight
	}
	return g.categories[len(g.categories)-1]
}

func toAmount(v float64) decimal.Decimal {
	d := decimal.NewFromFloat(v).Round(2)
	if cent := decimal.New(1, -2); d.LessThan(cent) {
		return cent
	}
	return d
}

// seasonal lifts spend toward the end of the year.
func seasonal(m time.Month) float64 {
	switch m {
	case time.November:
		return 1.15
	case time.December:
		return 1.35
	case time.January:
		return 0.9
	default:
		return 1
	}
}

func daysIn(month time.Time) int {
	return month.AddDate(0, 1, -1).Day()
}

func defaultCategories() []category {
	return []category{
		{"Groceries", 30, 45, 0.4, []string{"Fresh Mart", "Green Grocer", "Corner Shop", "Bulk Barn"}},
		{"Dining", 20, 28, 0.5, []string{"Noodle House", "Cafe Luna", "Burger Joint", "Taco Stand", "Sushi Bar"}},
		{"Transport", 15, 18, 0.6, []string{"Metro Transit", "RideShare", "Fuel Stop"}},
		{"Utilities", 5, 120, 0.2, []string{"City Power", "Water Works", "FiberNet"}},
		{"Entertainment", 10, 35, 0.6, []string{"Cinema Plex", "StreamFlix", "Game Store"}},
		{"Shopping", 12, 80, 0.7, []string{"MegaMart", "Style Co", "Book Nook", "Gadget Hub"}},
		{"Healthcare", 4, 60, 0.5, []string{"City Pharmacy", "Family Clinic"}},
		{"Travel", 4, 250, 0.8, []string{"SkyAir", "Harbor Hotel", "RailLink"}},
	}
}
