package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/theirongolddev/ledgerscope/internal/config"
	"github.com/theirongolddev/ledgerscope/internal/forecast"
	"github.com/theirongolddev/ledgerscope/internal/generator"
	"github.com/theirongolddev/ledgerscope/internal/metrics"
	"github.com/theirongolddev/ledgerscope/internal/model"
	"github.com/theirongolddev/ledgerscope/internal/store"
)

type sliceSource struct {
	txns []model.Transaction
	err  error
}

func (s sliceSource) Transactions(_ context.Context, userID int64) ([]model.Transaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []model.Transaction
	for _, t := range s.txns {
		if userID == 0 || t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

type memBundles struct {
	mu   sync.Mutex
	recs []store.BundleRecord
}

func (m *memBundles) SaveBundle(_ context.Context, rec store.BundleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memBundles) LatestBundle(_ context.Context, kind string, userID int64) (*store.BundleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *store.BundleRecord
	for i := range m.recs {
		r := &m.recs[i]
		if r.Kind != kind || r.UserID != userID {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return latest, nil
}

func (m *memBundles) Bundle(_ context.Context, id string) (*store.BundleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.recs {
		if m.recs[i].ID == id {
			return &m.recs[i], nil
		}
	}
	return nil, store.ErrNotFound
}

type capturePublisher struct {
	got []model.ScoredTransaction
}

func (c *capturePublisher) Publish(_ context.Context, scored []model.ScoredTransaction) (int, error) {
	n := 0
	for _, s := range scored {
		if s.Risk.Rank() >= model.RiskHigh.Rank() {
			c.got = append(c.got, s)
			n++
		}
	}
	return n, nil
}

func (c *capturePublisher) Close() error { return nil }

func testLedger(t *testing.T) []model.Transaction {
	t.Helper()
	txns, err := generator.New(generator.Config{NumUsers: 2, Months: 14, PerMonth: 25, OutlierRate: 0.02, Seed: 11}).
		Generate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return txns
}

func testRunner(src Source) (*Runner, *memBundles) {
	cfg := config.DefaultConfig()
	cfg.General.Tune = false
	bundles := &memBundles{}
	return &Runner{
		Source:   src,
		Bundles:  bundles,
		Config:   cfg,
		Recorder: metrics.NewRecorder(),
	}, bundles
}

func TestRunAll(t *testing.T) {
	r, bundles := testRunner(sliceSource{txns: testLedger(t)})
	pub := &capturePublisher{}
	r.Alerts = pub

	res, err := r.Run(context.Background(), TaskAll, 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Task != TaskAll || res.UserID == nil || *res.UserID != 1 || res.Tuning {
		t.Errorf("header = %+v", res)
	}

	fc := res.ExpensePrediction
	if fc == nil || !fc.OK() {
		t.Fatalf("forecast = %+v", fc)
	}
	if fc.Predictions.Ensemble < 0 {
		t.Errorf("ensemble = %v, want >= 0", fc.Predictions.Ensemble)
	}
	if fc.Predictions.Month != "2024-03" {
		t.Errorf("forecast month = %s, want 2024-03", fc.Predictions.Month)
	}
	if _, ok := fc.ModelResults[model.ModelEnsemble]; !ok {
		t.Errorf("model results missing ensemble row: %v", fc.ModelResults)
	}
	if len(fc.MonthlyTotals) != 14 || len(fc.CategoryPredictions) == 0 {
		t.Errorf("totals = %d, categories = %d", len(fc.MonthlyTotals), len(fc.CategoryPredictions))
	}
	if !fc.ModelsSaved || fc.Reused {
		t.Errorf("saved = %v, reused = %v", fc.ModelsSaved, fc.Reused)
	}

	fr := res.FraudDetection
	if fr == nil || !fr.OK() {
		t.Fatalf("fraud = %+v", fr)
	}
	if fr.Results.TotalTransactions != len(fr.Scored) {
		t.Errorf("total = %d, scored = %d", fr.Results.TotalTransactions, len(fr.Scored))
	}
	for _, s := range fr.Scored {
		if s.UserID != 1 {
			t.Fatalf("scored another user's transaction: %+v", s.Transaction)
		}
		if s.FraudScore < 0 || s.FraudScore > 100 {
			t.Fatalf("score %v out of range", s.FraudScore)
		}
	}
	if fr.AlertsSent != len(pub.got) {
		t.Errorf("alerts sent = %d, published = %d", fr.AlertsSent, len(pub.got))
	}
	if len(bundles.recs) != 2 {
		t.Errorf("saved bundles = %d, want 2", len(bundles.recs))
	}

	doc, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"task":"all"`, `"user_id":1`, `"expense_prediction":{"status":"success"`, `"fraud_detection":{"status":"success"`} {
		if !strings.Contains(string(doc), key) {
			t.Errorf("document missing %s", key)
		}
	}
	if strings.Contains(string(doc), "Scored") {
		t.Error("scored rows leaked into the document")
	}
}

func TestRunReusesBundlesForUnchangedLedger(t *testing.T) {
	r, bundles := testRunner(sliceSource{txns: testLedger(t)})
	r.Reuse = true
	ctx := context.Background()

	first, err := r.Run(ctx, TaskAll, 2)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Run(ctx, TaskAll, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !second.ExpensePrediction.Reused || !second.FraudDetection.Reused {
		t.Fatalf("second run did not reuse bundles")
	}
	if second.ExpensePrediction.BundleID != first.ExpensePrediction.BundleID {
		t.Errorf("forecast bundle %s, want %s", second.ExpensePrediction.BundleID, first.ExpensePrediction.BundleID)
	}
	if got, want := second.ExpensePrediction.Predictions.Ensemble, first.ExpensePrediction.Predictions.Ensemble; got != want {
		t.Errorf("reused ensemble = %v, want %v", got, want)
	}
	if got, want := second.FraudDetection.Results.FlaggedTransactions, first.FraudDetection.Results.FlaggedTransactions; got != want {
		t.Errorf("reused flagged = %d, want %d", got, want)
	}
	if len(bundles.recs) != 2 {
		t.Errorf("saved bundles = %d, want 2", len(bundles.recs))
	}
}

func TestRunInsufficientData(t *testing.T) {
	txns := testLedger(t)[:5]
	r, _ := testRunner(sliceSource{txns: txns})

	res, err := r.Run(context.Background(), TaskAll, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.UserID != nil {
		t.Errorf("user_id = %v, want null", *res.UserID)
	}
	fc, fr := res.ExpensePrediction, res.FraudDetection
	if fc.Status != StatusError || !strings.Contains(fc.Message, "need at least 10 transactions for prediction") {
		t.Errorf("forecast outcome = %+v", fc.Outcome)
	}
	if fr.Status != StatusError || !strings.Contains(fr.Message, "need at least 10 transactions for fraud detection") {
		t.Errorf("fraud outcome = %+v", fr.Outcome)
	}
}

func TestRunTooFewMonths(t *testing.T) {
	txns, err := generator.New(generator.Config{NumUsers: 1, Months: 4, PerMonth: 20, Seed: 5}).Generate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	r, _ := testRunner(sliceSource{txns: txns})
	out := r.Forecast(context.Background(), 0)
	if out.OK() {
		t.Fatal("expected forecast failure for 4 months")
	}
	if len(out.MonthlyTotals) != 0 {
		t.Errorf("failed outcome carries totals: %+v", out)
	}
}

func TestRunSourceError(t *testing.T) {
	r, _ := testRunner(sliceSource{err: errors.New("db down")})
	out := r.Fraud(context.Background(), 0)
	if out.OK() || !strings.Contains(out.Message, "db down") {
		t.Errorf("outcome = %+v", out.Outcome)
	}
}

func TestRunUnknownTask(t *testing.T) {
	r, _ := testRunner(sliceSource{})
	_, err := r.Run(context.Background(), "train", 0)
	if !errors.Is(err, model.ErrInvalidConfiguration) {
		t.Errorf("err = %v, want ErrInvalidConfiguration", err)
	}
}

func TestFraudWithBundle(t *testing.T) {
	ledger := testLedger(t)
	r, bundles := testRunner(sliceSource{txns: ledger})
	ctx := context.Background()

	trained := r.Fraud(ctx, 1)
	if !trained.OK() {
		t.Fatalf("fraud = %+v", trained.Outcome)
	}

	// Score user 2 with user 1's bundle.
	out := r.FraudWithBundle(ctx, 2, trained.BundleID)
	if !out.OK() {
		t.Fatalf("FraudWithBundle = %+v", out.Outcome)
	}
	if !out.Reused || out.BundleID != trained.BundleID || out.ModelsSaved {
		t.Errorf("outcome = %+v", out)
	}
	if len(bundles.recs) != 1 {
		t.Errorf("scoring with a stored bundle saved a new one")
	}

	fc := r.Forecast(ctx, 1)
	if !fc.OK() {
		t.Fatalf("forecast = %+v", fc.Outcome)
	}
	wrong := r.FraudWithBundle(ctx, 1, fc.BundleID)
	if wrong.OK() || !strings.Contains(wrong.Message, forecast.Kind) {
		t.Errorf("forecast bundle accepted for fraud scoring: %+v", wrong.Outcome)
	}

	missing := r.FraudWithBundle(ctx, 1, "nope")
	if missing.OK() {
		t.Error("missing bundle accepted")
	}
}
