// Package daemon provides the long-running scheduler that re-imports a ledger
// directory and re-runs the forecast and fraud pipelines when it changes.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/theirongolddev/ledgerscope/internal/model"
	"github.com/theirongolddev/ledgerscope/internal/pipeline"
)

// Event types.
const (
	EventSnapshot      = "snapshot"
	EventLedgerChanged = "ledger_changed"
)

// Config controls the daemon runtime behavior.
type Config struct {
	WatchDir     string // re-imported on every poll when set
	UserID       int64
	Task         string
	Workers      int
	Interval     time.Duration
	Addr         string
	EventsBuffer int
}

// Snapshot is the compact result of one pipeline run.
type Snapshot struct {
	At             time.Time `json:"at"`
	Transactions   int       `json:"transactions"`
	Fingerprint    string    `json:"fingerprint"`
	ForecastStatus string    `json:"forecast_status,omitempty"`
	Month          string    `json:"month,omitempty"`
	Ensemble       float64   `json:"ensemble"`
	Confidence     float64   `json:"confidence"`
	Trend          string    `json:"trend,omitempty"`
	FraudStatus    string    `json:"fraud_status,omitempty"`
	Flagged        int       `json:"flagged"`
	HighRisk       int       `json:"high_risk"`
	CriticalRisk   int       `json:"critical_risk"`
}

// Delta captures snapshot deltas between runs.
type Delta struct {
	Transactions int     `json:"transactions"`
	Flagged      int     `json:"flagged"`
	Ensemble     float64 `json:"ensemble"`
}

// Event is emitted whenever a run produces a new snapshot.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	RunCount        int64     `json:"run_count"`
	WatchDir        string    `json:"watch_dir,omitempty"`
	UserID          int64     `json:"user_id"`
	Task            string    `json:"task"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg      Config
	runner   *pipeline.Runner
	importer pipeline.ImportStore
	log      zerolog.Logger

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	runCount    int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	lastResult  *pipeline.RunResult
	nextEventID int64
	events      []Event
}

// New returns a daemon service running runner on every poll. importer may
// be nil when cfg.WatchDir is empty.
func New(cfg Config, runner *pipeline.Runner, importer pipeline.ImportStore) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.Task == "" {
		cfg.Task = pipeline.TaskAll
	}

	return &Service{
		cfg:       cfg,
		runner:    runner,
		importer:  importer,
		log:       runner.Logger.With().Str("component", "daemon").Logger(),
		startedAt: time.Now(),
	}
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/result", s.handleResult)
	if reg := s.runner.Recorder.Registry(); reg != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	return mux
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info().Str("addr", s.cfg.Addr).Dur("interval", s.cfg.Interval).Msg("daemon listening")

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) pollOnce(ctx context.Context) {
	if s.cfg.WatchDir != "" && s.importer != nil {
		res, err := pipeline.Import(ctx, s.cfg.WatchDir, s.importer, s.cfg.Workers, nil)
		if err != nil {
			s.recordError(fmt.Errorf("importing %s: %w", s.cfg.WatchDir, err))
			return
		}
		if res.Reparsed > 0 {
			s.log.Info().Int("files", res.Reparsed).Int("rows", res.Inserted).Msg("imported changed files")
		}
	}

	txns, err := s.runner.Source.Transactions(ctx, s.cfg.UserID)
	if err != nil {
		s.recordError(fmt.Errorf("loading transactions: %w", err))
		return
	}
	fingerprint := pipeline.Fingerprint(txns)

	s.mu.RLock()
	unchanged := s.hasSnapshot && s.snapshot.Fingerprint == fingerprint
	s.mu.RUnlock()
	if unchanged {
		s.mu.Lock()
		s.lastPollAt = time.Now()
		s.pollCount++
		s.lastError = ""
		s.mu.Unlock()
		return
	}

	res, err := s.runner.Run(ctx, s.cfg.Task, s.cfg.UserID)
	if err != nil {
		s.recordError(err)
		return
	}
	now := time.Now()
	snap := snapshotFromResult(res, len(txns), fingerprint, now)

	s.mu.Lock()
	prev, prevExists := s.snapshot, s.hasSnapshot
	s.hasSnapshot = true
	s.snapshot = snap
	s.lastResult = res
	s.lastPollAt = now
	s.pollCount++
	s.runCount++
	s.lastError = ""

	s.nextEventID++
	ev := Event{ID: s.nextEventID, Type: EventSnapshot, Timestamp: now, Snapshot: snap}
	if prevExists {
		ev.Type = EventLedgerChanged
		ev.Delta = diffSnapshots(prev, snap)
	}
	s.mu.Unlock()

	s.log.Info().
		Str("event", ev.Type).
		Int("transactions", snap.Transactions).
		Float64("ensemble", snap.Ensemble).
		Int("flagged", snap.Flagged).
		Msg("pipelines re-run")
	s.publishEvent(ev)
}

func (s *Service) recordError(err error) {
	s.mu.Lock()
	s.lastError = err.Error()
	s.lastPollAt = time.Now()
	s.pollCount++
	s.mu.Unlock()
	s.log.Error().Err(err).Msg("daemon poll failed")
}

func snapshotFromResult(res *pipeline.RunResult, transactions int, fingerprint string, at time.Time) Snapshot {
	snap := Snapshot{At: at, Transactions: transactions, Fingerprint: fingerprint}
	if fc := res.ExpensePrediction; fc != nil {
		snap.ForecastStatus = fc.Status
		if fc.Predictions != nil {
			snap.Month = fc.Predictions.Month
			snap.Ensemble = fc.Predictions.Ensemble
			snap.Confidence = fc.Predictions.Confidence
			snap.Trend = fc.Predictions.Trend
		}
	}
	if fr := res.FraudDetection; fr != nil {
		snap.FraudStatus = fr.Status
		if fr.Results != nil {
			snap.Flagged = fr.Results.FlaggedTransactions
			snap.HighRisk = fr.Results.RiskDistribution[model.RiskHigh]
			snap.CriticalRisk = fr.Results.RiskDistribution[model.RiskCritical]
		}
	}
	return snap
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Transactions: curr.Transactions - prev.Transactions,
		Flagged:      curr.Flagged - prev.Flagged,
		Ensemble:     curr.Ensemble - prev.Ensemble,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		RunCount:        s.runCount,
		WatchDir:        s.cfg.WatchDir,
		UserID:          s.cfg.UserID,
		Task:            s.cfg.Task,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, events)
}

func (s *Service) handleResult(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	res := s.lastResult
	s.mu.RUnlock()

	if res == nil {
		http.Error(w, "no run yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, res)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
