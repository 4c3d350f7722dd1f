package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder()
	r.AddCandidates("ridge", 6, 1)
	r.AddCandidates("ridge", 1, 0)
	r.CountRisk(model.RiskCritical, 2)
	r.SetFlagged(3)
	r.SetConfidence(87.5)

	assert.Equal(t, 7.0, testutil.ToFloat64(r.searchCandidates.WithLabelValues("ridge", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.searchCandidates.WithLabelValues("ridge", OutcomeFailed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.riskLevels.WithLabelValues("Critical")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.flagged))
	assert.Equal(t, 87.5, testutil.ToFloat64(r.confidence))
}

func TestRecorder_FitHistogram(t *testing.T) {
	r := NewRecorder()
	r.ObserveFit("xgboost", 250*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(r.fitDuration))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.SetFlagged(4)
	path := filepath.Join(t.TempDir(), "textfile", "ledgerscope.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "ledgerscope_fraud_flagged_transactions 4"))
}

func TestRecorder_NilIsSafe(t *testing.T) {
	var r *Recorder
	r.ObserveFit("linear", time.Second)
	r.AddCandidates("linear", 1, 1)
	r.SetConfidence(1)
	r.SetFlagged(1)
	r.CountRisk(model.RiskLow, 1)
	assert.NoError(t, r.WriteTextfile("/nonexistent/x.prom"))
	assert.Nil(t, r.Registry())
}
