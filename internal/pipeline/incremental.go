package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/ledgerscope/internal/model"
	"github.com/theirongolddev/ledgerscope/internal/source"
	"github.com/theirongolddev/ledgerscope/internal/store"
)

// ImportStore is the part of the ledger store an import writes to.
type ImportStore interface {
	TrackedFiles(ctx context.Context) (map[string]store.FileInfo, error)
	TrackFile(ctx context.Context, path string, fi store.FileInfo) error
	InsertTransactions(ctx context.Context, txns []model.Transaction) (int, error)
}

// ImportResult extends LoadResult with file tracking metadata.
type ImportResult struct {
	LoadResult
	Unchanged int
	Reparsed  int
	Inserted  int
}

// Import discovers ledger CSVs under path, skips files whose mtime and size
// match the last import, and writes the rows of changed files to st.
func Import(ctx context.Context, path string, st ImportStore, workers int, progressFn ProgressFunc) (*ImportResult, error) {
	files, err := source.ScanDir(path)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}

	result := &ImportResult{LoadResult: LoadResult{TotalFiles: len(files)}}
	if len(files) == 0 {
		return result, nil
	}

	tracked, err := st.TrackedFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading file tracker: %w", err)
	}

	var toReparse []source.DiscoveredFile
	for _, f := range files {
		cached, ok := tracked[f.Path]
		if ok && cached.MtimeNs == f.MtimeNs && cached.SizeBytes == f.SizeBytes {
			result.Unchanged++
			continue
		}
		toReparse = append(toReparse, f)
	}
	result.Reparsed = len(toReparse)
	if len(toReparse) == 0 {
		return result, nil
	}

	results := parseAll(toReparse, workers, result.Unchanged, result.TotalFiles, progressFn)
	for i, pr := range results {
		if !result.add(pr) {
			continue
		}
		n, err := st.InsertTransactions(ctx, pr.Transactions)
		if err != nil {
			return result, fmt.Errorf("importing %s: %w", toReparse[i].Path, err)
		}
		result.Inserted += n
		f := toReparse[i]
		if err := st.TrackFile(ctx, f.Path, store.FileInfo{MtimeNs: f.MtimeNs, SizeBytes: f.SizeBytes}); err != nil {
			return result, fmt.Errorf("tracking %s: %w", f.Path, err)
		}
	}
	return result, nil
}

// Fingerprint identifies the state of a ledger slice: row count, largest
// ID, amount sum and last timestamp. A bundle trained on a ledger with the
// same fingerprint can be reused without retraining.
func Fingerprint(txns []model.Transaction) string {
	var (
		maxID int64
		sum   = decimal.Zero
		last  int64
	)
	for _, t := range txns {
		maxID = max(maxID, t.ID)
		sum = sum.Add(t.Amount)
		last = max(last, t.Timestamp.Unix())
	}
	h := sha256.New()
	for _, part := range []string{
		strconv.Itoa(len(txns)),
		strconv.FormatInt(maxID, 10),
		sum.String(),
		strconv.FormatInt(last, 10),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}
