package pipeline

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/ledgerscope/internal/model"
	"github.com/theirongolddev/ledgerscope/internal/source"
)

// LoadResult holds the output of loading ledger CSV files.
type LoadResult struct {
	Transactions []model.Transaction
	TotalFiles   int
	ParsedFiles  int
	ParseErrors  int
	FileErrors   int
}

// ProgressFunc is called during loading to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

// Load discovers and parses every ledger CSV under path. It uses a bounded
// worker pool for parallel parsing; workers <= 0 means GOMAXPROCS.
func Load(path string, workers int, progressFn ProgressFunc) (*LoadResult, error) {
	files, err := source.ScanDir(path)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}

	result := &LoadResult{TotalFiles: len(files)}
	if len(files) == 0 {
		return result, nil
	}

	for _, pr := range parseAll(files, workers, 0, len(files), progressFn) {
		result.add(pr)
	}
	SortChronological(result.Transactions)
	return result, nil
}

func (r *LoadResult) add(pr source.ParseResult) bool {
	if pr.Err != nil {
		r.FileErrors++
		return false
	}
	r.ParsedFiles++
	r.ParseErrors += pr.ParseErrors
	r.Transactions = append(r.Transactions, pr.Transactions...)
	return true
}

// parseAll parses files on a bounded worker pool. Progress is reported as
// offset+processed of total.
func parseAll(files []source.DiscoveredFile, workers, offset, total int, progressFn ProgressFunc) []source.ParseResult {
	numWorkers := workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make([]source.ParseResult, len(files))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range files {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = source.ParseFile(files[idx])
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n)+offset, total)
				}
			}
		}()
	}

	wg.Wait()
	return results
}
