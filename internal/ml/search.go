package ml

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

// SearchOptions controls the candidate fan-out.
type SearchOptions struct {
	// Workers bounds parallel evaluations; 0 uses GOMAXPROCS.
	Workers int
	// OnFailure, when set, is called for every candidate that could not be
	// trained or scored. It may be called from several goroutines.
	OnFailure func(index int, err error)
}

// SearchResult is the winning candidate of a search.
type SearchResult[P any] struct {
	Params    P
	Index     int
	Score     float64
	Evaluated int
	Failed    int
}

// Search trains every candidate with fit, scores it with score, and returns
// the candidate with the lowest score. Candidates are independent and are
// evaluated in parallel; ties go to the earliest candidate. Candidates whose
// fit or score fails, or whose score is NaN, are skipped.
func Search[P, M any](candidates []P, fit func(P) (M, error), score func(P, M) (float64, error), opts SearchOptions) (SearchResult[P], error) {
	if len(candidates) == 0 {
		return SearchResult[P]{}, fmt.Errorf("search: no candidates: %w", model.ErrInvalidConfiguration)
	}

	numWorkers := opts.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(candidates) {
		numWorkers = len(candidates)
	}

	work := make(chan int, len(candidates))
	results := make([]candidateOutcome, len(candidates))
	var wg sync.WaitGroup

	for i := range candidates {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = evaluate(candidates[idx], fit, score)
				if results[idx].err != nil && opts.OnFailure != nil {
					opts.OnFailure(idx, results[idx].err)
				}
			}
		}()
	}
	wg.Wait()

	best := SearchResult[P]{Index: -1, Score: math.Inf(1)}
	for i, r := range results {
		if r.err != nil {
			best.Failed++
			continue
		}
		best.Evaluated++
		if best.Index < 0 || r.score < best.Score {
			best.Index = i
			best.Score = r.score
			best.Params = candidates[i]
		}
	}
	if best.Index < 0 {
		return best, fmt.Errorf("search: all %d candidates failed: %w", len(candidates), model.ErrInvalidConfiguration)
	}
	return best, nil
}

type candidateOutcome struct {
	score float64
	err   error
}

func evaluate[P, M any](p P, fit func(P) (M, error), score func(P, M) (float64, error)) (out candidateOutcome) {
	m, err := fit(p)
	if err != nil {
		out.err = err
		return out
	}
	s, err := score(p, m)
	if err != nil {
		out.err = err
		return out
	}
	if math.IsNaN(s) {
		out.err = fmt.Errorf("score is NaN")
		return out
	}
	out.score = s
	return out
}
