package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/a3tai/mcp-exam-reader/internal/exam"
)

// Batch failure policies.
const (
	PolicyContinue = "continue"
	PolicyHalt     = "halt"
)

// Processor is what a batch runs per FileSet.
type Processor interface {
	Process(ctx context.Context, fs exam.FileSet) (*Report, error)
}

// BatchResult holds one report per FileSet in input order. Sets that never
// started because the batch halted have a nil report.
type BatchResult struct {
	Reports   []*Report
	Succeeded int
	Failed    int
	Skipped   int
}

// Batch runs FileSets concurrently with a bounded worker count.
type Batch struct {
	processor   Processor
	concurrency int
	policy      string
}

// NewBatch creates a batch controller. Concurrency below 1 means 1.
func NewBatch(processor Processor, concurrency int, policy string) (*Batch, error) {
	if policy == "" {
		policy = PolicyContinue
	}
	if policy != PolicyContinue && policy != PolicyHalt {
		return nil, fmt.Errorf("unknown batch policy %q (expected %s or %s)", policy, PolicyContinue, PolicyHalt)
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Batch{processor: processor, concurrency: concurrency, policy: policy}, nil
}

// Run processes every set. Under the continue policy failures are recorded
// and the batch goes on; the returned error is nil unless ctx was cancelled.
// Under the halt policy the first failure cancels the remaining sets and is
// returned.
func (b *Batch) Run(ctx context.Context, sets []exam.FileSet) (*BatchResult, error) {
	result := &BatchResult{Reports: make([]*Report, len(sets))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	var mu sync.Mutex
	for i, fs := range sets {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			report, err := b.processor.Process(gctx, fs)
			if report == nil {
				report = &Report{Key: fs.Key, Subject: fs.Subject}
				if err != nil {
					report.fail(err)
				}
			}

			mu.Lock()
			result.Reports[i] = report
			if err == nil {
				result.Succeeded++
			} else {
				result.Failed++
			}
			mu.Unlock()

			if err == nil {
				return nil
			}
			log.Printf("[Batch] %s failed: %v", fs.Name(), err)
			if b.policy == PolicyHalt {
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	for _, r := range result.Reports {
		if r == nil {
			result.Skipped++
		}
	}
	log.Printf("[Batch] %d sets: %d succeeded, %d failed, %d skipped",
		len(sets), result.Succeeded, result.Failed, result.Skipped)

	if err != nil {
		return result, err
	}
	return result, ctx.Err()
}
