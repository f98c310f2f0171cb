// Package aggregate folds per-candidate records into the scan summary
// and flushes them to the persistence collaborator in bounded batches.
package aggregate

import (
	"context"
	"fmt"

	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/engine"
)

// DefaultBatchSize bounds the size of one persistence request. A
// performance knob, not a correctness constraint.
const DefaultBatchSize = 50

// Batcher implements engine.Aggregator.
type Batcher struct {
	Store     engine.Store
	BatchSize int
	Progress  engine.ProgressReporter
}

// Flush computes the summary from the record set and writes the records
// through the store in batches. A failed batch is logged and skipped;
// partial persistence is accepted. An external stop request halts
// further batches without touching work already written.
func (b *Batcher) Flush(ctx context.Context, scanID string, recs []engine.SubdomainRecord) (engine.ScanSummary, error) {
	summary := Summarize(recs)

	if b.Store == nil {
		return summary, nil
	}

	size := b.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	var firstErr error
	for start := 0; start < len(recs); start += size {
		if stopped, _ := b.Store.Stopped(ctx, scanID); stopped {
			if b.Progress != nil {
				b.Progress.Warn("stop requested; remaining batches not persisted")
			}
			break
		}

		end := start + size
		if end > len(recs) {
			end = len(recs)
		}
		if err := b.Store.InsertRecords(ctx, scanID, recs[start:end]); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("batch %d-%d: %w", start, end, err)
			}
			if b.Progress != nil {
				b.Progress.Warn(fmt.Sprintf("persist batch %d-%d: %s", start, end, err))
			}
		}
	}

	return summary, firstErr
}

// Summarize recounts the aggregate statistics from the record set. No
// separate bookkeeping state is trusted; the counts are always
// re-derivable from the records, which eliminates drift.
func Summarize(recs []engine.SubdomainRecord) engine.ScanSummary {
	s := engine.ScanSummary{Total: len(recs)}
	for i := range recs {
		r := &recs[i]
		if r.Status == engine.StatusActive {
			s.Active++
		}
		if r.IsAnomaly {
			s.Anomalies++
		}
		if r.CloudProvider != "" {
			s.CloudAssets++
		}
		if r.TakeoverVulnerable {
			s.TakeoverVulnerable++
		}
	}
	return s
}
