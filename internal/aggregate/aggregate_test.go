package aggregate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/engine"
)

type fakeStore struct {
	batches   [][]engine.SubdomainRecord
	failBatch int // 1-based index of the batch that fails; 0 = never
	stopAfter int // number of batches after which Stopped flips; 0 = never
}

func (f *fakeStore) MarkRunning(ctx context.Context, scanID string) error   { return nil }
func (f *fakeStore) MarkFailed(ctx context.Context, scanID, r string) error { return nil }
func (f *fakeStore) MarkCompleted(ctx context.Context, scanID string, s engine.ScanSummary) error {
	return nil
}

func (f *fakeStore) InsertRecords(ctx context.Context, scanID string, recs []engine.SubdomainRecord) error {
	f.batches = append(f.batches, recs)
	if f.failBatch == len(f.batches) {
		return errors.New("disk full")
	}
	return nil
}

func (f *fakeStore) Stopped(ctx context.Context, scanID string) (bool, error) {
	return f.stopAfter > 0 && len(f.batches) >= f.stopAfter, nil
}

func records(n int) []engine.SubdomainRecord {
	recs := make([]engine.SubdomainRecord, n)
	for i := range recs {
		recs[i] = engine.SubdomainRecord{Name: fmt.Sprintf("h%d.example.com", i)}
	}
	return recs
}

func TestFlushBatches(t *testing.T) {
	st := &fakeStore{}
	b := &Batcher{Store: st, BatchSize: 10}

	summary, err := b.Flush(context.Background(), "s1", records(25))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Total != 25 {
		t.Errorf("total = %d, want 25", summary.Total)
	}
	if len(st.batches) != 3 {
		t.Fatalf("batches = %d, want 3", len(st.batches))
	}
	for i, want := range []int{10, 10, 5} {
		if len(st.batches[i]) != want {
			t.Errorf("batch %d size = %d, want %d", i, len(st.batches[i]), want)
		}
	}
}

func TestFlushPartialFailure(t *testing.T) {
	st := &fakeStore{failBatch: 2}
	b := &Batcher{Store: st, BatchSize: 10}

	summary, err := b.Flush(context.Background(), "s1", records(30))
	if err == nil {
		t.Fatal("expected the first batch error to be reported")
	}
	// The failed batch is skipped, not retried; later batches still run.
	if len(st.batches) != 3 {
		t.Errorf("batches = %d, want 3 (failure must not halt the flush)", len(st.batches))
	}
	// The summary reflects the full in-memory set regardless.
	if summary.Total != 30 {
		t.Errorf("total = %d, want 30", summary.Total)
	}
}

func TestFlushHonorsStop(t *testing.T) {
	st := &fakeStore{stopAfter: 1}
	b := &Batcher{Store: st, BatchSize: 10}

	_, err := b.Flush(context.Background(), "s1", records(30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(st.batches) != 1 {
		t.Errorf("batches = %d, want 1 (stop halts further persistence)", len(st.batches))
	}
}

func TestFlushWithoutStore(t *testing.T) {
	b := &Batcher{}
	summary, err := b.Flush(context.Background(), "s1", records(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Total != 5 {
		t.Errorf("total = %d, want 5", summary.Total)
	}
}

func TestSummarize(t *testing.T) {
	recs := []engine.SubdomainRecord{
		{Status: engine.StatusActive, DetectionOutcome: engine.DetectionOutcome{CloudProvider: "aws"}},
		{Status: engine.StatusActive, DetectionOutcome: engine.DetectionOutcome{IsAnomaly: true, TakeoverVulnerable: true}},
		{Status: engine.StatusInactive},
		{Status: engine.StatusInactive, DetectionOutcome: engine.DetectionOutcome{CloudProvider: "heroku", TakeoverVulnerable: true}},
	}

	s := Summarize(recs)
	if s.Total != 4 {
		t.Errorf("total = %d", s.Total)
	}
	if s.Active != 2 {
		t.Errorf("active = %d", s.Active)
	}
	if s.Anomalies != 1 {
		t.Errorf("anomalies = %d", s.Anomalies)
	}
	if s.CloudAssets != 2 {
		t.Errorf("cloud = %d", s.CloudAssets)
	}
	if s.TakeoverVulnerable != 2 {
		t.Errorf("takeover = %d", s.TakeoverVulnerable)
	}

	empty := Summarize(nil)
	if empty != (engine.ScanSummary{}) {
		t.Errorf("empty summary = %+v", empty)
	}
}
