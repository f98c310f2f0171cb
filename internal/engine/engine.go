package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInternal is the only error surfaced to callers for unexpected
// faults. Full detail stays on the server side.
var ErrInternal = errors.New("scan failed due to an internal error")

// Config holds the runtime configuration for one pipeline run.
type Config struct {
	Workers int // bounded worker pool size
}

// Stages holds the injectable stage implementations.
type Stages struct {
	Validator  Validator
	Generator  CandidateGenerator
	Resolver   Resolver
	Prober     Prober
	Detector   Detector
	Scorer     Scorer
	Archiver   Archiver
	Aggregator Aggregator
	Store      Store
}

const (
	totalStages    = 4
	defaultWorkers = 10
)

// Run executes the full pipeline for one scan request: validation,
// candidate generation, concurrency-bounded resolution/probing with
// detection and scoring inside each worker, then aggregation and
// persistence. Unexpected panics are reported to the caller as
// ErrInternal; the scan row is marked failed with the real detail.
func Run(ctx context.Context, req ScanRequest, cfg Config, stages Stages, progress ProgressReporter) (result *ScanResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			detail := fmt.Sprintf("panic: %v", r)
			progress.Warn(detail)
			if stages.Store != nil {
				_ = stages.Store.MarkFailed(ctx, req.ScanID, detail)
			}
			result, err = nil, ErrInternal
		}
	}()

	// Validation runs before anything touches the network.
	progress.Stage(1, totalStages, fmt.Sprintf("Validating target %s...", req.TargetDomain))
	if verr := stages.Validator.Validate(req.TargetDomain); verr != nil {
		if stages.Store != nil {
			_ = stages.Store.MarkFailed(ctx, req.ScanID, verr.Error())
		}
		return nil, fmt.Errorf("target rejected: %w", verr)
	}

	if stages.Store != nil {
		if serr := stages.Store.MarkRunning(ctx, req.ScanID); serr != nil {
			progress.Warn(fmt.Sprintf("store: %s", serr))
		}
	}

	result = &ScanResult{
		ScanID:    req.ScanID,
		Target:    req.TargetDomain,
		StartedAt: time.Now(),
	}

	progress.Stage(2, totalStages, "Generating candidates...")
	candidates, gerr := stages.Generator.Generate(ctx, req.TargetDomain, req.Options)
	if gerr != nil {
		// Source failures are degraded inside the generator; an error
		// here means every source was disabled.
		if stages.Store != nil {
			_ = stages.Store.MarkFailed(ctx, req.ScanID, gerr.Error())
		}
		return nil, fmt.Errorf("candidate generation: %w", gerr)
	}
	progress.Detail(fmt.Sprintf("%d unique candidates", len(candidates)))

	workers := cfg.Workers
	if workers < 1 {
		workers = defaultWorkers
	}
	progress.Stage(3, totalStages, fmt.Sprintf("Probing %d candidates (%d workers)...", len(candidates), workers))
	records := runWorkers(ctx, req, candidates, workers, stages, progress)
	progress.Detail(fmt.Sprintf("%d candidates have DNS presence", len(records)))

	progress.Stage(4, totalStages, "Aggregating results...")
	summary, aerr := stages.Aggregator.Flush(ctx, req.ScanID, records)
	if aerr != nil {
		// Partial persistence is accepted; the summary still reflects
		// the full in-memory record set.
		progress.Warn(fmt.Sprintf("persistence: %s", aerr))
		result.Warnings = append(result.Warnings, fmt.Sprintf("persistence: %s", aerr))
	}

	result.Records = records
	result.Summary = summary
	result.CompletedAt = time.Now()
	result.DurationSecs = result.CompletedAt.Sub(result.StartedAt).Seconds()

	if stages.Store != nil {
		stopped, _ := stages.Store.Stopped(ctx, req.ScanID)
		if stopped {
			// An external stop already set the terminal state; the
			// completed transition must not overwrite it.
			result.Warnings = append(result.Warnings, "scan was stopped externally; results partially persisted")
			return result, nil
		}
		if serr := stages.Store.MarkCompleted(ctx, req.ScanID, summary); serr != nil {
			progress.Warn(fmt.Sprintf("store: %s", serr))
		}
	}

	return result, nil
}

// runWorkers drains the candidate set through a fixed pool. Each worker
// carries one candidate through resolve, probe, detect and score before
// taking the next; there is no sub-task handoff between workers.
func runWorkers(ctx context.Context, req ScanRequest, candidates []Candidate, workers int, stages Stages, progress ProgressReporter) []SubdomainRecord {
	work := make(chan Candidate, len(candidates))
	for _, c := range candidates {
		work <- c
	}
	close(work)

	var (
		mu       sync.Mutex
		records  []SubdomainRecord
		panicked any
	)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// A panic inside a worker must surface on the coordinating
			// goroutine, where Run's recover turns it into ErrInternal.
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					if panicked == nil {
						panicked = r
					}
					mu.Unlock()
				}
			}()
			for cand := range work {
				select {
				case <-ctx.Done():
					return
				default:
				}

				rec, ok := processCandidate(ctx, req, cand, stages, progress)
				if !ok {
					continue
				}
				mu.Lock()
				records = append(records, rec)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if panicked != nil {
		panic(panicked)
	}
	return records
}

// processCandidate executes the full per-candidate pipeline. A false
// return means the candidate has no DNS presence and produces no record.
func processCandidate(ctx context.Context, req ScanRequest, cand Candidate, stages Stages, progress ProgressReporter) (SubdomainRecord, bool) {
	res, err := stages.Resolver.Resolve(ctx, cand.Name)
	if err != nil {
		// Resolver trouble degrades to "no presence" for this candidate.
		progress.Detail(fmt.Sprintf("resolve %s: %s", cand.Name, err))
		return SubdomainRecord{}, false
	}
	if !res.Exists() {
		return SubdomainRecord{}, false
	}

	var pr *ProbeResult
	if req.Options.HTTPProbe {
		pr = stages.Prober.Probe(ctx, cand.Name)
	}

	now := time.Now().UTC()
	rec := SubdomainRecord{
		ScanID:    req.ScanID,
		Name:      cand.Name,
		Sources:   cand.Sources,
		IPs:       res.IPs,
		CNAME:     res.CNAME,
		FirstSeen: now,
		LastSeen:  now,
	}
	if pr != nil {
		rec.HTTPStatus = pr.HTTPStatus
		rec.HTTPSStatus = pr.HTTPSStatus
		rec.Server = pr.Server
	}

	rec.DetectionOutcome = stages.Detector.Detect(cand.Name, req.TargetDomain, res, pr, req.Options)
	if req.Options.TechFingerprint && pr != nil {
		rec.Technologies = stages.Detector.Technologies(pr)
	}

	rec.Status = StatusInactive
	if Active(rec.HTTPStatus, rec.HTTPSStatus) {
		rec.Status = StatusActive
	}

	if rec.Status == StatusActive && stages.Archiver != nil {
		rec.HistoricalURLs = stages.Archiver.Annotate(ctx, cand.Name)
	}

	rec.RiskScore = stages.Scorer.Score(&rec)
	return rec, true
}
