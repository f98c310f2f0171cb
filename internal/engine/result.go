// Package engine orchestrates the CyberEye reconnaissance pipeline.
package engine

import (
	"context"
	"time"
)

// Options are the per-scan feature toggles. Each is independent; a
// disabled source or heuristic contributes nothing instead of failing.
type Options struct {
	CTLookup           bool `json:"ct_lookup" yaml:"ct_lookup"`
	WordlistBruteforce bool `json:"wordlist_bruteforce" yaml:"wordlist_bruteforce"`
	HTTPProbe          bool `json:"http_probe" yaml:"http_probe"`
	TechFingerprint    bool `json:"tech_fingerprint" yaml:"tech_fingerprint"`
	TakeoverCheck      bool `json:"takeover_check" yaml:"takeover_check"`
}

// DefaultOptions enables every pipeline feature.
func DefaultOptions() Options {
	return Options{
		CTLookup:           true,
		WordlistBruteforce: true,
		HTTPProbe:          true,
		TechFingerprint:    true,
		TakeoverCheck:      true,
	}
}

// ScanRequest identifies one pipeline invocation. Immutable once created.
type ScanRequest struct {
	ScanID       string  `json:"scan_id"`
	TargetDomain string  `json:"target_domain"`
	Options      Options `json:"options"`
}

// Candidate is a fully-qualified subdomain name not yet confirmed to
// exist, plus the sources that proposed it (wordlist, permutation, ct).
type Candidate struct {
	Name    string   `json:"name"`
	Sources []string `json:"sources"`
}

// ResolutionResult holds the DNS answer for a candidate. Only public IPs
// are retained. An empty IP set with no CNAME means the name has no DNS
// presence and the candidate is dropped.
type ResolutionResult struct {
	IPs   []string `json:"ips,omitempty"`
	CNAME string   `json:"cname,omitempty"`
}

// Exists reports whether the name has any DNS presence worth keeping.
func (r *ResolutionResult) Exists() bool {
	return r != nil && (len(r.IPs) > 0 || r.CNAME != "")
}

// ProbeResult holds the HTTP/HTTPS probe outcome for a candidate.
// A status of 0 means that protocol produced no data (connection failure
// or timeout); real HTTP statuses are never 0. The raw headers, cookie
// names and body sample are retained for the detection heuristics and
// are not serialized.
type ProbeResult struct {
	HTTPStatus  int    `json:"http_status,omitempty"`
	HTTPSStatus int    `json:"https_status,omitempty"`
	Server      string `json:"server,omitempty"`

	Headers    map[string]string `json:"-"`
	Cookies    []string          `json:"-"`
	BodySample string            `json:"-"`
}

// DetectionOutcome is the combined output of the pure heuristics.
type DetectionOutcome struct {
	CloudProvider      string `json:"cloud_provider,omitempty"`
	IsAnomaly          bool   `json:"is_anomaly"`
	AnomalyReason      string `json:"anomaly_reason,omitempty"`
	TakeoverVulnerable bool   `json:"takeover_vulnerable"`
	TakeoverType       string `json:"takeover_type,omitempty"`
	TakeoverVerified   bool   `json:"takeover_verified"`
}

// Subdomain activity states.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// SubdomainRecord is the final per-candidate entity handed to the
// persistence collaborator. One record per surviving candidate, scoped
// to a single scan.
type SubdomainRecord struct {
	ScanID  string   `json:"scan_id"`
	Name    string   `json:"name"`
	Sources []string `json:"sources"`

	IPs   []string `json:"ips,omitempty"`
	CNAME string   `json:"cname,omitempty"`

	HTTPStatus   int      `json:"http_status,omitempty"`
	HTTPSStatus  int      `json:"https_status,omitempty"`
	Server       string   `json:"server,omitempty"`
	Technologies []string `json:"technologies,omitempty"`

	DetectionOutcome

	// ExposedPorts feeds the port term of the risk scorer. No port data
	// source exists in the pipeline, so it stays empty until one does.
	ExposedPorts []int `json:"exposed_ports,omitempty"`

	RiskScore int    `json:"risk_score"`
	Status    string `json:"status"`

	HistoricalURLs []string `json:"historical_urls,omitempty"`

	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// Active evaluates the activity predicate over the probe statuses.
func Active(httpStatus, httpsStatus int) bool {
	if httpStatus == 200 || httpsStatus == 200 {
		return true
	}
	return httpsStatus != 0 && httpsStatus < 500
}

// ScanSummary holds the aggregate counts for a scan. It is always
// recomputed from the record set, never maintained incrementally.
type ScanSummary struct {
	Total              int `json:"total"`
	Active             int `json:"active"`
	Anomalies          int `json:"anomalies"`
	CloudAssets        int `json:"cloud_assets"`
	TakeoverVulnerable int `json:"takeover_vulnerable"`
}

// ScanResult is the full in-memory output of one pipeline run.
type ScanResult struct {
	ScanID       string            `json:"scan_id"`
	Target       string            `json:"target"`
	StartedAt    time.Time         `json:"started_at"`
	CompletedAt  time.Time         `json:"completed_at"`
	DurationSecs float64           `json:"duration_secs"`
	Records      []SubdomainRecord `json:"records"`
	Summary      ScanSummary       `json:"summary"`
	Warnings     []string          `json:"warnings,omitempty"`
}

// Validator rejects target domains that could steer the prober at
// internal infrastructure. Runs before any network activity.
type Validator interface {
	Validate(domain string) error
}

// CandidateGenerator produces the deduplicated candidate set for a domain.
type CandidateGenerator interface {
	Generate(ctx context.Context, domain string, opts Options) ([]Candidate, error)
}

// Resolver resolves a candidate name to public IPs and a CNAME.
// A name with no DNS presence returns a result for which Exists() is
// false; that is not an error.
type Resolver interface {
	Resolve(ctx context.Context, name string) (*ResolutionResult, error)
}

// Prober performs the HTTPS-first, HTTP-fallback probe of a candidate.
// Probe failures degrade to a zero-valued result, never an error that
// aborts the candidate.
type Prober interface {
	Probe(ctx context.Context, name string) *ProbeResult
}

// Detector runs the pure heuristics over already-collected data.
type Detector interface {
	Detect(name, domain string, res *ResolutionResult, pr *ProbeResult, opts Options) DetectionOutcome
	Technologies(pr *ProbeResult) []string
}

// Scorer computes the deterministic 0-100 risk score for a record.
type Scorer interface {
	Score(rec *SubdomainRecord) int
}

// Archiver annotates an active subdomain with historical URLs.
// Best-effort: failures return nil.
type Archiver interface {
	Annotate(ctx context.Context, name string) []string
}

// Store is the persistence collaborator. The engine marks scan state
// transitions through it and hands over records in batches.
type Store interface {
	MarkRunning(ctx context.Context, scanID string) error
	MarkCompleted(ctx context.Context, scanID string, summary ScanSummary) error
	MarkFailed(ctx context.Context, scanID string, reason string) error
	InsertRecords(ctx context.Context, scanID string, recs []SubdomainRecord) error
	Stopped(ctx context.Context, scanID string) (bool, error)
}

// Aggregator folds surviving records into a summary and flushes them to
// the persistence collaborator in batches.
type Aggregator interface {
	Flush(ctx context.Context, scanID string, recs []SubdomainRecord) (ScanSummary, error)
}

// ProgressReporter is called by the engine to report stage progress.
type ProgressReporter interface {
	Stage(num, total int, msg string)
	Detail(msg string)
	Warn(msg string)
}
