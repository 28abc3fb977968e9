package models

import "time"

// RunStatus captures the lifecycle of a load test run
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// LoadTestParams is the caller supplied configuration of a load test.
// Nil counts fall back to the engine defaults.
type LoadTestParams struct {
	URL                string `json:"url" yaml:"url"`
	TotalRequests      *int   `json:"totalRequests,omitempty" yaml:"totalRequests,omitempty"`
	ConcurrentRequests *int   `json:"concurrentRequests,omitempty" yaml:"concurrentRequests,omitempty"`
}

// EffectiveParams holds the request counts after clamping
type EffectiveParams struct {
	URL                string `json:"url"`
	TotalRequests      int    `json:"totalRequests"`
	ConcurrentRequests int    `json:"concurrentRequests"`
}

// RequestOutcome is the result of a single GET issued by the engine
type RequestOutcome struct {
	Success        bool   `json:"success"`
	StatusCode     int    `json:"statusCode,omitempty"`
	ResponseTimeMs int64  `json:"responseTimeMs"`
	Error          string `json:"error,omitempty"`
}

// LatencyPercentiles are computed over all outcomes of a run, in milliseconds
type LatencyPercentiles struct {
	P50th float64 `json:"50th"`
	P95th float64 `json:"95th"`
	P99th float64 `json:"99th"`
	Max   float64 `json:"max"`
}

// RunRecord is the persisted view of a single load test invocation
type RunRecord struct {
	ID          string             `json:"id"`
	Params      EffectiveParams    `json:"params"`
	Status      RunStatus          `json:"status"`
	StartedAt   time.Time          `json:"startedAt"`
	CompletedAt *time.Time         `json:"completedAt,omitempty"`
	Batches     int                `json:"batches,omitempty"`
	Report      *LoadTestReport    `json:"report,omitempty"`
	Latencies   LatencyPercentiles `json:"latencies"`
	StatusCodes map[string]int     `json:"statusCodes,omitempty"`
	Failure     string             `json:"failure,omitempty"`
}

// LoadTestBaseInfo is the summary used when listing runs
type LoadTestBaseInfo struct {
	ID string `json:"id,omitempty"`
	// Params captures the effective load test parameters
	Params EffectiveParams `json:"params,omitempty"`
	Status RunStatus       `json:"status"`
}

// FilterParams are the query filters supported when listing runs
type FilterParams map[string]string

// Format selects how a stored report is rendered
type Format string

const (
	JSONFormat Format = "json"
	TextFormat Format = "text"
)

// NewFormat parses a format name, defaulting to JSON
func NewFormat(name string) Format {
	switch Format(name) {
	case TextFormat:
		return TextFormat
	default:
		return JSONFormat
	}
}
