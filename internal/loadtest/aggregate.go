package loadtest

import (
	"time"

	vegeta "github.com/tsenart/vegeta/lib"

	"loadtest-server/models"
)

// MaxReportedErrors bounds the error log kept in a report
const MaxReportedErrors = 20

// aggregator folds outcomes into report statistics. It is fed from a single
// goroutine, in batch order then issuance order.
type aggregator struct {
	count      int
	successful int
	sumMs      int64
	minMs      int64
	maxMs      int64
	errors     []string
	metrics    vegeta.Metrics
}

func newAggregator(expected int) *aggregator {
	return &aggregator{
		minMs:  -1,
		maxMs:  -1,
		errors: make([]string, 0, min(expected, MaxReportedErrors)),
	}
}

func (a *aggregator) add(o outcome) {
	a.count++
	a.sumMs += o.ResponseTimeMs

	if a.minMs == -1 || o.ResponseTimeMs < a.minMs {
		a.minMs = o.ResponseTimeMs
	}
	if a.maxMs == -1 || o.ResponseTimeMs > a.maxMs {
		a.maxMs = o.ResponseTimeMs
	}

	if o.Success {
		a.successful++
	} else if len(a.errors) < MaxReportedErrors {
		a.errors = append(a.errors, o.Error)
	}

	a.metrics.Add(&vegeta.Result{
		Code:      uint16(o.StatusCode),
		Timestamp: o.start,
		Latency:   o.latency,
		Error:     o.Error,
	})
}

func (a *aggregator) average() float64 {
	if a.count == 0 {
		return 0
	}
	return float64(a.sumMs) / float64(a.count)
}

func orZero(v int64) int64 {
	if v == -1 {
		return 0
	}
	return v
}

// result builds the final report. Throughput is nominal: the effective total
// divided by the wall clock time of the whole run.
func (a *aggregator) result(params models.EffectiveParams, elapsed time.Duration) *Result {
	a.metrics.Close()

	if elapsed < minElapsed {
		elapsed = minElapsed
	}

	return &Result{
		Params: params,
		Report: models.LoadTestReport{
			TotalRequests:       params.TotalRequests,
			SuccessfulRequests:  a.successful,
			FailedRequests:      params.TotalRequests - a.successful,
			AverageResponseTime: a.average(),
			MinResponseTime:     orZero(a.minMs),
			MaxResponseTime:     orZero(a.maxMs),
			RequestsPerSecond:   float64(params.TotalRequests) / elapsed.Seconds(),
			Errors:              a.errors,
		},
		Latencies: models.LatencyPercentiles{
			P50th: toMs(a.metrics.Latencies.P50),
			P95th: toMs(a.metrics.Latencies.P95),
			P99th: toMs(a.metrics.Latencies.P99),
			Max:   toMs(a.metrics.Latencies.Max),
		},
		StatusCodes: a.metrics.StatusCodes,
		Elapsed:     elapsed,
	}
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
