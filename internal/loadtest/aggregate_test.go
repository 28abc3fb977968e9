package loadtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"loadtest-server/models"
)

func ok(ms int64) outcome {
	return outcome{
		RequestOutcome: models.RequestOutcome{Success: true, StatusCode: 200, ResponseTimeMs: ms},
		start:          time.Now(),
		latency:        time.Duration(ms) * time.Millisecond,
	}
}

func TestAggregatorStatistics(t *testing.T) {
	agg := newAggregator(4)
	agg.add(ok(10))
	agg.add(ok(30))
	agg.add(failed(time.Now(), 20*time.Millisecond, 500, "HTTP 500"))
	agg.add(failed(time.Now(), 0, 0, "dial tcp: connection refused"))

	res := agg.result(models.EffectiveParams{TotalRequests: 4, ConcurrentRequests: 2}, 2*time.Second)

	assert.Equal(t, 4, res.Report.TotalRequests)
	assert.Equal(t, 2, res.Report.SuccessfulRequests)
	assert.Equal(t, 2, res.Report.FailedRequests)
	assert.Equal(t, 15.0, res.Report.AverageResponseTime)
	assert.Equal(t, int64(0), res.Report.MinResponseTime)
	assert.Equal(t, int64(30), res.Report.MaxResponseTime)
	assert.Equal(t, 2.0, res.Report.RequestsPerSecond)
	assert.Equal(t, []string{"HTTP 500", "dial tcp: connection refused"}, res.Report.Errors)
	assert.Equal(t, 2, res.StatusCodes["200"])
	assert.Equal(t, 1, res.StatusCodes["500"])
}

func TestAggregatorClampsElapsed(t *testing.T) {
	agg := newAggregator(3)
	for i := 0; i < 3; i++ {
		agg.add(ok(0))
	}

	res := agg.result(models.EffectiveParams{TotalRequests: 3, ConcurrentRequests: 3}, 0)

	assert.Equal(t, 3000.0, res.Report.RequestsPerSecond)
	assert.Equal(t, minElapsed, res.Elapsed)
}

func TestAggregatorKeepsFirstErrors(t *testing.T) {
	agg := newAggregator(30)
	for i := 0; i < 30; i++ {
		msg := "HTTP 503"
		if i == 0 {
			msg = "HTTP 500"
		}
		agg.add(failed(time.Now(), time.Millisecond, 503, msg))
	}

	res := agg.result(models.EffectiveParams{TotalRequests: 30, ConcurrentRequests: 5}, time.Second)

	assert.Len(t, res.Report.Errors, MaxReportedErrors)
	assert.Equal(t, "HTTP 500", res.Report.Errors[0])
	assert.Equal(t, 30, res.Report.FailedRequests)
}
