package loadtest

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"loadtest-server/models"
)

const (
	// HardMaxTotalRequests and HardMaxConcurrentRequests bound every run,
	// whatever the caller or the configuration asks for.
	HardMaxTotalRequests      = 500
	HardMaxConcurrentRequests = 25

	DefaultTotalRequests      = 100
	DefaultConcurrentRequests = 10

	DefaultRequestTimeout = 30 * time.Second
	DefaultUserAgent      = "LoadTester/1.0"

	TCPDialTimeout      = 5 * time.Second
	TLSHandshakeTimeout = 5 * time.Second
	IdleConnTimeout     = 90 * time.Second

	// minElapsed is the smallest wall clock duration throughput is divided by
	minElapsed = time.Millisecond
)

// Engine issues bounded-concurrency GET load against a single URL.
// It keeps no state between runs and is safe for concurrent use.
type Engine struct {
	client         *http.Client
	timeout        time.Duration
	userAgent      string
	maxTotal       int
	maxConcurrency int
	observe        func(models.RequestOutcome)
	log            *logrus.Entry
}

// Option configures an Engine
type Option func(*Engine)

// WithHTTPClient replaces the client built by NewEngine. Its timeout is left untouched.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) {
		e.client = client
	}
}

// WithRequestTimeout bounds every individual request
func WithRequestTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// WithUserAgent overrides the User-Agent header sent with every request
func WithUserAgent(userAgent string) Option {
	return func(e *Engine) {
		if userAgent != "" {
			e.userAgent = userAgent
		}
	}
}

// WithCeilings lowers the request ceilings. Values above the hard maxima are ignored.
func WithCeilings(maxTotal, maxConcurrency int) Option {
	return func(e *Engine) {
		if maxTotal > 0 && maxTotal < e.maxTotal {
			e.maxTotal = maxTotal
		}
		if maxConcurrency > 0 && maxConcurrency < e.maxConcurrency {
			e.maxConcurrency = maxConcurrency
		}
	}
}

// WithObserver registers fn to receive every request outcome of runs that
// were not cancelled. fn is called from a single goroutine per run.
func WithObserver(fn func(models.RequestOutcome)) Option {
	return func(e *Engine) {
		e.observe = fn
	}
}

// WithLogger sets the logger runs are reported to
func WithLogger(log *logrus.Entry) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// NewEngine creates an engine with the hard ceilings and a pooled HTTP client
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		timeout:        DefaultRequestTimeout,
		userAgent:      DefaultUserAgent,
		maxTotal:       HardMaxTotalRequests,
		maxConcurrency: HardMaxConcurrentRequests,
		log:            logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		e.client = newHTTPClient(e.maxConcurrency, e.timeout)
	}
	return e
}

func newHTTPClient(conns int, timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        conns,
		MaxIdleConnsPerHost: conns,
		IdleConnTimeout:     IdleConnTimeout,
		DialContext: (&net.Dialer{
			Timeout:   TCPDialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: TLSHandshakeTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// Result is everything a single run produced
type Result struct {
	Params      models.EffectiveParams
	Report      models.LoadTestReport
	Latencies   models.LatencyPercentiles
	StatusCodes map[string]int
	Batches     int
	Elapsed     time.Duration
}

// Normalize applies defaults and ceilings to p and validates the outcome
func (e *Engine) Normalize(p models.LoadTestParams) (models.EffectiveParams, error) {
	if p.URL == "" {
		return models.EffectiveParams{}, invalidInput("url is required")
	}

	total := DefaultTotalRequests
	if p.TotalRequests != nil {
		total = *p.TotalRequests
	}
	total = min(total, e.maxTotal)
	if total < 1 {
		return models.EffectiveParams{}, invalidInput("totalRequests must be at least 1")
	}

	concurrency := DefaultConcurrentRequests
	if p.ConcurrentRequests != nil {
		concurrency = *p.ConcurrentRequests
	}
	concurrency = min(concurrency, e.maxConcurrency)
	if concurrency < 1 {
		return models.EffectiveParams{}, invalidInput("concurrentRequests must be at least 1")
	}

	return models.EffectiveParams{
		URL:                p.URL,
		TotalRequests:      total,
		ConcurrentRequests: min(concurrency, total),
	}, nil
}

// Run executes a load test. Requests are issued in sequential batches of at
// most ConcurrentRequests and every batch is fully drained before the next
// one starts. Failed requests are folded into the report and never abort
// the run; only invalid input is returned as an error.
func (e *Engine) Run(ctx context.Context, p models.LoadTestParams) (*Result, error) {
	params, err := e.Normalize(p)
	if err != nil {
		return nil, err
	}

	log := e.log.WithFields(logrus.Fields{
		"url":         params.URL,
		"total":       params.TotalRequests,
		"concurrency": params.ConcurrentRequests,
	})
	log.Info("Starting load test")

	agg := newAggregator(params.TotalRequests)
	start := time.Now()
	batches := 0
	for issued := 0; issued < params.TotalRequests; {
		size := min(params.ConcurrentRequests, params.TotalRequests-issued)
		for _, o := range e.runBatch(ctx, params.URL, size) {
			agg.add(o)
			if e.observe != nil && ctx.Err() == nil {
				e.observe(o.RequestOutcome)
			}
		}
		issued += size
		batches++
		log.WithFields(logrus.Fields{
			"batch":  batches,
			"issued": issued,
		}).Debug("Batch completed")
	}
	elapsed := time.Since(start)

	res := agg.result(params, elapsed)
	res.Batches = batches

	log.WithFields(logrus.Fields{
		"successful": res.Report.SuccessfulRequests,
		"failed":     res.Report.FailedRequests,
		"rps":        fmt.Sprintf("%.2f", res.Report.RequestsPerSecond),
		"elapsed":    elapsed,
	}).Info("Load test completed")

	return res, nil
}

// runBatch issues size concurrent requests and returns once all of them
// settled. Outcomes are indexed in issuance order.
func (e *Engine) runBatch(ctx context.Context, url string, size int) []outcome {
	outcomes := make([]outcome, size)

	var g errgroup.Group
	for i := 0; i < size; i++ {
		i := i
		g.Go(func() error {
			outcomes[i] = e.do(ctx, url)
			return nil
		})
	}
	// requests report failures as outcomes, Wait is only the batch barrier
	_ = g.Wait()

	return outcomes
}

// outcome is a RequestOutcome plus the raw timing used for percentiles
type outcome struct {
	models.RequestOutcome
	start   time.Time
	latency time.Duration
}

func (e *Engine) do(ctx context.Context, url string) outcome {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return failed(start, time.Since(start), 0, err.Error())
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return failed(start, latency, 0, err.Error())
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failed(start, latency, resp.StatusCode, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	return outcome{
		RequestOutcome: models.RequestOutcome{
			Success:        true,
			StatusCode:     resp.StatusCode,
			ResponseTimeMs: latency.Milliseconds(),
		},
		start:   start,
		latency: latency,
	}
}

func failed(start time.Time, latency time.Duration, code int, msg string) outcome {
	return outcome{
		RequestOutcome: models.RequestOutcome{
			StatusCode:     code,
			ResponseTimeMs: latency.Milliseconds(),
			Error:          msg,
		},
		start:   start,
		latency: latency,
	}
}
