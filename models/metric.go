package models

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metric struct {
	ID          string
	Name        string
	Description string
	Type        string
	Args        []string
}

var runLabels = []string{"id", "total", "concurrency"}

var ReqCnt = &Metric{
	ID:          "reqCnt",
	Name:        "requests_total",
	Description: "How many HTTP requests were attempted in a load test.",
	Type:        "gauge_vec",
	Args:        runLabels,
}

var ReqSuccess = &Metric{
	ID:          "reqSuccess",
	Name:        "requests_successful",
	Description: "Requests answered with a 2xx status.",
	Type:        "gauge_vec",
	Args:        runLabels,
}

var ReqFailed = &Metric{
	ID:          "reqFailed",
	Name:        "requests_failed",
	Description: "Requests that failed with a non 2xx status or a transport error.",
	Type:        "gauge_vec",
	Args:        runLabels,
}

var ReqRt = &Metric{
	ID:          "reqRt",
	Name:        "requests_per_second",
	Description: "Nominal throughput of the load test.",
	Type:        "gauge_vec",
	Args:        runLabels,
}

var ReqLatMean = &Metric{
	ID:          "reqLatMean",
	Name:        "request_latencies_mean_ms",
	Description: "Average of the latencies of all requests in a load test.",
	Type:        "gauge_vec",
	Args:        runLabels,
}

var ReqLatMin = &Metric{
	ID:          "reqLatMin",
	Name:        "request_latencies_min_ms",
	Description: "Minimum latency of all requests in a load test.",
	Type:        "gauge_vec",
	Args:        runLabels,
}

var ReqLatMax = &Metric{
	ID:          "reqLatMax",
	Name:        "request_latencies_max_ms",
	Description: "Maximum latency of all requests in a load test.",
	Type:        "gauge_vec",
	Args:        runLabels,
}

var ReqLat50th = &Metric{
	ID:          "reqLat50th",
	Name:        "request_latencies_50thpercentile_ms",
	Description: "50th percentile of all requests in a load test.",
	Type:        "gauge_vec",
	Args:        runLabels,
}

var ReqLat95th = &Metric{
	ID:          "reqLat95th",
	Name:        "request_latencies_95thpercentile_ms",
	Description: "95th percentile of all requests in a load test.",
	Type:        "gauge_vec",
	Args:        runLabels,
}

var ReqLat99th = &Metric{
	ID:          "reqLat99th",
	Name:        "request_latencies_99thpercentile_ms",
	Description: "99th percentile of all requests in a load test.",
	Type:        "gauge_vec",
	Args:        runLabels,
}

var ReqStsCode = &Metric{
	ID:          "reqStsCode",
	Name:        "request_status_code",
	Description: "Responses per status code in a load test.",
	Type:        "gauge_vec",
	Args:        append(append([]string{}, runLabels...), "code"),
}

var ReqDurHist = &Metric{
	ID:          "reqDurHist",
	Name:        "request_duration_histogram",
	Description: "Latency distribution in milliseconds of every request issued, by status code.",
	Type:        "histogram_vec",
	Args:        []string{"code"},
}

var StandardMetrics = []*Metric{
	ReqCnt,
	ReqSuccess,
	ReqFailed,
	ReqRt,
	ReqLatMean,
	ReqLatMin,
	ReqLatMax,
	ReqLat50th,
	ReqLat95th,
	ReqLat99th,
	ReqStsCode,
	ReqDurHist,
}

// NewMetric associates prometheus.Collector based on Metric.Type
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	var metric prometheus.Collector
	switch m.Type {
	case "gauge_vec":
		metric = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
			m.Args,
		)
	case "histogram_vec":
		metric = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
				Buckets:   []float64{0, 20, 50, 100, 500, 1000},
			},
			m.Args,
		)
	}
	return metric
}
