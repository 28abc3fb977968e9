package endpoints

import (
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"loadtest-server/models"
)

type Prometheus struct {
	registry *prometheus.Registry

	reqCnt, reqSuccess, reqFailed, reqRt *prometheus.GaugeVec
	reqLatMean, reqLatMin, reqLatMax     *prometheus.GaugeVec
	reqLat50th, reqLat95th, reqLat99th   *prometheus.GaugeVec
	reqStsCode                           *prometheus.GaugeVec
	reqDurHist                           *prometheus.HistogramVec

	MetricsList []*models.Metric
}

// NewPrometheus registers the standard load test metrics on a private registry
func NewPrometheus(subsystem string) *Prometheus {
	metricsList := make([]*models.Metric, 0, len(models.StandardMetrics))
	metricsList = append(metricsList, models.StandardMetrics...)

	p := &Prometheus{
		registry:    prometheus.NewRegistry(),
		MetricsList: metricsList,
	}

	p.registerMetrics(subsystem)

	return p
}

// HandlerFunc refreshes the gauges from completed runs and serves them
func (e *Endpoints) HandlerFunc(p *Prometheus) gin.HandlerFunc {
	h := promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})

	return func(c *gin.Context) {
		runs := e.dispatcher.ListIds(models.FilterParams{"status": string(models.RunCompleted)})
		known := make(map[string]bool, len(runs))
		for _, run := range runs {
			known[run.ID] = true
		}

		for _, raw := range e.reporter.GetAll() {
			var rec models.RunRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				e.log.WithError(err).Warn("Skipping undecodable run record")
				continue
			}
			if !known[rec.ID] || rec.Report == nil {
				continue
			}
			p.observe(&rec)
		}

		h.ServeHTTP(c.Writer, c.Request)
	}
}

func (p *Prometheus) observe(rec *models.RunRecord) {
	labels := []string{
		rec.ID,
		strconv.Itoa(rec.Params.TotalRequests),
		strconv.Itoa(rec.Params.ConcurrentRequests),
	}
	rep := rec.Report

	p.reqCnt.WithLabelValues(labels...).Set(float64(rep.TotalRequests))
	p.reqSuccess.WithLabelValues(labels...).Set(float64(rep.SuccessfulRequests))
	p.reqFailed.WithLabelValues(labels...).Set(float64(rep.FailedRequests))
	p.reqRt.WithLabelValues(labels...).Set(rep.RequestsPerSecond)
	p.reqLatMean.WithLabelValues(labels...).Set(rep.AverageResponseTime)
	p.reqLatMin.WithLabelValues(labels...).Set(float64(rep.MinResponseTime))
	p.reqLatMax.WithLabelValues(labels...).Set(float64(rep.MaxResponseTime))
	p.reqLat50th.WithLabelValues(labels...).Set(rec.Latencies.P50th)
	p.reqLat95th.WithLabelValues(labels...).Set(rec.Latencies.P95th)
	p.reqLat99th.WithLabelValues(labels...).Set(rec.Latencies.P99th)
	for code, count := range rec.StatusCodes {
		p.reqStsCode.WithLabelValues(append(labels, code)...).Set(float64(count))
	}
}

// ObserveRequest feeds a single request outcome into the latency histogram
func (p *Prometheus) ObserveRequest(o models.RequestOutcome) {
	if p.reqDurHist == nil {
		return
	}
	p.reqDurHist.WithLabelValues(strconv.Itoa(o.StatusCode)).Observe(float64(o.ResponseTimeMs))
}

func (p *Prometheus) registerMetrics(subsystem string) {

	for _, metricDef := range p.MetricsList {
		metric := models.NewMetric(metricDef, subsystem)
		if err := p.registry.Register(metric); err != nil {
			logrus.WithError(err).WithField("metric", metricDef.Name).Error("Failed to register metric")
			continue
		}
		switch metricDef {
		case models.ReqCnt:
			p.reqCnt = metric.(*prometheus.GaugeVec)
		case models.ReqSuccess:
			p.reqSuccess = metric.(*prometheus.GaugeVec)
		case models.ReqFailed:
			p.reqFailed = metric.(*prometheus.GaugeVec)
		case models.ReqRt:
			p.reqRt = metric.(*prometheus.GaugeVec)
		case models.ReqLatMean:
			p.reqLatMean = metric.(*prometheus.GaugeVec)
		case models.ReqLatMin:
			p.reqLatMin = metric.(*prometheus.GaugeVec)
		case models.ReqLatMax:
			p.reqLatMax = metric.(*prometheus.GaugeVec)
		case models.ReqLat50th:
			p.reqLat50th = metric.(*prometheus.GaugeVec)
		case models.ReqLat95th:
			p.reqLat95th = metric.(*prometheus.GaugeVec)
		case models.ReqLat99th:
			p.reqLat99th = metric.(*prometheus.GaugeVec)
		case models.ReqStsCode:
			p.reqStsCode = metric.(*prometheus.GaugeVec)
		case models.ReqDurHist:
			p.reqDurHist = metric.(*prometheus.HistogramVec)
		}
	}
}
