// Package reporter renders stored load test runs.
package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/pkg/errors"

	"loadtest-server/internal/store"
	"loadtest-server/models"
)

// IReporter reads run records in API friendly encodings
type IReporter interface {
	GetAll() [][]byte
	GetInFormat(id string, format models.Format) ([]byte, error)
}

type reporter struct {
	store store.Store
}

func NewReporter(st store.Store) IReporter {
	return &reporter{store: st}
}

// GetAll returns the JSON encoded records of every completed run
func (r *reporter) GetAll() [][]byte {
	recs, err := r.store.GetAll()
	if err != nil {
		return nil
	}
	result := make([][]byte, 0, len(recs))
	for _, rec := range recs {
		if rec.Status != models.RunCompleted {
			continue
		}
		data, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		result = append(result, data)
	}
	return result
}

func (r *reporter) GetInFormat(id string, format models.Format) ([]byte, error) {
	rec, err := r.store.Get(id)
	if err != nil {
		return nil, err
	}

	switch format {
	case models.TextFormat:
		return text(rec)
	default:
		data, err := json.Marshal(rec)
		return data, errors.Wrap(err, "failed to encode report")
	}
}

func text(rec *models.RunRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 8, 2, ' ', tabwriter.StripEscape)

	fmt.Fprintf(w, "ID\t%s\n", rec.ID)
	fmt.Fprintf(w, "Target\t%s\n", rec.Params.URL)
	fmt.Fprintf(w, "Status\t%s\n", rec.Status)
	fmt.Fprintf(w, "Requests\t[total, concurrency, batches]\t%d, %d, %d\n",
		rec.Params.TotalRequests, rec.Params.ConcurrentRequests, rec.Batches)

	if rec.Report != nil {
		rep := rec.Report
		fmt.Fprintf(w, "Outcome\t[successful, failed]\t%d, %d\n", rep.SuccessfulRequests, rep.FailedRequests)
		fmt.Fprintf(w, "Throughput\t[requests/s]\t%.2f\n", rep.RequestsPerSecond)
		fmt.Fprintf(w, "Latencies (ms)\t[min, mean, 50, 95, 99, max]\t%d, %.2f, %.2f, %.2f, %.2f, %d\n",
			rep.MinResponseTime, rep.AverageResponseTime,
			rec.Latencies.P50th, rec.Latencies.P95th, rec.Latencies.P99th,
			rep.MaxResponseTime)

		codes := make([]string, 0, len(rec.StatusCodes))
		for code := range rec.StatusCodes {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		fmt.Fprintf(w, "Status Codes\t[code:count]\t")
		for _, code := range codes {
			fmt.Fprintf(w, "%s:%d  ", code, rec.StatusCodes[code])
		}
		fmt.Fprintln(w)

		fmt.Fprintln(w, "Error Set:")
		for _, e := range rep.Errors {
			fmt.Fprintln(w, e)
		}
	}
	if rec.Failure != "" {
		fmt.Fprintf(w, "Failure\t%s\n", rec.Failure)
	}

	if err := w.Flush(); err != nil {
		return nil, errors.Wrap(err, "failed to render text report")
	}
	return buf.Bytes(), nil
}
