// Package dispatcher runs load tests on behalf of API callers and keeps a
// record of every run in a store.
package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"loadtest-server/internal/loadtest"
	"loadtest-server/internal/store"
	"loadtest-server/models"
)

// DefaultMaxActiveRuns caps how many load tests may run at the same time
const DefaultMaxActiveRuns = 4

var (
	// ErrBusy is returned when the active run limit is reached
	ErrBusy = errors.New("too many load tests are running, try again later")
	// ErrRunning is returned when deleting a run that has not finished
	ErrRunning = errors.New("load test is still running")
)

// Runner executes a single load test
type Runner interface {
	Normalize(p models.LoadTestParams) (models.EffectiveParams, error)
	Run(ctx context.Context, p models.LoadTestParams) (*loadtest.Result, error)
}

// IDispatcher is the interface the HTTP endpoints depend on
type IDispatcher interface {
	Dispatch(ctx context.Context, p models.LoadTestParams) (*models.RunRecord, error)
	ListIds(filter models.FilterParams) []*models.LoadTestBaseInfo
	Get(id string) (*models.RunRecord, error)
	Delete(id string) error
}

type dispatcher struct {
	runner Runner
	store  store.Store
	log    *logrus.Entry

	mu        sync.Mutex
	active    int
	maxActive int
}

// NewDispatcher creates a dispatcher backed by runner and st
func NewDispatcher(runner Runner, st store.Store, maxActive int, log *logrus.Entry) IDispatcher {
	if maxActive <= 0 {
		maxActive = DefaultMaxActiveRuns
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &dispatcher{
		runner:    runner,
		store:     st,
		log:       log.WithField("component", "dispatcher"),
		maxActive: maxActive,
	}
}

// Dispatch validates p, runs the load test to completion and records it.
// Invalid input is returned before any record is created.
func (d *dispatcher) Dispatch(ctx context.Context, p models.LoadTestParams) (*models.RunRecord, error) {
	params, err := d.runner.Normalize(p)
	if err != nil {
		return nil, err
	}

	if !d.acquire() {
		return nil, ErrBusy
	}
	defer d.release()

	rec := &models.RunRecord{
		ID:        uuid.NewV4().String(),
		Params:    params,
		Status:    models.RunRunning,
		StartedAt: time.Now(),
	}
	log := d.log.WithField("id", rec.ID)

	if err := d.store.Add(rec); err != nil {
		return nil, errors.Wrap(err, "failed to record load test")
	}
	log.Debug("Load test scheduled")

	res, err := d.runner.Run(ctx, p)
	if err == nil && ctx.Err() != nil {
		err = errors.Wrap(ctx.Err(), "load test cancelled")
	}
	now := time.Now()
	rec.CompletedAt = &now

	if err != nil {
		rec.Status = models.RunFailed
		rec.Failure = err.Error()
		if serr := d.store.Add(rec); serr != nil {
			log.WithError(serr).Error("Failed to record failed load test")
		}
		log.WithError(err).Error("Load test failed")
		return rec, err
	}

	rec.Status = models.RunCompleted
	rec.Batches = res.Batches
	rec.Report = &res.Report
	rec.Latencies = res.Latencies
	rec.StatusCodes = res.StatusCodes

	if err := d.store.Add(rec); err != nil {
		// the caller still gets the report, only the history is missing
		log.WithError(err).Error("Failed to record completed load test")
	}

	return rec, nil
}

// ListIds returns the runs matching filter. Only "status" is supported.
func (d *dispatcher) ListIds(filter models.FilterParams) []*models.LoadTestBaseInfo {
	recs, err := d.store.GetAll()
	if err != nil {
		d.log.WithError(err).Error("Failed to list load tests")
		return nil
	}

	status := filter["status"]
	result := make([]*models.LoadTestBaseInfo, 0, len(recs))
	for _, rec := range recs {
		if status != "" && string(rec.Status) != status {
			continue
		}
		result = append(result, &models.LoadTestBaseInfo{
			ID:     rec.ID,
			Params: rec.Params,
			Status: rec.Status,
		})
	}
	return result
}

func (d *dispatcher) Get(id string) (*models.RunRecord, error) {
	return d.store.Get(id)
}

// Delete removes a finished run from the history
func (d *dispatcher) Delete(id string) error {
	rec, err := d.store.Get(id)
	if err != nil {
		return err
	}
	if rec.Status == models.RunRunning {
		return ErrRunning
	}
	if err := d.store.Delete(id); err != nil {
		return errors.Wrapf(err, "failed to delete run %s", id)
	}
	d.log.WithField("id", id).Debug("Load test deleted")
	return nil
}

func (d *dispatcher) acquire() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active >= d.maxActive {
		return false
	}
	d.active++
	return true
}

func (d *dispatcher) release() {
	d.mu.Lock()
	d.active--
	d.mu.Unlock()
}
