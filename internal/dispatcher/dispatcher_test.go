package dispatcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loadtest-server/internal/loadtest"
	"loadtest-server/internal/store"
	"loadtest-server/models"
)

func intPtr(v int) *int {
	return &v
}

type blockingRunner struct {
	*loadtest.Engine
	started chan struct{}
	release chan struct{}
}

func (r *blockingRunner) Run(ctx context.Context, p models.LoadTestParams) (*loadtest.Result, error) {
	r.started <- struct{}{}
	<-r.release
	return r.Engine.Run(ctx, p)
}

type faultyRunner struct {
	*loadtest.Engine
}

func (r *faultyRunner) Run(ctx context.Context, p models.LoadTestParams) (*loadtest.Result, error) {
	return nil, errors.New("engine exploded")
}

func TestDispatchRecordsCompletedRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	st := store.NewLocalStore()
	d := NewDispatcher(loadtest.NewEngine(), st, 1, nil)

	rec, err := d.Dispatch(context.Background(), models.LoadTestParams{
		URL:                srv.URL,
		TotalRequests:      intPtr(6),
		ConcurrentRequests: intPtr(3),
	})
	require.NoError(t, err)
	require.NotNil(t, rec.Report)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, models.RunCompleted, rec.Status)
	assert.Equal(t, 6, rec.Report.SuccessfulRequests)
	assert.Equal(t, 2, rec.Batches)
	assert.NotNil(t, rec.CompletedAt)

	stored, err := d.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, stored.Status)
	assert.Equal(t, 6, stored.StatusCodes["200"])
}

func TestDispatchInvalidInputCreatesNoRecord(t *testing.T) {
	st := store.NewLocalStore()
	d := NewDispatcher(loadtest.NewEngine(), st, 1, nil)

	_, err := d.Dispatch(context.Background(), models.LoadTestParams{})
	require.Error(t, err)
	assert.True(t, loadtest.IsInvalidInput(err))

	all, err := st.GetAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDispatchRecordsFailedRun(t *testing.T) {
	st := store.NewLocalStore()
	d := NewDispatcher(&faultyRunner{loadtest.NewEngine()}, st, 1, nil)

	rec, err := d.Dispatch(context.Background(), models.LoadTestParams{URL: "http://localhost"})
	require.EqualError(t, err, "engine exploded")
	assert.Equal(t, models.RunFailed, rec.Status)
	assert.Equal(t, "engine exploded", rec.Failure)

	failed := d.ListIds(models.FilterParams{"status": string(models.RunFailed)})
	require.Len(t, failed, 1)
	assert.Equal(t, rec.ID, failed[0].ID)
}

func TestDispatchBusy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	runner := &blockingRunner{
		Engine:  loadtest.NewEngine(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	d := NewDispatcher(runner, store.NewLocalStore(), 1, nil)
	p := models.LoadTestParams{URL: srv.URL, TotalRequests: intPtr(1)}

	done := make(chan error)
	go func() {
		_, err := d.Dispatch(context.Background(), p)
		done <- err
	}()
	<-runner.started

	running := d.ListIds(models.FilterParams{"status": string(models.RunRunning)})
	assert.Len(t, running, 1)

	_, err := d.Dispatch(context.Background(), p)
	assert.Equal(t, ErrBusy, err)

	close(runner.release)
	require.NoError(t, <-done)

	assert.Empty(t, d.ListIds(models.FilterParams{"status": string(models.RunRunning)}))
	assert.Len(t, d.ListIds(models.FilterParams{"status": string(models.RunCompleted)}), 1)
	assert.Len(t, d.ListIds(models.FilterParams{}), 1)
}

func TestDispatchCancelledRunIsFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDispatcher(loadtest.NewEngine(), store.NewLocalStore(), 1, nil)
	rec, err := d.Dispatch(ctx, models.LoadTestParams{
		URL:                srv.URL,
		TotalRequests:      intPtr(3),
		ConcurrentRequests: intPtr(3),
	})
	require.Error(t, err)
	assert.Equal(t, context.Canceled, errors.Cause(err))
	assert.Equal(t, models.RunFailed, rec.Status)
	assert.Contains(t, rec.Failure, "load test cancelled")
	assert.Nil(t, rec.Report)

	assert.Empty(t, d.ListIds(models.FilterParams{"status": string(models.RunCompleted)}))
	assert.Len(t, d.ListIds(models.FilterParams{"status": string(models.RunFailed)}), 1)
}

func TestDeleteRun(t *testing.T) {
	st := store.NewLocalStore()
	d := NewDispatcher(&faultyRunner{loadtest.NewEngine()}, st, 1, nil)

	rec, _ := d.Dispatch(context.Background(), models.LoadTestParams{URL: "http://localhost"})
	require.NotNil(t, rec)

	require.NoError(t, d.Delete(rec.ID))
	_, err := d.Get(rec.ID)
	assert.Equal(t, store.ErrNotFound, err)
	assert.Equal(t, store.ErrNotFound, d.Delete(rec.ID))

	require.NoError(t, st.Add(&models.RunRecord{ID: "active", Status: models.RunRunning}))
	assert.Equal(t, ErrRunning, d.Delete("active"))
	_, err = d.Get("active")
	assert.NoError(t, err)
}
