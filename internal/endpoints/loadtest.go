package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"loadtest-server/internal/dispatcher"
	"loadtest-server/internal/loadtest"
	"loadtest-server/internal/store"
	"loadtest-server/models"
)

// PostLoadTestEndpoint runs a load test and answers with its report
func (e *Endpoints) PostLoadTestEndpoint(c *gin.Context) {
	var params models.LoadTestParams
	if err := c.ShouldBindJSON(&params); err != nil {
		ginErrBadRequest(c, errors.Wrap(err, "invalid request body"))
		return
	}

	rec, err := e.dispatcher.Dispatch(c.Request.Context(), params)
	switch {
	case err == nil:
	case loadtest.IsInvalidInput(err):
		ginErrBadRequest(c, err)
		return
	case err == dispatcher.ErrBusy:
		ginErrTooManyRequests(c, err)
		return
	default:
		ginErrInternalServerError(c, err)
		return
	}

	c.Header("X-Loadtest-Id", rec.ID)
	c.JSON(http.StatusOK, rec.Report)
}

// GetLoadTestsEndpoint lists runs, filtered by the optional status query
func (e *Endpoints) GetLoadTestsEndpoint(c *gin.Context) {
	filter := make(models.FilterParams)
	if status := c.Query("status"); status != "" {
		filter["status"] = status
	}
	c.JSON(http.StatusOK, e.dispatcher.ListIds(filter))
}

func (e *Endpoints) GetLoadTestByIDEndpoint(c *gin.Context) {
	rec, err := e.dispatcher.Get(c.Param("id"))
	if err != nil {
		e.storeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// DeleteLoadTestEndpoint removes a finished run from the history
func (e *Endpoints) DeleteLoadTestEndpoint(c *gin.Context) {
	err := e.dispatcher.Delete(c.Param("id"))
	if err == dispatcher.ErrRunning {
		ginErrConflict(c, err)
		return
	}
	if err != nil {
		e.storeErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetReportEndpoint renders a run as json (default) or text
func (e *Endpoints) GetReportEndpoint(c *gin.Context) {
	format := models.NewFormat(c.DefaultQuery("format", string(models.JSONFormat)))

	resp, err := e.reporter.GetInFormat(c.Param("id"), format)
	if err != nil {
		e.storeErr(c, err)
		return
	}

	switch format {
	case models.TextFormat:
		c.Data(http.StatusOK, "text/plain; charset=utf-8", resp)
	default:
		c.Data(http.StatusOK, "application/json; charset=utf-8", resp)
	}
}

func (e *Endpoints) storeErr(c *gin.Context, err error) {
	if errors.Cause(err) == store.ErrNotFound {
		ginErrNotFound(c, err)
		return
	}
	e.log.WithError(err).Error("Failed to read load test")
	ginErrInternalServerError(c, err)
}
